package jsonrpc

import "github.com/rs/zerolog"

// Dispatcher validates requests, resolves them against a Registry and
// invokes the matching handler.
//
// A Dispatcher keeps no per-call state. Process is synchronous and must not
// be re-entered from a handler.
type Dispatcher struct {
	registry *Registry
	log      zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for rejected requests and method misses.
// The default logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher returns a dispatcher serving the methods in registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = NewRegistry(0)
	}
	d := &Dispatcher{
		registry: registry,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves methods against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Process handles one request.
//
// msg is the decoded request, or nil when the upstream parser could not make
// sense of the message. resp receives the response: "jsonrpc" and "id" are
// always set, followed by either the handler's output or an "error" member.
// Process returns true when a handler was invoked. A nil resp is rejected
// without any effect.
func (d *Dispatcher) Process(msg Value, resp Object) bool {
	if resp == nil {
		return false
	}
	resp.SetString("jsonrpc", Version)

	req, code, ok := validate(msg, resp)
	if !ok {
		d.log.Debug().Int("code", code).Msg("rejected request")
		return false
	}

	h, ok := d.registry.Find(req.method)
	if !ok {
		d.log.Debug().Str("method", req.method).Msg("method not found")
		WriteError(resp, CodeMethodNotFound)
		return false
	}

	h.ServeRPC(req.params, resp)
	return true
}
