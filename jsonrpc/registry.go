package jsonrpc

import (
	"errors"
	"fmt"
)

// MaxMethodNameLen is the longest method name, in bytes, a Registry accepts.
const MaxMethodNameLen = 32

var (
	ErrCapacityExceeded = errors.New("jsonrpc: registry capacity exceeded")
	ErrNameTooLong      = errors.New("jsonrpc: method name too long")
	ErrNilHandler       = errors.New("jsonrpc: nil handler")
)

// Handler serves a single method.
//
// params is the request's params member, or nil when it was omitted. The
// handler communicates its outcome only through resp: it sets either a
// "result" member or an "error" member (see WriteError and Error.Encode).
type Handler interface {
	ServeRPC(params Value, resp Object)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(params Value, resp Object)

func (f HandlerFunc) ServeRPC(params Value, resp Object) {
	f(params, resp)
}

type entry struct {
	name    string
	handler Handler
}

// Registry is a fixed-capacity table of methods.
//
// Methods are registered during initialization; once dispatch starts the
// registry must not be modified. Lookup is a linear scan in registration
// order, so the first of several entries with the same name wins.
type Registry struct {
	// len(entries) is the number of used slots; cap(entries) is fixed.
	entries []entry
}

// NewRegistry returns a registry that holds at most capacity methods.
func NewRegistry(capacity int) *Registry {
	if capacity < 0 {
		capacity = 0
	}
	return &Registry{entries: make([]entry, 0, capacity)}
}

// Register adds a method. It fails with ErrCapacityExceeded when the registry
// is full and with ErrNameTooLong when name is longer than MaxMethodNameLen.
func (r *Registry) Register(name string, h Handler) error {
	if len(r.entries) == cap(r.entries) {
		return fmt.Errorf("%w: %q (capacity %d)", ErrCapacityExceeded, name, cap(r.entries))
	}
	if len(name) > MaxMethodNameLen {
		return fmt.Errorf("%w: %q is %d bytes, max %d", ErrNameTooLong, name, len(name), MaxMethodNameLen)
	}
	if h == nil {
		return fmt.Errorf("%w: %q", ErrNilHandler, name)
	}
	r.entries = append(r.entries, entry{name: name, handler: h})
	return nil
}

// RegisterFunc is Register for a plain function.
func (r *Registry) RegisterFunc(name string, fn func(params Value, resp Object)) error {
	if fn == nil {
		return r.Register(name, nil)
	}
	return r.Register(name, HandlerFunc(fn))
}

// Find returns the first handler registered under name.
func (r *Registry) Find(name string) (Handler, bool) {
	for i := range r.entries {
		if r.entries[i].name == name {
			return r.entries[i].handler, true
		}
	}
	return nil, false
}

// Len returns the number of registered methods.
func (r *Registry) Len() int { return len(r.entries) }

// Cap returns the registry capacity.
func (r *Registry) Cap() int { return cap(r.entries) }

// Names returns the registered method names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i := range r.entries {
		names[i] = r.entries[i].name
	}
	return names
}
