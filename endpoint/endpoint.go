// Package endpoint provides the HTTP plumbing used to host RPC endpoints.
//
// A request passes through three phases:
//
//  1. Processors: middleware-style logic (authentication, headers) that runs
//     in order and may short-circuit the request with an error.
//  2. Endpoint: the EndpointFunc executes business logic and returns a
//     Renderer. It does not write to the response directly.
//  3. Render: the returned Renderer writes the status code, headers and body.
//
// Errors returned by processors or the endpoint become plain-text HTTP error
// responses; an EndpointError selects the status code.
package endpoint

import (
	"errors"
	"io"
	"net/http"
)

// EndpointError is a client-visible error that maps directly to an HTTP status code.
type EndpointError struct {
	Status int
	// Message is a short, human-readable description suitable for an HTTP error body.
	Message string
	Cause   error
}

func (e *EndpointError) Error() string {
	if e == nil {
		return "endpoint: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error creates a new EndpointError. An err that already is an EndpointError
// is returned unchanged.
func Error(status int, message string, err error) error {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return err
	}
	return &EndpointError{Status: status, Message: message, Cause: err}
}

// Renderer writes a response into an http.ResponseWriter.
//
// Protocol:
//   - Renderers MUST call w.WriteHeader() and then write the body, if any.
//   - Renderers may set headers before calling w.WriteHeader().
//
// A non-nil error indicates a failure to write the response; by then the
// status has usually been sent, so the error can only be logged.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(w http.ResponseWriter, r *http.Request) error

func (f RendererFunc) Render(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Processor is middleware-style logic that runs before the endpoint.
//
// Protocol:
//   - Processors MUST call next(...), unless they intend to
//     short-circuit the request.
//   - Processors may set response headers but MUST NOT call w.WriteHeader(...)
//     or write to the response body.
//
// If any processor returns a non-nil error, the chain stops immediately and
// that error is turned into the HTTP response.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// EndpointFunc executes the business logic of an endpoint and returns the
// Renderer for its response.
type EndpointFunc func(w http.ResponseWriter, r *http.Request) (Renderer, error)

// EndpointHandler is the http.Handler for an EndpointFunc and its processors.
type EndpointHandler struct {
	Endpoint   EndpointFunc
	Processors []Processor
	// OnRenderError, if set, is called when the Renderer fails. The status
	// may already have been sent.
	OnRenderError func(r *http.Request, err error)
}

// Handler constructs an EndpointHandler.
func Handler(fn EndpointFunc, processors ...Processor) *EndpointHandler {
	return &EndpointHandler{
		Endpoint:   fn,
		Processors: processors,
	}
}

// ServeHTTP implements http.Handler.
func (h *EndpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Endpoint == nil {
		http.Error(w, "endpoint: nil EndpointFunc", http.StatusInternalServerError)
		return
	}

	rendered := false
	var run func(i int, w2 http.ResponseWriter, r2 *http.Request) error
	run = func(i int, w2 http.ResponseWriter, r2 *http.Request) error {
		if i < 0 || i > len(h.Processors) {
			return errors.New("endpoint: invalid processor index")
		} else if i < len(h.Processors) {
			if h.Processors[i] == nil {
				return errors.New("endpoint: nil processor")
			}
			return h.Processors[i].Process(w2, r2, func(w3 http.ResponseWriter, r3 *http.Request) error {
				return run(i+1, w3, r3)
			})
		}

		renderer, err := h.Endpoint(w2, r2)
		if err != nil {
			return err
		}
		if renderer == nil {
			return errors.New("endpoint: nil renderer")
		}
		if c, ok := renderer.(io.Closer); ok {
			defer c.Close()
		}
		rendered = true
		return renderer.Render(w2, r2)
	}

	err := run(0, w, r)
	if err == nil {
		return
	}
	if rendered && h.OnRenderError != nil {
		h.OnRenderError(r, err)
	}

	status := http.StatusInternalServerError
	message := err.Error()
	var ee *EndpointError
	if errors.As(err, &ee) && ee != nil {
		if ee.Status >= 100 {
			status = ee.Status
		}
		message = ee.Message
		if message == "" {
			message = http.StatusText(status)
		}
	}
	http.Error(w, message, status)
}
