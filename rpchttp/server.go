// Package rpchttp carries JSON-RPC requests over HTTP POST.
//
// The wire format is picked from the request's Content-Type: JSON
// (application/json, also used when the header is absent) or CBOR
// (application/cbor). Protocol-level failures are reported inside the
// response body with HTTP status 200; transport-level failures use HTTP
// status codes:
//
//   - 405 for methods other than POST
//   - 413 for bodies larger than the configured limit
//   - 415 for unsupported media types
//   - 400 for sealed bodies that fail to open
//
// With a Sealer configured, request and response bodies are sealed, bound to
// the request path and wire format (see AAD).
package rpchttp

import (
	"fmt"
	"net/http"

	"github.com/mnehpets/tinyrpc/cborvalue"
	"github.com/mnehpets/tinyrpc/endpoint"
	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/jsonvalue"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 16 << 10

// Sealer seals and opens message bodies. *seal.Codec implements it.
type Sealer interface {
	Seal(plain, aad []byte) ([]byte, error)
	Open(msg, aad []byte) ([]byte, error)
}

// AAD returns the additional data that binds a sealed body to the endpoint
// path and the wire format.
func AAD(path, contentType string) []byte {
	if path == "" {
		path = "/"
	}
	return []byte(path + ":" + contentType)
}

// Server hosts a Dispatcher.
type Server struct {
	dispatcher *jsonrpc.Dispatcher
	codecs     map[string]jsonrpc.Codec
	sealer     Sealer
	maxBody    int64
	log        zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCodec adds or replaces the codec for its content type.
func WithCodec(c jsonrpc.Codec) ServerOption {
	return func(s *Server) {
		s.codecs[c.ContentType()] = c
	}
}

// WithSealer requires sealed request bodies and seals responses.
func WithSealer(sealer Sealer) ServerOption {
	return func(s *Server) {
		s.sealer = sealer
	}
}

// WithMaxBodyBytes sets the request body limit.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithServerLogger sets the logger for transport failures.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer returns a Server for d accepting JSON and CBOR.
func NewServer(d *jsonrpc.Dispatcher, opts ...ServerOption) *Server {
	s := &Server{
		dispatcher: d,
		codecs: map[string]jsonrpc.Codec{
			jsonvalue.ContentType: jsonvalue.Codec{},
			cborvalue.ContentType: cborvalue.Codec{},
		},
		maxBody: DefaultMaxBodyBytes,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns an http.Handler running processors before the endpoint.
func (s *Server) Handler(processors ...endpoint.Processor) http.Handler {
	h := endpoint.Handler(s.Endpoint, processors...)
	h.OnRenderError = func(r *http.Request, err error) {
		s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("write response")
	}
	return h
}

// Endpoint is the endpoint function serving one request.
func (s *Server) Endpoint(w http.ResponseWriter, r *http.Request) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	mt := endpoint.MediaType(r)
	if mt == "" {
		mt = jsonvalue.ContentType
	}
	codec, ok := s.codecs[mt]
	if !ok {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported media type %q", mt), nil)
	}

	body, err := endpoint.ReadBody(w, r, s.maxBody)
	if err != nil {
		s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("read request")
		return nil, err
	}

	aad := AAD(r.URL.Path, codec.ContentType())
	if s.sealer != nil {
		body, err = s.sealer.Open(body, aad)
		if err != nil {
			s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("open sealed request")
			return nil, endpoint.Error(http.StatusBadRequest, "invalid sealed body", err)
		}
	}

	// A body the codec rejects is handed on as nil and answered with a
	// parse error.
	msg, err := codec.Decode(body)
	if err != nil {
		s.log.Debug().Err(err).Msg("decode request")
		msg = nil
	}

	doc := s.process(msg, codec)
	out, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("rpchttp: encode response: %w", err)
	}
	if s.sealer != nil {
		if out, err = s.sealer.Seal(out, aad); err != nil {
			return nil, fmt.Errorf("rpchttp: seal response: %w", err)
		}
	}
	return &endpoint.BytesRenderer{
		ContentType: codec.ContentType(),
		Body:        out,
	}, nil
}

// process runs the dispatcher, turning a handler panic into an internal
// error response.
func (s *Server) process(msg jsonrpc.Value, codec jsonrpc.Codec) (doc jsonrpc.Document) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("handler panic")
			doc = codec.NewDocument()
			doc.SetString("jsonrpc", jsonrpc.Version)
			copyID(msg, doc)
			jsonrpc.WriteError(doc, jsonrpc.CodeInternalError)
		}
	}()
	doc = codec.NewDocument()
	s.dispatcher.Process(msg, doc)
	return doc
}

// copyID echoes a valid request id, or null.
func copyID(msg jsonrpc.Value, resp jsonrpc.Object) {
	if msg != nil {
		if id, ok := msg.Field("id"); ok && id != nil {
			switch id.Kind() {
			case jsonrpc.KindInt:
				resp.SetInt("id", id.Int())
				return
			case jsonrpc.KindString:
				resp.SetString("id", id.Text())
				return
			}
		}
	}
	resp.SetNull("id")
}
