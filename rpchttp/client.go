package rpchttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/jsonvalue"
)

// MaxResponseBytes bounds the response bodies a Client reads.
const MaxResponseBytes = 1 << 20

var (
	ErrUnsupportedParam = errors.New("rpchttp: unsupported param type")
	ErrBadResponse      = errors.New("rpchttp: malformed response")
)

// StatusError is returned by Client.Call for non-200 HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := http.StatusText(e.StatusCode)
	if e.Body != "" {
		msg = e.Body
	}
	return fmt.Sprintf("rpchttp: http %d: %s", e.StatusCode, msg)
}

// Client calls methods on a remote Server.
//
// A Client is safe for concurrent use. Request ids are consecutive integers
// starting at 1.
type Client struct {
	url    string
	path   string
	http   *http.Client
	codec  jsonrpc.Codec
	sealer Sealer
	nextID atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client, for example one returned by
// oauth2.NewClient. The default is http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientCodec sets the wire format. The default is JSON.
func WithClientCodec(codec jsonrpc.Codec) ClientOption {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithClientSealer seals requests and opens responses.
func WithClientSealer(sealer Sealer) ClientOption {
	return func(c *Client) {
		c.sealer = sealer
	}
}

// NewClient returns a client posting to endpointURL.
func NewClient(endpointURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return nil, fmt.Errorf("rpchttp: endpoint url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("rpchttp: endpoint url: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		url:   endpointURL,
		path:  u.Path,
		http:  http.DefaultClient,
		codec: jsonvalue.Codec{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call invokes method with positional params and returns the result member
// of the response. Params may be nil, bool, int, int64, float32, float64 or
// string. An error response is returned as a *jsonrpc.Error.
func (c *Client) Call(ctx context.Context, method string, params ...any) (jsonrpc.Value, error) {
	id := c.nextID.Add(1)
	doc := c.codec.NewDocument()
	doc.SetString("jsonrpc", jsonrpc.Version)
	doc.SetInt("id", id)
	doc.SetString("method", method)
	if len(params) > 0 {
		arr := doc.SetArray("params")
		for i, p := range params {
			if err := appendParam(arr, p); err != nil {
				return nil, fmt.Errorf("%w: param %d: %T", err, i, p)
			}
		}
	}
	body, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("rpchttp: encode request: %w", err)
	}

	ct := c.codec.ContentType()
	aad := AAD(c.path, ct)
	if c.sealer != nil {
		if body, err = c.sealer.Seal(body, aad); err != nil {
			return nil, fmt.Errorf("rpchttp: seal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", ct)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("rpchttp: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if c.sealer != nil {
		if data, err = c.sealer.Open(data, aad); err != nil {
			return nil, fmt.Errorf("rpchttp: open response: %w", err)
		}
	}

	msg, err := c.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return result(msg, id)
}

func result(msg jsonrpc.Value, id int64) (jsonrpc.Value, error) {
	if msg.Kind() != jsonrpc.KindObject {
		return nil, fmt.Errorf("%w: not an object", ErrBadResponse)
	}
	if e, ok := msg.Field("error"); ok && e != nil && e.Kind() == jsonrpc.KindObject {
		rpcErr := &jsonrpc.Error{}
		if code, ok := e.Field("code"); ok && code.Kind() == jsonrpc.KindInt {
			rpcErr.Code = int(code.Int())
		}
		if m, ok := e.Field("message"); ok && m.Kind() == jsonrpc.KindString {
			rpcErr.Message = m.Text()
		}
		return nil, rpcErr
	}
	if rid, ok := msg.Field("id"); !ok || rid.Kind() != jsonrpc.KindInt || rid.Int() != id {
		return nil, fmt.Errorf("%w: id mismatch", ErrBadResponse)
	}
	r, ok := msg.Field("result")
	if !ok {
		return nil, fmt.Errorf("%w: no result", ErrBadResponse)
	}
	return r, nil
}

func appendParam(arr jsonrpc.Array, p any) error {
	switch v := p.(type) {
	case nil:
		arr.AppendNull()
	case bool:
		arr.AppendBool(v)
	case int:
		arr.AppendInt(int64(v))
	case int64:
		arr.AppendInt(v)
	case float32:
		arr.AppendFloat(float64(v))
	case float64:
		arr.AppendFloat(v)
	case string:
		arr.AppendString(v)
	default:
		return ErrUnsupportedParam
	}
	return nil
}
