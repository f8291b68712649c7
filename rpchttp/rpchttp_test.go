package rpchttp

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mnehpets/tinyrpc/builtin"
	"github.com/mnehpets/tinyrpc/cborvalue"
	"github.com/mnehpets/tinyrpc/endpoint"
	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/seal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	reg := jsonrpc.NewRegistry(8)
	require.NoError(t, builtin.Register(reg))
	require.NoError(t, reg.RegisterFunc("panic", func(jsonrpc.Value, jsonrpc.Object) {
		panic("boom")
	}))
	return NewServer(jsonrpc.NewDispatcher(reg), opts...)
}

func post(t *testing.T, h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_JSON(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := post(t, h, "application/json", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, rec.Body.String())
}

func TestServer_DefaultsToJSON(t *testing.T) {
	rec := post(t, newTestServer(t).Handler(), "", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, rec.Body.String())
}

func TestServer_ContentTypeParameters(t *testing.T) {
	rec := post(t, newTestServer(t).Handler(), "application/json; charset=utf-8", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RPCErrorsAre200(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := post(t, h, "application/json", `{"jsonrpc":"2.0","id":"x","method":"nope"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","id":"x","error":{"code":-32601,"message":"Method not found"}}`, rec.Body.String())

	rec = post(t, h, "application/json", `{"jsonrpc":"2.0","id":1,`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, rec.Body.String())

	rec = post(t, h, "application/json", ``)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":-32700`)
}

func TestServer_TransportErrors(t *testing.T) {
	s := newTestServer(t, WithMaxBodyBytes(64))
	h := s.Handler()

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rpc", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	})

	t.Run("unsupported media type", func(t *testing.T) {
		rec := post(t, h, "text/plain", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		rec := post(t, h, "application/json", `{"jsonrpc":"2.0","id":1,"method":"echo","params":["`+strings.Repeat("a", 64)+`"]}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestServer_HandlerPanic(t *testing.T) {
	rec := post(t, newTestServer(t).Handler(), "application/json", `{"jsonrpc":"2.0","id":9,"method":"panic"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"jsonrpc":"2.0","id":9,"error":{"code":-32603,"message":"Internal error"}}`, rec.Body.String())
}

func TestServer_Processors(t *testing.T) {
	deny := endpoint.ProcessorFunc(func(_ http.ResponseWriter, _ *http.Request, _ func(http.ResponseWriter, *http.Request) error) error {
		return endpoint.Error(http.StatusUnauthorized, "", nil)
	})
	rec := post(t, newTestServer(t).Handler(deny), "application/json", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_CBOR(t *testing.T) {
	req := cborvalue.NewDocument()
	req.SetString("jsonrpc", "2.0")
	req.SetInt("id", 3)
	req.SetString("method", "add")
	params := req.SetArray("params")
	params.AppendFloat(1.5)
	params.AppendFloat(2.25)
	body, err := req.Encode()
	require.NoError(t, err)

	rec := post(t, newTestServer(t).Handler(), "application/cbor", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/cbor", rec.Header().Get("Content-Type"))

	resp, err := cborvalue.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	result, ok := resp.Field("result")
	require.True(t, ok)
	assert.Equal(t, 3.75, result.Float())
}

func newSealer(t *testing.T) *seal.Codec {
	t.Helper()
	key := make([]byte, seal.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	c, err := seal.NewCodec("k1", map[string][]byte{"k1": key}, nil)
	require.NoError(t, err)
	return c
}

func TestServer_Sealed(t *testing.T) {
	sealer := newSealer(t)
	h := newTestServer(t, WithSealer(sealer)).Handler()

	aad := AAD("/rpc", "application/json")
	body, err := sealer.Seal([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), aad)
	require.NoError(t, err)

	rec := post(t, h, "application/json", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	plain, err := sealer.Open(rec.Body.Bytes(), aad)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":"pong"}`, string(plain))

	// Unsealed bodies are refused.
	rec = post(t, h, "application/json", `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A body sealed for another wire format is refused.
	body, err = sealer.Seal([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), AAD("/rpc", "application/cbor"))
	require.NoError(t, err)
	rec = post(t, h, "application/json", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAAD(t *testing.T) {
	assert.Equal(t, "/:application/json", string(AAD("", "application/json")))
	assert.Equal(t, "/rpc:application/cbor", string(AAD("/rpc", "application/cbor")))
}

func TestClient_Call(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	c, err := NewClient(srv.URL + "/rpc")
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.Call(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Text())

	res, err = c.Call(ctx, "add", 1.5, 2.0)
	require.NoError(t, err)
	assert.Equal(t, jsonrpc.KindFloat, res.Kind())
	assert.Equal(t, 3.5, res.Float())

	res, err = c.Call(ctx, "not", true)
	require.NoError(t, err)
	assert.Equal(t, jsonrpc.KindBool, res.Kind())
	assert.False(t, res.Bool())

	res, err = c.Call(ctx, "rpc.methods")
	require.NoError(t, err)
	assert.Equal(t, len(builtin.Names)+1, res.Len())
}

func TestClient_RPCError(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t).Handler())
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "nope")
	var rpcErr *jsonrpc.Error
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, rpcErr.Code)
	assert.Equal(t, "Method not found", rpcErr.Message)

	// An integer where a float is expected is rejected.
	_, err = c.Call(context.Background(), "add", 1, 2)
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, jsonrpc.CodeInvalidParams, rpcErr.Code)
}

func TestClient_CBORAndSealed(t *testing.T) {
	sealer := newSealer(t)
	srv := httptest.NewServer(newTestServer(t, WithSealer(sealer)).Handler())
	defer srv.Close()

	c, err := NewClient(srv.URL+"/rpc", WithClientCodec(cborvalue.Codec{}), WithClientSealer(sealer))
	require.NoError(t, err)

	res, err := c.Call(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text())
}

func TestClient_BearerToken(t *testing.T) {
	var gotAuth string
	checkAuth := endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		gotAuth = r.Header.Get("Authorization")
		if gotAuth != "Bearer t0ken" {
			return endpoint.Error(http.StatusUnauthorized, "", nil)
		}
		return next(w, r)
	})
	srv := httptest.NewServer(newTestServer(t).Handler(checkAuth))
	defer srv.Close()

	ctx := context.Background()
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "t0ken"}))
	c, err := NewClient(srv.URL, WithHTTPClient(hc))
	require.NoError(t, err)

	res, err := c.Call(ctx, "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", res.Text())
	assert.Equal(t, "Bearer t0ken", gotAuth)

	// Without credentials the call fails at the HTTP level.
	anon, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = anon.Call(ctx, "ping")
	var se *StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestClient_Errors(t *testing.T) {
	_, err := NewClient("ftp://example.com/rpc")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if bytes.Contains(b, []byte(`"id":1`)) {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":2,"result":true}`))
			return
		}
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "ping")
	assert.ErrorIs(t, err, ErrBadResponse, "id mismatch")
	_, err = c.Call(context.Background(), "ping")
	assert.ErrorIs(t, err, ErrBadResponse, "not json")

	_, err = c.Call(context.Background(), "ping", struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedParam)
}

func TestClient_IDsIncrement(t *testing.T) {
	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		ids = append(ids, string(b))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":0,"result":null}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	c.Call(context.Background(), "a")
	c.Call(context.Background(), "b", "x", int64(2), nil)

	require.Len(t, ids, 2)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"method":"a"}`, ids[0])
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"method":"b","params":["x",2,null]}`, ids[1])
}
