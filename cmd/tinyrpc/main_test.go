package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mnehpets/tinyrpc/cborvalue"
	"github.com/mnehpets/tinyrpc/config"
	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/jsonvalue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and stdin.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "disabled"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDispatchCommand_JSON(t *testing.T) {
	out, err := run(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "dispatch")
	require.NoError(t, err)
	assert.Equal(t, "{\"jsonrpc\":\"2.0\",\"id\":1,\"result\":\"pong\"}\n", out)

	out, err = run(t, `{"jsonrpc":"2.0","id":"x","method":"nope"}`, "dispatch")
	require.NoError(t, err)
	assert.Equal(t, "{\"jsonrpc\":\"2.0\",\"id\":\"x\",\"error\":{\"code\":-32601,\"message\":\"Method not found\"}}\n", out)

	out, err = run(t, `garbage`, "dispatch")
	require.NoError(t, err)
	assert.Contains(t, out, `"code":-32700`)
}

func TestDispatchCommand_CBORDiag(t *testing.T) {
	req := cborvalue.NewDocument()
	req.SetString("jsonrpc", "2.0")
	req.SetInt("id", 1)
	req.SetString("method", "echo")
	req.SetArray("params").AppendString("hi")
	in, err := req.Encode()
	require.NoError(t, err)

	out, err := run(t, string(in), "dispatch", "--cbor", "--diag")
	require.NoError(t, err)
	assert.Equal(t, "{\"jsonrpc\": \"2.0\", \"id\": 1, \"result\": \"hi\"}\n", out)

	out, err = run(t, string(in), "dispatch", "--cbor")
	require.NoError(t, err)
	resp, err := cborvalue.Decode([]byte(out))
	require.NoError(t, err)
	res, _ := resp.Field("result")
	assert.Equal(t, "hi", res.Text())
}

func TestDispatchOnce(t *testing.T) {
	reg, err := newRegistry(8)
	require.NoError(t, err)
	d := jsonrpc.NewDispatcher(reg)

	out, err := dispatchOnce(d, jsonvalue.Codec{}, []byte(`{"jsonrpc":"2.0","id":1,"method":"not","params":[false]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":true}`, string(out))

	// {"jsonrpc": "2.0", "id": 1} has no method.
	in, _ := hex.DecodeString("a2676a736f6e72706363322e3062696401")
	out, err = dispatchOnce(d, cborvalue.Codec{}, in)
	require.NoError(t, err)
	diag, err := cborvalue.Diagnose(out)
	require.NoError(t, err)
	assert.Contains(t, diag, "-32600")
}

func TestNewRegistry_TooSmall(t *testing.T) {
	_, err := newRegistry(1)
	assert.ErrorIs(t, err, jsonrpc.ErrCapacityExceeded)
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"null", nil},
		{"true", true},
		{"false", false},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"2.0", 2.0},
		{"1e3", 1000.0},
		{"hello", "hello"},
		{"eel", "eel"},
		{`"42"`, "42"},
		{`"a\tb"`, "a\tb"},
		{`""`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseParam(tt.in), tt.in)
	}
}

func TestCallCommand(t *testing.T) {
	cfg := config.Default()
	h, err := newHandler(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	out, err := run(t, "", "call", "--url", srv.URL+cfg.Path, "add", "1.5", "2.0")
	require.NoError(t, err)
	assert.Equal(t, "3.5\n", out)

	out, err = run(t, "", "call", "--url", srv.URL+cfg.Path, "--cbor", "rpc.methods")
	require.NoError(t, err)
	assert.Equal(t, "[\"ping\",\"echo\",\"add\",\"not\",\"rpc.methods\"]\n", out)

	_, err = run(t, "", "call", "--url", srv.URL+cfg.Path, "nope")
	require.Error(t, err)
	assert.True(t, isRPCError(err))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", true)
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger(&buf, "loud", false)
	assert.Error(t, err)
}

func TestIsRPCError(t *testing.T) {
	assert.True(t, isRPCError(jsonrpc.NewError(jsonrpc.CodeInternalError)))
	assert.False(t, isRPCError(errors.New("plain")))
}
