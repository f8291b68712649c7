package builtin

import (
	"testing"

	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/mnehpets/tinyrpc/jsonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, d *jsonrpc.Dispatcher, in string) string {
	t.Helper()
	msg, err := jsonvalue.Parse([]byte(in))
	require.NoError(t, err)
	doc := jsonvalue.NewDocument(nil)
	d.Process(msg, doc)
	return string(doc.Bytes())
}

func TestRegister(t *testing.T) {
	reg := jsonrpc.NewRegistry(len(Names))
	require.NoError(t, Register(reg))
	assert.Equal(t, Names, reg.Names())

	assert.ErrorIs(t, Register(jsonrpc.NewRegistry(2)), jsonrpc.ErrCapacityExceeded)
}

func TestMethods(t *testing.T) {
	reg := jsonrpc.NewRegistry(len(Names))
	require.NoError(t, Register(reg))
	d := jsonrpc.NewDispatcher(reg)

	tests := []struct {
		in   string
		want string
	}{
		{`{"jsonrpc":"2.0","id":1,"method":"ping"}`, `{"jsonrpc":"2.0","id":1,"result":"pong"}`},
		{`{"jsonrpc":"2.0","id":1,"method":"ping","params":[1,2]}`, `{"jsonrpc":"2.0","id":1,"result":"pong"}`},
		{`{"jsonrpc":"2.0","id":2,"method":"echo","params":["hi"]}`, `{"jsonrpc":"2.0","id":2,"result":"hi"}`},
		{`{"jsonrpc":"2.0","id":2,"method":"echo","params":[5]}`, `{"jsonrpc":"2.0","id":2,"error":{"code":-32602,"message":"Invalid params"}}`},
		{`{"jsonrpc":"2.0","id":2,"method":"echo"}`, `{"jsonrpc":"2.0","id":2,"error":{"code":-32602,"message":"Invalid params"}}`},
		{`{"jsonrpc":"2.0","id":3,"method":"add","params":[1.5,2.5]}`, `{"jsonrpc":"2.0","id":3,"result":4.0}`},
		{`{"jsonrpc":"2.0","id":3,"method":"add","params":[1.5]}`, `{"jsonrpc":"2.0","id":3,"error":{"code":-32602,"message":"Invalid params"}}`},
		{`{"jsonrpc":"2.0","id":3,"method":"add","params":[1,2]}`, `{"jsonrpc":"2.0","id":3,"error":{"code":-32602,"message":"Invalid params"}}`},
		{`{"jsonrpc":"2.0","id":4,"method":"not","params":[true]}`, `{"jsonrpc":"2.0","id":4,"result":false}`},
		{`{"jsonrpc":"2.0","id":4,"method":"not","params":[3.5]}`, `{"jsonrpc":"2.0","id":4,"error":{"code":-32602,"message":"Invalid params"}}`},
		{`{"jsonrpc":"2.0","id":5,"method":"rpc.methods"}`, `{"jsonrpc":"2.0","id":5,"result":["ping","echo","add","not","rpc.methods"]}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, call(t, d, tt.in), tt.in)
	}
}
