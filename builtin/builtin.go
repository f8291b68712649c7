// Package builtin provides a small set of methods useful for checking that
// a device is reachable and that values survive the round trip.
//
//	ping            -> "pong"
//	echo(text)      -> text
//	add(a, b)       -> a + b, both floats
//	not(b)          -> !b
//	rpc.methods     -> names of all registered methods
package builtin

import (
	"github.com/mnehpets/tinyrpc/jsonrpc"
)

// Names lists the methods Register adds, in registration order.
var Names = []string{"ping", "echo", "add", "not", "rpc.methods"}

// Register adds the builtin methods to reg.
func Register(reg *jsonrpc.Registry) error {
	methods := []func(jsonrpc.Value, jsonrpc.Object){
		Ping,
		Echo,
		Add,
		Not,
		Methods(reg),
	}
	for i, fn := range methods {
		if err := reg.RegisterFunc(Names[i], fn); err != nil {
			return err
		}
	}
	return nil
}

func Ping(_ jsonrpc.Value, resp jsonrpc.Object) {
	resp.SetString("result", "pong")
}

func Echo(params jsonrpc.Value, resp jsonrpc.Object) {
	var s string
	if !jsonrpc.PositionalParam(params, resp, 0, &s) {
		return
	}
	resp.SetString("result", s)
}

func Add(params jsonrpc.Value, resp jsonrpc.Object) {
	var a, b float64
	if !jsonrpc.PositionalParam(params, resp, 0, &a) || !jsonrpc.PositionalParam(params, resp, 1, &b) {
		return
	}
	resp.SetFloat("result", a+b)
}

func Not(params jsonrpc.Value, resp jsonrpc.Object) {
	var b bool
	if !jsonrpc.PositionalParam(params, resp, 0, &b) {
		return
	}
	resp.SetBool("result", !b)
}

// Methods returns a handler listing the methods in reg.
func Methods(reg *jsonrpc.Registry) jsonrpc.HandlerFunc {
	return func(_ jsonrpc.Value, resp jsonrpc.Object) {
		arr := resp.SetArray("result")
		for _, name := range reg.Names() {
			arr.AppendString(name)
		}
	}
}
