// Package jsonrpc provides a JSON-RPC 2.0 request dispatcher for constrained environments.
//
// This package implements the request/response contract of the JSON-RPC 2.0
// specification (https://www.jsonrpc.org/specification) on top of a narrow
// value interface. It does not parse or serialize anything itself: wire
// formats are provided by the jsonvalue (JSON) and cborvalue (CBOR) packages,
// and transports by rpchttp.
//
// # Basic Usage
//
// Create a registry with a fixed capacity, register handlers during startup,
// then hand decoded messages to a Dispatcher:
//
//	reg := jsonrpc.NewRegistry(8)
//	if err := reg.RegisterFunc("ping", func(params jsonrpc.Value, resp jsonrpc.Object) {
//	    resp.SetString("result", "pong")
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	d := jsonrpc.NewDispatcher(reg)
//	msg, err := jsonvalue.Parse(body)
//	if err != nil {
//	    msg = nil // reported as a parse error
//	}
//	doc := jsonvalue.NewDocument(nil)
//	d.Process(msg, doc)
//	out := doc.Bytes()
//
// # Registry
//
// A Registry never grows. Register fails with ErrCapacityExceeded once all
// slots are used and with ErrNameTooLong for names longer than
// MaxMethodNameLen bytes. Lookup is a linear scan; when a name is registered
// twice the first entry wins.
//
// # Validation
//
// Requests are checked in a fixed order and the first failure is reported:
//
//  1. undecodable message: id null, CodeParseError
//  2. id not an integer or string (including absent and null): id null, CodeInvalidRequest
//  3. method missing or not a string: CodeInvalidRequest
//  4. jsonrpc missing or not exactly "2.0": CodeInvalidRequest
//
// Requests without an id are rejected rather than treated as notifications.
//
// # Handlers
//
// A handler receives the params member (nil when omitted) and the response
// object. It writes a "result" member on success, or an error:
//
//	func add(params jsonrpc.Value, resp jsonrpc.Object) {
//	    var a, b float64
//	    if !jsonrpc.PositionalParam(params, resp, 0, &a) ||
//	        !jsonrpc.PositionalParam(params, resp, 1, &b) {
//	        return
//	    }
//	    resp.SetFloat("result", a+b)
//	}
//
// PositionalParam writes CodeInvalidParams into the response itself, so a
// handler simply returns after the first failed extraction.
//
// # Error Handling
//
// Standard error codes are defined as constants:
//   - CodeParseError (-32700)
//   - CodeInvalidRequest (-32600)
//   - CodeMethodNotFound (-32601)
//   - CodeInvalidParams (-32602)
//   - CodeInternalError (-32603)
//
// WriteError uses the fixed message for each code; any other code is
// reported as "Server error". Handlers that need their own message use
// Error.Encode.
package jsonrpc
