package jsonrpc

import "strconv"

// Error codes reserved by the JSON-RPC 2.0 specification.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Bounds of the implementation-defined server error range.
const (
	CodeServerErrorMin = -32099
	CodeServerErrorMax = -32000
)

const serverErrorMessage = "Server error"

// Message returns the fixed message for code. Codes outside the reserved
// set map to "Server error".
func Message(code int) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInternalError:
		return "Internal error"
	default:
		return serverErrorMessage
	}
}

// IsServerError reports whether code lies in the server error range.
func IsServerError(code int) bool {
	return code >= CodeServerErrorMin && code <= CodeServerErrorMax
}

// WriteError sets the error member of resp to the catalog entry for code.
func WriteError(resp Object, code int) {
	writeError(resp, code, Message(code))
}

func writeError(resp Object, code int, message string) {
	e := resp.SetObject("error")
	e.SetInt("code", int64(code))
	e.SetString("message", message)
}

// Error is a JSON-RPC error object as a Go error.
//
// Handlers use it to report server-defined failures with their own message;
// clients receive it for error responses.
type Error struct {
	Code    int
	Message string
}

// NewError returns an Error carrying the catalog message for code.
func NewError(code int) *Error {
	return &Error{Code: code, Message: Message(code)}
}

func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = Message(e.Code)
	}
	return "jsonrpc: " + msg + " (" + strconv.Itoa(e.Code) + ")"
}

// Encode sets the error member of resp to e. An empty message falls back to
// the catalog.
func (e *Error) Encode(resp Object) {
	msg := e.Message
	if msg == "" {
		msg = Message(e.Code)
	}
	writeError(resp, e.Code, msg)
}
