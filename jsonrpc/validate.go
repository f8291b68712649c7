package jsonrpc

// Version is the only protocol version accepted and emitted.
const Version = "2.0"

// request is the part of a validated message the dispatcher needs.
type request struct {
	method string
	params Value
}

// validate checks msg against the structural rules of a request, in order:
// parse failure, id, method, jsonrpc. The first failure is written to resp
// and ok is false. On success the id has already been echoed into resp.
func validate(msg Value, resp Object) (req request, code int, ok bool) {
	if msg == nil {
		resp.SetNull("id")
		WriteError(resp, CodeParseError)
		return req, CodeParseError, false
	}

	// A message that is not an object has no id and is rejected here.
	id, found := msg.Field("id")
	switch {
	case found && id != nil && id.Kind() == KindInt:
		resp.SetInt("id", id.Int())
	case found && id != nil && id.Kind() == KindString:
		resp.SetString("id", id.Text())
	default:
		resp.SetNull("id")
		WriteError(resp, CodeInvalidRequest)
		return req, CodeInvalidRequest, false
	}

	method, found := msg.Field("method")
	if !found || method == nil || method.Kind() != KindString {
		WriteError(resp, CodeInvalidRequest)
		return req, CodeInvalidRequest, false
	}

	version, found := msg.Field("jsonrpc")
	if !found || version == nil || version.Kind() != KindString || version.Text() != Version {
		WriteError(resp, CodeInvalidRequest)
		return req, CodeInvalidRequest, false
	}

	req.method = method.Text()
	if params, found := msg.Field("params"); found {
		req.params = params
	}
	return req, 0, true
}
