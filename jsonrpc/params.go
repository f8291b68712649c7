package jsonrpc

// Param lists the Go types PositionalParam can extract.
type Param interface {
	bool | int | int64 | float32 | float64 | string
}

// PositionalParam copies the element at index of a positional params array
// into out.
//
// The element must have exactly the kind matching T: bool for bool, integer
// for int and int64, float for float32 and float64, string for string. An
// integer is not accepted where a float is expected. When params is absent,
// is not an array, index is out of range or the kind does not match, an
// InvalidParams error is written to resp and false is returned; the handler
// should stop extracting and return.
func PositionalParam[T Param](params Value, resp Object, index int, out *T) bool {
	if params == nil || params.Kind() != KindArray {
		WriteError(resp, CodeInvalidParams)
		return false
	}
	v, ok := params.Index(index)
	if !ok || v == nil {
		WriteError(resp, CodeInvalidParams)
		return false
	}
	if !extract(v, out) {
		WriteError(resp, CodeInvalidParams)
		return false
	}
	return true
}

func extract[T Param](v Value, out *T) bool {
	switch p := any(out).(type) {
	case *bool:
		if v.Kind() != KindBool {
			return false
		}
		*p = v.Bool()
	case *int:
		if v.Kind() != KindInt {
			return false
		}
		n := v.Int()
		if int64(int(n)) != n {
			return false
		}
		*p = int(n)
	case *int64:
		if v.Kind() != KindInt {
			return false
		}
		*p = v.Int()
	case *float32:
		if v.Kind() != KindFloat {
			return false
		}
		*p = float32(v.Float())
	case *float64:
		if v.Kind() != KindFloat {
			return false
		}
		*p = v.Float()
	case *string:
		if v.Kind() != KindString {
			return false
		}
		*p = v.Text()
	default:
		return false
	}
	return true
}
