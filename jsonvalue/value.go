// Package jsonvalue binds the jsonrpc value interfaces to JSON text.
//
// Incoming messages are read in place with gjson; responses are built with
// sjson in a single reusable buffer.
package jsonvalue

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/tidwall/gjson"
)

// ContentType is the media type handled by Codec.
const ContentType = "application/json"

// ErrSyntax is returned by Parse for input that is not valid JSON.
var ErrSyntax = errors.New("jsonvalue: invalid JSON")

// Parse returns a view of the JSON document in data.
func Parse(data []byte) (jsonrpc.Value, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrSyntax
	}
	return value{r: gjson.ParseBytes(data)}, nil
}

type value struct {
	r gjson.Result
}

func (v value) Kind() jsonrpc.Kind {
	switch v.r.Type {
	case gjson.Null:
		return jsonrpc.KindNull
	case gjson.False, gjson.True:
		return jsonrpc.KindBool
	case gjson.Number:
		if isInteger(v.r.Raw) {
			return jsonrpc.KindInt
		}
		return jsonrpc.KindFloat
	case gjson.String:
		return jsonrpc.KindString
	case gjson.JSON:
		if v.r.IsArray() {
			return jsonrpc.KindArray
		}
		if v.r.IsObject() {
			return jsonrpc.KindObject
		}
	}
	return jsonrpc.KindUnknown
}

// isInteger reports whether the number literal raw has no fraction or
// exponent and fits in an int64.
func isInteger(raw string) bool {
	if strings.ContainsAny(raw, ".eE") {
		return false
	}
	_, err := strconv.ParseInt(raw, 10, 64)
	return err == nil
}

func (v value) Field(name string) (jsonrpc.Value, bool) {
	if !v.r.IsObject() {
		return nil, false
	}
	m := v.r.Get(escapeKey(name))
	if !m.Exists() {
		return nil, false
	}
	return value{r: m}, true
}

func (v value) Index(i int) (jsonrpc.Value, bool) {
	if !v.r.IsArray() || i < 0 {
		return nil, false
	}
	e := v.r.Get(strconv.Itoa(i))
	if !e.Exists() {
		return nil, false
	}
	return value{r: e}, true
}

func (v value) Len() int {
	switch {
	case v.r.IsArray():
		return int(v.r.Get("#").Int())
	case v.r.IsObject():
		n := 0
		v.r.ForEach(func(_, _ gjson.Result) bool {
			n++
			return true
		})
		return n
	}
	return 0
}

func (v value) Keys() []string {
	if !v.r.IsObject() {
		return nil
	}
	var keys []string
	v.r.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.Str)
		return true
	})
	return keys
}

func (v value) Bool() bool {
	return v.r.Type == gjson.True
}

func (v value) Int() int64 {
	if v.r.Type != gjson.Number {
		return 0
	}
	return v.r.Int()
}

func (v value) Float() float64 {
	if v.r.Type != gjson.Number {
		return 0
	}
	return v.r.Num
}

func (v value) Text() string {
	if v.r.Type != gjson.String {
		return ""
	}
	return v.r.Str
}

// Marshal returns the JSON text of v, which may come from any wire format.
func Marshal(v jsonrpc.Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	if jv, ok := v.(value); ok {
		return []byte(jv.r.Raw), nil
	}
	d := NewDocument(nil)
	jsonrpc.SetValue(d, "v", v)
	if d.err != nil {
		return nil, d.err
	}
	return []byte(gjson.GetBytes(d.buf, "v").Raw), nil
}

var _ jsonrpc.Keyed = value{}

// pathSpecial holds the characters with a meaning in gjson/sjson paths.
const pathSpecial = `.*?|#@\!=<>%:[]{}`

// escapeKey turns an object member name into a single path component.
func escapeKey(name string) string {
	if !strings.ContainsAny(name, pathSpecial) {
		return name
	}
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		if strings.IndexByte(pathSpecial, name[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(name[i])
	}
	return sb.String()
}
