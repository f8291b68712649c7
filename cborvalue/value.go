// Package cborvalue binds the jsonrpc value interfaces to CBOR (RFC 8949).
//
// CBOR carries the same request and response objects as JSON in a compact
// binary form, which suits links where every byte counts. Decoding is bounded:
// nesting depth, array length and map size are capped, duplicate map keys
// are rejected and map keys must be text strings.
package cborvalue

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/mnehpets/tinyrpc/jsonrpc"
)

// ContentType is the media type handled by Codec.
const ContentType = "application/cbor"

// Decoding limits.
const (
	MaxNestedLevels  = 16
	MaxArrayElements = 256
	MaxMapPairs      = 256
)

var decMode = mustDecMode(cbor.DecOptions{
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	MaxNestedLevels:  MaxNestedLevels,
	MaxArrayElements: MaxArrayElements,
	MaxMapPairs:      MaxMapPairs,
	DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
})

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	dm, err := opts.DecMode()
	if err != nil {
		panic("cborvalue: " + err.Error())
	}
	return dm
}

// Decode returns a view of the CBOR data item in data.
func Decode(data []byte) (jsonrpc.Value, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("cborvalue: decode: %w", err)
	}
	return node{v: v}, nil
}

// Diagnose returns the extended diagnostic notation of data, for logs and
// terminal output.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// node wraps a value decoded into the empty interface.
type node struct {
	v any
}

func (n node) Kind() jsonrpc.Kind {
	switch x := n.v.(type) {
	case nil:
		return jsonrpc.KindNull
	case bool:
		return jsonrpc.KindBool
	case int64:
		return jsonrpc.KindInt
	case uint64:
		if x <= math.MaxInt64 {
			return jsonrpc.KindInt
		}
		return jsonrpc.KindFloat
	case float32, float64:
		return jsonrpc.KindFloat
	case string:
		return jsonrpc.KindString
	case []any:
		return jsonrpc.KindArray
	case map[string]any:
		return jsonrpc.KindObject
	}
	return jsonrpc.KindUnknown
}

func (n node) Field(name string) (jsonrpc.Value, bool) {
	m, ok := n.v.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[name]
	if !ok {
		return nil, false
	}
	return node{v: v}, true
}

func (n node) Index(i int) (jsonrpc.Value, bool) {
	a, ok := n.v.([]any)
	if !ok || i < 0 || i >= len(a) {
		return nil, false
	}
	return node{v: a[i]}, true
}

func (n node) Len() int {
	switch x := n.v.(type) {
	case []any:
		return len(x)
	case map[string]any:
		return len(x)
	}
	return 0
}

// Keys returns the member names of a map in sorted order.
func (n node) Keys() []string {
	m, ok := n.v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n node) Bool() bool {
	b, _ := n.v.(bool)
	return b
}

func (n node) Int() int64 {
	switch x := n.v.(type) {
	case int64:
		return x
	case uint64:
		return int64(x)
	}
	return 0
}

func (n node) Float() float64 {
	switch x := n.v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return 0
}

func (n node) Text() string {
	s, _ := n.v.(string)
	return s
}

var _ jsonrpc.Keyed = node{}
