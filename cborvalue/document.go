package cborvalue

import (
	"encoding/binary"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/mnehpets/tinyrpc/jsonrpc"
)

var encMode = mustEncMode(cbor.EncOptions{
	ShortestFloat: cbor.ShortestFloat16,
	NaNConvert:    cbor.NaNConvert7e00,
	InfConvert:    cbor.InfConvertFloat16,
})

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic("cborvalue: " + err.Error())
	}
	return em
}

// Document is a CBOR map under construction.
//
// Members are encoded in the order they were first set; setting an existing
// member replaces its value in place.
type Document struct {
	mapNode
}

// NewDocument returns an empty map.
func NewDocument() *Document {
	return &Document{}
}

// Encode implements jsonrpc.Document.
func (d *Document) Encode() ([]byte, error) {
	return d.mapNode.MarshalCBOR()
}

// mapNode keeps members in insertion order; a Go map would lose it.
type mapNode struct {
	keys []string
	vals []any
}

func (m *mapNode) set(name string, v any) {
	for i, k := range m.keys {
		if k == name {
			m.vals[i] = v
			return
		}
	}
	m.keys = append(m.keys, name)
	m.vals = append(m.vals, v)
}

func (m *mapNode) SetString(name, v string) { m.set(name, v) }
func (m *mapNode) SetInt(name string, v int64) { m.set(name, v) }
func (m *mapNode) SetFloat(name string, v float64) { m.set(name, v) }
func (m *mapNode) SetBool(name string, v bool) { m.set(name, v) }
func (m *mapNode) SetNull(name string) { m.set(name, nil) }

func (m *mapNode) SetObject(name string) jsonrpc.Object {
	c := &mapNode{}
	m.set(name, c)
	return c
}

func (m *mapNode) SetArray(name string) jsonrpc.Array {
	c := &arrayNode{}
	m.set(name, c)
	return c
}

// MarshalCBOR writes a definite-length map head followed by the members.
func (m *mapNode) MarshalCBOR() ([]byte, error) {
	b := appendHead(nil, majorMap, uint64(len(m.keys)))
	for i, k := range m.keys {
		kb, err := encMode.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := encMode.Marshal(m.vals[i])
		if err != nil {
			return nil, err
		}
		b = append(b, kb...)
		b = append(b, vb...)
	}
	return b, nil
}

type arrayNode struct {
	items []any
}

func (a *arrayNode) AppendString(v string) { a.items = append(a.items, v) }
func (a *arrayNode) AppendInt(v int64) { a.items = append(a.items, v) }
func (a *arrayNode) AppendFloat(v float64) { a.items = append(a.items, v) }
func (a *arrayNode) AppendBool(v bool) { a.items = append(a.items, v) }
func (a *arrayNode) AppendNull() { a.items = append(a.items, nil) }

func (a *arrayNode) AppendObject() jsonrpc.Object {
	c := &mapNode{}
	a.items = append(a.items, c)
	return c
}

func (a *arrayNode) AppendArray() jsonrpc.Array {
	c := &arrayNode{}
	a.items = append(a.items, c)
	return c
}

func (a *arrayNode) MarshalCBOR() ([]byte, error) {
	if a.items == nil {
		return []byte{majorArray}, nil
	}
	return encMode.Marshal(a.items)
}

// CBOR major types, pre-shifted into the high bits of the initial byte.
const (
	majorArray byte = 4 << 5
	majorMap   byte = 5 << 5
)

// appendHead appends the initial byte and argument of a data item.
func appendHead(b []byte, major byte, n uint64) []byte {
	switch {
	case n < 24:
		return append(b, major|byte(n))
	case n <= math.MaxUint8:
		return append(b, major|24, byte(n))
	case n <= math.MaxUint16:
		return binary.BigEndian.AppendUint16(append(b, major|25), uint16(n))
	case n <= math.MaxUint32:
		return binary.BigEndian.AppendUint32(append(b, major|26), uint32(n))
	}
	return binary.BigEndian.AppendUint64(append(b, major|27), n)
}

// Codec is the CBOR wire format.
type Codec struct{}

func (Codec) ContentType() string { return ContentType }

func (Codec) Decode(data []byte) (jsonrpc.Value, error) { return Decode(data) }

func (Codec) NewDocument() jsonrpc.Document { return NewDocument() }

var (
	_ jsonrpc.Document = (*Document)(nil)
	_ jsonrpc.Codec    = Codec{}
	_ cbor.Marshaler   = (*mapNode)(nil)
	_ cbor.Marshaler   = (*arrayNode)(nil)
)
