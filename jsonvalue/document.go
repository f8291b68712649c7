package jsonvalue

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mnehpets/tinyrpc/jsonrpc"
	"github.com/tidwall/sjson"
)

// setOptions asks sjson to reuse the document buffer where it can.
var setOptions = &sjson.Options{ReplaceInPlace: true}

// Document is a JSON object under construction.
//
// Members appear in the order they were first set; setting an existing
// member replaces its value in place. The zero value is not usable, use
// NewDocument.
type Document struct {
	buf []byte
	err error
}

// NewDocument returns an empty object. The storage of buf, if any, is reused.
func NewDocument(buf []byte) *Document {
	return &Document{buf: append(buf[:0], '{', '}')}
}

// Reset empties the document and keeps its storage.
func (d *Document) Reset() {
	d.buf = append(d.buf[:0], '{', '}')
	d.err = nil
}

// Bytes returns the document text. The slice is only valid until the next
// modification.
func (d *Document) Bytes() []byte {
	return d.buf
}

// Err returns the first error encountered while building the document.
func (d *Document) Err() error {
	return d.err
}

// Encode implements jsonrpc.Document.
func (d *Document) Encode() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.buf, nil
}

func (d *Document) set(path string, v any) {
	if d.err != nil {
		return
	}
	buf, err := sjson.SetBytesOptions(d.buf, path, v, setOptions)
	if err != nil {
		d.err = fmt.Errorf("jsonvalue: set %s: %w", path, err)
		return
	}
	d.buf = buf
}

func (d *Document) setRaw(path string, raw string) {
	if d.err != nil {
		return
	}
	buf, err := sjson.SetRawBytesOptions(d.buf, path, []byte(raw), setOptions)
	if err != nil {
		d.err = fmt.Errorf("jsonvalue: set %s: %w", path, err)
		return
	}
	d.buf = buf
}

func (d *Document) setFloat(path string, v float64) {
	// JSON has no representation for these.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		d.setRaw(path, "null")
		return
	}
	d.setRaw(path, formatFloat(v))
}

// formatFloat keeps a fraction or exponent on integral values so the
// number reads back as a float.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (d *Document) root() object { return object{d: d} }

func (d *Document) SetString(name, v string) { d.root().SetString(name, v) }
func (d *Document) SetInt(name string, v int64) { d.root().SetInt(name, v) }
func (d *Document) SetFloat(name string, v float64) { d.root().SetFloat(name, v) }
func (d *Document) SetBool(name string, v bool) { d.root().SetBool(name, v) }
func (d *Document) SetNull(name string) { d.root().SetNull(name) }
func (d *Document) SetObject(name string) jsonrpc.Object { return d.root().SetObject(name) }
func (d *Document) SetArray(name string) jsonrpc.Array { return d.root().SetArray(name) }

// object is a nested object addressed by its sjson path.
type object struct {
	d    *Document
	path string
}

func (o object) key(name string) string {
	if o.path == "" {
		return escapeKey(name)
	}
	return o.path + "." + escapeKey(name)
}

func (o object) SetString(name, v string) { o.d.set(o.key(name), v) }
func (o object) SetInt(name string, v int64) { o.d.set(o.key(name), v) }
func (o object) SetFloat(name string, v float64) { o.d.setFloat(o.key(name), v) }
func (o object) SetBool(name string, v bool) { o.d.set(o.key(name), v) }
func (o object) SetNull(name string) { o.d.setRaw(o.key(name), "null") }

func (o object) SetObject(name string) jsonrpc.Object {
	p := o.key(name)
	o.d.setRaw(p, "{}")
	return object{d: o.d, path: p}
}

func (o object) SetArray(name string) jsonrpc.Array {
	p := o.key(name)
	o.d.setRaw(p, "[]")
	return &array{d: o.d, path: p}
}

// array is a nested array addressed by its sjson path. n counts the
// elements appended through this handle.
type array struct {
	d    *Document
	path string
	n    int
}

func (a *array) next() string {
	a.n++
	return a.path + ".-1"
}

func (a *array) AppendString(v string) { a.d.set(a.next(), v) }
func (a *array) AppendInt(v int64) { a.d.set(a.next(), v) }
func (a *array) AppendFloat(v float64) { a.d.setFloat(a.next(), v) }
func (a *array) AppendBool(v bool) { a.d.set(a.next(), v) }
func (a *array) AppendNull() { a.d.setRaw(a.next(), "null") }

func (a *array) AppendObject() jsonrpc.Object {
	i := a.n
	a.d.setRaw(a.next(), "{}")
	return object{d: a.d, path: a.path + "." + strconv.Itoa(i)}
}

func (a *array) AppendArray() jsonrpc.Array {
	i := a.n
	a.d.setRaw(a.next(), "[]")
	return &array{d: a.d, path: a.path + "." + strconv.Itoa(i)}
}

// Codec is the JSON wire format.
type Codec struct{}

func (Codec) ContentType() string { return ContentType }

func (Codec) Decode(data []byte) (jsonrpc.Value, error) { return Parse(data) }

func (Codec) NewDocument() jsonrpc.Document { return NewDocument(nil) }

var (
	_ jsonrpc.Document = (*Document)(nil)
	_ jsonrpc.Codec    = Codec{}
)
