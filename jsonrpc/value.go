package jsonrpc

// Kind identifies the type of a decoded value.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindNull:    "null",
	KindBool:    "bool",
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindArray:   "array",
	KindObject:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Value is a read-only view of a decoded message or one of its members.
//
// Implementations are provided by the wire format packages (jsonvalue,
// cborvalue). The dispatcher never retains a Value beyond a single call.
type Value interface {
	Kind() Kind

	// Field returns the named member of an object. ok is false when the
	// value is not an object or has no such member.
	Field(name string) (v Value, ok bool)

	// Index returns the i'th element of an array. ok is false when the
	// value is not an array or i is out of range.
	Index(i int) (v Value, ok bool)

	// Len returns the number of elements of an array or members of an
	// object, and 0 for everything else.
	Len() int

	Bool() bool
	Int() int64
	Float() float64
	Text() string
}

// Object is a mutable object under construction, typically a response.
//
// Setting a member that already exists replaces its value in place.
type Object interface {
	SetString(name, v string)
	SetInt(name string, v int64)
	SetFloat(name string, v float64)
	SetBool(name string, v bool)
	SetNull(name string)
	SetObject(name string) Object
	SetArray(name string) Array
}

// Array is a mutable array under construction.
type Array interface {
	AppendString(v string)
	AppendInt(v int64)
	AppendFloat(v float64)
	AppendBool(v bool)
	AppendNull()
	AppendObject() Object
	AppendArray() Array
}

// Document is a top-level Object that can be serialized to its wire format.
type Document interface {
	Object
	Encode() ([]byte, error)
}

// Codec binds a wire format to the Value and Document abstractions.
type Codec interface {
	// ContentType returns the media type of the wire format.
	ContentType() string
	// Decode returns a view of the message in data. An error means the
	// message could not be parsed at all.
	Decode(data []byte) (Value, error)
	// NewDocument returns an empty top-level object.
	NewDocument() Document
}

// Keyed is implemented by values that can list the member names of an
// object. Both wire format packages implement it.
type Keyed interface {
	Keys() []string
}

// SetValue copies v into the member name of dst. Objects whose Value does
// not implement Keyed are copied empty.
func SetValue(dst Object, name string, v Value) {
	switch v.Kind() {
	case KindBool:
		dst.SetBool(name, v.Bool())
	case KindInt:
		dst.SetInt(name, v.Int())
	case KindFloat:
		dst.SetFloat(name, v.Float())
	case KindString:
		dst.SetString(name, v.Text())
	case KindArray:
		a := dst.SetArray(name)
		for i := 0; i < v.Len(); i++ {
			e, _ := v.Index(i)
			AppendValue(a, e)
		}
	case KindObject:
		copyMembers(dst.SetObject(name), v)
	default:
		dst.SetNull(name)
	}
}

// AppendValue copies v onto the end of dst.
func AppendValue(dst Array, v Value) {
	switch v.Kind() {
	case KindBool:
		dst.AppendBool(v.Bool())
	case KindInt:
		dst.AppendInt(v.Int())
	case KindFloat:
		dst.AppendFloat(v.Float())
	case KindString:
		dst.AppendString(v.Text())
	case KindArray:
		a := dst.AppendArray()
		for i := 0; i < v.Len(); i++ {
			e, _ := v.Index(i)
			AppendValue(a, e)
		}
	case KindObject:
		copyMembers(dst.AppendObject(), v)
	default:
		dst.AppendNull()
	}
}

func copyMembers(dst Object, v Value) {
	k, ok := v.(Keyed)
	if !ok {
		return
	}
	for _, name := range k.Keys() {
		if m, ok := v.Field(name); ok {
			SetValue(dst, name, m)
		}
	}
}
