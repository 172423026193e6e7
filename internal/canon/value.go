package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface representing the constrained set of types a
// payload may be built from. Only Null, String, Int, Float, Bool, Array,
// and Object implement it — nothing else can satisfy Value, so a payload
// built from these types is always canonicalizable.
type Value interface {
	value()
}

// Null represents the canonical JSON null.
type Null struct{}

func (Null) value() {}

// String represents a canonical string value.
type String string

func (String) value() {}

// Int represents a canonical integer value. Always int64; floats that are
// mathematically integral still canonicalize through Float, never Int —
// the wire type, not the value, decides which form applies.
type Int int64

func (Int) value() {}

// Float represents a canonical IEEE-754 binary64 value. NaN and ±Inf are
// rejected at encode time (see EncodeNormalForm); every other value has one
// normal form, the shortest decimal that round-trips exactly.
type Float float64

func (Float) value() {}

// Bool represents a canonical boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence of Values. Order is significant and
// preserved verbatim in the canonical encoding.
type Array []Value

func (Array) value() {}

// Object represents a string-keyed map of Values. Canonical encoding always
// sorts keys; Object itself has no inherent order.
type Object map[string]Value

func (Object) value() {}

// NewObject builds an Object from key/value pairs, a lighter-weight
// alternative to composite literals when keys are computed.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Pair is a single key/value entry used by NewObject.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for constructing a Pair.
func P(key string, v Value) Pair { return Pair{Key: key, Value: v} }

// SortedKeys returns this Object's keys ordered per RFC 8785: by UTF-16
// code unit, not Go's native UTF-8 byte order (the two differ outside the
// Basic Multilingual Plane).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	au := utf16.Encode([]rune(a))
	bu := utf16.Encode([]rune(b))
	n := min(len(au), len(bu))
	for i := 0; i < n; i++ {
		if au[i] != bu[i] {
			if au[i] < bu[i] {
				return -1
			}
			return 1
		}
	}
	return len(au) - len(bu)
}

// FromJSON converts an already-decoded Go value (as produced by
// json.Decoder with UseNumber) into the closed Value set. A JSON null
// (untyped nil), at the top level or nested, becomes an explicit Null{}.
func FromJSON(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("canon: %s is neither int64 nor float64", val)
		}
		return Float(f), nil
	case float64:
		return Float(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			cv, err := FromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("canon: array[%d]: %w", i, err)
			}
			arr[i] = cv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			cv, err := FromJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("canon: object[%q]: %w", k, err)
			}
			obj[k] = cv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("canon: unsupported type %T", v)
	}
}

// MarshalJSON renders a Value as ordinary (non-canonical) JSON, suitable
// for logs, debug output, and API responses. Use EncodeNormalForm for
// anything that feeds a CID computation.
func MarshalJSON(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array:
		return marshalArray(val)
	case Object:
		return marshalObject(val)
	default:
		return nil, fmt.Errorf("canon: unknown Value type %T", v)
	}
}

func marshalArray(arr Array) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := MarshalJSON(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalObject(obj Object) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	keys := obj.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalJSON(obj[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
