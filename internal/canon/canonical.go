package canon

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// EncodingError reports a Value that cannot be canonicalized: a non-finite
// float, or (by construction — the Value interface is sealed) any type
// outside the closed set. Spec §4.1 names this exactly.
type EncodingError struct {
	Path   string
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("canon: encoding error: %s", e.Reason)
	}
	return fmt.Sprintf("canon: encoding error at %s: %s", e.Path, e.Reason)
}

// EncodeNormalForm produces the canonical byte representation of v. The
// encoding is total over the closed Value set (modulo EncodingError for
// non-finite floats and cycles) and re-encoding produces identical bytes
// every time. Distinct values produce distinct bytes, with one exception:
// strings that differ only in Unicode normalization form encode to the
// same bytes, since every string is NFC-normalized first. This is the only
// encoding internal/cid may hash.
//
// Rules:
//   - object keys are sorted per RFC 8785 (UTF-16 code unit order)
//   - integers are plain decimal of variable width (no leading zeros, no
//     "+"); they are not padded to a fixed width
//   - floats use the shortest round-tripping decimal form; NaN and ±Inf
//     are rejected
//   - strings are NFC-normalized before UTF-8 encoding, with JSON escaping
//     restricted to the minimum required set (no HTML escaping)
//   - no incidental whitespace anywhere
func EncodeNormalForm(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, "", make(map[uintptr]bool)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// seen tracks the map/slice pointers currently open on the recursion
// stack, keyed by their backing-array address. It is an ancestor check,
// not a visited-ever set: the same Object or Array reused at two sibling
// positions (legitimate DAG sharing) is fine, since each branch pops its
// own entry before the next one opens; only a value that contains itself
// transitively — the pointer reappearing while still on the stack — trips
// the check.
func encode(buf *bytes.Buffer, v Value, path string, seen map[uintptr]bool) error {
	switch val := v.(type) {
	case nil:
		return &EncodingError{Path: path, Reason: "nil is not a canon.Value; use canon.Null{}"}
	case Null:
		buf.WriteString("null")
		return nil
	case String:
		return encodeString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case Float:
		return encodeFloat(buf, float64(val), path)
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Array:
		return encodeArray(buf, val, path, seen)
	case Object:
		return encodeObject(buf, val, path, seen)
	default:
		return &EncodingError{Path: path, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// enter registers ptr as open on the recursion stack, returning an
// EncodingError if it is already open (a cycle) and a release func to pop
// it once the caller is done descending. A zero pointer (nil map/slice)
// never collides with a real allocation, so it is let through unchecked.
func enter(ptr uintptr, path, kind string, seen map[uintptr]bool) (func(), error) {
	if ptr == 0 {
		return func() {}, nil
	}
	if seen[ptr] {
		return nil, &EncodingError{Path: path, Reason: fmt.Sprintf("cycle detected in attribute %s", kind)}
	}
	seen[ptr] = true
	return func() { delete(seen, ptr) }, nil
}

func encodeFloat(buf *bytes.Buffer, f float64, path string) error {
	if math.IsNaN(f) {
		return &EncodingError{Path: path, Reason: "NaN is forbidden in canonical encoding"}
	}
	if math.IsInf(f, 0) {
		return &EncodingError{Path: path, Reason: "±Inf is forbidden in canonical encoding"}
	}
	// Shortest round-tripping decimal form (spec §9's pinned normal form).
	// strconv's 'g' verb with precision -1 already produces this; we only
	// need to adjust integral values, which it spells like an Int.
	s := strconv.FormatFloat(f, 'g', -1, 64)
	switch {
	case f == math.Trunc(f) && !hasExponent(s):
		// Integral float: keep a visible ".0" so the wire form can never be
		// confused with Int at the byte level.
		if f == 0 && math.Signbit(f) {
			s = "-0.0"
		} else {
			s = strconv.FormatFloat(f, 'f', 1, 64)
		}
	}
	buf.WriteString(s)
	return nil
}

func hasExponent(s string) bool {
	for _, r := range s {
		if r == 'e' || r == 'E' {
			return true
		}
	}
	return false
}

func encodeString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)
	buf.WriteByte('"')
	for _, r := range normalized {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
	return nil
}

func encodeArray(buf *bytes.Buffer, arr Array, path string, seen map[uintptr]bool) error {
	release, err := enter(reflect.ValueOf(arr).Pointer(), path, "array", seen)
	if err != nil {
		return err
	}
	defer release()

	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, elem, fmt.Sprintf("%s[%d]", path, i), seen); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *bytes.Buffer, obj Object, path string, seen map[uintptr]bool) error {
	release, err := enter(reflect.ValueOf(obj).Pointer(), path, "map", seen)
	if err != nil {
		return err
	}
	defer release()

	buf.WriteByte('{')
	keys := obj.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		childPath := path + "." + k
		if path == "" {
			childPath = k
		}
		if err := encode(buf, obj[k], childPath, seen); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
