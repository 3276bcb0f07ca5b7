// Package value implements the tagged scalar union stored as the fourth
// component of every datom, and the total order over it.
package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// EntityId identifies an entity. Negative values are temporary ids,
// unresolved until a transaction allocates a permanent positive id. Zero is
// reserved as null.
type EntityId int64

// IsTemp reports whether id is an unresolved temporary id.
func (id EntityId) IsTemp() bool { return id < 0 }

// Kind tags the scalar variant held by a Value. The ordering of these
// constants IS the type-tag order required by spec.md: int < float < string
// < bool < instant < ref < keyword < bytes.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindInstant
	KindRef
	KindKeyword
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInstant:
		return "instant"
	case KindRef:
		return "ref"
	case KindKeyword:
		return "keyword"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged union over the eight scalar kinds the engine stores.
// Only the field matching Kind is meaningful; zero-value Values are not
// valid and must not be constructed directly — use the Of* constructors.
type Value struct {
	kind   Kind
	i      int64
	f      float64
	s      string
	b      bool
	t      time.Time
	ref    EntityId
	bytesV []byte
}

// OfInt builds an int-kind Value.
func OfInt(i int64) Value { return Value{kind: KindInt, i: i} }

// OfFloat builds a float-kind Value.
func OfFloat(f float64) Value { return Value{kind: KindFloat, f: f} }

// OfString builds a string-kind Value.
func OfString(s string) Value { return Value{kind: KindString, s: s} }

// OfBool builds a bool-kind Value.
func OfBool(b bool) Value { return Value{kind: KindBool, b: b} }

// OfInstant builds an instant-kind Value.
func OfInstant(t time.Time) Value { return Value{kind: KindInstant, t: t} }

// OfRef builds a ref-kind Value (an entity reference).
func OfRef(e EntityId) Value { return Value{kind: KindRef, ref: e} }

// OfKeyword builds a keyword-kind Value.
func OfKeyword(s string) Value { return Value{kind: KindKeyword, s: s} }

// OfBytes builds a bytes-kind Value. The slice is copied.
func OfBytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, bytesV: cp}
}

// Kind returns the scalar kind tag.
func (v Value) Kind() Kind { return v.kind }

// Int returns the underlying int64. Only meaningful when Kind() == KindInt.
func (v Value) Int() int64 { return v.i }

// Float returns the underlying float64. Only meaningful when Kind() == KindFloat.
func (v Value) Float() float64 { return v.f }

// Str returns the underlying string. Only meaningful when Kind() is KindString or KindKeyword.
func (v Value) Str() string { return v.s }

// Bool returns the underlying bool. Only meaningful when Kind() == KindBool.
func (v Value) Bool() bool { return v.b }

// Instant returns the underlying time.Time. Only meaningful when Kind() == KindInstant.
func (v Value) Instant() time.Time { return v.t }

// Ref returns the underlying entity id. Only meaningful when Kind() == KindRef.
func (v Value) Ref() EntityId { return v.ref }

// Bytes returns the underlying byte slice. Only meaningful when Kind() == KindBytes.
// The returned slice must not be mutated by the caller.
func (v Value) Bytes() []byte { return v.bytesV }

// IsRef reports whether this value is an entity reference; such values must
// also be recorded in the VAET index per spec.md §4.1.
func (v Value) IsRef() bool { return v.kind == KindRef }

// Equal reports whether two values are equal under the engine's modified
// equality: NaN == NaN (a deliberate deviation from IEEE-754, spec.md §3/§9,
// made so Value is well-founded as a map key).
func (v Value) Equal(o Value) bool {
	return Compare(v, o) == 0
}

// Compare implements the engine's total order over Value: first by type
// tag, then within-kind. NaN is canonicalized to sort after every finite
// float and compares equal to itself.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindInt:
		return cmpInt64(a.i, b.i)
	case KindFloat:
		return cmpFloat(a.f, b.f)
	case KindString, KindKeyword:
		return cmpString(a.s, b.s)
	case KindBool:
		return cmpBool(a.b, b.b)
	case KindInstant:
		return cmpInstant(a.t, b.t)
	case KindRef:
		return cmpInt64(int64(a.ref), int64(b.ref))
	case KindBytes:
		return bytes.Compare(a.bytesV, b.bytesV)
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInstant(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// cmpFloat orders floats with NaN canonicalized to sort after every finite
// value, and equal to itself. This is the one place IEEE-754's "NaN
// compares unordered with everything, including itself" is deliberately
// overridden (spec.md design notes §9).
func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b Value) bool { return Compare(a, b) < 0 }

// Hash returns a hash suitable for grouping candidate values before an
// exact-equality filter, the same two-phase scheme
// other_examples' janus-datalog indexed matcher uses for its value index
// (hash for O(1) bucketing, Equal for the final filter — hash collisions
// are expected and handled by the caller).
func (v Value) Hash() uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	h := uint64(offset64)
	mix := func(b byte) {
		h ^= uint64(b)
		h *= prime64
	}
	mixString := func(s string) {
		for i := 0; i < len(s); i++ {
			mix(s[i])
		}
	}

	mix(byte(v.kind))
	switch v.kind {
	case KindInt, KindRef:
		n := v.i
		if v.kind == KindRef {
			n = int64(v.ref)
		}
		for i := 0; i < 8; i++ {
			mix(byte(n >> (8 * i)))
		}
	case KindFloat:
		bits := math.Float64bits(v.f)
		if math.IsNaN(v.f) {
			// Canonicalize all NaN bit patterns to one hash bucket, matching
			// the Equal/Compare treatment of NaN as a single value.
			bits = 0x7ff8000000000000
		} else if v.f == 0 {
			// -0.0 and +0.0 compare equal, so they share a bucket too.
			bits = 0
		}
		for i := 0; i < 8; i++ {
			mix(byte(bits >> (8 * i)))
		}
	case KindString, KindKeyword:
		mixString(v.s)
	case KindBool:
		if v.b {
			mix(1)
		} else {
			mix(0)
		}
	case KindInstant:
		n := v.t.UnixNano()
		for i := 0; i < 8; i++ {
			mix(byte(n >> (8 * i)))
		}
	case KindBytes:
		for _, b := range v.bytesV {
			mix(b)
		}
	}
	return h
}

// CanonicalKey returns an exact, collision-free string encoding of the
// value, suitable as (part of) a comparable map key — unlike Hash, which is
// a bucketing aid that tolerates collisions, this is injective: distinct
// values under Equal never produce the same key, and NaN collapses to one
// canonical key like it collapses to one Equal class.
func (v Value) CanonicalKey() string {
	switch v.kind {
	case KindInt:
		return "i:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		bits := math.Float64bits(v.f)
		if math.IsNaN(v.f) {
			bits = 0x7ff8000000000000
		} else if v.f == 0 {
			bits = 0
		}
		return "f:" + strconv.FormatUint(bits, 16)
	case KindString:
		return "s:" + v.s
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	case KindInstant:
		return "t:" + strconv.FormatInt(v.t.UnixNano(), 10)
	case KindRef:
		return "r:" + strconv.FormatInt(int64(v.ref), 10)
	case KindKeyword:
		return "k:" + v.s
	case KindBytes:
		return "y:" + string(v.bytesV)
	default:
		return "?"
	}
}

// String renders a debug representation, used in trace spans and test
// failure messages.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInstant:
		return v.t.Format(time.RFC3339Nano)
	case KindRef:
		return fmt.Sprintf("#%d", v.ref)
	case KindKeyword:
		return v.s
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytesV))
	default:
		return "<invalid>"
	}
}
