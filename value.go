package bplist

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"time"
)

const (
	secondsPerMinute       = 60
	secondsPerHour         = 60 * secondsPerMinute
	secondsPerDay          = 24 * secondsPerHour
	unixToCocoa      int64 = (31*365 + 31/4 + 1) * secondsPerDay
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	IntegerKind
	RealKind
	DateKind
	DataKind
	StringKind
	UIDKind
	ArrayKind
	DictionaryKind
)

var kindNames = [...]string{
	NullKind:       "null",
	BoolKind:       "bool",
	IntegerKind:    "integer",
	RealKind:       "real",
	DateKind:       "date",
	DataKind:       "data",
	StringKind:     "string",
	UIDKind:        "uid",
	ArrayKind:      "array",
	DictionaryKind: "dictionary",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is a decoded property list object. The set of implementations is
// closed: Null, Bool, Integer, Real, Date, Data, String, UID, Array and
// Dictionary.
type Value interface {
	Kind() Kind
	plistValue()
}

// Null is the bplist null (and fill) object.
type Null struct{}

// Bool is a boolean object.
type Bool bool

// Integer is an integer object of arbitrary width. The zero value is 0.
type Integer struct {
	v *big.Int
}

// Real is a floating point object; 32-bit reals are widened.
type Real float64

// Date is a point in time stored as seconds since 2001-01-01T00:00:00Z.
type Date float64

// Data is an opaque byte string.
type Data []byte

// String is a text object.
type String string

// UID is an object reference used by keyed archives.
type UID uint64

// Array is an ordered list of values.
type Array []Value

// Dictionary maps string keys to values, preserving the order in which the
// entries were stored. Keys[i] pairs with Values[i].
type Dictionary struct {
	Keys   []string
	Values []Value
}

func (Null) Kind() Kind       { return NullKind }
func (Bool) Kind() Kind       { return BoolKind }
func (Integer) Kind() Kind    { return IntegerKind }
func (Real) Kind() Kind       { return RealKind }
func (Date) Kind() Kind       { return DateKind }
func (Data) Kind() Kind       { return DataKind }
func (String) Kind() Kind     { return StringKind }
func (UID) Kind() Kind        { return UIDKind }
func (Array) Kind() Kind      { return ArrayKind }
func (Dictionary) Kind() Kind { return DictionaryKind }

func (Null) plistValue()       {}
func (Bool) plistValue()       {}
func (Integer) plistValue()    {}
func (Real) plistValue()       {}
func (Date) plistValue()       {}
func (Data) plistValue()       {}
func (String) plistValue()     {}
func (UID) plistValue()        {}
func (Array) plistValue()      {}
func (Dictionary) plistValue() {}

// NewInteger returns a signed Integer.
func NewInteger(i int64) Integer {
	return Integer{v: big.NewInt(i)}
}

// NewUnsignedInteger returns an Integer holding u.
func NewUnsignedInteger(u uint64) Integer {
	return Integer{v: new(big.Int).SetUint64(u)}
}

// NewBigInteger returns an Integer holding a copy of b.
func NewBigInteger(b *big.Int) Integer {
	return Integer{v: new(big.Int).Set(b)}
}

func (i Integer) big() *big.Int {
	if i.v == nil {
		return new(big.Int)
	}
	return i.v
}

// Big returns a copy of the integer.
func (i Integer) Big() *big.Int {
	return new(big.Int).Set(i.big())
}

// Int64 returns the value and whether it fits in an int64.
func (i Integer) Int64() (int64, bool) {
	b := i.big()
	if !b.IsInt64() {
		return 0, false
	}
	return b.Int64(), true
}

// Uint64 returns the value and whether it fits in a uint64.
func (i Integer) Uint64() (uint64, bool) {
	b := i.big()
	if !b.IsUint64() {
		return 0, false
	}
	return b.Uint64(), true
}

// Sign returns -1, 0 or +1.
func (i Integer) Sign() int {
	return i.big().Sign()
}

func (i Integer) String() string {
	return i.big().String()
}

// Equal reports whether i and o hold the same number.
func (i Integer) Equal(o Integer) bool {
	return i.big().Cmp(o.big()) == 0
}

// DateFromTime converts t to a Date.
func DateFromTime(t time.Time) Date {
	sec := t.Unix() - unixToCocoa
	return Date(float64(sec) + float64(t.Nanosecond())/1e9)
}

// Unix returns the date as (possibly fractional) seconds since the Unix epoch.
func (d Date) Unix() float64 {
	return float64(d) + float64(unixToCocoa)
}

// Time returns the date in UTC, rounded to the nanosecond.
func (d Date) Time() time.Time {
	sec, frac := math.Modf(float64(d))
	nsec := math.Round(frac * 1e9)
	return time.Unix(int64(sec)+unixToCocoa, int64(nsec)).UTC()
}

// Len returns the number of entries.
func (d Dictionary) Len() int {
	return len(d.Keys)
}

// Get returns the value stored under key. When a key occurs more than
// once the last occurrence wins, matching how such documents are read
// back by Foundation.
func (d Dictionary) Get(key string) (Value, bool) {
	for i := len(d.Keys) - 1; i >= 0; i-- {
		if d.Keys[i] == key {
			return d.Values[i], true
		}
	}
	return nil, false
}

// Equal reports whether two values are structurally identical. Reals and
// dates compare by bit pattern so NaN equals itself.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Integer:
		return av.Equal(b.(Integer))
	case Real:
		return math.Float64bits(float64(av)) == math.Float64bits(float64(b.(Real)))
	case Date:
		return math.Float64bits(float64(av)) == math.Float64bits(float64(b.(Date)))
	case Data:
		return bytes.Equal(av, b.(Data))
	case String:
		return av == b.(String)
	case UID:
		return av == b.(UID)
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dictionary:
		bv := b.(Dictionary)
		if len(av.Keys) != len(bv.Keys) || len(av.Values) != len(bv.Values) {
			return false
		}
		for i := range av.Keys {
			if av.Keys[i] != bv.Keys[i] || !Equal(av.Values[i], bv.Values[i]) {
				return false
			}
		}
		return true
	}
	return unreachable(a)
}

// unreachable is called from the default arm of every exhaustive switch over
// Value; it can only fire if a new variant was added without updating them.
func unreachable(v Value) bool {
	panic(fmt.Sprintf("bplist: unhandled value type %T", v))
}
