package types

import (
	"fmt"
	"math"
	"time"
)

// Value is the closed sum of Astarte values. Concrete implementations are
// defined below; the unexported marker method prevents other packages from
// inventing new variants outside the declared taxonomy.
type Value interface {
	// Kind returns the value's kind, used to match against a mapping's
	// declared type without any implicit coercion.
	Kind() Kind
	// String renders a human-readable representation of the value.
	String() string

	astarteValue()
}

// Double is a 64-bit floating point value. NaN and +/-Inf are rejected at
// validation time, not at construction time, so malformed values can still
// be inspected/logged before being discarded.
type Double float64

func (Double) Kind() Kind        { return KindDouble }
func (d Double) String() string  { return fmt.Sprintf("%v", float64(d)) }
func (Double) astarteValue()     {}
func (d Double) IsFinite() bool  { return !math.IsNaN(float64(d)) && !math.IsInf(float64(d), 0) }

type Integer int32

func (Integer) Kind() Kind       { return KindInteger }
func (i Integer) String() string { return fmt.Sprintf("%d", int32(i)) }
func (Integer) astarteValue()    {}

type Boolean bool

func (Boolean) Kind() Kind       { return KindBoolean }
func (b Boolean) String() string { return fmt.Sprintf("%t", bool(b)) }
func (Boolean) astarteValue()    {}

type LongInteger int64

func (LongInteger) Kind() Kind       { return KindLongInteger }
func (l LongInteger) String() string { return fmt.Sprintf("%d", int64(l)) }
func (LongInteger) astarteValue()    {}

type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }
func (String) astarteValue()    {}

type BinaryBlob []byte

func (BinaryBlob) Kind() Kind       { return KindBinaryBlob }
func (b BinaryBlob) String() string { return fmt.Sprintf("<%d bytes>", len(b)) }
func (BinaryBlob) astarteValue()    {}

// DateTime is UTC, millisecond precision, per the wire contract in spec §6.
type DateTime time.Time

func (DateTime) Kind() Kind { return KindDateTime }
func (d DateTime) String() string {
	return time.Time(d).UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)
}
func (DateTime) astarteValue() {}

type DoubleArray []float64

func (DoubleArray) Kind() Kind       { return KindDoubleArray }
func (a DoubleArray) String() string { return fmt.Sprintf("%v", []float64(a)) }
func (DoubleArray) astarteValue()    {}

// IsFinite reports whether every element is finite (no NaN/Inf).
func (a DoubleArray) IsFinite() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type IntegerArray []int32

func (IntegerArray) Kind() Kind       { return KindIntegerArray }
func (a IntegerArray) String() string { return fmt.Sprintf("%v", []int32(a)) }
func (IntegerArray) astarteValue()    {}

type BooleanArray []bool

func (BooleanArray) Kind() Kind       { return KindBooleanArray }
func (a BooleanArray) String() string { return fmt.Sprintf("%v", []bool(a)) }
func (BooleanArray) astarteValue()    {}

type LongIntegerArray []int64

func (LongIntegerArray) Kind() Kind       { return KindLongIntegerArray }
func (a LongIntegerArray) String() string { return fmt.Sprintf("%v", []int64(a)) }
func (LongIntegerArray) astarteValue()    {}

type StringArray []string

func (StringArray) Kind() Kind       { return KindStringArray }
func (a StringArray) String() string { return fmt.Sprintf("%v", []string(a)) }
func (StringArray) astarteValue()    {}

type BinaryBlobArray [][]byte

func (BinaryBlobArray) Kind() Kind { return KindBinaryBlobArray }
func (a BinaryBlobArray) String() string {
	return fmt.Sprintf("<%d blobs>", len(a))
}
func (BinaryBlobArray) astarteValue() {}

type DateTimeArray []time.Time

func (DateTimeArray) Kind() Kind { return KindDateTimeArray }
func (a DateTimeArray) String() string {
	out := make([]string, len(a))
	for i, t := range a {
		out[i] = DateTime(t).String()
	}
	return fmt.Sprintf("%v", out)
}
func (DateTimeArray) astarteValue() {}

// Equal reports whether two values are deeply equal, both in kind and
// content. Used by the publication pipeline's property-dedup logic.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Double:
		return av == b.(Double)
	case Integer:
		return av == b.(Integer)
	case Boolean:
		return av == b.(Boolean)
	case LongInteger:
		return av == b.(LongInteger)
	case String:
		return av == b.(String)
	case BinaryBlob:
		return blobEqual(av, b.(BinaryBlob))
	case DateTime:
		return time.Time(av).Equal(time.Time(b.(DateTime)))
	case DoubleArray:
		bv := b.(DoubleArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case IntegerArray:
		return intArrayEqual(av, b.(IntegerArray))
	case BooleanArray:
		bv := b.(BooleanArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case LongIntegerArray:
		bv := b.(LongIntegerArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case StringArray:
		bv := b.(StringArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case BinaryBlobArray:
		bv := b.(BinaryBlobArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !blobEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case DateTimeArray:
		bv := b.(DateTimeArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !av[i].Equal(bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func blobEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intArrayEqual(a, b IntegerArray) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
