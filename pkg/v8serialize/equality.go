package v8serialize

import "math"

// nanKey is a canonical sentinel so that every NaN double hashes and compares
// equal to every other NaN under same-value-zero, without relying on NaN's
// own (always-false) equality.
type nanKey struct{}

type boolKey bool

// identityKey distinguishes same-value-zero equality (by address/handle) from
// value equality for everything that isn't an atom, a string, or a number.
type identityKey struct {
	ptr interface{}
}

// sameValueZero computes the JavaScript same-value-zero surrogate key for v,
// suitable for use as a Go map key in JSMap/JSSet storage. Semantics (spec
// §4.5): booleans are never equal to numbers; all NaNs compare equal; numbers
// and strings compare by value (+0 == -0 falls out of plain float64 equality
// except for NaN, handled above); everything else compares by identity.
func sameValueZero(v Value) interface{} {
	switch v.Type() {
	case TypeBool:
		return boolKey(v.AsBool())
	case TypeInt32:
		return float64(v.AsInt32())
	case TypeUint32:
		return float64(v.AsUint32())
	case TypeDouble:
		f := v.AsDouble()
		if math.IsNaN(f) {
			return nanKey{}
		}
		return f
	case TypeString:
		return v.AsString()
	case TypeUndefined:
		return identityKey{ptr: "undefined"}
	case TypeNull:
		return identityKey{ptr: "null"}
	default:
		// Everything else (objects, arrays, maps, sets, buffers, ...) compares
		// by identity: the underlying pointer/slice header's data pointer
		// stands in for V8's object handle.
		return identityKey{ptr: v.identity()}
	}
}
