package v8serialize

import "strconv"

// JSObject is an ordered property map plus an integer-indexed array storage
// (spec §4.4). A JSArray is a JSObject variant that additionally re-emits
// with array tags instead of object tags; both share this representation so
// that an object with both named properties and array-like integer keys
// (e.g. the extra properties V8 allows on arrays) behaves consistently.
type JSObject struct {
	keys   []string
	values map[string]Value
	array  arrayStorage // nil until an integer key is set; lazily created
}

// NewJSObject creates an empty ordered object.
func NewJSObject() *JSObject {
	return &JSObject{values: make(map[string]Value)}
}

// normalizeKey reports whether key is a canonical non-negative integer in
// [0, 2^32-1) — i.e. its decimal string form round-trips to itself — per the
// key-normalization rule in spec §4.4. Canonical means no leading zeros
// (except "0" itself) and no leading '+' or whitespace.
func normalizeKey(key string) (uint32, bool) {
	if key == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false
	}
	if n >= maxArrayLength {
		return 0, false
	}
	if strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return uint32(n), true
}

// Set stores a property, routing canonical integer-string keys to the array
// storage and everything else to the ordered property map.
func (o *JSObject) Set(key string, v Value) {
	if idx, ok := normalizeKey(key); ok {
		o.ensureArray(idx + 1)
		o.array.Set(idx, v)
		o.array = maybePromoteOrDemote(o.array)
		return
	}
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// SetElement stores an array element directly by integer index, used by
// JSArray. Exposed here since JSArray embeds *JSObject's array storage.
func (o *JSObject) SetElement(i uint32, v Value) {
	o.ensureArray(i + 1)
	o.array.Set(i, v)
	o.array = maybePromoteOrDemote(o.array)
}

func (o *JSObject) ensureArray(minLen uint32) {
	if o.array == nil {
		if minLen >= minSparseArraySize {
			o.array = newSparseArray(minLen)
		} else {
			o.array = newDenseArray(minLen)
		}
	}
}

// Get returns a named (non-integer-key) property.
func (o *JSObject) Get(key string) (Value, bool) {
	if idx, ok := normalizeKey(key); ok {
		return o.GetElement(idx)
	}
	v, ok := o.values[key]
	return v, ok
}

// GetElement returns the array element at i, or (zero, false) if it's a hole
// or out of range.
func (o *JSObject) GetElement(i uint32) (Value, bool) {
	if o.array == nil {
		return Value{}, false
	}
	return o.array.Get(i)
}

// Keys returns the ordered list of non-integer property names, in insertion
// order (spec §4.4's "properties" half of the split).
func (o *JSObject) Keys() []string {
	return o.keys
}

// ArrayLen returns the logical length of the integer-indexed storage (0 if
// no integer keys have ever been set).
func (o *JSObject) ArrayLen() int {
	if o.array == nil {
		return 0
	}
	return o.array.Len()
}

// ElementIndexes returns the indexes holding non-hole values, in the given
// order.
func (o *JSObject) ElementIndexes(order elementOrder) []uint32 {
	if o.array == nil {
		return nil
	}
	return o.array.Indexes(order)
}

// IsSparse reports whether the array storage is currently the sparse
// representation (used by the encoder to choose begin/end tags).
func (o *JSObject) IsSparse() bool {
	if o.array == nil {
		return false
	}
	_, sparse := o.array.(*sparseArray)
	return sparse
}

// Len returns the total property count: named properties plus populated
// array slots (matches the teacher's prior map-based Len semantics used by
// GoString and the end-tag property counters).
func (o *JSObject) Len() int {
	used := 0
	if o.array != nil {
		used = o.array.ElementsUsed()
	}
	return len(o.keys) + used
}

// JSArray is a JSObject variant that re-emits with array tags (spec §4.4).
type JSArray struct {
	obj *JSObject
}

// NewJSArray creates an array of the given initial length, using dense
// storage below the sparse-promotion threshold and sparse storage at or
// above it (spec §4.3's thresholds apply from construction onward).
func NewJSArray(length uint32) *JSArray {
	obj := NewJSObject()
	obj.ensureArray(length)
	if length > 0 {
		obj.array.Resize(length)
	}
	return &JSArray{obj: obj}
}

// SetElement sets arr[i] = v, promoting/demoting storage as needed.
func (a *JSArray) SetElement(i uint32, v Value) {
	a.obj.ensureArray(i + 1)
	a.obj.array.Set(i, v)
	a.obj.array = maybePromoteOrDemote(a.obj.array)
}

// GetElement returns arr[i], or (hole, false) if absent.
func (a *JSArray) GetElement(i uint32) (Value, bool) {
	return a.obj.GetElement(i)
}

// Append adds v at the current length.
func (a *JSArray) Append(v Value) {
	a.obj.ensureArray(1)
	a.obj.array.Append(v)
	a.obj.array = maybePromoteOrDemote(a.obj.array)
}

// Len returns the array's logical length (spec invariant: length >
// max_index_with_value).
func (a *JSArray) Len() int {
	if a.obj.array == nil {
		return 0
	}
	return a.obj.array.Len()
}

// Resize changes the logical length, growing with holes or truncating.
func (a *JSArray) Resize(newLen uint32) {
	a.obj.ensureArray(newLen)
	a.obj.array.Resize(newLen)
	a.obj.array = maybePromoteOrDemote(a.obj.array)
}

// ElementIndexes returns indexes holding non-hole values, in the given order.
func (a *JSArray) ElementIndexes(order elementOrder) []uint32 {
	return a.obj.ElementIndexes(order)
}

// IsSparse reports whether the array is currently sparse-backed.
func (a *JSArray) IsSparse() bool { return a.obj.IsSparse() }

// SetProperty sets a non-index extra property on the array (JS arrays can
// carry arbitrary named properties alongside their elements).
func (a *JSArray) SetProperty(key string, v Value) { a.obj.Set(key, v) }

// Properties returns the ordered extra (non-index) property names.
func (a *JSArray) Properties() []string { return a.obj.Keys() }

// PropertyValue returns the value of an extra property previously set with
// SetProperty.
func (a *JSArray) PropertyValue(key string) (Value, bool) { return a.obj.Get(key) }

// Elements materializes the array as a dense []Value slice with holes
// represented as Hole() values, for callers that want simple slice access
// (e.g. ToGo). Prefer ElementIndexes+GetElement for sparse-aware iteration.
func (a *JSArray) Elements() []Value {
	n := a.Len()
	out := make([]Value, n)
	for i := range out {
		out[i] = Hole()
	}
	for _, i := range a.ElementIndexes(orderAscending) {
		v, _ := a.GetElement(i)
		out[i] = v
	}
	return out
}
