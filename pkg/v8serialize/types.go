package v8serialize

import (
	"fmt"
	"math/big"
	"time"
)

// Type represents the type of a JavaScript value.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBool
	TypeInt32
	TypeUint32
	TypeDouble
	TypeBigInt
	TypeString
	TypeDate
	TypeRegExp
	TypeObject
	TypeArray
	TypeMap
	TypeSet
	TypeArrayBuffer
	TypeTypedArray
	TypeDataView
	TypeHole           // Sparse array hole
	TypeError          // JavaScript Error object
	TypeBoxedPrimitive // Number/Boolean/String/BigInt object wrappers
	TypeSharedObject   // opaque V8SharedObjectReference(id)
	TypeHostObject     // opaque host-defined payload
	TypeLegacyReserved // decode-only: a reserved/legacy tag was seen
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBool:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeUint32:
		return "uint32"
	case TypeDouble:
		return "number"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeDate:
		return "Date"
	case TypeRegExp:
		return "RegExp"
	case TypeObject:
		return "object"
	case TypeArray:
		return "Array"
	case TypeMap:
		return "Map"
	case TypeSet:
		return "Set"
	case TypeArrayBuffer:
		return "ArrayBuffer"
	case TypeTypedArray:
		return "TypedArray"
	case TypeDataView:
		return "DataView"
	case TypeHole:
		return "hole"
	case TypeError:
		return "Error"
	case TypeBoxedPrimitive:
		return "BoxedPrimitive"
	case TypeSharedObject:
		return "SharedObject"
	case TypeHostObject:
		return "HostObject"
	case TypeLegacyReserved:
		return "LegacyReserved"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// Value represents a JavaScript value, decoded or under construction for
// encoding. Use the accessor methods to safely extract typed values.
type Value struct {
	typ  Type
	data interface{}
}

// identity returns a comparable token standing in for V8's object handle,
// used by same-value-zero and the encoder's reference log. Atoms fall
// through to returning the raw data, which is fine since atoms are never
// routed through identity-based comparison by sameValueZero.
func (v Value) identity() interface{} {
	switch d := v.data.(type) {
	case *JSObject:
		return d
	case *JSArray:
		return d
	case *JSMap:
		return d
	case *JSSet:
		return d
	case *RegExp:
		return d
	case *JSError:
		return d
	case *ArrayBufferView:
		return d
	case *BoxedPrimitive:
		return d
	case *ArrayBuffer:
		return d
	default:
		return d
	}
}

func Undefined() Value  { return Value{typ: TypeUndefined} }
func Null() Value       { return Value{typ: TypeNull} }
func Bool(b bool) Value { return Value{typ: TypeBool, data: b} }
func Int32(n int32) Value    { return Value{typ: TypeInt32, data: n} }
func Uint32(n uint32) Value  { return Value{typ: TypeUint32, data: n} }
func Double(f float64) Value { return Value{typ: TypeDouble, data: f} }
func BigInt(n *big.Int) Value {
	return Value{typ: TypeBigInt, data: n}
}
func String(s string) Value { return Value{typ: TypeString, data: s} }
func Date(t time.Time) Value {
	return Value{typ: TypeDate, data: t}
}
func Hole() Value { return Value{typ: TypeHole} }

// Object returns a Value wrapping a *JSObject. If obj is nil, an empty
// ordered object is created.
func Object(obj *JSObject) Value {
	if obj == nil {
		obj = NewJSObject()
	}
	return Value{typ: TypeObject, data: obj}
}

// ObjectFromMap builds a Value from a Go map for convenience. Go maps have no
// iteration order, so keys are written in sorted order for determinism; this
// is a documented deviation from true insertion order and should not be used
// where byte-for-byte V8 compatibility of key order matters (use NewJSObject
// + Set for that).
func ObjectFromMap(props map[string]Value) Value {
	obj := NewJSObject()
	for _, k := range sortedKeys(props) {
		obj.Set(k, props[k])
	}
	return Object(obj)
}

// Array returns a Value wrapping a *JSArray. If arr is nil, an empty dense
// array is created.
func Array(arr *JSArray) Value {
	if arr == nil {
		arr = NewJSArray(0)
	}
	return Value{typ: TypeArray, data: arr}
}

// ArrayFromSlice builds a dense JSArray Value from a Go slice, in order.
func ArrayFromSlice(elems []Value) Value {
	arr := NewJSArray(uint32(len(elems)))
	for i, v := range elems {
		arr.SetElement(uint32(i), v)
	}
	return Array(arr)
}

// ArrayBufferValue returns a Value representing a JavaScript ArrayBuffer.
func ArrayBufferValue(buf *ArrayBuffer) Value {
	return Value{typ: TypeArrayBuffer, data: buf}
}

func (v Value) Type() Type { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsNullish() bool   { return v.typ == TypeNull || v.typ == TypeUndefined }
func (v Value) IsBool() bool      { return v.typ == TypeBool }
func (v Value) IsNumber() bool {
	return v.typ == TypeInt32 || v.typ == TypeUint32 || v.typ == TypeDouble
}
func (v Value) IsBigInt() bool { return v.typ == TypeBigInt }
func (v Value) IsString() bool { return v.typ == TypeString }
func (v Value) IsDate() bool   { return v.typ == TypeDate }
func (v Value) IsObject() bool { return v.typ == TypeObject }
func (v Value) IsArray() bool  { return v.typ == TypeArray }
func (v Value) IsHole() bool   { return v.typ == TypeHole }

func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic(fmt.Sprintf("Value.AsBool: expected boolean, got %s", v.typ))
	}
	return v.data.(bool)
}

func (v Value) AsInt32() int32 {
	if v.typ != TypeInt32 {
		panic(fmt.Sprintf("Value.AsInt32: expected int32, got %s", v.typ))
	}
	return v.data.(int32)
}

func (v Value) AsUint32() uint32 {
	if v.typ != TypeUint32 {
		panic(fmt.Sprintf("Value.AsUint32: expected uint32, got %s", v.typ))
	}
	return v.data.(uint32)
}

func (v Value) AsDouble() float64 {
	if v.typ != TypeDouble {
		panic(fmt.Sprintf("Value.AsDouble: expected double, got %s", v.typ))
	}
	return v.data.(float64)
}

// AsNumber returns the numeric value as float64, for int32, uint32 or double.
func (v Value) AsNumber() float64 {
	switch v.typ {
	case TypeInt32:
		return float64(v.data.(int32))
	case TypeUint32:
		return float64(v.data.(uint32))
	case TypeDouble:
		return v.data.(float64)
	default:
		panic(fmt.Sprintf("Value.AsNumber: expected number, got %s", v.typ))
	}
}

func (v Value) AsBigInt() *big.Int {
	if v.typ != TypeBigInt {
		panic(fmt.Sprintf("Value.AsBigInt: expected bigint, got %s", v.typ))
	}
	return v.data.(*big.Int)
}

func (v Value) AsString() string {
	if v.typ != TypeString {
		panic(fmt.Sprintf("Value.AsString: expected string, got %s", v.typ))
	}
	return v.data.(string)
}

func (v Value) AsDate() time.Time {
	if v.typ != TypeDate {
		panic(fmt.Sprintf("Value.AsDate: expected Date, got %s", v.typ))
	}
	return v.data.(time.Time)
}

// AsObject returns the underlying *JSObject. Panics if not an object.
func (v Value) AsObject() *JSObject {
	if v.typ != TypeObject {
		panic(fmt.Sprintf("Value.AsObject: expected object, got %s", v.typ))
	}
	return v.data.(*JSObject)
}

// AsArray returns the underlying *JSArray. Panics if not an array.
func (v Value) AsArray() *JSArray {
	if v.typ != TypeArray {
		panic(fmt.Sprintf("Value.AsArray: expected array, got %s", v.typ))
	}
	return v.data.(*JSArray)
}

// Interface returns the underlying Go value. Returns nil for undefined, null
// and hole.
func (v Value) Interface() interface{} {
	if v.typ == TypeUndefined || v.typ == TypeNull || v.typ == TypeHole {
		return nil
	}
	return v.data
}

// GoString implements fmt.GoStringer for debugging.
func (v Value) GoString() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBool:
		if v.data.(bool) {
			return "true"
		}
		return "false"
	case TypeInt32:
		return fmt.Sprintf("%d", v.data.(int32))
	case TypeUint32:
		return fmt.Sprintf("%d", v.data.(uint32))
	case TypeDouble:
		return fmt.Sprintf("%g", v.data.(float64))
	case TypeBigInt:
		return fmt.Sprintf("%sn", v.data.(*big.Int).String())
	case TypeString:
		return fmt.Sprintf("%q", v.data.(string))
	case TypeDate:
		return fmt.Sprintf("Date(%s)", v.data.(time.Time).Format(time.RFC3339Nano))
	case TypeHole:
		return "<hole>"
	case TypeObject:
		return fmt.Sprintf("Object{%d properties}", v.data.(*JSObject).Len())
	case TypeArray:
		return fmt.Sprintf("Array[%d]", v.data.(*JSArray).Len())
	default:
		return fmt.Sprintf("%s(%v)", v.typ, v.data)
	}
}

// RegExp represents a JavaScript RegExp object.
type RegExp struct {
	Pattern string
	Flags   string
}

// NewRegExp validates and constructs a RegExp, mirroring the source-of-truth
// constraints: Unicode ('u') and UnicodeSets ('v') are mutually exclusive, and
// an empty pattern is normalized to "(?:)" to match RegExp.prototype.source.
func NewRegExp(pattern, flags string) (*RegExp, error) {
	hasU, hasV := false, false
	for _, c := range flags {
		switch c {
		case 'u':
			hasU = true
		case 'v':
			hasV = true
		}
	}
	if hasU && hasV {
		return nil, fmt.Errorf("%w: Unicode and UnicodeSets flags are mutually exclusive", ErrRegexIncompatible)
	}
	if pattern == "" {
		pattern = "(?:)"
	}
	return &RegExp{Pattern: pattern, Flags: flags}, nil
}

// MapEntry represents a key-value pair in a JavaScript Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// JSMap represents a JavaScript Map. Entries preserve insertion order;
// lookups use an index keyed on the same-value-zero surrogate so that
// non-atomic keys compare by identity rather than structurally.
type JSMap struct {
	Entries []MapEntry
	index   map[interface{}]int // svz key -> index into Entries
}

func NewJSMap() *JSMap {
	return &JSMap{index: make(map[interface{}]int)}
}

// Set inserts or updates an entry, preserving first-insertion order for the
// key's position (matching JS Map semantics: re-setting a key updates its
// value without moving it).
func (m *JSMap) Set(key, value Value) {
	if m.index == nil {
		m.index = make(map[interface{}]int)
	}
	k := sameValueZero(key)
	if i, ok := m.index[k]; ok {
		m.Entries[i].Value = value
		return
	}
	m.index[k] = len(m.Entries)
	m.Entries = append(m.Entries, MapEntry{Key: key, Value: value})
}

// Get looks up a value by same-value-zero key equality.
func (m *JSMap) Get(key Value) (Value, bool) {
	if m.index == nil {
		return Value{}, false
	}
	i, ok := m.index[sameValueZero(key)]
	if !ok {
		return Value{}, false
	}
	return m.Entries[i].Value, true
}

// JSSet represents a JavaScript Set, preserving insertion order with
// same-value-zero membership semantics.
type JSSet struct {
	Values []Value
	index  map[interface{}]int
}

func NewJSSet() *JSSet {
	return &JSSet{index: make(map[interface{}]int)}
}

// Add inserts v if not already present under same-value-zero equality.
func (s *JSSet) Add(v Value) {
	if s.index == nil {
		s.index = make(map[interface{}]int)
	}
	k := sameValueZero(v)
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = len(s.Values)
	s.Values = append(s.Values, v)
}

// Has reports same-value-zero membership.
func (s *JSSet) Has(v Value) bool {
	if s.index == nil {
		return false
	}
	_, ok := s.index[sameValueZero(v)]
	return ok
}

// ArrayBuffer represents a JavaScript ArrayBuffer (plain, resizable, shared,
// or transferred — see spec §3).
type ArrayBuffer struct {
	Data          []byte
	MaxByteLength int
	Resizable     bool
	Shared        bool // true for SharedArrayBuffer(id) placeholders
	Transferred   bool // true for ArrayBufferTransfer(id) placeholders
	ID            uint32
}

// ArrayBufferView represents a typed view (TypedArray or DataView) into an
// ArrayBuffer (spec §3, §4.4).
type ArrayBufferView struct {
	Buffer         *ArrayBuffer
	Tag            ArrayBufferViewTag
	ItemOffset     uint32 // in elements
	ItemLength     uint32 // in elements; ignored when LengthTracking
	LengthTracking bool
	ReadOnly       bool
}

// ItemSize returns the per-element byte size for the view's tag.
func (v *ArrayBufferView) ItemSize() int { return v.Tag.ItemSize() }

// ByteOffset returns item_offset * itemsize.
func (v *ArrayBufferView) ByteOffset() int { return int(v.ItemOffset) * v.ItemSize() }

// ByteLength returns the view's effective byte length, honoring the
// out-of-range-becomes-zero and length-tracking rules of spec §3.
func (v *ArrayBufferView) ByteLength() int {
	if v.Buffer == nil {
		return 0
	}
	nbytes := len(v.Buffer.Data)
	byteOffset := v.ByteOffset()
	if byteOffset > nbytes {
		return 0
	}
	itemSize := v.ItemSize()
	if itemSize == 0 {
		itemSize = 1
	}
	if v.LengthTracking {
		avail := nbytes - byteOffset
		return (avail / itemSize) * itemSize
	}
	want := int(v.ItemLength) * itemSize
	if byteOffset+want > nbytes {
		return 0
	}
	return want
}

// Bytes returns the byte range of the backing buffer this view covers,
// honoring ByteOffset/ByteLength's out-of-range-becomes-zero and
// length-tracking rules. Used by the Node.js HostObject encoder, which
// shares only the viewed region rather than the whole buffer.
func (v *ArrayBufferView) Bytes() []byte {
	n := v.ByteLength()
	if n == 0 || v.Buffer == nil {
		return nil
	}
	start := v.ByteOffset()
	return v.Buffer.Data[start : start+n]
}

// JSError represents a JavaScript Error object.
type JSError struct {
	Name    string
	Message string
	Stack   string
	Cause   *Value // ES2022 Error.cause (optional)
}

// BoxedPrimitive represents a boxed primitive (new Number(42), etc).
type BoxedPrimitive struct {
	PrimitiveType Type
	Value         Value
}

// NewBoxedPrimitive validates that value's type matches primitiveType before
// constructing the wrapper.
func NewBoxedPrimitive(primitiveType Type, value Value) (*BoxedPrimitive, error) {
	switch primitiveType {
	case TypeDouble, TypeBool, TypeString, TypeBigInt:
		if value.Type() != primitiveType {
			return nil, fmt.Errorf("%w: boxed %s requires a %s value, got %s",
				ErrMalformedData, primitiveType, primitiveType, value.Type())
		}
	default:
		return nil, fmt.Errorf("%w: %s cannot be boxed", ErrMalformedData, primitiveType)
	}
	return &BoxedPrimitive{PrimitiveType: primitiveType, Value: value}, nil
}

// TypedArrayValue returns a Value wrapping an ArrayBufferView (TypedArray or
// DataView; the view's Tag distinguishes them).
func TypedArrayValue(view *ArrayBufferView) Value {
	return Value{typ: TypeTypedArray, data: view}
}

// AsTypedArray returns the underlying *ArrayBufferView. Panics otherwise.
func (v Value) AsTypedArray() *ArrayBufferView {
	if v.typ != TypeTypedArray {
		panic(fmt.Sprintf("Value.AsTypedArray: expected TypedArray, got %s", v.typ))
	}
	return v.data.(*ArrayBufferView)
}

// SharedObject is an opaque reference to a value shared across an isolate
// boundary (spec §3's "shared-value reference"); this implementation only
// round-trips the ID, since it has no cross-process shared memory to back.
type SharedObject struct {
	ID uint32
}

// SharedObjectValue wraps a SharedObject reference.
func SharedObjectValue(id uint32) Value {
	return Value{typ: TypeSharedObject, data: &SharedObject{ID: id}}
}

// AsSharedObject returns the underlying *SharedObject. Panics otherwise.
func (v Value) AsSharedObject() *SharedObject {
	if v.typ != TypeSharedObject {
		panic(fmt.Sprintf("Value.AsSharedObject: expected SharedObject, got %s", v.typ))
	}
	return v.data.(*SharedObject)
}

// HostObject is an opaque, application-defined payload inserted via the
// pluggable host-object extension seam (spec §4.9); Raw holds the
// undecoded bytes when no handler recognized the payload.
type HostObject struct {
	Raw     []byte
	Decoded interface{} // set by a HostObjectHandler that recognized the payload
}

// HostObjectValue wraps a HostObject payload.
func HostObjectValue(h *HostObject) Value {
	return Value{typ: TypeHostObject, data: h}
}

// AsHostObject returns the underlying *HostObject. Panics otherwise.
func (v Value) AsHostObject() *HostObject {
	if v.typ != TypeHostObject {
		panic(fmt.Sprintf("Value.AsHostObject: expected HostObject, got %s", v.typ))
	}
	return v.data.(*HostObject)
}

// LegacyReserved marks a decode-only legacy/reserved tag (spec's "reserved
// legacy tags"); this implementation never emits these, only recognizes
// them on decode for backward wire compatibility.
type LegacyReserved struct {
	TagName string
}

// LegacyReservedValue wraps a decoded legacy/reserved tag marker.
func LegacyReservedValue(tagName string) Value {
	return Value{typ: TypeLegacyReserved, data: &LegacyReserved{TagName: tagName}}
}

// AsLegacyReserved returns the underlying *LegacyReserved. Panics otherwise.
func (v Value) AsLegacyReserved() *LegacyReserved {
	if v.typ != TypeLegacyReserved {
		panic(fmt.Sprintf("Value.AsLegacyReserved: expected LegacyReserved, got %s", v.typ))
	}
	return v.data.(*LegacyReserved)
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
