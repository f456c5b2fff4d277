package v8serialize

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gostructs/v8wire/internal/hostobject"
	"github.com/gostructs/v8wire/internal/wire"
)

// Common errors.
var (
	ErrInvalidHeader      = errors.New("v8serialize: invalid header")
	ErrUnsupportedVersion = errors.New("v8serialize: unsupported version")
	ErrUnexpectedTag      = errors.New("v8serialize: unexpected tag")
	ErrMalformedData      = errors.New("v8serialize: malformed data")
	ErrMaxDepthExceeded   = errors.New("v8serialize: max depth exceeded")
	ErrMaxSizeExceeded    = errors.New("v8serialize: max size exceeded")
	ErrInvalidReference   = errors.New("v8serialize: invalid object reference")
	ErrForwardReference   = errors.New("v8serialize: reference to an object still under construction")
	ErrIllegalCyclicValue = errors.New("v8serialize: value cannot contain a cycle through itself")
	ErrRegexIncompatible  = errors.New("v8serialize: incompatible regular expression flags")
	ErrUnmappedValue      = errors.New("v8serialize: no object mapper or host handler accepted value")
	ErrFeatureNotEnabled  = errors.New("v8serialize: wire feature not enabled for target version")
	ErrValueTooLarge      = errors.New("v8serialize: value exceeds format limits")
)

// HostObjectHandler decodes application-defined HostObject payloads (spec
// §4.9's pluggable extension seam). Node.js's own ArrayBufferView-over-
// HostObject scheme is provided by internal/hostobject and wired in via
// WithNodeJSHostObjects.
type HostObjectHandler interface {
	DecodeHostObject(raw []byte) (interface{}, error)
}

// Deserializer deserializes V8 Structured Clone format data.
type Deserializer struct {
	reader        *wire.Reader
	version       uint32
	maxDepth      int
	maxSize       int
	maxArrayLen   int
	maxObjectKeys int
	depth         int
	hostHandler   HostObjectHandler

	// refs is the per-call object reference log (spec's reference log):
	// every object-like value is recorded by sequential id as soon as it's
	// constructed (before its children are read), so back-references
	// (including legitimate cycles) resolve to the same Go pointer.
	refs *referenceLog
}

// DefaultMaxArrayLen is the default maximum array length (10 million elements).
// This prevents memory exhaustion from malicious input.
const DefaultMaxArrayLen = 10_000_000

// DefaultMaxObjectKeys is the default maximum object keys (1 million keys).
// This prevents memory exhaustion from malicious input.
const DefaultMaxObjectKeys = 1_000_000

// Option configures the deserializer.
type Option func(*Deserializer)

// WithMaxDepth sets the maximum nesting depth (default 1000).
func WithMaxDepth(depth int) Option {
	return func(d *Deserializer) {
		d.maxDepth = depth
	}
}

// WithMaxSize sets the maximum input size in bytes (default unlimited).
// Use this to prevent denial-of-service attacks from large inputs.
func WithMaxSize(size int) Option {
	return func(d *Deserializer) {
		d.maxSize = size
	}
}

// WithMaxArrayLen sets the maximum array length (default 10 million).
func WithMaxArrayLen(length int) Option {
	return func(d *Deserializer) {
		d.maxArrayLen = length
	}
}

// WithMaxObjectKeys sets the maximum number of object keys (default 1 million).
func WithMaxObjectKeys(keys int) Option {
	return func(d *Deserializer) {
		d.maxObjectKeys = keys
	}
}

// WithHostObjectHandler installs a decoder for application-defined
// HostObject payloads (spec §4.9).
func WithHostObjectHandler(h HostObjectHandler) Option {
	return func(d *Deserializer) {
		d.hostHandler = h
	}
}

// nodeJSHostObjectHandler adapts internal/hostobject's Node.js ArrayBuffer
// view codec to the HostObjectHandler interface.
type nodeJSHostObjectHandler struct{}

func (nodeJSHostObjectHandler) DecodeHostObject(raw []byte) (interface{}, error) {
	payload, err := hostobject.Decode(raw)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// WithNodeJSHostObjects installs the Node.js ArrayBufferView HostObject
// format (spec's supplemented Node.js extension) as the host object decoder.
func WithNodeJSHostObjects() Option {
	return WithHostObjectHandler(nodeJSHostObjectHandler{})
}

// NewDeserializer creates a new deserializer for the given data.
func NewDeserializer(data []byte, opts ...Option) *Deserializer {
	d := &Deserializer{
		reader:        wire.NewReader(data),
		maxDepth:      1000,
		maxSize:       0, // 0 means unlimited
		maxArrayLen:   DefaultMaxArrayLen,
		maxObjectKeys: DefaultMaxObjectKeys,
		refs:          newReferenceLog(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deserialize deserializes the data and returns the root value.
func Deserialize(data []byte, opts ...Option) (Value, error) {
	d := NewDeserializer(data, opts...)
	return d.Deserialize()
}

// Deserialize reads the header and deserializes the root value.
func (d *Deserializer) Deserialize() (Value, error) {
	if d.maxSize > 0 && d.reader.Len() > d.maxSize {
		return Value{}, fmt.Errorf("%w: input size %d exceeds limit %d", ErrMaxSizeExceeded, d.reader.Len(), d.maxSize)
	}

	if err := d.readHeader(); err != nil {
		return Value{}, err
	}
	return d.readValue()
}

// Version returns the serialization format version (valid after Deserialize).
func (d *Deserializer) Version() uint32 {
	return d.version
}

// readHeader reads and validates the version header.
func (d *Deserializer) readHeader() error {
	tag, err := d.reader.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if tag != tagVersion {
		return fmt.Errorf("%w: expected version tag 0xFF, got 0x%02X", ErrInvalidHeader, tag)
	}

	version, err := d.reader.ReadVarint32()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if version < MinVersion || version > MaxVersion {
		return fmt.Errorf("%w: version %d (supported: %d-%d)", ErrUnsupportedVersion, version, MinVersion, MaxVersion)
	}

	d.version = version
	return nil
}

// readValue reads a single value from the stream.
func (d *Deserializer) readValue() (Value, error) {
	d.depth++
	if d.depth > d.maxDepth {
		return Value{}, ErrMaxDepthExceeded
	}
	defer func() { d.depth-- }()

	tag, err := d.reader.ReadTag(tagPadding)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	switch tag {
	case tagNull:
		return Null(), nil
	case tagUndefined:
		return Undefined(), nil
	case tagTrue:
		return Bool(true), nil
	case tagFalse:
		return Bool(false), nil
	case tagHole:
		return Hole(), nil

	case tagInt32:
		return d.readInt32()
	case tagUint32:
		return d.readUint32()
	case tagDouble:
		return d.readDouble()
	case tagBigInt:
		return d.readBigInt()

	case tagUtf8String:
		return d.readUtf8String()
	case tagOneByteString:
		return d.readOneByteString()
	case tagTwoByteString:
		return d.readTwoByteString()

	case tagDate:
		return d.readDate()

	case tagBeginJSObject:
		return d.readObject()
	case tagBeginDenseArray:
		return d.readDenseArray()
	case tagBeginSparseArray:
		return d.readSparseArray()

	case tagObjectReference:
		return d.readObjectReference()

	case tagBeginMap:
		return d.readMap()
	case tagBeginSet:
		return d.readSet()

	case tagArrayBuffer, tagResizableArrayBuffer:
		return d.readArrayBuffer(tag == tagResizableArrayBuffer)
	case tagArrayBufferTransfer:
		return d.readArrayBufferTransfer()
	case tagSharedArrayBuffer:
		return d.readSharedArrayBuffer()

	case tagRegExp:
		return d.readRegExp()
	case tagNumberObject:
		return d.readNumberObject()
	case tagTrueObject:
		return d.readTrueObject()
	case tagFalseObject:
		return d.readFalseObject()
	case tagStringObject:
		return d.readStringObject()
	case tagBigIntObject:
		return d.readBigIntObject()

	case tagError:
		return d.readError()

	case tagSharedObject:
		return d.readSharedObject()
	case tagWasmModuleTransfer:
		return d.readWasmModuleTransfer()
	case tagWasmMemoryTransfer:
		return d.readWasmMemoryTransfer()
	case tagHostObject:
		return d.readHostObject()
	case tagVerifyObjectCount:
		return d.readVerifyObjectCount()

	default:
		if name, ok := legacyReservedTags[tag]; ok {
			return LegacyReservedValue(name), nil
		}
		return Value{}, fmt.Errorf("%w: unknown tag 0x%02X ('%c') at position %d",
			ErrUnexpectedTag, tag, tag, d.reader.Pos()-1)
	}
}

func (d *Deserializer) readInt32() (Value, error) {
	n, err := d.reader.ReadZigZag32()
	if err != nil {
		return Value{}, err
	}
	return Int32(n), nil
}

func (d *Deserializer) readUint32() (Value, error) {
	n, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	return Uint32(n), nil
}

func (d *Deserializer) readDouble() (Value, error) {
	f, err := d.reader.ReadDouble()
	if err != nil {
		return Value{}, err
	}
	return Double(f), nil
}

// readBigInt reads a BigInt value.
// Format: bitfield (varint) + raw bytes (little-endian).
// Bitfield: bit 0 = sign (1 = negative), bits 1+ = byte length. The
// over-allocation-by-one-byte quirk in some encoders' byte-length formula is
// transparent here: we only ever trust the declared byteLength to know how
// many bytes to read, never recompute it from bit_length ourselves.
func (d *Deserializer) readBigInt() (Value, error) {
	bitfield, err := d.reader.ReadVarint()
	if err != nil {
		return Value{}, err
	}

	negative := (bitfield & 1) == 1
	byteLength := bitfield >> 1

	if byteLength == 0 {
		return BigInt(big.NewInt(0)), nil
	}

	bytes, err := d.reader.ReadBytes(int(byteLength))
	if err != nil {
		return Value{}, err
	}

	reversed := make([]byte, len(bytes))
	for i := 0; i < len(bytes); i++ {
		reversed[i] = bytes[len(bytes)-1-i]
	}

	result := new(big.Int).SetBytes(reversed)
	if negative {
		result.Neg(result)
	}
	return BigInt(result), nil
}

// readUtf8String decodes the UTF-8 string tag. This tag is decode-only: V8
// itself never emits it, and neither does this encoder (spec §9's Open
// Questions), but old payloads or other producers may use it.
func (d *Deserializer) readUtf8String() (Value, error) {
	length, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	raw, err := d.reader.ReadBytes(int(length))
	if err != nil {
		return Value{}, err
	}
	return String(string(raw)), nil
}

func (d *Deserializer) readOneByteString() (Value, error) {
	length, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	s, err := d.reader.ReadOneByteString(int(length))
	if err != nil {
		return Value{}, err
	}
	return String(s), nil
}

func (d *Deserializer) readTwoByteString() (Value, error) {
	byteLength, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	utf16Length := int(byteLength) / 2
	s, err := d.reader.ReadTwoByteString(utf16Length)
	if err != nil {
		return Value{}, err
	}
	return String(s), nil
}

func (d *Deserializer) readDate() (Value, error) {
	ms, err := d.reader.ReadDouble()
	if err != nil {
		return Value{}, err
	}
	sec := int64(ms / 1000)
	nsec := int64((ms - float64(sec)*1000) * 1e6)
	t := time.Unix(sec, nsec).UTC()
	v := Date(t)
	d.refs.record(nil, v)
	return v, nil
}

// readObject reads a JavaScript object, recording the *JSObject pointer in
// the reference table before any properties are read so that a
// self-referential property (a legitimate JS object cycle) resolves to the
// same, still-filling-in pointer.
func (d *Deserializer) readObject() (Value, error) {
	obj := NewJSObject()
	v := Object(obj)
	d.refs.record(obj, v)

	count := 0
	for {
		tag, err := d.reader.Peek()
		if err != nil {
			return Value{}, err
		}
		if tag == tagEndJSObject {
			_, _ = d.reader.ReadByte()
			if _, err := d.reader.ReadVarint32(); err != nil {
				return Value{}, err
			}
			break
		}

		key, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		keyStr, err := keyToString(key)
		if err != nil {
			return Value{}, err
		}

		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}

		count++
		if count > d.maxObjectKeys {
			return Value{}, fmt.Errorf("%w: object key count exceeds limit %d", ErrMalformedData, d.maxObjectKeys)
		}
		obj.Set(keyStr, val)
	}

	return v, nil
}

func keyToString(key Value) (string, error) {
	switch key.Type() {
	case TypeString:
		return key.AsString(), nil
	case TypeInt32:
		return fmt.Sprintf("%d", key.AsInt32()), nil
	case TypeUint32:
		return fmt.Sprintf("%d", key.AsUint32()), nil
	case TypeDouble:
		return fmt.Sprintf("%g", key.AsDouble()), nil
	default:
		return "", fmt.Errorf("%w: object key must be string or number, got %s", ErrMalformedData, key.Type())
	}
}

// readDenseArray reads a dense JavaScript array.
func (d *Deserializer) readDenseArray() (Value, error) {
	length, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	if int(length) > d.maxArrayLen {
		return Value{}, fmt.Errorf("%w: array length %d exceeds limit %d", ErrMalformedData, length, d.maxArrayLen)
	}

	arr := NewJSArray(length)
	v := Array(arr)
	d.refs.record(arr, v)

	for i := uint32(0); i < length; i++ {
		elem, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		if !elem.IsHole() {
			arr.SetElement(i, elem)
		}
	}

	for {
		tag, err := d.reader.Peek()
		if err != nil {
			return Value{}, err
		}
		if tag == tagEndDenseArray {
			_, _ = d.reader.ReadByte()
			if _, err := d.reader.ReadVarint32(); err != nil { // properties
				return Value{}, err
			}
			if _, err := d.reader.ReadVarint32(); err != nil { // length
				return Value{}, err
			}
			break
		}

		key, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		keyStr, err := keyToString(key)
		if err != nil {
			return Value{}, err
		}
		arr.SetProperty(keyStr, val)
	}

	return v, nil
}

// readSparseArray reads a sparse JavaScript array, whose entries are
// written as generic (key, value) properties just like a plain object's,
// where a canonical-integer-string key lands on an array slot (spec §4.4).
func (d *Deserializer) readSparseArray() (Value, error) {
	length, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	if int(length) > d.maxArrayLen {
		return Value{}, fmt.Errorf("%w: array length %d exceeds limit %d", ErrMalformedData, length, d.maxArrayLen)
	}

	arr := NewJSArray(length)
	v := Array(arr)
	d.refs.record(arr, v)

	for {
		tag, err := d.reader.Peek()
		if err != nil {
			return Value{}, err
		}
		if tag == tagEndSparseArray {
			_, _ = d.reader.ReadByte()
			if _, err := d.reader.ReadVarint32(); err != nil { // properties
				return Value{}, err
			}
			if _, err := d.reader.ReadVarint32(); err != nil { // length
				return Value{}, err
			}
			break
		}

		key, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}

		keyStr, err := keyToString(key)
		if err != nil {
			return Value{}, err
		}
		if idx, ok := normalizeKey(keyStr); ok {
			arr.SetElement(idx, val)
		} else {
			arr.SetProperty(keyStr, val)
		}
	}

	arr.Resize(length)
	return v, nil
}

// readObjectReference reads a back-reference to a previously seen object.
func (d *Deserializer) readObjectReference() (Value, error) {
	id, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	v, err := d.refs.get(id)
	if err != nil {
		return Value{}, err
	}
	return d.maybeReadArrayBufferViewTail(v)
}

// maybeReadArrayBufferViewTail checks whether v (a freshly produced or
// back-referenced value) is an ArrayBuffer variant immediately followed by
// an ArrayBufferView tag, and if so consumes the view's tail and returns the
// view instead of the bare buffer. Spec §4.6 step 5: the view binds to
// "the immediately preceding value in the reference log", which may itself
// be a back-reference to an already-decoded buffer rather than a freshly
// written one, so this is shared between readObjectReference and the three
// buffer readers rather than only handling the inline case.
func (d *Deserializer) maybeReadArrayBufferViewTail(v Value) (Value, error) {
	if v.typ != TypeArrayBuffer {
		return v, nil
	}
	if tag, err := d.reader.Peek(); err == nil && tag == tagArrayBufferView {
		_, _ = d.reader.ReadByte()
		return d.readArrayBufferViewTail(v.data.(*ArrayBuffer))
	}
	return v, nil
}

// readMap reads a JavaScript Map.
func (d *Deserializer) readMap() (Value, error) {
	jsMap := NewJSMap()
	v := Value{typ: TypeMap, data: jsMap}
	d.refs.record(jsMap, v)

	for {
		tag, err := d.reader.Peek()
		if err != nil {
			return Value{}, err
		}
		if tag == tagEndMap {
			_, _ = d.reader.ReadByte()
			if _, err := d.reader.ReadVarint32(); err != nil {
				return Value{}, err
			}
			break
		}

		key, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		jsMap.Set(key, val)
	}

	return v, nil
}

// readSet reads a JavaScript Set.
func (d *Deserializer) readSet() (Value, error) {
	jsSet := NewJSSet()
	v := Value{typ: TypeSet, data: jsSet}
	d.refs.record(jsSet, v)

	for {
		tag, err := d.reader.Peek()
		if err != nil {
			return Value{}, err
		}
		if tag == tagEndSet {
			_, _ = d.reader.ReadByte()
			if _, err := d.reader.ReadVarint32(); err != nil {
				return Value{}, err
			}
			break
		}

		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		jsSet.Add(val)
	}

	return v, nil
}

// readArrayBuffer reads an ArrayBuffer, then checks whether it's
// immediately followed by an ArrayBufferView tag — V8 writes a typed
// array/DataView as its backing buffer followed directly by the view's own
// tag, rather than nesting the buffer inside the view (spec §3, §4.4).
func (d *Deserializer) readArrayBuffer(resizable bool) (Value, error) {
	byteLength, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}

	var maxByteLength uint32
	if resizable {
		maxByteLength, err = d.reader.ReadVarint32()
		if err != nil {
			return Value{}, err
		}
	}

	data, err := d.reader.ReadBytes(int(byteLength))
	if err != nil {
		return Value{}, err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	ab := &ArrayBuffer{Data: buf, Resizable: resizable, MaxByteLength: int(maxByteLength)}
	v := ArrayBufferValue(ab)
	d.refs.record(ab, v)

	return d.maybeReadArrayBufferViewTail(v)
}

func (d *Deserializer) readArrayBufferTransfer() (Value, error) {
	id, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	ab := &ArrayBuffer{Transferred: true, ID: id}
	v := ArrayBufferValue(ab)
	d.refs.record(ab, v)

	return d.maybeReadArrayBufferViewTail(v)
}

func (d *Deserializer) readSharedArrayBuffer() (Value, error) {
	id, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	ab := &ArrayBuffer{Shared: true, ID: id}
	v := ArrayBufferValue(ab)
	d.refs.record(ab, v)

	return d.maybeReadArrayBufferViewTail(v)
}

// readArrayBufferViewTail reads the ArrayBufferView-specific fields that
// follow the view's flavor sub-tag (already consumed by the caller).
func (d *Deserializer) readArrayBufferViewTail(buf *ArrayBuffer) (Value, error) {
	subTag, err := d.reader.ReadByte()
	if err != nil {
		return Value{}, err
	}
	flags, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	byteOffset, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	byteLength, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}

	tagv := ArrayBufferViewTag(subTag)
	itemSize := tagv.ItemSize()
	if itemSize == 0 {
		itemSize = 1
	}
	view := &ArrayBufferView{
		Buffer:         buf,
		Tag:            tagv,
		ItemOffset:     byteOffset / uint32(itemSize),
		ItemLength:     byteLength / uint32(itemSize),
		LengthTracking: ArrayBufferViewFlags(flags)&FlagIsLengthTracking != 0,
	}

	v := TypedArrayValue(view)
	d.refs.record(view, v)
	return v, nil
}

// readRegExp reads a JavaScript RegExp.
func (d *Deserializer) readRegExp() (Value, error) {
	pattern, err := d.readValue()
	if err != nil {
		return Value{}, err
	}
	if !pattern.IsString() {
		return Value{}, fmt.Errorf("%w: regexp pattern must be string", ErrMalformedData)
	}

	flagBits, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}

	var flags string
	if flagBits&1 != 0 {
		flags += "g"
	}
	if flagBits&2 != 0 {
		flags += "i"
	}
	if flagBits&4 != 0 {
		flags += "m"
	}
	if flagBits&8 != 0 {
		flags += "s"
	}
	if flagBits&16 != 0 {
		flags += "u"
	}
	if flagBits&32 != 0 {
		flags += "y"
	}
	if flagBits&64 != 0 {
		flags += "v" // UnicodeSets (spec's supplemented regex flag)
	}

	re, err := NewRegExp(pattern.AsString(), flags)
	if err != nil {
		return Value{}, err
	}
	v := Value{typ: TypeRegExp, data: re}
	d.refs.record(re, v)
	return v, nil
}

func (d *Deserializer) readNumberObject() (Value, error) {
	f, err := d.reader.ReadDouble()
	if err != nil {
		return Value{}, err
	}
	boxed, err := NewBoxedPrimitive(TypeDouble, Double(f))
	if err != nil {
		return Value{}, err
	}
	v := Value{typ: TypeBoxedPrimitive, data: boxed}
	d.refs.record(boxed, v)
	return v, nil
}

func (d *Deserializer) readTrueObject() (Value, error) {
	boxed, _ := NewBoxedPrimitive(TypeBool, Bool(true))
	v := Value{typ: TypeBoxedPrimitive, data: boxed}
	d.refs.record(boxed, v)
	return v, nil
}

func (d *Deserializer) readFalseObject() (Value, error) {
	boxed, _ := NewBoxedPrimitive(TypeBool, Bool(false))
	v := Value{typ: TypeBoxedPrimitive, data: boxed}
	d.refs.record(boxed, v)
	return v, nil
}

func (d *Deserializer) readStringObject() (Value, error) {
	inner, err := d.readValue()
	if err != nil {
		return Value{}, err
	}
	if inner.Type() != TypeString {
		return Value{}, fmt.Errorf("%w: boxed String contains %s, not String", ErrMalformedData, inner.Type())
	}
	boxed, err := NewBoxedPrimitive(TypeString, inner)
	if err != nil {
		return Value{}, err
	}
	v := Value{typ: TypeBoxedPrimitive, data: boxed}
	d.refs.record(boxed, v)
	return v, nil
}

func (d *Deserializer) readBigIntObject() (Value, error) {
	inner, err := d.readValue()
	if err != nil {
		return Value{}, err
	}
	if inner.Type() != TypeBigInt {
		return Value{}, fmt.Errorf("%w: boxed BigInt contains %s, not BigInt", ErrMalformedData, inner.Type())
	}
	boxed, err := NewBoxedPrimitive(TypeBigInt, inner)
	if err != nil {
		return Value{}, err
	}
	v := Value{typ: TypeBoxedPrimitive, data: boxed}
	d.refs.record(boxed, v)
	return v, nil
}

// Error sub-tags.
const (
	errorTagMessage byte = 'm'
	errorTagStack   byte = 's'
	errorTagCause   byte = 'c'
	errorTagEnd     byte = '.'
)

// Error type tags (after the 'r' tag).
const (
	errorTypeErrorWithMessage byte = 'm'
	errorTypeEvalError        byte = 'E'
	errorTypeRangeError       byte = 'R'
	errorTypeReferenceError   byte = 'F'
	errorTypeSyntaxError      byte = 'S'
	errorTypeTypeError        byte = 'T'
	errorTypeURIError         byte = 'U'
)

// readError reads a JavaScript Error object, recording the *JSError pointer
// before reading its Cause so a circular cause chain (gated by
// FeatureCircularErrorCause) resolves to the right in-progress pointer.
func (d *Deserializer) readError() (Value, error) {
	errType, err := d.reader.ReadByte()
	if err != nil {
		return Value{}, err
	}

	jsErr := &JSError{}
	v := Value{typ: TypeError, data: jsErr}
	d.refs.record(jsErr, v)

	if errType == errorTypeErrorWithMessage {
		jsErr.Name = "Error"
		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}
		if val.IsString() {
			jsErr.Message = val.AsString()
		}
		v = Value{typ: TypeError, data: jsErr}
		return v, nil
	}

	switch errType {
	case errorTypeEvalError:
		jsErr.Name = "EvalError"
	case errorTypeRangeError:
		jsErr.Name = "RangeError"
	case errorTypeReferenceError:
		jsErr.Name = "ReferenceError"
	case errorTypeSyntaxError:
		jsErr.Name = "SyntaxError"
	case errorTypeTypeError:
		jsErr.Name = "TypeError"
	case errorTypeURIError:
		jsErr.Name = "URIError"
	default:
		jsErr.Name = "Error"
	}

	for {
		subTag, err := d.reader.ReadByte()
		if err != nil {
			return Value{}, err
		}
		if subTag == errorTagEnd {
			break
		}

		val, err := d.readValue()
		if err != nil {
			return Value{}, err
		}

		switch subTag {
		case errorTagMessage:
			if val.IsString() {
				jsErr.Message = val.AsString()
			}
		case errorTagStack:
			if val.IsString() {
				jsErr.Stack = val.AsString()
			}
		case errorTagCause:
			jsErr.Cause = &val
		}
	}

	return v, nil
}

func (d *Deserializer) readSharedObject() (Value, error) {
	id, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	return SharedObjectValue(id), nil
}

// readWasmModuleTransfer decodes the legacy Wasm module transfer tag,
// carried for wire compatibility (spec's supplemented feature list); this
// implementation never emits it and surfaces it as an opaque transfer id.
func (d *Deserializer) readWasmModuleTransfer() (Value, error) {
	id, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	return HostObjectValue(&HostObject{Decoded: fmt.Sprintf("WasmModuleTransfer(%d)", id)}), nil
}

func (d *Deserializer) readWasmMemoryTransfer() (Value, error) {
	id, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	buf, err := d.readValue()
	if err != nil {
		return Value{}, err
	}
	return HostObjectValue(&HostObject{Decoded: struct {
		ID     uint32
		Buffer Value
	}{ID: id, Buffer: buf}}), nil
}

// readHostObject reads an application-defined HostObject payload (spec
// §4.9). The payload has no self-describing length in the generic case, so
// a handler is required to know how much to consume; this implementation
// requires the handler to consume the rest of a length-prefixed block
// written by the matching encoder (see writeHostObject).
func (d *Deserializer) readHostObject() (Value, error) {
	length, err := d.reader.ReadVarint32()
	if err != nil {
		return Value{}, err
	}
	raw, err := d.reader.ReadBytes(int(length))
	if err != nil {
		return Value{}, err
	}
	data := make([]byte, len(raw))
	copy(data, raw)

	ho := &HostObject{Raw: data}
	if d.hostHandler != nil {
		decoded, err := d.hostHandler.DecodeHostObject(data)
		if err != nil {
			return Value{}, fmt.Errorf("v8serialize: host object handler: %w", err)
		}
		ho.Decoded = decoded
	}
	v := HostObjectValue(ho)
	d.refs.record(ho, v)
	return v, nil
}

// readVerifyObjectCount consumes V8's own fuzzer diagnostic tag, which
// carries no semantic value for this implementation.
func (d *Deserializer) readVerifyObjectCount() (Value, error) {
	if _, err := d.reader.ReadVarint32(); err != nil {
		return Value{}, err
	}
	return d.readValue()
}
