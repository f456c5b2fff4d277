package v8serialize

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"strings"
	"time"

	"github.com/gostructs/v8wire/internal/hostobject"
	"github.com/gostructs/v8wire/internal/wire"
)

// SerializeVersion is the V8 serialization format version this package
// produces by default (can be overridden with WithFormatVersion).
const SerializeVersion = 15

// HostObjectEncoder encodes an application-defined payload (the Decoded
// field of a HostObject Value) into wire bytes. ok=false means "not mine";
// the encoder falls back to the HostObject's Raw bytes, if any.
type HostObjectEncoder interface {
	EncodeHostObject(v interface{}) (data []byte, ok bool, err error)
}

// Serializer serializes Values (or plain Go values, via SerializeGo) to V8
// Structured Clone format. Object-like values (objects, arrays, Maps, Sets,
// RegExps, Errors, ArrayBuffers, typed array views, boxed primitives, host
// objects) are tracked in a reference log exactly like the decoder's, so a
// Go value graph containing a legitimate cycle (anything except a Map/Set
// or Error.cause that loops back to a still-unresolved ancestor) round-trips
// correctly; see reference.go and writeError's use of an acyclic guard.
type Serializer struct {
	writer      *wire.Writer
	refs        *referenceLog
	features    *featureSet
	version     uint32
	hostEncoder HostObjectEncoder
	nodeJSViews bool
}

// EncodeOption configures a Serializer.
type EncodeOption func(*Serializer)

// WithTargetV8Version gates feature emission (resizable ArrayBuffer,
// Float16Array, circular Error.cause, RegExp UnicodeSets) to what the named
// V8 version string supports (spec §4.8). Falls back to the default version
// if the string fails to parse.
func WithTargetV8Version(version string) EncodeOption {
	return func(s *Serializer) {
		fs, err := newFeatureSet(version)
		if err != nil {
			fs, _ = newFeatureSet(defaultV8Version)
		}
		s.features = fs
	}
}

// WithFormatVersion sets the wire format version written in the header
// (default SerializeVersion).
func WithFormatVersion(version uint32) EncodeOption {
	return func(s *Serializer) { s.version = version }
}

// WithHostObjectEncoder installs an encoder for application-defined
// HostObject payloads (spec §4.9's pluggable extension seam).
func WithHostObjectEncoder(enc HostObjectEncoder) EncodeOption {
	return func(s *Serializer) { s.hostEncoder = enc }
}

// nodeJSHostObjectEncoder adapts internal/hostobject's Node.js ArrayBuffer
// view codec to HostObjectEncoder, re-encoding a hostobject.Payload that was
// previously produced by WithNodeJSHostObjects on decode.
type nodeJSHostObjectEncoder struct{}

func (nodeJSHostObjectEncoder) EncodeHostObject(v interface{}) ([]byte, bool, error) {
	payload, ok := v.(hostobject.Payload)
	if !ok {
		return nil, false, nil
	}
	data, err := hostobject.Encode(payload.ViewTagName, payload.Data)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// WithNodeJSHostObjects installs the Node.js ArrayBufferView HostObject
// encoder, the encode-side counterpart of the deserializer's option of the
// same name.
func WithNodeJSHostObjects() EncodeOption {
	return WithHostObjectEncoder(nodeJSHostObjectEncoder{})
}

// WithNodeJSArrayBufferViews makes the serializer emit typed array views
// Node.js's own way: as a HostObject payload (internal/hostobject) instead
// of the native ArrayBufferView tag, for views whose flavor Node.js's older
// format recognizes. Views it doesn't recognize (Float16Array) still use
// the native tag.
func WithNodeJSArrayBufferViews() EncodeOption {
	return func(s *Serializer) { s.nodeJSViews = true }
}

// NewSerializer creates a Serializer with the given options applied.
func NewSerializer(opts ...EncodeOption) *Serializer {
	fs, _ := newFeatureSet(defaultV8Version)
	s := &Serializer{
		writer:   wire.NewWriter(256),
		refs:     newReferenceLog(),
		features: fs,
		version:  SerializeVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize serializes a Value to V8 format.
func Serialize(v Value, opts ...EncodeOption) ([]byte, error) {
	s := NewSerializer(opts...)
	return s.Serialize(v)
}

// SerializeGo serializes a plain Go value to V8 format.
// Supported types:
//   - nil → null
//   - bool → boolean
//   - int, int8, int16, int32, int64 → int32 or double
//   - uint, uint8, uint16, uint32, uint64 → int32 or double
//   - float32, float64 → double
//   - string → string
//   - *big.Int → BigInt
//   - time.Time → Date
//   - []interface{} → array
//   - map[string]interface{} → object
//   - []byte → ArrayBuffer
//   - Value → passed through to Serialize
func SerializeGo(v interface{}, opts ...EncodeOption) ([]byte, error) {
	s := NewSerializer(opts...)
	return s.SerializeGo(v)
}

// Serialize writes the version header followed by v.
func (s *Serializer) Serialize(v Value) ([]byte, error) {
	if err := s.writeHeader(); err != nil {
		return nil, err
	}
	if err := s.writeValue(v); err != nil {
		return nil, err
	}
	return s.writer.Bytes(), nil
}

// SerializeGo writes the version header followed by the Go value v.
func (s *Serializer) SerializeGo(v interface{}) ([]byte, error) {
	if err := s.writeHeader(); err != nil {
		return nil, err
	}
	if err := s.writeGoValue(v); err != nil {
		return nil, err
	}
	return s.writer.Bytes(), nil
}

func (s *Serializer) writeHeader() error {
	s.writer.WriteTag(tagVersion)
	s.writer.WriteVarint32(s.version)
	return nil
}

// tryBackref checks whether key has already been written. If so, it emits a
// back-reference tag and returns (true, nil); if key is still under an open
// acyclic guard (writeError's in-progress Cause chain), it returns an error
// unless FeatureCircularErrorCause is enabled for *JSError keys — every
// other kind of value can never be in the forward state, since only
// writeError opens a guard (see reference.go).
func (s *Serializer) tryBackref(key interface{}) (bool, error) {
	if key == nil {
		return false, nil
	}
	id, ok := s.refs.idOf(key)
	if !ok {
		return false, nil
	}
	if s.refs.isForward(key) {
		if _, isErr := key.(*JSError); isErr {
			if !s.features.Enabled(FeatureCircularErrorCause) {
				return true, fmt.Errorf("%w: Error.cause cycles back to an error still under construction", ErrIllegalCyclicValue)
			}
		} else {
			return true, fmt.Errorf("%w: value references an ancestor still under construction", ErrIllegalCyclicValue)
		}
	}
	s.writer.WriteTag(tagObjectReference)
	s.writer.WriteVarint32(id)
	return true, nil
}

func (s *Serializer) writeValue(v Value) error {
	switch v.Type() {
	case TypeUndefined:
		s.writer.WriteTag(tagUndefined)
		return nil
	case TypeNull:
		s.writer.WriteTag(tagNull)
		return nil
	case TypeHole:
		s.writer.WriteTag(tagHole)
		return nil
	case TypeBool:
		if v.AsBool() {
			s.writer.WriteTag(tagTrue)
			return nil
		}
		s.writer.WriteTag(tagFalse)
		return nil
	case TypeInt32:
		s.writer.WriteTag(tagInt32)
		s.writer.WriteZigZag32(v.AsInt32())
		return nil
	case TypeUint32:
		s.writer.WriteTag(tagUint32)
		s.writer.WriteVarint32(v.AsUint32())
		return nil
	case TypeDouble:
		s.writer.WriteTag(tagDouble)
		s.writer.WriteDouble(v.AsDouble())
		return nil
	case TypeBigInt:
		return s.writeBigInt(v.AsBigInt())
	case TypeString:
		return s.writeString(v.AsString())
	case TypeDate:
		return s.writeDate(v)
	case TypeObject:
		return s.writeObject(v)
	case TypeArray:
		return s.writeArray(v)
	case TypeMap:
		return s.writeMap(v)
	case TypeSet:
		return s.writeSet(v)
	case TypeRegExp:
		return s.writeRegExp(v)
	case TypeArrayBuffer:
		return s.writeArrayBuffer(v)
	case TypeTypedArray:
		if s.nodeJSViews {
			handled, err := s.writeNodeJSTypedArray(v)
			if handled {
				return err
			}
		}
		return s.writeTypedArray(v)
	case TypeError:
		return s.writeError(v)
	case TypeBoxedPrimitive:
		return s.writeBoxedPrimitive(v)
	case TypeSharedObject:
		return s.writeSharedObject(v)
	case TypeHostObject:
		return s.writeHostObject(v)
	case TypeLegacyReserved:
		return fmt.Errorf("%w: legacy/reserved values are decode-only and cannot be serialized", ErrUnmappedValue)
	default:
		return fmt.Errorf("%w: %s", ErrUnmappedValue, v.Type())
	}
}

func (s *Serializer) writeDate(v Value) error {
	t := v.AsDate()
	ms := float64(t.UnixNano()) / 1e6
	s.writer.WriteTag(tagDate)
	s.writer.WriteDouble(ms)
	// Date is object-like (it gets a reference slot, spec §3) but this API
	// gives no way to identify "the same Date object" across two calls, so
	// it's never deduplicated via backref — only the slot numbering matters.
	s.refs.record(nil, v)
	return nil
}

// writeString picks the Latin-1 (one-byte) or UTF-16LE (two-byte) tag the
// way wire.NeedsUTF16 decides it on the reading side, and uses
// wire.OneByteStringLength rather than len(s) for the one-byte length field
// so that strings containing multi-byte UTF-8 sequences that still fit the
// Latin-1 range (e.g. "café") get the correct declared length.
func (s *Serializer) writeString(str string) error {
	if wire.NeedsUTF16(str) {
		s.writer.WriteTag(tagTwoByteString)
		s.writer.WriteVarint32(uint32(wire.UTF16Length(str) * 2))
		s.writer.WriteTwoByteString(str)
		return nil
	}
	s.writer.WriteTag(tagOneByteString)
	s.writer.WriteVarint32(uint32(wire.OneByteStringLength(str)))
	s.writer.WriteOneByteString(str)
	return nil
}

// writeBigInt writes the bitfield (sign bit + byte length) and little-endian
// magnitude bytes (spec §9's BigInt format); the over-allocation formula
// some encoders use, (bit_length+8)//8, is for THEIR benefit only (extra
// scratch room while building); we allocate exactly big.Int.Bytes()'s
// length, which readBigInt already tolerates since it only ever trusts the
// declared byteLength, never recomputes it.
func (s *Serializer) writeBigInt(n *big.Int) error {
	s.writer.WriteTag(tagBigInt)
	negative := n.Sign() < 0
	mag := new(big.Int).Abs(n)
	data := mag.Bytes() // big-endian
	byteLength := len(data)
	if bits.Len(uint(byteLength)) > 30 {
		return fmt.Errorf("%w: BigInt needs %d bytes to represent, exceeds format limit", ErrValueTooLarge, byteLength)
	}
	bitfield := uint64(byteLength) << 1
	if negative {
		bitfield |= 1
	}
	s.writer.WriteVarint(bitfield)
	reversed := make([]byte, byteLength)
	for i, b := range data {
		reversed[byteLength-1-i] = b
	}
	s.writer.WriteBytes(reversed)
	return nil
}

func (s *Serializer) writeObject(v Value) error {
	obj := v.AsObject()
	if ok, err := s.tryBackref(obj); ok || err != nil {
		return err
	}
	s.writer.WriteTag(tagBeginJSObject)
	s.refs.record(obj, v)

	count := 0
	for _, k := range obj.Keys() {
		val, _ := obj.Get(k)
		if err := s.writeValue(String(k)); err != nil {
			return err
		}
		if err := s.writeValue(val); err != nil {
			return err
		}
		count++
	}
	for _, i := range obj.ElementIndexes(orderAscending) {
		val, _ := obj.GetElement(i)
		if err := s.writeValue(String(fmt.Sprintf("%d", i))); err != nil {
			return err
		}
		if err := s.writeValue(val); err != nil {
			return err
		}
		count++
	}

	s.writer.WriteTag(tagEndJSObject)
	s.writer.WriteVarint32(uint32(count))
	return nil
}

func (s *Serializer) writeArray(v Value) error {
	arr := v.AsArray()
	if ok, err := s.tryBackref(arr); ok || err != nil {
		return err
	}
	if arr.IsSparse() {
		return s.writeSparseArray(v, arr)
	}
	return s.writeDenseArray(v, arr)
}

func (s *Serializer) writeDenseArray(v Value, arr *JSArray) error {
	length := uint32(arr.Len())
	s.writer.WriteTag(tagBeginDenseArray)
	s.writer.WriteVarint32(length)
	s.refs.record(arr, v)

	for i := uint32(0); i < length; i++ {
		val, ok := arr.GetElement(i)
		if !ok {
			val = Hole()
		}
		if err := s.writeValue(val); err != nil {
			return err
		}
	}

	count := 0
	for _, k := range arr.Properties() {
		val, _ := arr.PropertyValue(k)
		if err := s.writeValue(String(k)); err != nil {
			return err
		}
		if err := s.writeValue(val); err != nil {
			return err
		}
		count++
	}

	s.writer.WriteTag(tagEndDenseArray)
	s.writer.WriteVarint32(uint32(count))
	s.writer.WriteVarint32(length)
	return nil
}

// writeSparseArray writes every element as a (index-string, value) property
// pair, just like an object's, the way V8 represents sparse arrays on the
// wire (spec §4.4).
func (s *Serializer) writeSparseArray(v Value, arr *JSArray) error {
	length := uint32(arr.Len())
	s.writer.WriteTag(tagBeginSparseArray)
	s.writer.WriteVarint32(length)
	s.refs.record(arr, v)

	count := 0
	for _, i := range arr.ElementIndexes(orderAscending) {
		val, _ := arr.GetElement(i)
		if err := s.writeValue(String(fmt.Sprintf("%d", i))); err != nil {
			return err
		}
		if err := s.writeValue(val); err != nil {
			return err
		}
		count++
	}
	for _, k := range arr.Properties() {
		val, _ := arr.PropertyValue(k)
		if err := s.writeValue(String(k)); err != nil {
			return err
		}
		if err := s.writeValue(val); err != nil {
			return err
		}
		count++
	}

	s.writer.WriteTag(tagEndSparseArray)
	s.writer.WriteVarint32(uint32(count))
	s.writer.WriteVarint32(length)
	return nil
}

func (s *Serializer) writeMap(v Value) error {
	m := v.Interface().(*JSMap)
	if ok, err := s.tryBackref(m); ok || err != nil {
		return err
	}
	s.writer.WriteTag(tagBeginMap)
	s.refs.record(m, v)

	for _, entry := range m.Entries {
		if err := s.writeValue(entry.Key); err != nil {
			return err
		}
		if err := s.writeValue(entry.Value); err != nil {
			return err
		}
	}

	s.writer.WriteTag(tagEndMap)
	s.writer.WriteVarint32(uint32(len(m.Entries) * 2))
	return nil
}

func (s *Serializer) writeSet(v Value) error {
	set := v.Interface().(*JSSet)
	if ok, err := s.tryBackref(set); ok || err != nil {
		return err
	}
	s.writer.WriteTag(tagBeginSet)
	s.refs.record(set, v)

	for _, val := range set.Values {
		if err := s.writeValue(val); err != nil {
			return err
		}
	}

	s.writer.WriteTag(tagEndSet)
	s.writer.WriteVarint32(uint32(len(set.Values)))
	return nil
}

func (s *Serializer) writeRegExp(v Value) error {
	re := v.Interface().(*RegExp)
	if ok, err := s.tryBackref(re); ok || err != nil {
		return err
	}
	if strings.ContainsRune(re.Flags, 'v') && !s.features.Enabled(FeatureRegExpUnicodeSets) {
		return fmt.Errorf("%w: RegExp UnicodeSets ('v') flag requires a newer target version", ErrFeatureNotEnabled)
	}

	s.writer.WriteTag(tagRegExp)
	if err := s.writeValue(String(re.Pattern)); err != nil {
		return err
	}

	var flagBits uint32
	for _, c := range re.Flags {
		switch c {
		case 'g':
			flagBits |= 1
		case 'i':
			flagBits |= 2
		case 'm':
			flagBits |= 4
		case 's':
			flagBits |= 8
		case 'u':
			flagBits |= 16
		case 'y':
			flagBits |= 32
		case 'v':
			flagBits |= 64
		}
	}
	s.writer.WriteVarint32(flagBits)
	s.refs.record(re, v)
	return nil
}

func (s *Serializer) writeArrayBuffer(v Value) error {
	ab := v.Interface().(*ArrayBuffer)
	if ok, err := s.tryBackref(ab); ok || err != nil {
		return err
	}
	return s.writeArrayBufferBody(ab)
}

// writeArrayBufferBody writes buf's bytes unconditionally — never as a
// back-reference — and records it afterward. Used both for a standalone
// ArrayBuffer value and for a typed array view's backing buffer, which must
// always be followed immediately by the view's own tag (spec §3, §4.4;
// readArrayBuffer/readArrayBufferTransfer/readSharedArrayBuffer only check
// for a following ArrayBufferView tag right after a freshly-read buffer).
func (s *Serializer) writeArrayBufferBody(buf *ArrayBuffer) error {
	if buf == nil {
		buf = &ArrayBuffer{}
	}
	bufValue := ArrayBufferValue(buf)

	switch {
	case buf.Transferred:
		s.writer.WriteTag(tagArrayBufferTransfer)
		s.writer.WriteVarint32(buf.ID)
	case buf.Shared:
		s.writer.WriteTag(tagSharedArrayBuffer)
		s.writer.WriteVarint32(buf.ID)
	case buf.Resizable:
		if !s.features.Enabled(FeatureResizableArrayBuffer) {
			return fmt.Errorf("%w: resizable ArrayBuffer requires a newer target version", ErrFeatureNotEnabled)
		}
		s.writer.WriteTag(tagResizableArrayBuffer)
		s.writer.WriteVarint32(uint32(len(buf.Data)))
		s.writer.WriteVarint32(uint32(buf.MaxByteLength))
		s.writer.WriteBytes(buf.Data)
	default:
		s.writer.WriteTag(tagArrayBuffer)
		s.writer.WriteVarint32(uint32(len(buf.Data)))
		s.writer.WriteBytes(buf.Data)
	}

	s.refs.record(buf, bufValue)
	return nil
}

func (s *Serializer) writeTypedArray(v Value) error {
	view := v.AsTypedArray()
	if ok, err := s.tryBackref(view); ok || err != nil {
		return err
	}
	if view.Tag == ViewFloat16 && !s.features.Enabled(FeatureFloat16Array) {
		return fmt.Errorf("%w: Float16Array requires a newer target version", ErrFeatureNotEnabled)
	}

	if err := s.writeArrayBufferBody(view.Buffer); err != nil {
		return err
	}

	s.writer.WriteTag(tagArrayBufferView)
	if err := s.writer.WriteByte(byte(view.Tag)); err != nil {
		return err
	}
	var flags ArrayBufferViewFlags
	if view.LengthTracking {
		flags |= FlagIsLengthTracking
	}
	if view.Buffer != nil && view.Buffer.Resizable {
		flags |= FlagIsBufferResizable
	}
	s.writer.WriteVarint32(uint32(flags))
	s.writer.WriteVarint32(uint32(view.ByteOffset()))
	s.writer.WriteVarint32(uint32(view.ByteLength()))
	s.refs.record(view, v)
	return nil
}

// writeNodeJSTypedArray encodes view as a Node.js-style HostObject payload
// when WithNodeJSArrayBufferViews is enabled and the view's flavor is one
// Node.js's format recognizes. handled=false means the caller should fall
// back to writeTypedArray's native tag.
func (s *Serializer) writeNodeJSTypedArray(v Value) (handled bool, err error) {
	view := v.AsTypedArray()
	if !hostobject.Supports(view.Tag.Name()) {
		return false, nil
	}
	if ok, err := s.tryBackref(view); ok {
		return true, err
	}

	payload, err := hostobject.Encode(view.Tag.Name(), view.Bytes())
	if err != nil {
		return true, err
	}
	s.writer.WriteTag(tagHostObject)
	s.writer.WriteVarint32(uint32(len(payload)))
	s.writer.WriteBytes(payload)
	s.refs.record(view, v)
	return true, nil
}

func (s *Serializer) writeBoxedPrimitive(v Value) error {
	boxed := v.Interface().(*BoxedPrimitive)
	if ok, err := s.tryBackref(boxed); ok || err != nil {
		return err
	}

	switch boxed.PrimitiveType {
	case TypeDouble:
		s.writer.WriteTag(tagNumberObject)
		s.writer.WriteDouble(boxed.Value.AsDouble())
	case TypeBool:
		if boxed.Value.AsBool() {
			s.writer.WriteTag(tagTrueObject)
		} else {
			s.writer.WriteTag(tagFalseObject)
		}
	case TypeString:
		s.writer.WriteTag(tagStringObject)
		if err := s.writeValue(boxed.Value); err != nil {
			return err
		}
	case TypeBigInt:
		s.writer.WriteTag(tagBigIntObject)
		if err := s.writeValue(boxed.Value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s cannot be boxed", ErrUnmappedValue, boxed.PrimitiveType)
	}

	s.refs.record(boxed, v)
	return nil
}

// errorTypeGenericError marks a generic (non-builtin-named) Error that still
// needs the sub-tag loop form, e.g. because it carries a stack or cause —
// any byte here not already claimed by errorTypeErrorWithMessage or one of
// the builtin names works, since the decoder's default case already treats
// an unrecognized error-type byte as a plain Error (see deserializer.go).
const errorTypeGenericError byte = 'e'

func errorTypeTagForLoop(name string) byte {
	switch name {
	case "EvalError":
		return errorTypeEvalError
	case "RangeError":
		return errorTypeRangeError
	case "ReferenceError":
		return errorTypeReferenceError
	case "SyntaxError":
		return errorTypeSyntaxError
	case "TypeError":
		return errorTypeTypeError
	case "URIError":
		return errorTypeURIError
	default:
		return errorTypeGenericError
	}
}

// writeError uses an acyclic guard around the whole write: Error.cause is
// the one place this format allows a value to reference an ancestor still
// under construction, and only when FeatureCircularErrorCause is enabled
// (spec §4.8); tryBackref enforces that for every recursive writeValue call
// made while the guard is open.
func (s *Serializer) writeError(v Value) error {
	jsErr := v.Interface().(*JSError)
	if ok, err := s.tryBackref(jsErr); ok || err != nil {
		return err
	}
	guard := s.refs.openAcyclicGuard(jsErr)

	s.writer.WriteTag(tagError)

	useCompact := (jsErr.Name == "" || jsErr.Name == "Error") && jsErr.Stack == "" && jsErr.Cause == nil
	if useCompact {
		if err := s.writer.WriteByte(errorTypeErrorWithMessage); err != nil {
			return err
		}
		var err error
		if jsErr.Message != "" {
			err = s.writeValue(String(jsErr.Message))
		} else {
			err = s.writeValue(Undefined())
		}
		if err != nil {
			return err
		}
		guard.resolve(v)
		return nil
	}

	if err := s.writer.WriteByte(errorTypeTagForLoop(jsErr.Name)); err != nil {
		return err
	}
	if jsErr.Message != "" {
		if err := s.writer.WriteByte(errorTagMessage); err != nil {
			return err
		}
		if err := s.writeValue(String(jsErr.Message)); err != nil {
			return err
		}
	}
	if jsErr.Stack != "" {
		if err := s.writer.WriteByte(errorTagStack); err != nil {
			return err
		}
		if err := s.writeValue(String(jsErr.Stack)); err != nil {
			return err
		}
	}
	if jsErr.Cause != nil {
		if err := s.writer.WriteByte(errorTagCause); err != nil {
			return err
		}
		if err := s.writeValue(*jsErr.Cause); err != nil {
			return err
		}
	}
	if err := s.writer.WriteByte(errorTagEnd); err != nil {
		return err
	}
	guard.resolve(v)
	return nil
}

// writeSharedObject is untracked, matching readSharedObject's lack of a
// refs.record call — shared-value references are opaque ids, not objects
// this implementation ever considers "the same" across two Values.
func (s *Serializer) writeSharedObject(v Value) error {
	so := v.AsSharedObject()
	s.writer.WriteTag(tagSharedObject)
	s.writer.WriteVarint32(so.ID)
	return nil
}

func (s *Serializer) writeHostObject(v Value) error {
	ho := v.AsHostObject()
	if ok, err := s.tryBackref(ho); ok || err != nil {
		return err
	}

	var payload []byte
	if s.hostEncoder != nil {
		data, ok, err := s.hostEncoder.EncodeHostObject(ho.Decoded)
		if err != nil {
			return fmt.Errorf("v8serialize: host object encoder: %w", err)
		}
		if ok {
			payload = data
		}
	}
	if payload == nil {
		payload = ho.Raw
	}

	s.writer.WriteTag(tagHostObject)
	s.writer.WriteVarint32(uint32(len(payload)))
	s.writer.WriteBytes(payload)
	s.refs.record(ho, v)
	return nil
}

// writeGoValue serializes a plain Go value without requiring the caller to
// build a Value graph first (SerializeGo's entry point). Containers route
// through the ordered JSObject/JSArray constructors so key/element order is
// still deterministic.
func (s *Serializer) writeGoValue(v interface{}) error {
	if v == nil {
		s.writer.WriteTag(tagNull)
		return nil
	}

	switch val := v.(type) {
	case Value:
		return s.writeValue(val)
	case bool:
		if val {
			s.writer.WriteTag(tagTrue)
			return nil
		}
		s.writer.WriteTag(tagFalse)
		return nil
	case int:
		return s.writeGoInt(int64(val))
	case int8:
		return s.writeGoInt(int64(val))
	case int16:
		return s.writeGoInt(int64(val))
	case int32:
		return s.writeValue(Int32(val))
	case int64:
		return s.writeGoInt(val)
	case uint:
		return s.writeGoUint(uint64(val))
	case uint8:
		return s.writeGoUint(uint64(val))
	case uint16:
		return s.writeGoUint(uint64(val))
	case uint32:
		return s.writeGoUint(uint64(val))
	case uint64:
		return s.writeGoUint(val)
	case float32:
		return s.writeValue(Double(float64(val)))
	case float64:
		return s.writeValue(Double(val))
	case string:
		return s.writeValue(String(val))
	case *big.Int:
		return s.writeValue(BigInt(val))
	case time.Time:
		return s.writeValue(Date(val))
	case []byte:
		return s.writeValue(ArrayBufferValue(&ArrayBuffer{Data: val}))
	case []interface{}:
		arr := NewJSArray(uint32(len(val)))
		for i, elem := range val {
			if elem == nil {
				continue
			}
			gv, err := goValueAsValue(elem)
			if err != nil {
				return err
			}
			arr.SetElement(uint32(i), gv)
		}
		return s.writeValue(Array(arr))
	case map[string]interface{}:
		obj := NewJSObject()
		for _, k := range sortedGoKeys(val) {
			gv, err := goValueAsValue(val[k])
			if err != nil {
				return err
			}
			obj.Set(k, gv)
		}
		return s.writeValue(Object(obj))
	default:
		return fmt.Errorf("%w: unsupported Go type %T", ErrUnmappedValue, v)
	}
}

// goValueAsValue converts a plain Go value into a Value by round-tripping
// it through a scratch Serializer's writeGoValue logic is unnecessary here:
// container elements need an actual Value, not wire bytes, so this mirrors
// writeGoValue's type switch directly instead of each element re-running
// the byte-producing version.
func goValueAsValue(v interface{}) (Value, error) {
	if v == nil {
		return Undefined(), nil
	}
	switch val := v.(type) {
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return goIntAsValue(int64(val)), nil
	case int8:
		return goIntAsValue(int64(val)), nil
	case int16:
		return goIntAsValue(int64(val)), nil
	case int32:
		return Int32(val), nil
	case int64:
		return goIntAsValue(val), nil
	case uint:
		return goUintAsValue(uint64(val)), nil
	case uint8:
		return goUintAsValue(uint64(val)), nil
	case uint16:
		return goUintAsValue(uint64(val)), nil
	case uint32:
		return goUintAsValue(uint64(val)), nil
	case uint64:
		return goUintAsValue(val), nil
	case float32:
		return Double(float64(val)), nil
	case float64:
		return Double(val), nil
	case string:
		return String(val), nil
	case *big.Int:
		return BigInt(val), nil
	case time.Time:
		return Date(val), nil
	case []byte:
		return ArrayBufferValue(&ArrayBuffer{Data: val}), nil
	case []interface{}:
		arr := NewJSArray(uint32(len(val)))
		for i, elem := range val {
			if elem == nil {
				continue
			}
			gv, err := goValueAsValue(elem)
			if err != nil {
				return Value{}, err
			}
			arr.SetElement(uint32(i), gv)
		}
		return Array(arr), nil
	case map[string]interface{}:
		obj := NewJSObject()
		for _, k := range sortedGoKeys(val) {
			gv, err := goValueAsValue(val[k])
			if err != nil {
				return Value{}, err
			}
			obj.Set(k, gv)
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrUnmappedValue, v)
	}
}

func goIntAsValue(n int64) Value {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return Int32(int32(n))
	}
	return Double(float64(n))
}

func goUintAsValue(n uint64) Value {
	if n <= math.MaxInt32 {
		return Int32(int32(n))
	}
	return Double(float64(n))
}

func (s *Serializer) writeGoInt(n int64) error {
	return s.writeValue(goIntAsValue(n))
}

func (s *Serializer) writeGoUint(n uint64) error {
	return s.writeValue(goUintAsValue(n))
}

func sortedGoKeys(m map[string]interface{}) []string {
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
