// Package hostobject implements Node.js's custom HostObject payload for
// ArrayBuffer views. Node.js bypasses V8's native typed-array-view tag and
// instead writes its own little format inside a HostObject tag: a view-code
// uint32, a byte-length uint32, and the raw view bytes.
package hostobject

import "fmt"

// NodeBufferFormat is Node.js's own view-code table, reproduced from
// lib/v8.js's serializer. Most codes line up with the real
// ArrayBufferViewTag; FastBuffer (10) is node-specific and decodes to a
// plain Uint8Array.
type NodeBufferFormat uint32

const (
	NodeInt8Array NodeBufferFormat = iota
	NodeUint8Array
	NodeUint8ClampedArray
	NodeInt16Array
	NodeUint16Array
	NodeInt32Array
	NodeUint32Array
	NodeFloat32Array
	NodeFloat64Array
	NodeDataView
	NodeFastBuffer // node-internal Uint8Array variant; round-trips as Uint8Array
	NodeBigInt64Array
	NodeBigUint64Array
)

// ViewTagName is the corresponding ArrayBufferViewTag.Name() value (see
// pkg/v8serialize for the tag type itself; kept string-keyed here to avoid
// an import cycle between this package and the codec package).
func (f NodeBufferFormat) ViewTagName() (string, bool) {
	switch f {
	case NodeInt8Array:
		return "Int8Array", true
	case NodeUint8Array, NodeFastBuffer:
		return "Uint8Array", true
	case NodeUint8ClampedArray:
		return "Uint8ClampedArray", true
	case NodeInt16Array:
		return "Int16Array", true
	case NodeUint16Array:
		return "Uint16Array", true
	case NodeInt32Array:
		return "Int32Array", true
	case NodeUint32Array:
		return "Uint32Array", true
	case NodeFloat32Array:
		return "Float32Array", true
	case NodeFloat64Array:
		return "Float64Array", true
	case NodeDataView:
		return "DataView", true
	case NodeBigInt64Array:
		return "BigInt64Array", true
	case NodeBigUint64Array:
		return "BigUint64Array", true
	default:
		return "", false
	}
}

// nodeFormatByViewTagName is the reverse lookup used when serializing: a
// Go-side ArrayBufferView names its view tag as a string and we find the
// Node.js wire code to emit. Float16Array, BigInt64Array's and
// BigUint64Array's absence from node.js's original table (it predates
// those) means this handler only supports what Node.js itself supports;
// callers fall back to the native ArrayBufferView tag otherwise.
var nodeFormatByViewTagName = map[string]NodeBufferFormat{
	"Int8Array":         NodeInt8Array,
	"Uint8Array":         NodeUint8Array,
	"Uint8ClampedArray":  NodeUint8ClampedArray,
	"Int16Array":         NodeInt16Array,
	"Uint16Array":        NodeUint16Array,
	"Int32Array":         NodeInt32Array,
	"Uint32Array":        NodeUint32Array,
	"Float32Array":       NodeFloat32Array,
	"Float64Array":       NodeFloat64Array,
	"DataView":           NodeDataView,
	"BigInt64Array":      NodeBigInt64Array,
	"BigUint64Array":     NodeBigUint64Array,
}

// Supports reports whether Node.js's HostObject format has a code for the
// named view tag (Float16Array does not, since it postdates this format).
func Supports(viewTagName string) bool {
	_, ok := nodeFormatByViewTagName[viewTagName]
	return ok
}

// CodeForViewTag returns the Node.js wire code for a view tag name.
func CodeForViewTag(viewTagName string) (NodeBufferFormat, error) {
	f, ok := nodeFormatByViewTagName[viewTagName]
	if !ok {
		return 0, fmt.Errorf("hostobject: no Node.js buffer format for view tag %q", viewTagName)
	}
	return f, nil
}

// Payload is the decoded content of a Node.js ArrayBufferView HostObject:
// the view flavor and the raw bytes of the viewed region (not the whole
// backing buffer — Node.js only shares what the view covers).
type Payload struct {
	ViewTagName string
	Data        []byte
}

// Encode builds the wire bytes for a Node.js HostObject payload: view code
// (uint32 LE), byte length (uint32 LE), then the raw bytes.
func Encode(viewTagName string, data []byte) ([]byte, error) {
	code, err := CodeForViewTag(viewTagName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(data))
	putUint32LE(out[0:4], uint32(code))
	putUint32LE(out[4:8], uint32(len(data)))
	copy(out[8:], data)
	return out, nil
}

// Decode parses a Node.js HostObject payload previously produced by Encode.
func Decode(raw []byte) (Payload, error) {
	if len(raw) < 8 {
		return Payload{}, fmt.Errorf("hostobject: payload too short: %d bytes", len(raw))
	}
	code := NodeBufferFormat(getUint32LE(raw[0:4]))
	byteLength := getUint32LE(raw[4:8])
	name, ok := code.ViewTagName()
	if !ok {
		return Payload{}, fmt.Errorf("hostobject: unknown Node.js view code %d", code)
	}
	end := 8 + int(byteLength)
	if end > len(raw) {
		return Payload{}, fmt.Errorf("hostobject: declared byte length %d exceeds payload size %d", byteLength, len(raw)-8)
	}
	return Payload{ViewTagName: name, Data: raw[8:end]}, nil
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
