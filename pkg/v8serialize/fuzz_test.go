package v8serialize

import (
	"math"
	"math/big"
	"testing"
	"unicode/utf8"
)

// FuzzDeserialize tests that the deserializer doesn't panic on arbitrary input.
func FuzzDeserialize(f *testing.F) {
	// Seed with valid V8 data from fixtures
	seeds := [][]byte{
		{0xff, 0x0f, 0x30},                                // null
		{0xff, 0x0f, 0x5f},                                // undefined
		{0xff, 0x0f, 0x54},                                // true
		{0xff, 0x0f, 0x46},                                // false
		{0xff, 0x0f, 0x49, 0x54},                          // int32(42)
		{0xff, 0x0f, 0x49, 0x00},                          // int32(0)
		{0xff, 0x0f, 0x22, 0x05, 'h', 'e', 'l', 'l', 'o'}, // "hello"
		{0xff, 0x0f, 0x6f, 0x7b, 0x00},                    // empty object
		{0xff, 0x0f, 0x41, 0x00, 0x24, 0x00, 0x00},        // empty array
		// Invalid/edge cases
		{},
		{0xff},
		{0xff, 0x0f},
		{0x00, 0x01, 0x02},
		{0xff, 0x0f, 0x49}, // truncated int32
		{0xff, 0x0f, 0x22, 0xff, 0xff, 0xff, 0xff}, // huge string length
		// Value-model surface added beyond the teacher's original corpus:
		// empty Map, empty Set, and a zero BigInt (bitfield 0, no digits).
		{0xff, 0x0f, tagBeginMap, tagEndMap, 0x00},
		{0xff, 0x0f, tagBeginSet, tagEndSet, 0x00},
		{0xff, 0x0f, tagBigInt, 0x00},
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		// Should not panic
		val, err := Deserialize(data)
		if err != nil {
			return // errors are expected for invalid input
		}

		// Try to convert to Go (may panic for unhashable map keys, which is expected)
		func() {
			defer func() {
				// Recover from panics in ToGo (e.g., unhashable map keys)
				_ = recover()
			}()
			_ = ToGo(val)
		}()

		// Note: We intentionally skip re-serialization here because:
		// 1. The deserializer can create circular references (via ObjectReference)
		// 2. The serializer doesn't support circular references (causes stack overflow)
		// Serialization is tested separately in FuzzRoundTrip with known-safe inputs.
	})
}

// FuzzRoundTrip tests that valid data round-trips correctly.
func FuzzRoundTrip(f *testing.F) {
	// Seed with various strings
	f.Add("hello")
	f.Add("")
	f.Add("你好世界")
	f.Add("emoji: 🎉🎊🎈")
	f.Add("\x00\x01\x02") // binary-ish (valid UTF-8, all bytes < 128)
	f.Add("a]b{c}d")      // special chars
	f.Add("café")         // Latin-1 character (\xc3\xa9 in UTF-8)
	f.Add("\xc3\xa4")     // ä as valid UTF-8

	f.Fuzz(func(t *testing.T, s string) {
		// Skip invalid UTF-8 strings. Go strings should be valid UTF-8.
		// Invalid UTF-8 input gets normalized through Latin-1 encoding,
		// so exact round-trip isn't guaranteed for malformed input.
		if !utf8.ValidString(s) {
			return
		}

		// Serialize
		data, err := Serialize(String(s))
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}

		// Deserialize
		val, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize failed: %v", err)
		}

		// Compare
		if val.Type() != TypeString {
			t.Fatalf("expected string, got %s", val.Type())
		}
		if val.AsString() != s {
			t.Fatalf("round-trip mismatch: got %q, want %q", val.AsString(), s)
		}
	})
}

// FuzzInt32RoundTrip tests int32 round-trips.
func FuzzInt32RoundTrip(f *testing.F) {
	f.Add(int32(0))
	f.Add(int32(1))
	f.Add(int32(-1))
	f.Add(int32(42))
	f.Add(int32(-42))
	f.Add(int32(2147483647))
	f.Add(int32(-2147483648))

	f.Fuzz(func(t *testing.T, n int32) {
		data, err := Serialize(Int32(n))
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}

		val, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize failed: %v", err)
		}

		if val.Type() != TypeInt32 {
			t.Fatalf("expected int32, got %s", val.Type())
		}
		if val.AsInt32() != n {
			t.Fatalf("got %d, want %d", val.AsInt32(), n)
		}
	})
}

// FuzzBigIntRoundTrip fuzzes arbitrary int64 magnitudes through the BigInt
// bitfield+digits encoding, the sign/length bitfield format the teacher's
// corpus never touched.
func FuzzBigIntRoundTrip(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(1))
	f.Add(int64(-1))
	f.Add(int64(math.MaxInt64))
	f.Add(int64(math.MinInt64))

	f.Fuzz(func(t *testing.T, n int64) {
		want := big.NewInt(n)
		data, err := Serialize(BigInt(want))
		if err != nil {
			t.Fatalf("Serialize(BigInt(%d)) failed: %v", n, err)
		}

		val, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize failed for BigInt(%d): %v", n, err)
		}
		if val.Type() != TypeBigInt {
			t.Fatalf("expected BigInt, got %s", val.Type())
		}
		if val.AsBigInt().Cmp(want) != 0 {
			t.Fatalf("got %s, want %d", val.AsBigInt(), n)
		}
	})
}

// FuzzMapSetRoundTrip fuzzes Map/Set round-trips over fuzzed string keys,
// exercising same-value-zero dedup (Set) and Get-by-key lookup (Map) —
// neither of which existed when the teacher's fuzz targets were written.
func FuzzMapSetRoundTrip(f *testing.F) {
	f.Add("a", int32(1), "a", int32(1)) // duplicate key+value: Set must dedup
	f.Add("a", int32(1), "b", int32(2))
	f.Add("", int32(0), "", int32(0))

	f.Fuzz(func(t *testing.T, k1 string, v1 int32, k2 string, v2 int32) {
		if !utf8.ValidString(k1) || !utf8.ValidString(k2) {
			return
		}

		m := NewJSMap()
		m.Set(String(k1), Int32(v1))
		m.Set(String(k2), Int32(v2))

		data, err := Serialize(Value{typ: TypeMap, data: m})
		if err != nil {
			t.Fatalf("Serialize(map) failed: %v", err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize(map) failed: %v", err)
		}
		gotMap, ok := got.Interface().(*JSMap)
		if !ok {
			t.Fatalf("expected *JSMap, got %T", got.Interface())
		}
		want, _ := m.Get(String(k1))
		gotVal, ok := gotMap.Get(String(k1))
		if !ok || gotVal.AsInt32() != want.AsInt32() {
			t.Fatalf("map[%q]: got %v (ok=%v), want %v", k1, gotVal, ok, want)
		}

		set := NewJSSet()
		set.Add(String(k1))
		set.Add(String(k2))

		data, err = Serialize(Value{typ: TypeSet, data: set})
		if err != nil {
			t.Fatalf("Serialize(set) failed: %v", err)
		}
		got, err = Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize(set) failed: %v", err)
		}
		gotSet, ok := got.Interface().(*JSSet)
		if !ok {
			t.Fatalf("expected *JSSet, got %T", got.Interface())
		}
		if !gotSet.Has(String(k1)) {
			t.Fatalf("set: expected to contain %q", k1)
		}
	})
}

// FuzzSparseArrayRoundTrip fuzzes a fixed-length array with one fuzzed hole
// index, exercising the sparse-array encoding path entirely absent from the
// teacher's always-dense array fuzzing.
func FuzzSparseArrayRoundTrip(f *testing.F) {
	f.Add(uint8(0))
	f.Add(uint8(2))
	f.Add(uint8(4))
	f.Add(uint8(255)) // out of range, wrapped into bounds below

	f.Fuzz(func(t *testing.T, holeIdx uint8) {
		const length = 5
		idx := uint32(holeIdx) % length

		arr := NewJSArray(length)
		for i := uint32(0); i < length; i++ {
			if i != idx {
				arr.SetElement(i, Int32(int32(i)))
			}
		}

		data, err := Serialize(Array(arr))
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize failed: %v", err)
		}
		gotArr := got.AsArray()
		if gotArr.Len() != length {
			t.Fatalf("expected length %d, got %d", length, gotArr.Len())
		}
		for i := uint32(0); i < length; i++ {
			v, ok := gotArr.GetElement(i)
			if i == idx {
				if ok {
					t.Errorf("index %d: expected hole, got %v", i, v)
				}
				continue
			}
			if !ok || v.AsInt32() != int32(i) {
				t.Errorf("index %d: got %v (ok=%v), want %d", i, v, ok, i)
			}
		}
	})
}

// FuzzRegExpRoundTrip fuzzes RegExp pattern/flag pairs, skipping the
// combinations NewRegExp rejects (mutually exclusive u/v flags, flag
// characters outside V8's accepted set) so the fuzzer spends its budget on
// inputs that actually reach the wire format.
func FuzzRegExpRoundTrip(f *testing.F) {
	f.Add("test.*pattern", "gi")
	f.Add("", "")
	f.Add("^$", "m")
	f.Add("(?:)", "u")

	f.Fuzz(func(t *testing.T, pattern, flags string) {
		re, err := NewRegExp(pattern, flags)
		if err != nil {
			return
		}

		data, err := Serialize(Value{typ: TypeRegExp, data: re})
		if err != nil {
			t.Fatalf("Serialize(RegExp(%q, %q)) failed: %v", pattern, flags, err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("Deserialize failed for RegExp(%q, %q): %v", pattern, flags, err)
		}
		gotRe, ok := got.Interface().(*RegExp)
		if !ok {
			t.Fatalf("expected *RegExp, got %T", got.Interface())
		}
		if gotRe.Pattern != re.Pattern || gotRe.Flags != re.Flags {
			t.Fatalf("got (%q, %q), want (%q, %q)", gotRe.Pattern, gotRe.Flags, re.Pattern, re.Flags)
		}
	})
}
