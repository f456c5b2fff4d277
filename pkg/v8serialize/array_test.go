package v8serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayStaysSmallDenseBelowPromotionSize(t *testing.T) {
	arr := NewJSArray(0)
	// minSparseArraySize is 16; a sparsely-populated array smaller than that
	// never promotes, regardless of occupancy.
	arr.SetElement(0, Int32(1))
	arr.Resize(15)
	require.False(t, arr.IsSparse(), "array below minSparseArraySize should stay dense")
}

func TestArrayPromotesToSparseBelowOccupancyThreshold(t *testing.T) {
	arr := NewJSArray(0)
	arr.SetElement(0, Int32(1))
	// Grow past minSparseArraySize while keeping occupancy under 1/4.
	arr.Resize(32)
	assert.True(t, arr.IsSparse(), "1/32 occupancy at size 32 should promote to sparse")
	assert.Equal(t, 32, arr.Len())

	v, ok := arr.GetElement(0)
	require.True(t, ok)
	assert.Equal(t, int32(1), v.AsInt32())
}

func TestArrayDemotesToDenseAboveOccupancyThreshold(t *testing.T) {
	arr := NewJSArray(0)
	arr.Resize(32) // size >= minSparseArraySize, 0 occupancy: starts sparse.
	require.True(t, arr.IsSparse(), "sanity: a fresh 32-length array starts sparse")

	// Fill up to exactly denseDemotionRatio (24/32 = 0.75): still sparse,
	// since demotion triggers on occupancy strictly greater than the ratio.
	for i := uint32(0); i < 24; i++ {
		arr.SetElement(i, Int32(int32(i)))
	}
	require.True(t, arr.IsSparse(), "24/32 occupancy sits exactly at the ratio, should not demote yet")

	// One more element crosses 0.75 (25/32 = 0.78125) and demotes to dense.
	arr.SetElement(24, Int32(24))
	assert.False(t, arr.IsSparse(), "occupancy above denseDemotionRatio should demote to dense")

	v, ok := arr.GetElement(0)
	require.True(t, ok)
	assert.Equal(t, int32(0), v.AsInt32())
	_, ok = arr.GetElement(31)
	assert.False(t, ok, "index 31 should read back as a hole after demotion")
}

func TestArrayPromotionPreservesRoundTrip(t *testing.T) {
	arr := NewJSArray(0)
	arr.Resize(20)
	arr.SetElement(0, String("first"))
	arr.SetElement(19, String("last"))
	require.True(t, arr.IsSparse())

	data, err := Serialize(Array(arr))
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, TypeArray, got.Type())

	gotArr := got.AsArray()
	assert.Equal(t, 20, gotArr.Len())
	first, ok := gotArr.GetElement(0)
	require.True(t, ok)
	assert.Equal(t, "first", first.AsString())
	last, ok := gotArr.GetElement(19)
	require.True(t, ok)
	assert.Equal(t, "last", last.AsString())
}
