package v8serialize

import "sort"

// Array storage thresholds (spec §4.3, §9 Open Questions: treat the written
// thresholds as authoritative even though the Python source's commented
// constant for the demotion ratio reads differently).
const (
	maxArrayLength         = 1<<32 - 1
	minSparseArraySize     = 16
	minDenseArrayUsedRatio = 0.25 // promote dense->sparse below this occupancy
	denseDemotionRatio     = 0.75 // demote sparse->dense above this occupancy
)

// elementOrder selects iteration order for arrayStorage.indexes/elements.
type elementOrder int

const (
	orderAscending elementOrder = iota
	orderDescending
	orderUnordered
)

// arrayStorage is the shared interface for dense and sparse element storage,
// satisfied by both denseArray and sparseArray (spec §4.3). It never owns the
// promotion/demotion decision — that's policy living in JSArray.
type arrayStorage interface {
	Len() int
	ElementsUsed() int
	Get(i uint32) (Value, bool) // ok=false means hole
	Set(i uint32, v Value)      // v.IsHole() deletes
	Delete(i uint32)
	Append(v Value)
	Resize(newLen uint32)
	Indexes(order elementOrder) []uint32
}

// denseArray backs storage with a linear slot vector; absent slots are holes.
type denseArray struct {
	slots []Value // zero Value (IsHole()==false, typ==TypeUndefined) unused; holes marked explicitly
	used  int
}

func newDenseArray(length uint32) *denseArray {
	d := &denseArray{slots: make([]Value, length)}
	for i := range d.slots {
		d.slots[i] = Hole()
	}
	return d
}

func (d *denseArray) Len() int          { return len(d.slots) }
func (d *denseArray) ElementsUsed() int { return d.used }

func (d *denseArray) Get(i uint32) (Value, bool) {
	if int(i) >= len(d.slots) {
		return Value{}, false
	}
	v := d.slots[i]
	return v, !v.IsHole()
}

func (d *denseArray) Set(i uint32, v Value) {
	for uint32(len(d.slots)) <= i {
		d.slots = append(d.slots, Hole())
	}
	wasHole := d.slots[i].IsHole()
	d.slots[i] = v
	switch {
	case wasHole && !v.IsHole():
		d.used++
	case !wasHole && v.IsHole():
		d.used--
	}
}

func (d *denseArray) Delete(i uint32) { d.Set(i, Hole()) }

func (d *denseArray) Append(v Value) { d.Set(uint32(len(d.slots)), v) }

func (d *denseArray) Resize(newLen uint32) {
	if int(newLen) <= len(d.slots) {
		for i := newLen; int(i) < len(d.slots); i++ {
			if !d.slots[i].IsHole() {
				d.used--
			}
		}
		d.slots = d.slots[:newLen]
		return
	}
	for uint32(len(d.slots)) < newLen {
		d.slots = append(d.slots, Hole())
	}
}

func (d *denseArray) Indexes(order elementOrder) []uint32 {
	idx := make([]uint32, 0, d.used)
	for i, v := range d.slots {
		if !v.IsHole() {
			idx = append(idx, uint32(i))
		}
	}
	if order == orderDescending {
		sort.Sort(sort.Reverse(uint32Slice(idx)))
	}
	return idx
}

type uint32Slice []uint32

func (s uint32Slice) Len() int           { return len(s) }
func (s uint32Slice) Less(i, j int) bool { return s[i] < s[j] }
func (s uint32Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// sparseArray backs storage with an index->value map plus a sorted-index cache
// that append-at-end and delete-last maintain in place; any other mutation
// invalidates the cache and forces a re-sort on next ordered iteration.
type sparseArray struct {
	length     uint32
	items      map[uint32]Value
	sortedKeys []uint32 // nil when stale
	maxIndex   int64    // -1 when empty
}

func newSparseArray(length uint32) *sparseArray {
	return &sparseArray{length: length, items: make(map[uint32]Value), maxIndex: -1}
}

func (s *sparseArray) Len() int          { return int(s.length) }
func (s *sparseArray) ElementsUsed() int { return len(s.items) }

func (s *sparseArray) Get(i uint32) (Value, bool) {
	v, ok := s.items[i]
	return v, ok
}

func (s *sparseArray) Set(i uint32, v Value) {
	if v.IsHole() {
		s.Delete(i)
		return
	}
	if i >= s.length {
		s.length = i + 1
	}
	_, existed := s.items[i]
	s.items[i] = v
	if !existed {
		if int64(i) == s.maxIndex+1 && s.sortedKeys != nil {
			s.sortedKeys = append(s.sortedKeys, i) // O(1) append-at-end fast path
		} else {
			s.sortedKeys = nil
		}
		if int64(i) > s.maxIndex {
			s.maxIndex = int64(i)
		}
	}
}

func (s *sparseArray) Delete(i uint32) {
	if _, ok := s.items[i]; !ok {
		return
	}
	delete(s.items, i)
	if int64(i) == s.maxIndex && s.sortedKeys != nil && len(s.sortedKeys) > 0 {
		s.sortedKeys = s.sortedKeys[:len(s.sortedKeys)-1] // O(1) delete-last fast path
		if len(s.sortedKeys) > 0 {
			s.maxIndex = int64(s.sortedKeys[len(s.sortedKeys)-1])
		} else {
			s.maxIndex = -1
		}
	} else {
		s.sortedKeys = nil
		s.recomputeMaxIndex()
	}
}

func (s *sparseArray) recomputeMaxIndex() {
	s.maxIndex = -1
	for k := range s.items {
		if int64(k) > s.maxIndex {
			s.maxIndex = int64(k)
		}
	}
}

func (s *sparseArray) Append(v Value) { s.Set(s.length, v) }

func (s *sparseArray) Resize(newLen uint32) {
	if newLen < s.length {
		for k := range s.items {
			if k >= newLen {
				delete(s.items, k)
			}
		}
		s.sortedKeys = nil
		s.recomputeMaxIndex()
	}
	s.length = newLen
}

func (s *sparseArray) Indexes(order elementOrder) []uint32 {
	if order == orderUnordered {
		idx := make([]uint32, 0, len(s.items))
		for k := range s.items {
			idx = append(idx, k)
		}
		return idx
	}
	if s.sortedKeys == nil {
		keys := make([]uint32, 0, len(s.items))
		for k := range s.items {
			keys = append(keys, k)
		}
		sort.Sort(uint32Slice(keys))
		s.sortedKeys = keys
	}
	if order == orderDescending {
		rev := make([]uint32, len(s.sortedKeys))
		for i, k := range s.sortedKeys {
			rev[len(rev)-1-i] = k
		}
		return rev
	}
	out := make([]uint32, len(s.sortedKeys))
	copy(out, s.sortedKeys)
	return out
}

func occupancy(storage arrayStorage) float64 {
	if storage.Len() == 0 {
		return 1
	}
	return float64(storage.ElementsUsed()) / float64(storage.Len())
}

// maybePromoteOrDemote swaps storage representation at the boundary of a
// write operation per spec §4.3/§4.8/§4.10, preserving length, elements_used,
// and index->value associations. Called by JSArray after every mutation.
func maybePromoteOrDemote(storage arrayStorage) arrayStorage {
	switch s := storage.(type) {
	case *denseArray:
		if s.Len() >= minSparseArraySize && occupancy(s) < minDenseArrayUsedRatio {
			sparse := newSparseArray(uint32(s.Len()))
			for i, v := range s.slots {
				if !v.IsHole() {
					sparse.Set(uint32(i), v)
				}
			}
			return sparse
		}
		return s
	case *sparseArray:
		if occupancy(s) > denseDemotionRatio {
			dense := newDenseArray(s.length)
			for _, i := range s.Indexes(orderUnordered) {
				v, _ := s.Get(i)
				dense.Set(i, v)
			}
			return dense
		}
		return s
	default:
		return storage
	}
}
