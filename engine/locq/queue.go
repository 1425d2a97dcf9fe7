package locq

import "sort"

// Loc is a chunk index triple.
type Loc [3]int

// LocationQueue is an ordered list of chunk locations with O(1) membership.
// Pop takes from the end, so processing order is not FIFO.
type LocationQueue struct {
	arr  []Loc
	hash map[int]struct{}
}

func NewLocationQueue() *LocationQueue {
	return &LocationQueue{hash: make(map[int]struct{})}
}

func (q *LocationQueue) Count() int    { return len(q.arr) }
func (q *LocationQueue) IsEmpty() bool { return len(q.arr) == 0 }
func (q *LocationQueue) At(ix int) Loc { return q.arr[ix] }
func (q *LocationQueue) Includes(i, j, k int) bool {
	_, ok := q.hash[Hash(i, j, k)]
	return ok
}

// Add inserts the location unless it is already present.
func (q *LocationQueue) Add(i, j, k int, toFront bool) {
	h := Hash(i, j, k)
	if _, ok := q.hash[h]; ok {
		return
	}
	q.hash[h] = struct{}{}
	if toFront {
		q.arr = append(q.arr, Loc{})
		copy(q.arr[1:], q.arr)
		q.arr[0] = Loc{i, j, k}
		return
	}
	q.arr = append(q.arr, Loc{i, j, k})
}

// Remove drops the location if present.
func (q *LocationQueue) Remove(i, j, k int) {
	h := Hash(i, j, k)
	if _, ok := q.hash[h]; !ok {
		return
	}
	delete(q.hash, h)
	for ix := len(q.arr) - 1; ix >= 0; ix-- {
		l := q.arr[ix]
		if Hash(l[0], l[1], l[2]) == h {
			q.arr = append(q.arr[:ix], q.arr[ix+1:]...)
			return
		}
	}
}

func (q *LocationQueue) RemoveByIndex(ix int) {
	l := q.arr[ix]
	delete(q.hash, Hash(l[0], l[1], l[2]))
	q.arr = append(q.arr[:ix], q.arr[ix+1:]...)
}

// Pop removes and returns the last location. ok is false when the queue is empty.
func (q *LocationQueue) Pop() (loc Loc, ok bool) {
	n := len(q.arr)
	if n == 0 {
		return Loc{}, false
	}
	loc = q.arr[n-1]
	q.arr = q.arr[:n-1]
	delete(q.hash, Hash(loc[0], loc[1], loc[2]))
	return loc, true
}

func (q *LocationQueue) Empty() {
	q.arr = q.arr[:0]
	clear(q.hash)
}

// CopyFrom replaces the contents with those of other.
func (q *LocationQueue) CopyFrom(other *LocationQueue) {
	q.arr = append(q.arr[:0], other.arr...)
	clear(q.hash)
	for h := range other.hash {
		q.hash[h] = struct{}{}
	}
}

// ForEach visits locations in order until fn returns false.
func (q *LocationQueue) ForEach(fn func(loc Loc) bool) {
	for _, l := range q.arr {
		if !fn(l) {
			return
		}
	}
}

// SortByDistance orders the queue ascending by dist, or descending when
// reverse is set. dist is evaluated once per location.
func (q *LocationQueue) SortByDistance(dist func(i, j, k int) float64, reverse bool) {
	d := make(map[int]float64, len(q.arr))
	for _, l := range q.arr {
		d[Hash(l[0], l[1], l[2])] = dist(l[0], l[1], l[2])
	}
	sort.SliceStable(q.arr, func(a, b int) bool {
		la, lb := q.arr[a], q.arr[b]
		da, db := d[Hash(la[0], la[1], la[2])], d[Hash(lb[0], lb[1], lb[2])]
		if reverse {
			return da > db
		}
		return da < db
	})
}
