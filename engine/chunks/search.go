package chunks

import (
	"math"
	"sort"

	"github.com/gekko3d/voxworld/engine/locq"
)

func squaredDistance(di, dj, dk int) float64 {
	return float64(di*di + dj*dj + dk*dk)
}

// withinRadii tests a chunk offset against {horizontal, vertical} radii.
// Equal radii give a sphere, unequal ones an ellipsoid with the vertical
// radius along j.
func withinRadii(r [2]float64, di, dj, dk int) bool {
	h, v := r[0], r[1]
	fi, fj, fk := float64(di), float64(dj), float64(dk)
	if h == v {
		return fi*fi+fj*fj+fk*fk <= h*h
	}
	horiz := fi*fi + fk*fk
	switch {
	case h == 0:
		return horiz == 0 && fj*fj <= v*v
	case v == 0:
		return dj == 0 && horiz <= h*h
	}
	return horiz/(h*h)+fj*fj/(v*v) <= 1
}

func validRadii(r [2]float64) bool {
	for _, x := range r {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// SetAddRemoveDistance sets the {horizontal, vertical} load and unload
// radii in chunks. The remove radii are raised to at least add+1.
func (w *World) SetAddRemoveDistance(add, remove [2]float64) error {
	if !validRadii(add) || !validRadii(remove) {
		return ErrInvalidDistance
	}
	for a := range remove {
		remove[a] = math.Max(remove[a], add[a]+1)
	}
	w.opts.AddDistance = add
	w.opts.RemoveDistance = remove
	w.searchArr = buildSearchArray(add, w.opts.SearchDistance)
	w.searchFrom = 0
	w.removeFrom = 0
	return nil
}

// buildSearchArray lists the in-range offsets with di >= 0, dj >= 0 and
// 0 <= dk <= di, nearest first. Reflecting each entry across the three
// sign flips and the i/k swap recovers the whole volume.
func buildSearchArray(add [2]float64, dist func(di, dj, dk int) float64) []locq.Loc {
	hi, vi := int(math.Ceil(add[0])), int(math.Ceil(add[1]))
	var arr []locq.Loc
	for di := 0; di <= hi; di++ {
		for dj := 0; dj <= vi; dj++ {
			for dk := 0; dk <= di; dk++ {
				if withinRadii(add, di, dj, dk) {
					arr = append(arr, locq.Loc{di, dj, dk})
				}
			}
		}
	}
	d := make([]float64, len(arr))
	for ix, l := range arr {
		d[ix] = dist(l[0], l[1], l[2])
	}
	ixs := make([]int, len(arr))
	for ix := range ixs {
		ixs[ix] = ix
	}
	sort.SliceStable(ixs, func(a, b int) bool { return d[ixs[a]] < d[ixs[b]] })
	out := make([]locq.Loc, len(arr))
	for ix, src := range ixs {
		out[ix] = arr[src]
	}
	return out
}

// reflect calls fn for every distinct mirror image of a wedge offset.
func reflect(l locq.Loc, fn func(di, dj, dk int)) {
	signs := func(x int) []int {
		if x == 0 {
			return []int{0}
		}
		return []int{x, -x}
	}
	emit := func(a, b, c int) {
		for _, i := range signs(a) {
			for _, j := range signs(b) {
				for _, k := range signs(c) {
					fn(i, j, k)
				}
			}
		}
	}
	emit(l[0], l[1], l[2])
	if l[0] != l[2] {
		emit(l[2], l[1], l[0])
	}
}

// findChunksToRequest walks the search array from its cursor, making every
// in-range location known. It stops early on the deadline check or once
// enough requests are queued.
func (w *World) findChunksToRequest(expired func() bool) {
	p := w.playerChunk
	added := false
	limit := w.opts.MaxChunksPendingCreation
	for w.searchFrom < len(w.searchArr) {
		if w.toRequest.Count() >= limit || expired() {
			break
		}
		reflect(w.searchArr[w.searchFrom], func(di, dj, dk int) {
			i, j, k := p[0]+di, p[1]+dj, p[2]+dk
			if !w.known.Includes(i, j, k) {
				w.track(i, j, k)
				added = true
			}
		})
		w.searchFrom++
	}
	if added {
		w.sortRequests()
	}
}

// sortRequests orders toRequest so Pop returns the nearest location.
func (w *World) sortRequests() {
	p := w.playerChunk
	w.toRequest.SortByDistance(func(i, j, k int) float64 {
		return w.opts.SearchDistance(i-p[0], j-p[1], k-p[2])
	}, true)
}

// findDistantChunksToRemove scans known locations from its cursor and
// drops those beyond the remove radii.
func (w *World) findDistantChunksToRemove(expired func() bool) {
	p := w.playerChunk
	for w.removeFrom < w.known.Count() {
		if expired() {
			return
		}
		l := w.known.At(w.removeFrom)
		if withinRadii(w.opts.RemoveDistance, l[0]-p[0], l[1]-p[1], l[2]-p[2]) {
			w.removeFrom++
			continue
		}
		w.forget(l[0], l[1], l[2])
	}
	w.removeFrom = 0
}

// findChunksToMesh scans known locations from its cursor for stored chunks
// that need meshing and have enough neighbors.
func (w *World) findChunksToMesh(expired func() bool) {
	limit := w.opts.MaxChunksPendingMeshing
	for w.meshFrom < w.known.Count() {
		if w.meshQueueLen() >= limit || expired() {
			return
		}
		l := w.known.At(w.meshFrom)
		w.meshFrom++
		c := w.chunkAt(l[0], l[1], l[2])
		if c == nil || !(c.terrainDirty || c.objectsDirty) {
			continue
		}
		if c.neighborCount < w.opts.MinNeighborsToMesh {
			continue
		}
		if w.toMesh.Includes(c.I, c.J, c.K) || w.toMeshFirst.Includes(c.I, c.J, c.K) {
			continue
		}
		if c.neighborCount == 26 {
			w.toMeshFirst.Add(c.I, c.J, c.K, true)
		} else {
			w.toMesh.Add(c.I, c.J, c.K, true)
		}
	}
	w.meshFrom = 0
}
