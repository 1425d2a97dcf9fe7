// Package mesh turns chunk voxel data into merged quads with ambient
// occlusion and builds vertex arrays from them.
package mesh

import "github.com/gekko3d/voxworld/engine/blocks"

type Options struct {
	UseAO     bool
	ReverseAO bool
	// AOVals shade the flat, partial and corner AO levels.
	AOVals   [3]float64
	RevAOVal float64
}

func DefaultOptions() Options {
	return Options{
		UseAO:    true,
		AOVals:   [3]float64{0.93, 0.8, 0.5},
		RevAOVal: 1.05,
	}
}

// NeighborIndex maps a neighbor offset in -1..1 to its slot in Input.Voxels.
func NeighborIndex(di, dj, dk int) int {
	return (di+1)*9 + (dj+1)*3 + (dk + 1)
}

// Input is one chunk to mesh along with its neighborhood.
type Input struct {
	Size int
	// Voxels holds the 27 chunk buffers around and including the chunk,
	// indexed by NeighborIndex. Missing neighbors are nil and read as air.
	Voxels [27][]blocks.ID
	// LayerConst holds, per Y layer of the chunk, the ID filling the whole
	// layer or -1. It may be nil.
	LayerConst []int32
	// EdgesOnly limits meshing to the boundary planes, valid when the chunk
	// is entirely opaque.
	EdgesOnly bool
}

// Mesher owns the scratch buffers for greedy meshing. It is not safe for
// concurrent use; give each world its own.
type Mesher struct {
	reg     *blocks.Registry
	opts    Options
	terrain *TerrainMaterials

	padded []blocks.ID
	mask   []int32
	aoMask []uint8
	pool   []*FaceData
	used   int
	out    FaceDataSet
}

func NewMesher(reg *blocks.Registry, opts Options) *Mesher {
	return &Mesher{
		reg:     reg,
		opts:    opts,
		terrain: NewTerrainMaterials(reg),
		out:     make(FaceDataSet),
	}
}

func (m *Mesher) Options() Options                    { return m.opts }
func (m *Mesher) TerrainMaterials() *TerrainMaterials { return m.terrain }

func grow[T any](buf []T, n int) []T {
	if cap(buf) >= n {
		return buf[:n]
	}
	c := max(n, 2*cap(buf))
	return make([]T, n, c)
}

// Mesh produces the quads of the chunk's own voxels. The result is reused
// by the next call.
func (m *Mesher) Mesh(in Input) FaceDataSet {
	clear(m.out)
	m.used = 0
	s := in.Size
	if in.Voxels[13] == nil || s <= 0 {
		return m.out
	}
	m.fillPadded(in)

	m.mask = grow(m.mask, s*s)
	m.aoMask = grow(m.aoMask, s*s)
	for d := 0; d < 3; d++ {
		m.meshAxis(in, d)
	}
	return m.out
}

func (m *Mesher) faceData(terrainID int) *FaceData {
	if f, ok := m.out[terrainID]; ok {
		return f
	}
	if m.used == len(m.pool) {
		m.pool = append(m.pool, &FaceData{})
	}
	f := m.pool[m.used]
	m.used++
	f.reset()
	m.out[terrainID] = f
	return f
}

// fillPadded copies the chunk and a one voxel shell of its neighbors into
// one (s+2)^3 buffer. Object blocks are meshed elsewhere and read as air.
func (m *Mesher) fillPadded(in Input) {
	s := in.Size
	p := s + 2
	m.padded = grow(m.padded, p*p*p)
	ix := 0
	for x := -1; x <= s; x++ {
		cx, lx := split(x, s)
		for y := -1; y <= s; y++ {
			cy, ly := split(y, s)
			for z := -1; z <= s; z++ {
				cz, lz := split(z, s)
				var id blocks.ID
				if src := in.Voxels[cx*9+cy*3+cz]; src != nil {
					id = src[(lx*s+ly)*s+lz]
					if m.reg.IsObject(id) {
						id = blocks.Air
					}
				}
				m.padded[ix] = id
				ix++
			}
		}
	}
}

// split maps a coordinate in -1..s to a neighbor slot 0..2 and a local index.
func split(c, s int) (slot, local int) {
	switch {
	case c < 0:
		return 0, c + s
	case c >= s:
		return 2, c - s
	}
	return 1, c
}

// faceValue decides which of two adjacent voxels along axis d shows a face.
// Positive values are a's material facing +d, negative are b's facing -d.
func (m *Mesher) faceValue(a, b blocks.ID, d int) int32 {
	if a == b {
		return 0
	}
	oa, ob := m.reg.Opaque(a), m.reg.Opaque(b)
	if oa && ob {
		return 0
	}
	ma := int32(m.reg.FaceMaterial(a, 2*d))
	mb := int32(m.reg.FaceMaterial(b, 2*d+1))
	switch {
	case oa:
		return ma
	case ob:
		return -mb
	case a == blocks.Air:
		return -mb
	case b == blocks.Air:
		return ma
	case ma == mb:
		return 0
	}
	if m.reg.Fluid(a) && !m.reg.Fluid(b) {
		return -mb
	}
	return ma
}

func (m *Mesher) meshAxis(in Input, d int) {
	s := in.Size
	p := s + 2
	u, v := (d+1)%3, (d+2)%3
	var stride [3]int
	stride[0], stride[1], stride[2] = p*p, p, 1
	sd, su, sv := stride[d], stride[u], stride[v]

	for i := -1; i < s; i++ {
		if in.EdgesOnly && i != -1 && i != s-1 {
			continue
		}
		interior := i >= 0 && i+1 < s
		if d == 1 && interior && in.LayerConst != nil &&
			in.LayerConst[i] >= 0 && in.LayerConst[i] == in.LayerConst[i+1] {
			continue
		}

		count := 0
		n := 0
		for iv := 0; iv < s; iv++ {
			for iu := 0; iu < s; iu++ {
				m.mask[n] = 0
				if interior && in.LayerConst != nil {
					y := iu
					if v == 1 {
						y = iv
					}
					if d != 1 && in.LayerConst[y] >= 0 {
						n++
						continue
					}
				}
				base := (iu+1)*su + (iv+1)*sv
				aIx := base + (i+1)*sd
				bIx := aIx + sd
				val := m.faceValue(m.padded[aIx], m.padded[bIx], d)
				// only this chunk's voxels get faces
				if (i == -1 && val > 0) || (i == s-1 && val < 0) {
					val = 0
				}
				if val != 0 {
					m.mask[n] = val
					m.aoMask[n] = FlatAO
					if m.opts.UseAO {
						if val > 0 {
							m.aoMask[n] = m.packAO(bIx, aIx, su, sv)
						} else {
							m.aoMask[n] = m.packAO(aIx, bIx, su, sv)
						}
					}
					count++
				}
				n++
			}
		}
		if count > 0 {
			m.merge(s, d, i+1, u, v, count)
		}
	}
}

func (m *Mesher) solidAt(ix int) bool { return m.reg.Solid(m.padded[ix]) }

// packAO computes corner occlusion for a face looking from the owner voxel
// at own into the voxel at front.
func (m *Mesher) packAO(front, own, su, sv int) uint8 {
	a00, a01, a10, a11 := 1, 1, 1, 1
	if m.solidAt(front + su) {
		a10++
		a11++
	}
	if m.solidAt(front - su) {
		a00++
		a01++
	}
	if m.solidAt(front + sv) {
		a01++
		a11++
	}
	if m.solidAt(front - sv) {
		a00++
		a10++
	}

	corner := func(a, du, dv int) int {
		if a == 3 || m.solidAt(front+du*su+dv*sv) {
			return 3
		}
		return 2
	}
	// faces looking into a non-opaque solid are always shaded
	if m.solidAt(front) {
		return PackAO(corner(a00, -1, -1), corner(a01, -1, 1), corner(a10, 1, -1), corner(a11, 1, 1))
	}

	fix := func(a, du, dv int) int {
		if a != 1 {
			return a
		}
		if m.solidAt(front + du*su + dv*sv) {
			return 2
		}
		if !m.opts.ReverseAO {
			return a
		}
		if !m.solidAt(own+du*su) || !m.solidAt(own+dv*sv) || !m.solidAt(own+du*su+dv*sv) {
			return AOReverse
		}
		return a
	}
	return PackAO(fix(a00, -1, -1), fix(a01, -1, 1), fix(a10, 1, -1), fix(a11, 1, 1))
}

// merge greedily turns the mask into rectangles. Width runs along u and
// height along v.
func (m *Mesher) merge(s, d, layer, u, v, remaining int) {
	mask, ao := m.mask, m.aoMask
	for iv := 0; iv < s && remaining > 0; iv++ {
		for iu := 0; iu < s; {
			n := iv*s + iu
			val := mask[n]
			if val == 0 {
				iu++
				continue
			}
			a := ao[n]

			w := 1
			for iu+w < s && mask[n+w] == val && ao[n+w] == a {
				w++
			}
			h := 1
		extend:
			for iv+h < s {
				row := n + h*s
				for x := 0; x < w; x++ {
					if mask[row+x] != val || ao[row+x] != a {
						break extend
					}
				}
				h++
			}
			for y := 0; y < h; y++ {
				row := n + y*s
				for x := 0; x < w; x++ {
					mask[row+x] = 0
				}
			}
			remaining -= w * h

			mat, dir := int(val), 2*d
			if val < 0 {
				mat, dir = -mat, dir+1
			}
			var origin [3]int
			origin[d], origin[u], origin[v] = layer, iu, iv
			tid := m.terrain.TerrainID(blocks.MaterialID(mat))
			m.faceData(tid).add(mat, dir, origin[0], origin[1], origin[2], w, h, a)

			iu += w
		}
	}
}
