package mesh

import (
	"sort"

	"github.com/gekko3d/voxworld/engine/blocks"
)

// MeshData is renderer-ready geometry for one terrain material group.
type MeshData struct {
	TerrainID  int
	Positions  []float32
	Normals    []float32
	UVs        []float32
	Colors     []float32
	Indices    []uint32
	AtlasIndex []float32
}

func (md *MeshData) VertexCount() int { return len(md.Positions) / 3 }

// Builder converts merged quads into vertex arrays.
type Builder struct {
	reg  *blocks.Registry
	opts Options
}

func NewBuilder(reg *blocks.Registry, opts Options) *Builder {
	return &Builder{reg: reg, opts: opts}
}

func (b *Builder) shade(ao int) float32 {
	if !b.opts.UseAO {
		return 1
	}
	if ao == AOReverse {
		return float32(b.opts.RevAOVal)
	}
	return float32(b.opts.AOVals[ao-1])
}

// Build returns one MeshData per terrain group, ordered by terrain ID.
func (b *Builder) Build(set FaceDataSet) []*MeshData {
	ids := make([]int, 0, len(set))
	for id, f := range set {
		if id != 0 && f.Count > 0 {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*MeshData, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.buildGroup(id, set[id]))
	}
	return out
}

func (b *Builder) buildGroup(terrainID int, f *FaceData) *MeshData {
	md := &MeshData{
		TerrainID:  terrainID,
		Positions:  make([]float32, 0, f.Count*12),
		Normals:    make([]float32, 0, f.Count*12),
		UVs:        make([]float32, 0, f.Count*8),
		Colors:     make([]float32, 0, f.Count*16),
		Indices:    make([]uint32, 0, f.Count*6),
		AtlasIndex: make([]float32, 0, f.Count*4),
	}
	for n := 0; n < f.Count; n++ {
		b.addQuad(md, f.Quad(n))
	}
	return md
}

func (b *Builder) addQuad(md *MeshData, q Quad) {
	d := q.Dir / 2
	positive := q.Dir%2 == 0
	u, v := (d+1)%3, (d+2)%3

	var corners [4][3]float32
	var uvs [4][2]float32
	for c := 0; c < 4; c++ {
		for a := 0; a < 3; a++ {
			corners[c][a] = float32(q.Origin[a])
		}
	}
	// corner order: 00, 10, 11, 01 in (u, v)
	corners[1][u] += float32(q.W)
	corners[2][u] += float32(q.W)
	corners[2][v] += float32(q.H)
	corners[3][v] += float32(q.H)
	uvs[1] = [2]float32{float32(q.W), 0}
	uvs[2] = [2]float32{float32(q.W), float32(q.H)}
	uvs[3] = [2]float32{0, float32(q.H)}

	a00, a01, a10, a11 := UnpackAO(q.PackedAO)
	aos := [4]int{a00, a10, a11, a01}

	order := [4]int{0, 1, 2, 3}
	if !positive {
		order = [4]int{0, 3, 2, 1}
	}

	var normal [3]float32
	normal[d] = 1
	if !positive {
		normal[d] = -1
	}

	mat := b.reg.Material(blocks.MaterialID(q.MatID))
	col := [4]float32{float32(mat.Color[0]), float32(mat.Color[1]), float32(mat.Color[2]), float32(mat.Color[3])}
	if mat.Texture != "" {
		col = [4]float32{1, 1, 1, 1}
	}

	start := uint32(md.VertexCount())
	for _, c := range order {
		md.Positions = append(md.Positions, corners[c][0], corners[c][1], corners[c][2])
		md.Normals = append(md.Normals, normal[0], normal[1], normal[2])
		md.UVs = append(md.UVs, uvs[c][0], uvs[c][1])
		s := b.shade(aos[c])
		md.Colors = append(md.Colors, col[0]*s, col[1]*s, col[2]*s, col[3])
		md.AtlasIndex = append(md.AtlasIndex, float32(mat.AtlasIndex))
	}

	// split along the brighter diagonal
	if b.opts.UseAO && a00+a11 > a01+a10 {
		md.Indices = append(md.Indices, start+1, start+2, start+3, start+1, start+3, start)
	} else {
		md.Indices = append(md.Indices, start, start+1, start+2, start, start+2, start+3)
	}
}
