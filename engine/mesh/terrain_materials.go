package mesh

import "github.com/gekko3d/voxworld/engine/blocks"

// TerrainMaterials decides which block materials can share one mesh.
// Terrain ID 0 means no mesh; opaque flat colors all share ID 1.
type TerrainMaterials struct {
	reg       *blocks.Registry
	byMat     []int
	byTexture map[string]int
	byRender  map[string]int
	next      int
}

func NewTerrainMaterials(reg *blocks.Registry) *TerrainMaterials {
	return &TerrainMaterials{
		reg:       reg,
		byTexture: make(map[string]int),
		byRender:  make(map[string]int),
		next:      2,
	}
}

func (tm *TerrainMaterials) TerrainID(mat blocks.MaterialID) int {
	if mat == 0 {
		return 0
	}
	if int(mat) < len(tm.byMat) && tm.byMat[mat] != 0 {
		return tm.byMat[mat]
	}
	id := tm.assign(tm.reg.Material(mat))
	for len(tm.byMat) <= int(mat) {
		tm.byMat = append(tm.byMat, 0)
	}
	tm.byMat[mat] = id
	return id
}

func (tm *TerrainMaterials) assign(m blocks.Material) int {
	switch {
	case m.RenderMaterial != "":
		return tm.shared(tm.byRender, m.RenderMaterial)
	case m.Animated:
		return tm.unique()
	case m.Texture != "":
		return tm.shared(tm.byTexture, m.Texture)
	case m.Color[3] < 1:
		return tm.unique()
	}
	return 1
}

func (tm *TerrainMaterials) shared(tbl map[string]int, key string) int {
	if id, ok := tbl[key]; ok {
		return id
	}
	id := tm.unique()
	tbl[key] = id
	return id
}

func (tm *TerrainMaterials) unique() int {
	id := tm.next
	tm.next++
	return id
}
