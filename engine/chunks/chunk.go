package chunks

import (
	"math/bits"

	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/locq"
	"github.com/gekko3d/voxworld/engine/mesh"
)

// Chunk is a cube of voxels owned by a World.
type Chunk struct {
	world *World
	reg   *blocks.Registry

	ID RequestID
	// I, J, K are chunk-grid indices; X, Y, Z the world-space origin.
	I, J, K int
	X, Y, Z int
	size    int

	voxels   []blocks.ID
	UserData any

	isFull       bool
	isEmpty      bool
	layerConst   []int32
	terrainDirty bool
	objectsDirty bool
	handlerLocs  *locq.LocationQueue

	// neighbors has bit NeighborIndex set for each present neighbor.
	neighbors     uint32
	neighborCount int

	terrainMeshes []mesh.MeshHandle
	timesMeshed   int
	modified      bool
	disposed      bool
}

func newChunk(w *World, id RequestID, data *ChunkData) *Chunk {
	s := w.opts.ChunkSize
	c := &Chunk{
		world:       w,
		reg:         w.reg,
		ID:          id,
		I:           id.I,
		J:           id.J,
		K:           id.K,
		X:           id.I * s,
		Y:           id.J * s,
		Z:           id.K * s,
		size:        s,
		layerConst:  make([]int32, s),
		handlerLocs: locq.NewLocationQueue(),
	}
	c.setData(data)
	return c
}

func (c *Chunk) index(i, j, k int) int { return (i*c.size+j)*c.size + k }

func (c *Chunk) Size() int { return c.size }

func (c *Chunk) Get(i, j, k int) blocks.ID { return c.voxels[c.index(i, j, k)] }

// Voxels exposes the chunk's voxel buffer. Callers must not modify it.
func (c *Chunk) Voxels() []blocks.ID { return c.voxels }

func (c *Chunk) IsFull() bool       { return c.isFull }
func (c *Chunk) IsEmpty() bool      { return c.isEmpty }
func (c *Chunk) NeighborCount() int { return c.neighborCount }
func (c *Chunk) TimesMeshed() int   { return c.timesMeshed }
func (c *Chunk) TerrainDirty() bool { return c.terrainDirty }
func (c *Chunk) ObjectsDirty() bool { return c.objectsDirty }

// Modified reports whether any voxel was set after the data arrived.
func (c *Chunk) Modified() bool { return c.modified }

// LayerConst returns the ID filling Y layer j, or -1.
func (c *Chunk) LayerConst(j int) int32 { return c.layerConst[j] }

func (c *Chunk) HasNeighbor(di, dj, dk int) bool {
	return c.neighbors&(1<<mesh.NeighborIndex(di, dj, dk)) != 0
}

// Neighbor returns the adjacent chunk at the given offset, or nil.
func (c *Chunk) Neighbor(di, dj, dk int) *Chunk {
	if !c.HasNeighbor(di, dj, dk) {
		return nil
	}
	return c.world.chunkAt(c.I+di, c.J+dj, c.K+dk)
}

func (c *Chunk) linkNeighbor(di, dj, dk int) {
	bit := uint32(1) << mesh.NeighborIndex(di, dj, dk)
	if c.neighbors&bit == 0 {
		c.neighbors |= bit
		c.neighborCount = bits.OnesCount32(c.neighbors)
	}
}

func (c *Chunk) unlinkNeighbor(di, dj, dk int) {
	c.neighbors &^= uint32(1) << mesh.NeighborIndex(di, dj, dk)
	c.neighborCount = bits.OnesCount32(c.neighbors)
}

// setData installs voxel data and rescans it.
func (c *Chunk) setData(data *ChunkData) {
	n := c.size * c.size * c.size
	if data == nil {
		data = &ChunkData{}
	}
	c.UserData = data.UserData
	if cap(c.voxels) >= n {
		c.voxels = c.voxels[:n]
	} else {
		c.voxels = make([]blocks.ID, n)
	}
	if data.Voxels == nil {
		id := data.FillVoxelID
		for ix := range c.voxels {
			c.voxels[ix] = id
		}
		for j := range c.layerConst {
			c.layerConst[j] = int32(id)
		}
	} else {
		copy(c.voxels, data.Voxels)
		if len(data.Voxels) < n {
			clear(c.voxels[len(data.Voxels):])
		}
		for j := range c.layerConst {
			c.layerConst[j] = -1
		}
	}
	c.modified = false
	c.scanVoxelData()
}

// replaceData swaps in fresh data for a chunk that already exists.
func (c *Chunk) replaceData(data *ChunkData) {
	c.unloadHandlers()
	c.world.objects.DisposeChunk(c)
	c.setData(data)
}

// scanVoxelData recomputes the full/empty flags and the layer cache, and
// registers object blocks and handler locations.
func (c *Chunk) scanVoxelData() {
	s := c.size
	full, empty := true, true
	c.handlerLocs.Empty()

	for j := 0; j < s; j++ {
		if lc := c.layerConst[j]; lc >= 0 && c.reg.IsPlain(blocks.ID(lc)) {
			id := blocks.ID(lc)
			if id != blocks.Air {
				empty = false
			}
			if !c.reg.Opaque(id) {
				full = false
			}
			continue
		}

		first := c.voxels[c.index(0, j, 0)]
		constant := true
		for i := 0; i < s; i++ {
			for k := 0; k < s; k++ {
				id := c.voxels[c.index(i, j, k)]
				if id != first {
					constant = false
				}
				if id != blocks.Air {
					empty = false
				}
				if !c.reg.Opaque(id) {
					full = false
				}
				if !c.reg.IsPlain(id) {
					c.loadSpecialBlock(id, i, j, k)
				}
			}
		}
		c.layerConst[j] = -1
		if constant {
			c.layerConst[j] = int32(first)
		}
	}

	c.isFull = full
	c.isEmpty = empty
	// an emptied chunk still has to drop its old meshes
	c.terrainDirty = !empty || len(c.terrainMeshes) > 0
}

func (c *Chunk) loadSpecialBlock(id blocks.ID, i, j, k int) {
	if c.reg.IsObject(id) {
		c.world.objects.SetObjectBlock(c, id, i, j, k)
		c.objectsDirty = true
	}
	if h := c.reg.Handlers(id); h != nil {
		c.handlerLocs.Add(i, j, k, false)
		if h.OnLoad != nil {
			h.OnLoad(c.X+i, c.Y+j, c.Z+k)
		}
	}
}

// Set changes one voxel. Setting the current value does nothing.
func (c *Chunk) Set(i, j, k int, id blocks.ID) {
	ix := c.index(i, j, k)
	old := c.voxels[ix]
	if old == id {
		return
	}
	c.voxels[ix] = id
	c.modified = true

	if !c.reg.Opaque(id) {
		c.isFull = false
	}
	if id != blocks.Air {
		c.isEmpty = false
	}
	c.layerConst[j] = -1

	solidChanged := c.reg.Solid(old) != c.reg.Solid(id)
	opacityChanged := c.reg.Opaque(old) != c.reg.Opaque(id)

	x, y, z := c.X+i, c.Y+j, c.Z+k
	if h := c.reg.Handlers(old); h != nil {
		if h.OnUnset != nil {
			h.OnUnset(x, y, z)
		}
		c.handlerLocs.Remove(i, j, k)
	}
	if h := c.reg.Handlers(id); h != nil {
		if h.OnSet != nil {
			h.OnSet(x, y, z)
		}
		c.handlerLocs.Add(i, j, k, false)
	}

	if c.reg.IsObject(old) || c.reg.IsObject(id) {
		objID := id
		if !c.reg.IsObject(id) {
			objID = blocks.Air
		}
		c.world.objects.SetObjectBlock(c, objID, i, j, k)
		c.objectsDirty = true
	}

	if solidChanged || opacityChanged || c.reg.IsTerrain(old) || c.reg.IsTerrain(id) {
		c.terrainDirty = true
		c.world.dirtyBoundaryNeighbors(c, i, j, k)
	}
	if c.terrainDirty || c.objectsDirty {
		c.world.queueChunkForRemesh(c)
	}
}

// UpdateMeshes rebuilds whatever is dirty.
func (c *Chunk) UpdateMeshes() {
	if c.terrainDirty {
		c.world.meshTerrain(c)
		c.timesMeshed++
		c.terrainDirty = false
	}
	if c.objectsDirty {
		c.world.objects.BuildObjectMeshes(c)
		c.objectsDirty = false
	}
}

// HandlerLocations visits the voxels whose blocks have handlers.
func (c *Chunk) HandlerLocations(fn func(i, j, k int) bool) {
	c.handlerLocs.ForEach(func(l locq.Loc) bool { return fn(l[0], l[1], l[2]) })
}

func (c *Chunk) unloadHandlers() {
	c.handlerLocs.ForEach(func(l locq.Loc) bool {
		id := c.Get(l[0], l[1], l[2])
		if h := c.reg.Handlers(id); h != nil && h.OnUnload != nil {
			h.OnUnload(c.X+l[0], c.Y+l[1], c.Z+l[2])
		}
		return true
	})
	c.handlerLocs.Empty()
}

func (c *Chunk) removeTerrainMeshes() {
	for _, h := range c.terrainMeshes {
		c.world.renderer.RemoveMesh(h)
	}
	c.terrainMeshes = c.terrainMeshes[:0]
}

func (c *Chunk) dispose() {
	if c.disposed {
		return
	}
	c.unloadHandlers()
	c.world.objects.DisposeChunk(c)
	c.removeTerrainMeshes()
	c.voxels = nil
	c.disposed = true
}
