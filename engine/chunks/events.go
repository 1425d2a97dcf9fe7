package chunks

import "github.com/gekko3d/voxworld/engine/mesh"

// Events are optional notifications from the world. Any field may be nil.
// All of them run on the goroutine calling Tick or Render.
type Events struct {
	ChunkAdded        func(c *Chunk)
	ChunkBeingRemoved func(c *Chunk)
	// ChunkDataReplacing runs before new data overwrites a loaded chunk,
	// after a world name change or an invalidation. c.ID is still the old
	// request ID.
	ChunkDataReplacing func(c *Chunk)
	PlayerEnteredChunk func(i, j, k int)
	// DataNeeded asks the host for voxel data. The host answers with
	// World.SetChunkData, now or on a later tick.
	DataNeeded       func(req DataRequest)
	TerrainMeshAdded func(c *Chunk, h mesh.MeshHandle)
}
