package chunks

import (
	"context"

	"github.com/gekko3d/voxworld/engine/blocks"
)

// RequestID identifies one request for a chunk's data. Data carrying a
// RequestID that no longer matches the world is discarded.
type RequestID struct {
	I, J, K int
	World   string
}

// DataRequest describes the voxels wanted for a chunk.
type DataRequest struct {
	ID RequestID
	// X, Y, Z is the chunk's world-space origin.
	X, Y, Z int
	Size    int
}

// ChunkData is voxel data for one chunk.
type ChunkData struct {
	// Voxels is size^3 IDs indexed (i*size+j)*size+k.
	Voxels   []blocks.ID
	UserData any
	// FillVoxelID fills the whole chunk when Voxels is nil.
	FillVoxelID blocks.ID
}

// Generator produces chunk data off the tick goroutine. Returning nil data
// and a nil error stores an all-air chunk. ctx is cancelled when the result
// stops mattering.
type Generator interface {
	Generate(ctx context.Context, req DataRequest) (*ChunkData, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req DataRequest) (*ChunkData, error)

func (f GeneratorFunc) Generate(ctx context.Context, req DataRequest) (*ChunkData, error) {
	return f(ctx, req)
}

// ObjectMesher builds meshes for object blocks, which the terrain mesher skips.
type ObjectMesher interface {
	// SetObjectBlock places (id != 0) or clears (id == 0) the object at a
	// chunk-local voxel.
	SetObjectBlock(c *Chunk, id blocks.ID, i, j, k int)
	BuildObjectMeshes(c *Chunk)
	DisposeChunk(c *Chunk)
}

type nopObjectMesher struct{}

func (nopObjectMesher) SetObjectBlock(*Chunk, blocks.ID, int, int, int) {}
func (nopObjectMesher) BuildObjectMeshes(*Chunk)                        {}
func (nopObjectMesher) DisposeChunk(*Chunk)                             {}

type genResult struct {
	id   RequestID
	gen  uint64
	data *ChunkData
	err  error
}

type inflight struct {
	id     RequestID
	gen    uint64
	cancel context.CancelFunc
}
