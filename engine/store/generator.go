package store

import (
	"context"

	"github.com/gekko3d/voxworld/engine/chunks"
)

// CachingGenerator serves saved chunks from the store and falls back to
// Source for everything else.
type CachingGenerator struct {
	Store  *Store
	Source chunks.Generator
}

func (g *CachingGenerator) Generate(ctx context.Context, req chunks.DataRequest) (*chunks.ChunkData, error) {
	voxels, ok, err := g.Store.LoadChunk(req.ID, req.Size)
	if err != nil {
		g.Store.logger.Warnf("ignoring saved chunk %d,%d,%d: %v", req.ID.I, req.ID.J, req.ID.K, err)
	} else if ok {
		return &chunks.ChunkData{Voxels: voxels}, nil
	}
	if g.Source == nil {
		return nil, nil
	}
	return g.Source.Generate(ctx, req)
}
