// Package terraingen generates chunk voxel data from perlin noise height
// maps. A Generator is safe for concurrent use and plugs into
// chunks.Options.Generator.
package terraingen

import (
	"context"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
)

// Palette names the block IDs the generator places.
type Palette struct {
	Stone blocks.ID
	Dirt  blocks.ID
	Grass blocks.ID
	Sand  blocks.ID
	Water blocks.ID
}

type Options struct {
	Seed int64
	// Scale is the noise frequency per voxel.
	Scale float64
	// Heights fall in [BaseHeight-Amplitude, BaseHeight+Amplitude].
	BaseHeight float64
	Amplitude  float64
	// Columns at or below SeaLevel are topped with sand and flooded up
	// to it.
	SeaLevel  int
	DirtDepth int
	// CaveThreshold carves caves where 3D noise exceeds it. Zero disables
	// caves.
	CaveThreshold float64
	CaveScale     float64
	Palette       Palette
}

func DefaultOptions() Options {
	return Options{
		Seed:       1,
		Scale:      0.03,
		BaseHeight: 0,
		Amplitude:  12,
		SeaLevel:   -4,
		DirtDepth:  3,
		CaveScale:  0.08,
	}
}

type Generator struct {
	opts   Options
	height *perlin.Perlin
	caves  *perlin.Perlin
}

func New(opts Options) *Generator {
	return &Generator{
		opts:   opts,
		height: perlin.NewPerlin(2, 2, 3, opts.Seed),
		caves:  perlin.NewPerlin(2, 2, 2, opts.Seed+42),
	}
}

func (g *Generator) Options() Options { return g.opts }

// HeightAt returns the surface height of the column at x, z: the y of the
// topmost ground voxel.
func (g *Generator) HeightAt(x, z int) int {
	n := g.height.Noise2D(float64(x)*g.opts.Scale, float64(z)*g.opts.Scale)
	n = math.Max(-1, math.Min(1, n))
	return int(math.Floor(g.opts.BaseHeight + g.opts.Amplitude*n))
}

// BlockAt returns the voxel at y in a column whose surface is at height.
func (g *Generator) BlockAt(x, y, z, height int) blocks.ID {
	pal := g.opts.Palette
	if y > height {
		if y <= g.opts.SeaLevel {
			return pal.Water
		}
		return blocks.Air
	}
	if g.opts.CaveThreshold > 0 && y < height-g.opts.DirtDepth {
		s := g.opts.CaveScale
		if g.caves.Noise3D(float64(x)*s, float64(y)*s, float64(z)*s) > g.opts.CaveThreshold {
			return blocks.Air
		}
	}
	switch {
	case y == height && height <= g.opts.SeaLevel:
		return pal.Sand
	case y == height:
		return pal.Grass
	case y > height-g.opts.DirtDepth:
		return pal.Dirt
	}
	return pal.Stone
}

// Generate implements chunks.Generator.
func (g *Generator) Generate(ctx context.Context, req chunks.DataRequest) (*chunks.ChunkData, error) {
	s := req.Size
	heights := make([]int, s*s)
	minH, maxH := math.MaxInt, math.MinInt
	for i := 0; i < s; i++ {
		for k := 0; k < s; k++ {
			h := g.HeightAt(req.X+i, req.Z+k)
			heights[i*s+k] = h
			minH = min(minH, h)
			maxH = max(maxH, h)
		}
	}

	top := req.Y + s - 1
	if req.Y > maxH && req.Y > g.opts.SeaLevel {
		return nil, nil
	}
	if top <= g.opts.SeaLevel && req.Y > maxH {
		return &chunks.ChunkData{FillVoxelID: g.opts.Palette.Water}, nil
	}
	if top < minH-g.opts.DirtDepth && g.opts.CaveThreshold <= 0 {
		return &chunks.ChunkData{FillVoxelID: g.opts.Palette.Stone}, nil
	}

	voxels := make([]blocks.ID, s*s*s)
	for i := 0; i < s; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < s; j++ {
			for k := 0; k < s; k++ {
				voxels[(i*s+j)*s+k] = g.BlockAt(req.X+i, req.Y+j, req.Z+k, heights[i*s+k])
			}
		}
	}
	return &chunks.ChunkData{Voxels: voxels}, nil
}
