package terraingen

import (
	"context"
	"testing"

	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var palette = Palette{Stone: 1, Dirt: 2, Grass: 3, Sand: 4, Water: 5}

func testGenerator() *Generator {
	opts := DefaultOptions()
	opts.Palette = palette
	return New(opts)
}

func request(i, j, k, size int) chunks.DataRequest {
	return chunks.DataRequest{
		ID:   chunks.RequestID{I: i, J: j, K: k, World: "test"},
		X:    i * size,
		Y:    j * size,
		Z:    k * size,
		Size: size,
	}
}

func TestHeightsStayInRange(t *testing.T) {
	g := testGenerator()
	lo, hi := g.opts.BaseHeight-g.opts.Amplitude, g.opts.BaseHeight+g.opts.Amplitude
	for x := -50; x < 50; x += 7 {
		for z := -50; z < 50; z += 3 {
			h := float64(g.HeightAt(x, z))
			assert.GreaterOrEqual(t, h, lo-1)
			assert.LessOrEqual(t, h, hi)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := testGenerator().Generate(context.Background(), request(0, -1, 0, 16))
	require.NoError(t, err)
	b, err := testGenerator().Generate(context.Background(), request(0, -1, 0, 16))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, a.Voxels, b.Voxels)
}

func TestColumnLayering(t *testing.T) {
	g := testGenerator()
	const size = 16
	// spans every height the generator can produce
	for j := -2; j <= 1; j++ {
		data, err := g.Generate(context.Background(), request(1, j, 2, size))
		require.NoError(t, err)
		for i := 0; i < size; i += 5 {
			for k := 0; k < size; k += 5 {
				x, z := size+i, 2*size+k
				h := g.HeightAt(x, z)
				for y := 0; y < size; y++ {
					wy := j*size + y
					var got blocks.ID
					switch {
					case data == nil:
						got = blocks.Air
					case data.Voxels == nil:
						got = data.FillVoxelID
					default:
						got = data.Voxels[(i*size+y)*size+k]
					}
					assert.Equal(t, g.BlockAt(x, wy, z, h), got, "voxel %d,%d,%d", x, wy, z)
				}
			}
		}
	}
}

func TestBlockAt(t *testing.T) {
	g := testGenerator()
	sea := g.opts.SeaLevel

	assert.Equal(t, palette.Grass, g.BlockAt(0, 5, 0, 5))
	assert.Equal(t, palette.Dirt, g.BlockAt(0, 4, 0, 5))
	assert.Equal(t, palette.Dirt, g.BlockAt(0, 3, 0, 5))
	assert.Equal(t, palette.Stone, g.BlockAt(0, 2, 0, 5))
	assert.Equal(t, blocks.Air, g.BlockAt(0, 6, 0, 5))

	assert.Equal(t, palette.Sand, g.BlockAt(0, sea-2, 0, sea-2))
	assert.Equal(t, palette.Water, g.BlockAt(0, sea, 0, sea-2))
	assert.Equal(t, blocks.Air, g.BlockAt(0, sea+1, 0, sea-2))
}

func TestSkyAndBedrockShortcuts(t *testing.T) {
	g := testGenerator()

	data, err := g.Generate(context.Background(), request(0, 4, 0, 16))
	require.NoError(t, err)
	assert.Nil(t, data, "chunks above the terrain are air")

	data, err = g.Generate(context.Background(), request(0, -8, 0, 16))
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Nil(t, data.Voxels)
	assert.Equal(t, palette.Stone, data.FillVoxelID)
}

func TestCavesCarveStone(t *testing.T) {
	opts := DefaultOptions()
	opts.Palette = palette
	opts.CaveThreshold = 1e-9
	g := New(opts)

	data, err := g.Generate(context.Background(), request(0, -8, 0, 16))
	require.NoError(t, err)
	require.NotNil(t, data.Voxels, "caves disable the solid fill shortcut")
	air := 0
	for _, id := range data.Voxels {
		if id == blocks.Air {
			air++
		}
	}
	assert.Positive(t, air)
	assert.Less(t, air, len(data.Voxels))
}

func TestGenerateHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testGenerator().Generate(ctx, request(0, -1, 0, 16))
	assert.ErrorIs(t, err, context.Canceled)
}
