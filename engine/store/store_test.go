package store

import (
	"context"
	"testing"

	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func pattern(size int) []blocks.ID {
	v := make([]blocks.ID, size*size*size)
	for ix := range v {
		v[ix] = blocks.ID(ix % 7)
	}
	v[len(v)-1] = 65535
	return v
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	id := chunks.RequestID{I: -3, J: 0, K: 12, World: "overworld"}

	_, ok, err := s.LoadChunk(id, 8)
	require.NoError(t, err)
	assert.False(t, ok)

	want := pattern(8)
	require.NoError(t, s.SaveChunk(id, 8, want))

	got, ok, err := s.LoadChunk(id, 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	other := id
	other.World = "nether"
	_, ok, err = s.LoadChunk(other, 8)
	require.NoError(t, err)
	assert.False(t, ok, "worlds do not share chunks")
}

func TestLoadRejectsWrongSize(t *testing.T) {
	s := openTestStore(t)
	id := chunks.RequestID{World: "w"}
	require.NoError(t, s.SaveChunk(id, 4, pattern(4)))

	_, _, err := s.LoadChunk(id, 8)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Error(t, s.SaveChunk(id, 4, pattern(3)))
}

func TestCountDeleteAndDrop(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveChunk(chunks.RequestID{I: i, World: "a"}, 2, pattern(2)))
	}
	require.NoError(t, s.SaveChunk(chunks.RequestID{World: "ab"}, 2, pattern(2)))

	n, err := s.Count("a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.DeleteChunk(chunks.RequestID{I: 1, World: "a"}))
	n, err = s.Count("a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DropWorld("a"))
	n, err = s.Count("a")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = s.Count("ab")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCachingGenerator(t *testing.T) {
	s := openTestStore(t)
	calls := 0
	src := chunks.GeneratorFunc(func(ctx context.Context, req chunks.DataRequest) (*chunks.ChunkData, error) {
		calls++
		return &chunks.ChunkData{FillVoxelID: 9}, nil
	})
	g := &CachingGenerator{Store: s, Source: src}

	saved := chunks.RequestID{I: 1, World: "w"}
	require.NoError(t, s.SaveChunk(saved, 2, pattern(2)))

	data, err := g.Generate(context.Background(), chunks.DataRequest{ID: saved, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, pattern(2), data.Voxels)
	assert.Equal(t, 0, calls)

	data, err = g.Generate(context.Background(), chunks.DataRequest{ID: chunks.RequestID{World: "w"}, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, blocks.ID(9), data.FillVoxelID)
	assert.Equal(t, 1, calls)

	g.Source = nil
	data, err = g.Generate(context.Background(), chunks.DataRequest{ID: chunks.RequestID{World: "w"}, Size: 2})
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSaveOnlyModifiedChunks(t *testing.T) {
	s := openTestStore(t)
	reg := blocks.NewRegistry()
	_, err := reg.RegisterMaterial("stone", blocks.MaterialOptions{Color: [4]float64{1, 1, 1, 1}})
	require.NoError(t, err)
	require.NoError(t, reg.RegisterBlock(1, blocks.DefaultBlockOptions("stone")))

	opts := chunks.DefaultOptions()
	opts.ChunkSize = 4
	opts.AddDistance = [2]float64{0, 0}
	opts.Registry = reg
	w, err := chunks.NewWorld(opts)
	require.NoError(t, err)
	defer w.Close()
	w.Tick(mgl64.Vec3{})
	c := w.GetChunkByIndexes(0, 0, 0)
	require.NotNil(t, c)

	require.NoError(t, s.Save(c))
	n, err := s.Count("default")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	w.SetBlockID(1, 2, 2, 2)
	require.NoError(t, s.Save(c))
	got, ok, err := s.LoadChunk(c.ID, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, blocks.ID(1), got[(2*4+2)*4+2])
}
