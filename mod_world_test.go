package voxworld

import (
	"testing"
	"time"

	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/gekko3d/voxworld/engine/physics"
	"github.com/gekko3d/voxworld/engine/store"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stoneID blocks.ID = 1

func stoneRegistry(t *testing.T) *blocks.Registry {
	t.Helper()
	r := blocks.NewRegistry()
	_, err := r.RegisterMaterial("stone", blocks.MaterialOptions{Color: [4]float64{0.5, 0.5, 0.5, 1}})
	require.NoError(t, err)
	require.NoError(t, r.RegisterBlock(stoneID, blocks.DefaultBlockOptions("stone")))
	return r
}

func worldOptions(t *testing.T) chunks.Options {
	opts := chunks.DefaultOptions()
	opts.ChunkSize = 8
	opts.AddDistance = [2]float64{1, 1}
	opts.RemoveDistance = [2]float64{2, 2}
	opts.MinNeighborsToMesh = 0
	opts.Registry = stoneRegistry(t)
	return opts
}

func stepUntil(t *testing.T, app *App, cond func() bool) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		app.Step(app.FixedDt())
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func spawnPlayer(app *App, pos mgl64.Vec3) EntityId {
	eid := app.Commands().AddEntity(TransformComponent{Position: pos}, PlayerComponent{})
	app.FlushCommands()
	return eid
}

func movePlayer(app *App, pos mgl64.Vec3) {
	MakeQuery2[TransformComponent, PlayerComponent](app.Commands()).Map(func(_ EntityId, t *TransformComponent, _ *PlayerComponent) bool {
		t.Position = pos
		return false
	})
}

func TestWorldModuleStreamsAroundPlayer(t *testing.T) {
	app := NewAppBuilder().UseModule(WorldModule{Options: worldOptions(t)}).Build()
	t.Cleanup(func() { app.Close() })
	w, ok := Resource[chunks.World](app)
	require.True(t, ok)
	viewer, _ := Resource[Viewer](app)

	app.Step(app.FixedDt())
	assert.False(t, viewer.Found)
	assert.NotNil(t, w.GetChunkByIndexes(0, 0, 0), "without a player the world streams around the origin")

	eid := spawnPlayer(app, mgl64.Vec3{100, 4, -3})
	stepUntil(t, app, w.PlayerChunkLoaded)
	assert.True(t, viewer.Found)
	assert.Equal(t, eid, viewer.Entity)
	assert.Equal(t, mgl64.Vec3{100, 4, -3}, viewer.Position)
	assert.NotNil(t, w.GetChunkByIndexes(12, 0, -1))

	stepUntil(t, app, func() bool { return w.GetChunkByIndexes(0, 0, 0) == nil })
}

func TestWorldModulePersistsEdits(t *testing.T) {
	s, err := store.Open(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	app := NewAppBuilder().UseModule(WorldModule{Options: worldOptions(t), Store: s}).Build()
	w, _ := Resource[chunks.World](app)
	spawnPlayer(app, mgl64.Vec3{1, 1, 1})
	stepUntil(t, app, func() bool {
		return w.GetChunkByIndexes(0, 0, 0) != nil && w.GetChunkByIndexes(1, 0, 0) != nil
	})

	require.True(t, w.SetBlockID(stoneID, 1, 2, 3))
	require.True(t, w.SetBlockID(stoneID, 9, 0, 0))

	// walking away unloads and saves the first edit
	movePlayer(app, mgl64.Vec3{200, 0, 0})
	stepUntil(t, app, func() bool { return w.GetChunkByIndexes(0, 0, 0) == nil })
	voxels, ok, err := s.LoadChunk(chunks.RequestID{World: "default"}, 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stoneID, voxels[(1*8+2)*8+3])

	// chunks come back from the store, not the empty generator
	movePlayer(app, mgl64.Vec3{1, 1, 1})
	stepUntil(t, app, func() bool { return w.GetChunkByIndexes(0, 0, 0) != nil })
	assert.Equal(t, stoneID, w.GetBlockID(1, 2, 3))
	assert.False(t, w.GetChunkByIndexes(0, 0, 0).Modified())

	require.NoError(t, app.Close())
	n, err := s.Count("default")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWorldModuleSavesEditsBeforeWorldChange(t *testing.T) {
	s, err := store.Open(store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	app := NewAppBuilder().UseModule(WorldModule{Options: worldOptions(t), Store: s}).Build()
	t.Cleanup(func() { app.Close() })
	w, _ := Resource[chunks.World](app)
	spawnPlayer(app, mgl64.Vec3{1, 1, 1})
	stepUntil(t, app, func() bool { return w.GetChunkByIndexes(0, 0, 0) != nil })
	require.True(t, w.SetBlockID(stoneID, 1, 2, 3))

	w.SetWorldName("other")
	stepUntil(t, app, func() bool {
		c := w.GetChunkByIndexes(0, 0, 0)
		return c != nil && c.ID.World == "other"
	})
	assert.Equal(t, blocks.Air, w.GetBlockID(1, 2, 3))

	voxels, ok, err := s.LoadChunk(chunks.RequestID{World: "default"}, 8)
	require.NoError(t, err)
	require.True(t, ok, "the edit is saved under the old world name")
	assert.Equal(t, stoneID, voxels[(1*8+2)*8+3])

	// switching back serves the saved edit
	w.SetWorldName("default")
	stepUntil(t, app, func() bool {
		c := w.GetChunkByIndexes(0, 0, 0)
		return c != nil && c.ID.World == "default"
	})
	assert.Equal(t, stoneID, w.GetBlockID(1, 2, 3))
}

func TestPhysicsModuleDropsBodyOntoTerrain(t *testing.T) {
	var w *chunks.World
	opts := worldOptions(t)
	opts.Events.DataNeeded = func(req chunks.DataRequest) {
		fill := int(blocks.Air)
		if req.ID.J < 0 {
			fill = int(stoneID)
		}
		w.SetChunkData(req.ID, nil, nil, fill)
	}

	app := NewAppBuilder().
		WithTickRate(60).
		UseModule(TimeModule{}, WorldModule{Options: opts}, PhysicsModule{}).
		Build()
	t.Cleanup(func() { app.Close() })
	w, _ = Resource[chunks.World](app)
	engine, ok := Resource[physics.Engine](app)
	require.True(t, ok)

	spawnPlayer(app, mgl64.Vec3{})
	stepUntil(t, app, func() bool {
		return w.GetChunkByIndexes(0, 0, 0) != nil && w.GetChunkByIndexes(0, -1, 0) != nil
	})
	require.True(t, w.IsSolid(0, -1, 0))

	box := collide.NewAABB(mgl64.Vec3{0.2, 3, 0.2}, mgl64.Vec3{0.6, 0.6, 0.6})
	eid, body := SpawnBody(app.Commands(), engine, box, 1, 0, 0, 1)
	app.FlushCommands()

	for i := 0; i < 180; i++ {
		app.Step(app.FixedDt())
	}

	assert.InDelta(t, 0, body.Position()[1], 1e-6)
	assert.Equal(t, -1, body.AtRestY())

	var synced mgl64.Vec3
	MakeQuery2[TransformComponent, BodyComponent](app.Commands()).Map(func(id EntityId, tr *TransformComponent, _ *BodyComponent) bool {
		if id == eid {
			synced = tr.Position
		}
		return true
	})
	assert.Equal(t, body.Position(), synced)

	require.NoError(t, DespawnBody(app.Commands(), engine, eid, body))
	app.FlushCommands()
	assert.Empty(t, engine.Bodies())
	assert.ErrorIs(t, engine.RemoveBody(body), physics.ErrBodyNotFound)
}

func TestPhysicsModuleUsesBlockFluidDensity(t *testing.T) {
	const waterID blocks.ID = 2
	reg := stoneRegistry(t)
	_, err := reg.RegisterMaterial("water", blocks.MaterialOptions{Color: [4]float64{0, 0, 1, 0.5}})
	require.NoError(t, err)
	require.NoError(t, reg.RegisterBlock(waterID, blocks.BlockOptions{
		Fluid: true, FluidDensity: 1, Materials: []string{"water"},
	}))

	var w *chunks.World
	opts := worldOptions(t)
	opts.Registry = reg
	opts.Events.DataNeeded = func(req chunks.DataRequest) {
		fill := int(blocks.Air)
		if req.ID.J < 0 {
			fill = int(waterID)
		}
		w.SetChunkData(req.ID, nil, nil, fill)
	}
	app := NewAppBuilder().
		WithTickRate(60).
		UseModule(WorldModule{Options: opts}, PhysicsModule{}).
		Build()
	t.Cleanup(func() { app.Close() })
	w, _ = Resource[chunks.World](app)
	engine, _ := Resource[physics.Engine](app)

	spawnPlayer(app, mgl64.Vec3{})
	stepUntil(t, app, func() bool { return w.GetChunkByIndexes(0, -1, 0) != nil })

	// the engine default density of 2 would lift the box; this water only
	// cancels gravity
	box := collide.NewAABB(mgl64.Vec3{0.5, -3, 0.5}, mgl64.Vec3{1, 1, 1})
	_, body := SpawnBody(app.Commands(), engine, box, 1, 0, 0, 1)
	app.FlushCommands()
	for i := 0; i < 30; i++ {
		app.Step(app.FixedDt())
	}
	assert.True(t, body.InFluid)
	assert.InDelta(t, -3, body.Position()[1], 1e-9)
}

func TestPhysicsModuleRequiresWorld(t *testing.T) {
	assert.PanicsWithValue(t, "PhysicsModule requires WorldModule", func() {
		NewAppBuilder().UseModule(PhysicsModule{}).Build()
	})
}
