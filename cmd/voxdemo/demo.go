package main

import (
	"fmt"
	"time"

	"github.com/gekko3d/voxworld"
	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/gekko3d/voxworld/engine/mesh"
	"github.com/gekko3d/voxworld/engine/physics"
	"github.com/gekko3d/voxworld/engine/terraingen"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	stone blocks.ID = iota + 1
	dirt
	grass
	sand
	water
)

func newRegistry() (*blocks.Registry, terraingen.Palette, error) {
	reg := blocks.NewRegistry()
	materials := []struct {
		name  string
		color [4]float64
	}{
		{"stone", [4]float64{0.5, 0.5, 0.52, 1}},
		{"dirt", [4]float64{0.45, 0.32, 0.2, 1}},
		{"grass", [4]float64{0.3, 0.65, 0.25, 1}},
		{"sand", [4]float64{0.85, 0.8, 0.55, 1}},
		{"water", [4]float64{0.2, 0.35, 0.8, 0.6}},
	}
	for _, m := range materials {
		if _, err := reg.RegisterMaterial(m.name, blocks.MaterialOptions{Color: m.color}); err != nil {
			return nil, terraingen.Palette{}, err
		}
	}
	defs := map[blocks.ID]blocks.BlockOptions{
		stone: blocks.DefaultBlockOptions("stone"),
		dirt:  blocks.DefaultBlockOptions("dirt"),
		grass: blocks.DefaultBlockOptions("grass", "dirt", "dirt"),
		sand:  blocks.DefaultBlockOptions("sand"),
		water: {Fluid: true, FluidDensity: 1, FluidDrag: 0.5, Materials: []string{"water"}},
	}
	for id, opts := range defs {
		if err := reg.RegisterBlock(id, opts); err != nil {
			return nil, terraingen.Palette{}, fmt.Errorf("block %d: %w", id, err)
		}
	}
	return reg, terraingen.Palette{Stone: stone, Dirt: dirt, Grass: grass, Sand: sand, Water: water}, nil
}

// countingRenderer stands in for a GPU renderer.
type countingRenderer struct {
	mesh.NopRenderer
	live     int
	vertices int
}

func (r *countingRenderer) AddMesh(static bool, origin mgl64.Vec3, owner any, data *mesh.MeshData) mesh.MeshHandle {
	r.live++
	r.vertices += data.VertexCount()
	return r.NopRenderer.AddMesh(static, origin, owner, data)
}

func (r *countingRenderer) RemoveMesh(h mesh.MeshHandle) {
	r.live--
}

type demoState struct {
	gen      *terraingen.Generator
	speed    float64
	nextDrop uint64
	body     *physics.RigidBody
	renderer *countingRenderer
	reported uint64
}

type demoModule struct {
	Gen      *terraingen.Generator
	Speed    float64
	MapPath  string
	Renderer *countingRenderer
}

func (m demoModule) Install(app *voxworld.App, cmd *voxworld.Commands) {
	start := mgl64.Vec3{0.5, float64(m.Gen.HeightAt(0, 0)) + 2, 0.5}
	cmd.AddEntity(voxworld.TransformComponent{Position: start}, voxworld.PlayerComponent{})
	state := &demoState{gen: m.Gen, speed: m.Speed, renderer: m.Renderer}
	cmd.AddResources(state)

	app.UseSystem(voxworld.System(walkSystem).InStage(voxworld.PreUpdate))
	app.UseSystem(voxworld.System(dropBodySystem).InStage(voxworld.PostUpdate))
	app.UseSystem(voxworld.System(reportSystem).InStage(voxworld.PostRender))

	w, _ := voxworld.Resource[chunks.World](app)
	viewer, _ := voxworld.Resource[voxworld.Viewer](app)
	app.OnClose(func() error {
		img := renderChunkMap(w, viewer.Position)
		if err := writePNG(m.MapPath, img); err != nil {
			return err
		}
		app.Logger().Infof("wrote %s (%d chunks)", m.MapPath, w.ChunkCount())
		return nil
	})
}

// walkSystem moves the player along +x, hovering above the terrain.
func walkSystem(cmd *voxworld.Commands, state *demoState) {
	dt := cmd.App().FixedDt().Seconds()
	voxworld.MakeQuery2[voxworld.TransformComponent, voxworld.PlayerComponent](cmd).Map(
		func(_ voxworld.EntityId, t *voxworld.TransformComponent, _ *voxworld.PlayerComponent) bool {
			x := t.Position.X() + state.speed*dt
			ground := state.gen.HeightAt(int(x), int(t.Position.Z()))
			t.Position = mgl64.Vec3{x, float64(ground) + 2, t.Position.Z()}
			return false
		})
}

const (
	dropEvery     = 3 * time.Second
	crateLifetime = 8 * time.Second
)

// dropBodySystem drops a crate ahead of the player every few seconds. Each
// crate expires after crateLifetime.
func dropBodySystem(cmd *voxworld.Commands, w *chunks.World, e *physics.Engine, clock *voxworld.Time, viewer *voxworld.Viewer, state *demoState) {
	if clock.Ticks < state.nextDrop || !w.PlayerChunkLoaded() {
		return
	}
	base := viewer.Position.Add(mgl64.Vec3{6, 8, 0})
	box := collide.NewAABB(base, mgl64.Vec3{0.8, 0.8, 0.8})
	if !w.IsBoxUnobstructed(box) {
		return
	}
	_, state.body = voxworld.SpawnBody(cmd, e, box, 1, 0.6, 0.2, 1,
		voxworld.LifetimeComponent{TimeLeft: crateLifetime})
	state.nextDrop = clock.Ticks + uint64(dropEvery/clock.FixedDt)
	cmd.App().Logger().Infof("dropped a crate at %.1f,%.1f,%.1f", base.X(), base.Y(), base.Z())
}

// reportSystem logs progress about once a second.
func reportSystem(cmd *voxworld.Commands, w *chunks.World, e *physics.Engine, clock *voxworld.Time, viewer *voxworld.Viewer, state *demoState) {
	ticksPerSecond := uint64(1 / clock.FixedDt.Seconds())
	if ticksPerSecond == 0 || clock.Ticks-state.reported < ticksPerSecond {
		return
	}
	state.reported = clock.Ticks
	q := w.QueueCounts()
	logger := cmd.App().Logger()
	logger.Infof("tick %d viewer %.0f,%.0f,%.0f chunks %d pending %d meshes %d (%d vertices)",
		clock.Ticks, viewer.Position.X(), viewer.Position.Y(), viewer.Position.Z(),
		w.ChunkCount(), q.Pending, state.renderer.live, state.renderer.vertices)
	if state.body == nil {
		return
	}
	if _, alive := e.Body(state.body.ID); alive {
		p := state.body.Position()
		logger.Debugf("crate at %.2f,%.2f,%.2f asleep=%v", p.X(), p.Y(), p.Z(), state.body.IsAsleep())
	}
}
