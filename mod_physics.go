package voxworld

import (
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/physics"
)

// PhysicsModule runs the rigid-body engine against the world's voxels. It
// must be installed after WorldModule so bodies move after the chunks
// around them are streamed in.
type PhysicsModule struct {
	// Options defaults to physics.DefaultOptions when left zero.
	Options physics.Options
}

func (m PhysicsModule) Install(app *App, cmd *Commands) {
	w, ok := Resource[chunks.World](app)
	if !ok {
		panic("PhysicsModule requires WorldModule")
	}

	opts := m.Options
	if opts == (physics.Options{}) {
		opts = physics.DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = app.Logger()
	}
	e := physics.NewEngine(opts, w.IsSolid, w.IsFluid)
	e.SetFluidProps(func(x, y, z int) physics.FluidProps {
		p := w.FluidProperties(x, y, z)
		return physics.FluidProps{Density: p.Density, Drag: p.Drag}
	})
	cmd.AddResources(e)

	app.UseSystem(
		System(physicsSystem).
			InStage(Update),
	)
}

func physicsSystem(cmd *Commands, e *physics.Engine) {
	e.Tick(cmd.app.FixedDt().Seconds())

	MakeQuery2[TransformComponent, BodyComponent](cmd).Map(func(eid EntityId, t *TransformComponent, bc *BodyComponent) bool {
		if body, ok := bc.PhysicsBody(e); ok {
			t.Position = body.Position()
		}
		return true
	})
}
