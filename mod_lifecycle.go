package voxworld

import (
	"time"

	"github.com/gekko3d/voxworld/engine/physics"
)

// LifetimeComponent removes its entity once TimeLeft runs out. An entity
// with a BodyComponent also loses its rigid body.
type LifetimeComponent struct {
	TimeLeft time.Duration
}

type LifecycleModule struct{}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(lifetimeSystem).
			InStage(PostUpdate),
	)
}

func lifetimeSystem(cmd *Commands) {
	dt := cmd.app.FixedDt()
	engine, hasPhysics := Resource[physics.Engine](cmd.app)
	logger := cmd.app.Logger()

	MakeQuery2[LifetimeComponent, BodyComponent](cmd).Map(func(eid EntityId, lt *LifetimeComponent, bc *BodyComponent) bool {
		lt.TimeLeft -= dt
		if lt.TimeLeft > 0 {
			return true
		}
		logger.Debugf("lifetime of entity %v expired", eid)
		cmd.RemoveEntity(eid)
		if bc != nil && hasPhysics {
			if body, ok := bc.PhysicsBody(engine); ok {
				if err := engine.RemoveBody(body); err != nil {
					logger.Warnf("removing body of entity %v: %v", eid, err)
				}
			}
		}
		return true
	}, BodyComponent{})
}
