package voxworld

import (
	"testing"
	"time"

	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/gekko3d/voxworld/engine/physics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleRemovesExpiredEntities(t *testing.T) {
	opts := worldOptions(t)
	opts.ManualChunkLoading = true
	app := NewAppBuilder().
		WithTickRate(10).
		UseModule(WorldModule{Options: opts}, PhysicsModule{}, LifecycleModule{}).
		Build()
	t.Cleanup(func() { app.Close() })
	_, ok := Resource[chunks.World](app)
	require.True(t, ok)
	engine, _ := Resource[physics.Engine](app)

	cmd := app.Commands()
	plain := cmd.AddEntity(LifetimeComponent{TimeLeft: 250 * time.Millisecond})
	box := collide.NewAABB(mgl64.Vec3{0, 10, 0}, mgl64.Vec3{1, 1, 1})
	crate, _ := SpawnBody(cmd, engine, box, 1, 0, 0, 0, LifetimeComponent{TimeLeft: 100 * time.Millisecond})
	keeper := cmd.AddEntity(TransformComponent{})
	app.FlushCommands()
	require.Len(t, engine.Bodies(), 1)

	app.Step(100 * time.Millisecond)
	assert.False(t, app.ecs.hasEntity(crate))
	assert.Empty(t, engine.Bodies())
	assert.True(t, app.ecs.hasEntity(plain))

	app.Step(100 * time.Millisecond)
	assert.True(t, app.ecs.hasEntity(plain))
	app.Step(100 * time.Millisecond)
	assert.False(t, app.ecs.hasEntity(plain))
	assert.True(t, app.ecs.hasEntity(keeper))
}
