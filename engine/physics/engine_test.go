package physics

import (
	"testing"

	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

func floorSolid(x, y, z int) bool { return y < 0 }

func unitBox(x, y, z float64) collide.AABB {
	return collide.NewAABB(mgl64.Vec3{x, y, z}, mgl64.Vec3{1, 1, 1})
}

func TestBodyFallsAndLands(t *testing.T) {
	e := NewEngine(DefaultOptions(), floorSolid, nil)
	var impacts []mgl64.Vec3
	b := e.AddBody(unitBox(0.5, 5, 0.5), 1, 0, 0, 1, func(j mgl64.Vec3) {
		impacts = append(impacts, j)
	})

	for i := 0; i < 240; i++ {
		e.Tick(dt)
	}

	assert.InDelta(t, 0, b.Position()[1], 1e-6)
	assert.Equal(t, -1, b.AtRestY())
	assert.Equal(t, 0.0, b.Velocity[1])
	require.Len(t, impacts, 1)
	assert.Greater(t, impacts[0][1], 5.0)
	assert.True(t, b.IsAsleep(), "a resting body should fall asleep")
}

func TestSleepWithoutGravity(t *testing.T) {
	opts := DefaultOptions()
	opts.Gravity = mgl64.Vec3{}
	e := NewEngine(opts, floorSolid, nil)
	b := e.AddBody(unitBox(0, 10, 0), 1, 0, 0, 1, nil)

	for i := 0; i < opts.SleepFrames; i++ {
		e.Tick(dt)
		assert.False(t, b.IsAsleep(), "tick %d", i)
	}
	e.Tick(dt)
	assert.True(t, b.IsAsleep())

	b.ApplyForce(mgl64.Vec3{60, 0, 0})
	e.Tick(dt)
	assert.False(t, b.IsAsleep())
	assert.Greater(t, b.Velocity[0], 0.0)
	assert.Greater(t, b.Position()[0], 0.0)
}

func TestStaticBodyNeverMoves(t *testing.T) {
	e := NewEngine(DefaultOptions(), floorSolid, nil)
	b := e.AddBody(unitBox(0, 5, 0), 0, 0, 0, 1, nil)
	b.ApplyImpulse(mgl64.Vec3{10, 10, 10})
	for i := 0; i < 10; i++ {
		e.Tick(dt)
	}
	assert.Equal(t, mgl64.Vec3{0, 5, 0}, b.Position())
	assert.Equal(t, mgl64.Vec3{}, b.Velocity)
}

func TestFrictionStopsSlidingBody(t *testing.T) {
	e := NewEngine(DefaultOptions(), floorSolid, nil)
	b := e.AddBody(unitBox(0, 0, 0), 1, 1, 0, 1, nil)
	b.Velocity = mgl64.Vec3{3, 0, 0}

	prev := b.Velocity[0]
	for i := 0; i < 60; i++ {
		e.Tick(dt)
		assert.LessOrEqual(t, b.Velocity[0], prev)
		assert.GreaterOrEqual(t, b.Velocity[0], 0.0, "friction must not reverse motion")
		prev = b.Velocity[0]
	}
	assert.Equal(t, 0.0, b.Velocity[0])
}

func TestRestitutionBounces(t *testing.T) {
	e := NewEngine(DefaultOptions(), floorSolid, nil)
	b := e.AddBody(unitBox(0, 3, 0), 1, 0, 0.5, 1, nil)

	bounced := false
	for i := 0; i < 120 && !bounced; i++ {
		e.Tick(dt)
		bounced = b.Velocity[1] > 0
	}
	assert.True(t, bounced)
}

func TestBuoyancyLiftsSubmergedBody(t *testing.T) {
	water := func(x, y, z int) bool { return y < 3 }
	e := NewEngine(DefaultOptions(), func(int, int, int) bool { return false }, water)
	b := e.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)

	e.Tick(dt)
	assert.True(t, b.InFluid)
	assert.Equal(t, 1.0, b.RatioInFluid)
	assert.Greater(t, b.Velocity[1], 0.0)

	b.SetPosition(mgl64.Vec3{0, 2.5, 0})
	e.Tick(dt)
	assert.True(t, b.InFluid)
	assert.InDelta(t, 0.5, b.RatioInFluid, 1e-9)

	b.SetPosition(mgl64.Vec3{0, 10, 0})
	e.Tick(dt)
	assert.False(t, b.InFluid)
}

func TestFluidDragOverride(t *testing.T) {
	water := func(x, y, z int) bool { return true }
	opts := DefaultOptions()
	opts.Gravity = mgl64.Vec3{}
	e := NewEngine(opts, func(int, int, int) bool { return false }, water)
	b := e.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)
	b.FluidDrag = 120
	b.Velocity = mgl64.Vec3{1, 0, 0}
	e.Tick(dt)
	assert.Equal(t, 0.0, b.Velocity[0])
}

func TestPerVoxelFluidProps(t *testing.T) {
	water := func(x, y, z int) bool { return y < 3 }
	none := func(int, int, int) bool { return false }

	plain := NewEngine(DefaultOptions(), none, water)
	pb := plain.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)
	plain.Tick(dt)

	// density 1 exactly cancels gravity on a fully submerged unit box
	light := NewEngine(DefaultOptions(), none, water)
	light.SetFluidProps(func(x, y, z int) FluidProps { return FluidProps{Density: 1} })
	lb := light.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)
	light.Tick(dt)

	assert.Greater(t, pb.Velocity[1], 0.0)
	assert.InDelta(t, 0, lb.Velocity[1], 1e-12)

	opts := DefaultOptions()
	opts.Gravity = mgl64.Vec3{}
	thick := NewEngine(opts, none, func(int, int, int) bool { return true })
	thick.SetFluidProps(func(x, y, z int) FluidProps { return FluidProps{Drag: 120} })
	tb := thick.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)
	tb.Velocity = mgl64.Vec3{1, 0, 0}
	thick.Tick(dt)
	assert.Equal(t, 0.0, tb.Velocity[0])
}

func TestRemoveBodyDuringTick(t *testing.T) {
	e := NewEngine(DefaultOptions(), floorSolid, nil)
	first := e.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)
	second := e.AddBody(unitBox(5, 10, 0), 1, 0, 0, 1, nil)
	third := e.AddBody(unitBox(10, 10, 0), 1, 0, 0, 1, nil)

	// the first body lands this tick and removes the second
	first.SetPosition(mgl64.Vec3{0, 0.01, 0})
	first.Velocity = mgl64.Vec3{0, -5, 0}
	first.OnCollide = func(mgl64.Vec3) { require.NoError(t, e.RemoveBody(second)) }

	e.Tick(dt)
	assert.Equal(t, []*RigidBody{first, third}, e.Bodies())
	assert.Equal(t, 10.0, second.Position()[1], "a removed body is not advanced")
	assert.Less(t, third.Position()[1], 10.0, "bodies after the removed one still tick")
}

func TestAutoStepClimbsLedge(t *testing.T) {
	solid := func(x, y, z int) bool { return y < 0 || (x >= 3 && y == 0) }
	e := NewEngine(DefaultOptions(), solid, nil)
	b := e.AddBody(collide.NewAABB(mgl64.Vec3{0.5, 0, 0.1}, mgl64.Vec3{0.8, 1.5, 0.8}), 1, 0, 0, 1, nil)
	b.AutoStep = true
	steps := 0
	b.OnStep = func() { steps++ }

	for i := 0; i < 90; i++ {
		b.Velocity[0] = 4
		e.Tick(dt)
	}
	assert.GreaterOrEqual(t, steps, 1)
	assert.GreaterOrEqual(t, b.Position()[1], 1-1e-6)
	assert.Greater(t, b.Position()[0], 3.0)
}

func TestWallBlocksWithoutAutoStep(t *testing.T) {
	solid := func(x, y, z int) bool { return y < 0 || (x >= 3 && y == 0) }
	e := NewEngine(DefaultOptions(), solid, nil)
	b := e.AddBody(collide.NewAABB(mgl64.Vec3{0.5, 0, 0.1}, mgl64.Vec3{0.8, 1.5, 0.8}), 1, 0, 0, 1, nil)
	for i := 0; i < 90; i++ {
		b.Velocity[0] = 4
		e.Tick(dt)
	}
	assert.InDelta(t, 2.2, b.Position()[0], 1e-6)
	assert.InDelta(t, 0, b.Position()[1], 1e-6)
}

func TestRemoveBody(t *testing.T) {
	e := NewEngine(DefaultOptions(), floorSolid, nil)
	b := e.AddBody(unitBox(0, 0, 0), 1, 0, 0, 1, nil)
	got, ok := e.Body(b.ID)
	require.True(t, ok)
	assert.Same(t, b, got)

	require.NoError(t, e.RemoveBody(b))
	assert.Empty(t, e.Bodies())
	assert.ErrorIs(t, e.RemoveBody(b), ErrBodyNotFound)
	assert.ErrorIs(t, e.RemoveBody(nil), ErrBodyNotFound)
	_, ok = e.Body(b.ID)
	assert.False(t, ok)
}
