// Package physics integrates axis-aligned rigid bodies against voxel terrain.
package physics

import (
	"errors"
	"math"

	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/gekko3d/voxworld/engine/logging"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var ErrBodyNotFound = errors.New("physics: body not found")

type Options struct {
	Gravity          mgl64.Vec3
	AirDrag          float64
	FluidDrag        float64
	FluidDensity     float64
	MinBounceImpulse float64
	// SleepFrames is how many quiet ticks a body takes to fall asleep.
	SleepFrames int
	Logger      logging.Logger
}

func DefaultOptions() Options {
	return Options{
		Gravity:          mgl64.Vec3{0, -10, 0},
		AirDrag:          0.1,
		FluidDrag:        0.4,
		FluidDensity:     2.0,
		MinBounceImpulse: 0.5,
		SleepFrames:      10,
	}
}

// FluidProps describes the fluid in one voxel. Zero fields fall back to
// the engine's FluidDensity and FluidDrag.
type FluidProps struct {
	Density float64
	Drag    float64
}

type FluidPropsFunc func(x, y, z int) FluidProps

type Engine struct {
	opts       Options
	solid      collide.SolidFunc
	fluid      collide.SolidFunc
	fluidProps FluidPropsFunc
	bodies     []*RigidBody
	ticking    []*RigidBody
	byID       map[uuid.UUID]*RigidBody
	logger     logging.Logger
}

// NewEngine creates an engine querying solid and fluid for voxel terrain.
// A nil fluid func means there are no fluids.
func NewEngine(opts Options, solid, fluid collide.SolidFunc) *Engine {
	if fluid == nil {
		fluid = func(int, int, int) bool { return false }
	}
	if opts.SleepFrames <= 0 {
		opts.SleepFrames = DefaultOptions().SleepFrames
	}
	return &Engine{
		opts:   opts,
		solid:  solid,
		fluid:  fluid,
		byID:   make(map[uuid.UUID]*RigidBody),
		logger: logging.OrNop(opts.Logger),
	}
}

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) SetGravity(g mgl64.Vec3) { e.opts.Gravity = g }

// SetFluidProps sets the per-voxel fluid lookup used for buoyancy and drag.
// With none set every fluid uses the engine options.
func (e *Engine) SetFluidProps(fn FluidPropsFunc) { e.fluidProps = fn }

// AddBody registers a body. Bodies with mass <= 0 are static.
func (e *Engine) AddBody(box collide.AABB, mass, friction, restitution, gravMult float64, onCollide CollideFunc) *RigidBody {
	b := newRigidBody(box, mass, friction, restitution, gravMult, onCollide, e.opts.SleepFrames)
	e.bodies = append(e.bodies, b)
	e.byID[b.ID] = b
	return b
}

func (e *Engine) RemoveBody(b *RigidBody) error {
	if b == nil || e.byID[b.ID] != b {
		e.logger.Warnf("physics: remove of unknown body")
		return ErrBodyNotFound
	}
	delete(e.byID, b.ID)
	for i, o := range e.bodies {
		if o == b {
			e.bodies = append(e.bodies[:i], e.bodies[i+1:]...)
			break
		}
	}
	b.OnCollide = nil
	b.OnStep = nil
	return nil
}

// Body looks a body up by ID.
func (e *Engine) Body(id uuid.UUID) (*RigidBody, bool) {
	b, ok := e.byID[id]
	return b, ok
}

func (e *Engine) Bodies() []*RigidBody { return e.bodies }

// Tick advances every body by dt seconds. Bodies removed by a callback
// during the tick are not advanced any further.
func (e *Engine) Tick(dt float64) {
	noGravity := e.opts.Gravity.LenSqr() == 0
	e.ticking = append(e.ticking[:0], e.bodies...)
	for _, b := range e.ticking {
		if e.byID[b.ID] != b {
			continue
		}
		e.iterateBody(b, dt, noGravity)
	}
	clear(e.ticking)
}

func (e *Engine) iterateBody(b *RigidBody, dt float64, noGravity bool) {
	oldResting := b.Resting

	if b.Mass <= 0 {
		b.Velocity = mgl64.Vec3{}
		b.forces = mgl64.Vec3{}
		b.impulses = mgl64.Vec3{}
		return
	}

	localNoGrav := noGravity || b.GravityMultiplier == 0
	if e.bodyAsleep(b, dt, localNoGrav) {
		b.asleep = true
		return
	}
	b.asleep = false
	b.sleepFrameCount--

	e.applyFluidForces(b)

	// semi-implicit euler
	a := b.forces.Mul(1 / b.Mass).Add(e.opts.Gravity.Mul(b.GravityMultiplier))
	dv := b.impulses.Mul(1 / b.Mass).Add(a.Mul(dt))
	b.Velocity = b.Velocity.Add(dv)

	if b.Friction != 0 {
		for axis := 0; axis < 3; axis++ {
			applyFrictionByAxis(axis, b, dv)
		}
	}

	drag := e.opts.AirDrag
	if b.AirDrag >= 0 {
		drag = b.AirDrag
	}
	if b.InFluid {
		drag = b.fluidDrag
		if b.FluidDrag >= 0 {
			drag = b.FluidDrag
		}
		dry := 1 - b.RatioInFluid
		drag *= 1 - dry*dry
	}
	b.Velocity = b.Velocity.Mul(math.Max(1-drag*dt/b.Mass, 0))

	dx := b.Velocity.Mul(dt)

	b.forces = mgl64.Vec3{}
	b.impulses = mgl64.Vec3{}

	oldBox := b.AABB
	e.processCollisions(&b.AABB, dx, &b.Resting)
	if b.AutoStep {
		e.tryAutoStepping(b, oldBox, dx)
	}

	var impacts mgl64.Vec3
	for i := 0; i < 3; i++ {
		if b.Resting[i] != 0 {
			if oldResting[i] == 0 {
				impacts[i] = -b.Velocity[i]
			}
			b.Velocity[i] = 0
		}
	}
	if mag := impacts.Len(); mag > 0.001 {
		impacts = impacts.Mul(b.Mass)
		if b.OnCollide != nil {
			b.OnCollide(impacts)
		}
		if b.Restitution > 0 && mag > e.opts.MinBounceImpulse {
			b.ApplyImpulse(impacts.Mul(b.Restitution))
		}
	}

	if b.Velocity.LenSqr() > 1e-5 {
		b.Wake()
	}
}

// applyFluidForces samples the column above the box's base corner. Fluids
// are assumed settled.
func (e *Engine) applyFluidForces(b *RigidBody) {
	box := b.AABB
	cx := int(math.Floor(box.Base[0]))
	cz := int(math.Floor(box.Base[2]))
	y0 := int(math.Floor(box.Base[1]))
	y1 := int(math.Floor(box.Max()[1]))

	if !e.fluid(cx, y0, cz) {
		b.InFluid = false
		b.RatioInFluid = 0
		return
	}

	density, drag := e.opts.FluidDensity, e.opts.FluidDrag
	if e.fluidProps != nil {
		p := e.fluidProps(cx, y0, cz)
		if p.Density > 0 {
			density = p.Density
		}
		if p.Drag > 0 {
			drag = p.Drag
		}
	}

	submerged := 1
	for cy := y0 + 1; cy <= y1 && e.fluid(cx, cy, cz); cy++ {
		submerged++
	}
	level := float64(y0 + submerged)
	ratio := math.Min((level-box.Base[1])/box.Vec[1], 1)
	displaced := box.Vec[0] * box.Vec[1] * box.Vec[2] * ratio
	b.forces = b.forces.Add(e.opts.Gravity.Mul(-density * displaced))

	b.InFluid = true
	b.RatioInFluid = ratio
	b.fluidDrag = drag
}

// applyFrictionByAxis slows lateral motion while the body is pushed into a
// surface on axis. The change is u*dv on the normal, clamped at zero.
func applyFrictionByAxis(axis int, b *RigidBody, dv mgl64.Vec3) {
	restDir := b.Resting[axis]
	vNormal := dv[axis]
	if restDir == 0 || float64(restDir)*vNormal <= 0 {
		return
	}
	lateral := b.Velocity
	lateral[axis] = 0
	vCurr := lateral.Len()
	if vCurr < 1e-9 {
		return
	}
	dvMax := math.Abs(b.Friction * vNormal)
	scale := 0.0
	if vCurr > dvMax {
		scale = (vCurr - dvMax) / vCurr
	}
	b.Velocity[(axis+1)%3] *= scale
	b.Velocity[(axis+2)%3] *= scale
}

func (e *Engine) processCollisions(box *collide.AABB, dx mgl64.Vec3, resting *[3]int) {
	*resting = [3]int{}
	collide.SweepBox(e.solid, box, dx, func(c *collide.Collision) bool {
		resting[c.Axis] = c.Dir
		c.Remaining[c.Axis] = 0
		return false
	}, false)
}

func (e *Engine) tryAutoStepping(b *RigidBody, oldBox collide.AABB, dx mgl64.Vec3) {
	if b.Resting[1] >= 0 && !b.InFluid {
		return
	}
	xBlocked := b.Resting[0] != 0
	zBlocked := b.Resting[2] != 0
	if !xBlocked && !zBlocked {
		return
	}

	// only step when heading sufficiently into the obstruction
	const cutoff = 4.0
	ratio := math.Abs(dx[0] / dx[2])
	if !xBlocked && ratio > cutoff {
		return
	}
	if !zBlocked && ratio < 1/cutoff {
		return
	}

	target := oldBox.Base.Add(dx)

	// move toward the target until the first lateral collision
	collide.SweepBox(e.solid, &oldBox, dx, func(c *collide.Collision) bool {
		if c.Axis == 1 {
			c.Remaining[1] = 0
			return false
		}
		return true
	}, false)

	y := b.AABB.Base[1]
	up := mgl64.Vec3{0, math.Floor(y+1.001) - y, 0}
	blocked := false
	collide.SweepBox(e.solid, &oldBox, up, func(*collide.Collision) bool {
		blocked = true
		return true
	}, false)
	if blocked {
		return
	}

	leftover := target.Sub(oldBox.Base)
	leftover[1] = 0
	var tmpResting [3]int
	e.processCollisions(&oldBox, leftover, &tmpResting)

	if xBlocked && !approxEqual(oldBox.Base[0], target[0]) {
		return
	}
	if zBlocked && !approxEqual(oldBox.Base[2], target[2]) {
		return
	}

	b.AABB = oldBox
	b.Resting[0] = tmpResting[0]
	b.Resting[2] = tmpResting[2]
	if b.OnStep != nil {
		b.OnStep()
	}
}

// bodyAsleep reports whether a quiet body may skip integration. With
// gravity, the body must also still rest on something.
func (e *Engine) bodyAsleep(b *RigidBody, dt float64, noGravity bool) bool {
	if b.sleepFrameCount > 0 {
		return false
	}
	if noGravity {
		return true
	}
	resting := false
	probe := e.opts.Gravity.Mul(0.5 * dt * dt * b.GravityMultiplier)
	box := b.AABB
	collide.SweepBox(e.solid, &box, probe, func(*collide.Collision) bool {
		resting = true
		return true
	}, true)
	return resting
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
