package physics

import (
	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// CollideFunc receives the impulse of an impact, J = m*dv.
type CollideFunc func(impulse mgl64.Vec3)

type RigidBody struct {
	ID   uuid.UUID
	AABB collide.AABB

	Mass              float64
	Friction          float64
	Restitution       float64
	GravityMultiplier float64

	Velocity mgl64.Vec3
	// Resting holds, per axis, the direction of the surface the body is
	// pressed against, or 0.
	Resting      [3]int
	InFluid      bool
	RatioInFluid float64

	AutoStep bool
	// AirDrag and FluidDrag override the engine values when >= 0.
	AirDrag   float64
	FluidDrag float64

	OnCollide CollideFunc
	OnStep    func()

	forces   mgl64.Vec3
	impulses mgl64.Vec3
	// drag of the fluid the body is in, set with InFluid
	fluidDrag float64

	sleepFrameCount int
	sleepFrames     int
	asleep          bool
}

func newRigidBody(box collide.AABB, mass, friction, restitution, gravMult float64, onCollide CollideFunc, sleepFrames int) *RigidBody {
	b := &RigidBody{
		ID:                uuid.New(),
		AABB:              box,
		Mass:              mass,
		Friction:          friction,
		Restitution:       restitution,
		GravityMultiplier: gravMult,
		AirDrag:           -1,
		FluidDrag:         -1,
		OnCollide:         onCollide,
		sleepFrames:       sleepFrames,
	}
	b.Wake()
	return b
}

// Wake resets the sleep countdown.
func (b *RigidBody) Wake() {
	b.sleepFrameCount = b.sleepFrames
	b.asleep = false
}

func (b *RigidBody) IsAsleep() bool { return b.asleep }

func (b *RigidBody) ApplyForce(f mgl64.Vec3) {
	b.forces = b.forces.Add(f)
	b.Wake()
}

func (b *RigidBody) ApplyImpulse(i mgl64.Vec3) {
	b.impulses = b.impulses.Add(i)
	b.Wake()
}

// Position is the base corner of the body's box.
func (b *RigidBody) Position() mgl64.Vec3 { return b.AABB.Base }

func (b *RigidBody) SetPosition(p mgl64.Vec3) {
	b.AABB.SetPosition(p)
	b.Wake()
}

func (b *RigidBody) AtRestX() int { return b.Resting[0] }
func (b *RigidBody) AtRestY() int { return b.Resting[1] }
func (b *RigidBody) AtRestZ() int { return b.Resting[2] }
