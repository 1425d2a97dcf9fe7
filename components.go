package voxworld

import (
	"github.com/gekko3d/voxworld/engine/collide"
	"github.com/gekko3d/voxworld/engine/physics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// TransformComponent places an entity in world space.
type TransformComponent struct {
	Position mgl64.Vec3
}

func (t *TransformComponent) PositionData() mgl64.Vec3 { return t.Position }

// PlayerComponent marks the entity the world streams chunks around. Only
// the first player found is used.
type PlayerComponent struct{}

// BodyComponent ties an entity to a rigid body. The physics module copies
// the body's position (the min corner of its box) into the entity's
// TransformComponent after every tick.
type BodyComponent struct {
	ID uuid.UUID
}

func (b BodyComponent) PhysicsBody(e *physics.Engine) (*physics.RigidBody, bool) {
	return e.Body(b.ID)
}

// SpawnBody adds a rigid body to e and an entity that follows it.
func SpawnBody(cmd *Commands, e *physics.Engine, box collide.AABB, mass, friction, restitution, gravMult float64, extra ...any) (EntityId, *physics.RigidBody) {
	body := e.AddBody(box, mass, friction, restitution, gravMult, nil)
	components := append([]any{
		TransformComponent{Position: body.Position()},
		BodyComponent{ID: body.ID},
	}, extra...)
	return cmd.AddEntity(components...), body
}

// DespawnBody removes the entity and its body.
func DespawnBody(cmd *Commands, e *physics.Engine, eid EntityId, body *physics.RigidBody) error {
	cmd.RemoveEntity(eid)
	return e.RemoveBody(body)
}
