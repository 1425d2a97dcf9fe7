// Package collide implements axis-aligned boxes, the swept-box voxel
// collision routine and voxel raycasting.
package collide

import "github.com/go-gl/mathgl/mgl64"

// SolidFunc reports whether the voxel at integer coordinates blocks movement.
type SolidFunc func(x, y, z int) bool

// AABB is an axis-aligned box given by its min corner and positive extents.
type AABB struct {
	Base mgl64.Vec3
	Vec  mgl64.Vec3
}

func NewAABB(base, vec mgl64.Vec3) AABB {
	return AABB{Base: base, Vec: vec}
}

func (b AABB) Max() mgl64.Vec3 { return b.Base.Add(b.Vec) }

func (b *AABB) Translate(d mgl64.Vec3) { b.Base = b.Base.Add(d) }

func (b *AABB) SetPosition(p mgl64.Vec3) { b.Base = p }

// Intersects reports whether the boxes overlap with positive volume.
func (b AABB) Intersects(o AABB) bool {
	bm, om := b.Max(), o.Max()
	for i := 0; i < 3; i++ {
		if b.Base[i] >= om[i] || o.Base[i] >= bm[i] {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside the box, min edges inclusive.
func (b AABB) Contains(p mgl64.Vec3) bool {
	m := b.Max()
	for i := 0; i < 3; i++ {
		if p[i] < b.Base[i] || p[i] >= m[i] {
			return false
		}
	}
	return true
}
