package collide

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func single(x0, y0, z0 int) SolidFunc {
	return func(x, y, z int) bool { return x == x0 && y == y0 && z == z0 }
}

func floorAt(level int) SolidFunc {
	return func(x, y, z int) bool { return y < level }
}

func TestAABB(t *testing.T) {
	a := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 2, 1})
	assert.Equal(t, mgl64.Vec3{1, 2, 1}, a.Max())
	b := a
	b.Translate(mgl64.Vec3{0.5, 0, 0})
	assert.True(t, a.Intersects(b))
	b.SetPosition(mgl64.Vec3{1, 0, 0})
	assert.False(t, a.Intersects(b), "touching boxes do not overlap")
	assert.True(t, a.Contains(mgl64.Vec3{0, 1.5, 0.5}))
	assert.False(t, a.Contains(mgl64.Vec3{1, 1, 0.5}))
}

func TestSweepHitsSingleVoxel(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	var hits []Collision
	dist := SweepBox(single(3, 0, 0), &box, mgl64.Vec3{5, 0, 0}, func(c *Collision) bool {
		hits = append(hits, *c)
		c.Remaining[c.Axis] = 0
		return false
	}, false)

	require.Len(t, hits, 1)
	assert.InDelta(t, 2, hits[0].Distance, 1e-9)
	assert.Equal(t, 0, hits[0].Axis)
	assert.Equal(t, 1, hits[0].Dir)
	assert.InDelta(t, 3, hits[0].Remaining[0], 1e-9)
	assert.InDelta(t, 2, dist, 1e-9)
	assert.InDelta(t, 2, box.Base[0], 1e-9)
}

func TestSweepIteratorZeroesRemaining(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	s := NewSweep(single(3, 0, 0), box, mgl64.Vec3{5, 0, 0}, DefaultEpsilon)
	c, ok := s.Next()
	require.True(t, ok)
	c.Remaining[c.Axis] = 0
	assert.Equal(t, mgl64.Vec3{}, c.Remaining)
	s.Resume(c.Remaining)
	_, ok = s.Next()
	assert.False(t, ok)
	assert.True(t, s.Finished())
	assert.InDelta(t, 2, s.Translation()[0], 1e-9)
}

func TestSweepStopsWithoutResume(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	s := NewSweep(single(3, 0, 0), box, mgl64.Vec3{5, 0, 0}, DefaultEpsilon)
	_, ok := s.Next()
	require.True(t, ok)
	_, ok = s.Next()
	assert.False(t, ok)
	assert.InDelta(t, 2, s.Distance(), 1e-9)
}

func TestSweepSlidesAlongFloor(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1, 1, 1})
	var axes []int
	SweepBox(floorAt(0), &box, mgl64.Vec3{2, -1, 0}, func(c *Collision) bool {
		axes = append(axes, c.Axis)
		c.Remaining[c.Axis] = 0
		return false
	}, false)

	assert.Equal(t, []int{1}, axes)
	assert.InDelta(t, 0, box.Base[1], 1e-9)
	assert.InDelta(t, 2.5, box.Base[0], 1e-9)
}

func TestSweepNilCallbackSlides(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0, 3, 0}, mgl64.Vec3{1, 1, 1})
	SweepBox(floorAt(0), &box, mgl64.Vec3{1, -10, 1}, nil, false)
	assert.InDelta(t, 0, box.Base[1], 1e-9)
	assert.InDelta(t, 1, box.Base[0], 1e-9)
	assert.InDelta(t, 1, box.Base[2], 1e-9)
}

func TestSweepNoTranslate(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	dist := SweepBox(func(int, int, int) bool { return false }, &box, mgl64.Vec3{3, 4, 0}, nil, true)
	assert.InDelta(t, 5, dist, 1e-9)
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, box.Base)
}

func TestSweepZeroVector(t *testing.T) {
	box := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	dist := SweepBox(floorAt(100), &box, mgl64.Vec3{}, nil, false)
	assert.Equal(t, 0.0, dist)
}

func TestSweepChecksWholeLeadingFace(t *testing.T) {
	// The box's corner misses the voxel but its face does not.
	box := NewAABB(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 3, 1})
	var hit bool
	SweepBox(single(2, 2, 0), &box, mgl64.Vec3{4, 0, 0}, func(c *Collision) bool {
		hit = true
		return true
	}, false)
	assert.True(t, hit)
	assert.InDelta(t, 1, box.Base[0], 1e-9)
}

func TestRaycast(t *testing.T) {
	h, ok, err := Raycast(single(5, 0, 0), mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{2, 0, 0}, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [3]int{5, 0, 0}, h.Voxel)
	assert.InDelta(t, 4.5, h.Distance, 1e-9)
	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, h.Normal)
	assert.InDelta(t, 5, h.Position[0], 1e-9)

	_, ok, err = Raycast(single(5, 0, 0), mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRaycastDiagonalDown(t *testing.T) {
	h, ok, err := Raycast(floorAt(0), mgl64.Vec3{0.5, 3.5, 0.5}, mgl64.Vec3{1, -1, 0}, 20)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -1, h.Voxel[1])
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, h.Normal)
	assert.InDelta(t, 3.5*math.Sqrt2, h.Distance, 1e-9)
}

func TestRaycastZeroVector(t *testing.T) {
	_, _, err := Raycast(floorAt(0), mgl64.Vec3{}, mgl64.Vec3{}, 10)
	assert.ErrorIs(t, err, ErrZeroVector)
}
