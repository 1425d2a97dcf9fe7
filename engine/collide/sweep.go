package collide

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultEpsilon keeps box edges lying exactly on voxel boundaries from
// being classified into the neighboring voxel.
const DefaultEpsilon = 1e-10

// Collision is one blocking event found by a Sweep.
type Collision struct {
	// Distance is the cumulative distance travelled when the box hit.
	Distance float64
	Axis     int
	Dir      int
	// Remaining is the part of the movement not yet travelled.
	Remaining mgl64.Vec3
}

// Sweep walks a box through the voxel grid along a vector, stopping at
// each collision so the caller can adjust the remaining movement.
//
//	s := NewSweep(solid, box, move, DefaultEpsilon)
//	for c, ok := s.Next(); ok; c, ok = s.Next() {
//		c.Remaining[c.Axis] = 0
//		s.Resume(c.Remaining)
//	}
type Sweep struct {
	solid SolidFunc
	eps   float64

	vec, base, max [3]float64
	startBase      [3]float64
	startMax       [3]float64
	dir            [3]float64

	tr, normed, tDelta, tNext [3]float64
	ldi, tri, step            [3]int

	t, maxT, cumulative float64
	paused, finished    bool
}

func NewSweep(solid SolidFunc, box AABB, vec mgl64.Vec3, epsilon float64) *Sweep {
	s := &Sweep{solid: solid, eps: epsilon, vec: vec, dir: vec}
	m := box.Max()
	for i := 0; i < 3; i++ {
		s.base[i] = box.Base[i]
		s.max[i] = m[i]
	}
	s.startBase, s.startMax = s.base, s.max
	s.init()
	if s.maxT == 0 {
		s.finished = true
	}
	return s
}

func (s *Sweep) leadEdgeToInt(coord float64, step int) int {
	return int(math.Floor(coord - float64(step)*s.eps))
}

func (s *Sweep) trailEdgeToInt(coord float64, step int) int {
	return int(math.Floor(coord + float64(step)*s.eps))
}

func (s *Sweep) init() {
	s.t = 0
	s.maxT = math.Sqrt(s.vec[0]*s.vec[0] + s.vec[1]*s.vec[1] + s.vec[2]*s.vec[2])
	if s.maxT == 0 {
		return
	}
	for i := 0; i < 3; i++ {
		pos := s.vec[i] >= 0
		s.step[i] = -1
		lead := s.base[i]
		s.tr[i] = s.max[i]
		if pos {
			s.step[i] = 1
			lead = s.max[i]
			s.tr[i] = s.base[i]
		}
		s.ldi[i] = s.leadEdgeToInt(lead, s.step[i])
		s.tri[i] = s.trailEdgeToInt(s.tr[i], s.step[i])
		s.normed[i] = s.vec[i] / s.maxT
		s.tDelta[i] = math.Abs(1 / s.normed[i])
		dist := lead - float64(s.ldi[i])
		if pos {
			dist = float64(s.ldi[i]) + 1 - lead
		}
		s.tNext[i] = math.Inf(1)
		if !math.IsInf(s.tDelta[i], 1) {
			s.tNext[i] = s.tDelta[i] * dist
		}
	}
}

func (s *Sweep) stepForward() int {
	axis := 2
	if s.tNext[0] < s.tNext[1] {
		if s.tNext[0] < s.tNext[2] {
			axis = 0
		}
	} else if s.tNext[1] < s.tNext[2] {
		axis = 1
	}
	dt := s.tNext[axis] - s.t
	s.t = s.tNext[axis]
	s.ldi[axis] += s.step[axis]
	s.tNext[axis] += s.tDelta[axis]
	for i := 0; i < 3; i++ {
		s.tr[i] += dt * s.normed[i]
		s.tri[i] = s.trailEdgeToInt(s.tr[i], s.step[i])
	}
	return axis
}

// checkCollision tests the whole leading face on axis.
func (s *Sweep) checkCollision(axis int) bool {
	var lo, hi [3]int
	for i := 0; i < 3; i++ {
		lo[i] = s.tri[i]
		if i == axis {
			lo[i] = s.ldi[i]
		}
		hi[i] = s.ldi[i] + s.step[i]
	}
	for x := lo[0]; x != hi[0]; x += s.step[0] {
		for y := lo[1]; y != hi[1]; y += s.step[1] {
			for z := lo[2]; z != hi[2]; z += s.step[2] {
				if s.solid(x, y, z) {
					return true
				}
			}
		}
	}
	return false
}

// Next advances to the next collision. It returns false once the sweep has
// travelled its full remaining vector, or if the previous collision was not
// resumed.
func (s *Sweep) Next() (Collision, bool) {
	if s.finished {
		return Collision{}, false
	}
	if s.paused {
		s.finished = true
		return Collision{}, false
	}
	for {
		axis := s.stepForward()
		if s.t > s.maxT {
			break
		}
		if s.checkCollision(axis) {
			return s.collide(axis), true
		}
	}
	s.cumulative += s.maxT
	for i := 0; i < 3; i++ {
		s.base[i] += s.vec[i]
		s.max[i] += s.vec[i]
	}
	s.finished = true
	return Collision{}, false
}

func (s *Sweep) collide(axis int) Collision {
	s.cumulative += s.t
	dir := s.step[axis]
	done := s.t / s.maxT
	var left mgl64.Vec3
	for i := 0; i < 3; i++ {
		dv := s.vec[i] * done
		s.base[i] += dv
		s.max[i] += dv
		left[i] = s.vec[i] - dv
	}
	if dir > 0 {
		s.max[axis] = math.Round(s.max[axis])
	} else {
		s.base[axis] = math.Round(s.base[axis])
	}
	s.paused = true
	return Collision{Distance: s.cumulative, Axis: axis, Dir: dir, Remaining: left}
}

// Resume continues the sweep from the last collision with a new remaining vector.
func (s *Sweep) Resume(remaining mgl64.Vec3) {
	if !s.paused || s.finished {
		return
	}
	s.paused = false
	s.vec = remaining
	s.init()
	if s.maxT == 0 {
		s.finished = true
	}
}

// Distance is the total distance travelled so far.
func (s *Sweep) Distance() float64 { return s.cumulative }

// Finished reports whether the sweep has ended.
func (s *Sweep) Finished() bool { return s.finished }

// Translation is how far the box moved. On each axis the edge that led in
// the original direction is authoritative, since it is snapped to the grid on impact.
func (s *Sweep) Translation() mgl64.Vec3 {
	var d mgl64.Vec3
	for i := 0; i < 3; i++ {
		if s.dir[i] > 0 {
			d[i] = s.max[i] - s.startMax[i]
		} else {
			d[i] = s.base[i] - s.startBase[i]
		}
	}
	return d
}

// SweepBox sweeps box along vec, calling cb at every collision. cb may edit
// the collision's Remaining vector and returns true to stop. A nil cb zeroes
// the blocked axis and continues, sliding along surfaces. Unless
// noTranslate is set the box is moved to its final position. The
// cumulative distance travelled is returned.
func SweepBox(solid SolidFunc, box *AABB, vec mgl64.Vec3, cb func(c *Collision) bool, noTranslate bool) float64 {
	s := NewSweep(solid, *box, vec, DefaultEpsilon)
	for c, ok := s.Next(); ok; c, ok = s.Next() {
		if cb == nil {
			c.Remaining[c.Axis] = 0
		} else if cb(&c) {
			break
		}
		s.Resume(c.Remaining)
	}
	if !noTranslate {
		box.Translate(s.Translation())
	}
	return s.Distance()
}
