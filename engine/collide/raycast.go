package collide

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrZeroVector = errors.New("collide: cannot raycast along a zero vector")

// Hit describes the first solid voxel found by Raycast.
type Hit struct {
	Voxel    [3]int
	Position mgl64.Vec3
	// Normal points out of the face that was entered. It is zero when the
	// ray starts inside a solid voxel.
	Normal   mgl64.Vec3
	Distance float64
}

// Raycast steps voxel by voxel from origin along dir for at most maxDist.
// dir need not be normalized but must be non-zero.
func Raycast(solid SolidFunc, origin, dir mgl64.Vec3, maxDist float64) (Hit, bool, error) {
	ds := dir.Len()
	if ds == 0 {
		return Hit{}, false, ErrZeroVector
	}
	d := dir.Mul(1 / ds)

	var ix, step [3]int
	var tDelta, tMax [3]float64
	for a := 0; a < 3; a++ {
		ix[a] = int(math.Floor(origin[a]))
		step[a] = -1
		if d[a] > 0 {
			step[a] = 1
		}
		tDelta[a] = math.Abs(1 / d[a])
		dist := origin[a] - float64(ix[a])
		if step[a] > 0 {
			dist = float64(ix[a]) + 1 - origin[a]
		}
		tMax[a] = math.Inf(1)
		if !math.IsInf(tDelta[a], 1) {
			tMax[a] = tDelta[a] * dist
		}
	}

	t := 0.0
	stepped := -1
	for t <= maxDist {
		if solid(ix[0], ix[1], ix[2]) {
			h := Hit{
				Voxel:    ix,
				Position: origin.Add(d.Mul(t)),
				Distance: t,
			}
			if stepped >= 0 {
				h.Normal[stepped] = float64(-step[stepped])
			}
			return h, true, nil
		}
		a := 2
		if tMax[0] < tMax[1] {
			if tMax[0] < tMax[2] {
				a = 0
			}
		} else if tMax[1] < tMax[2] {
			a = 1
		}
		ix[a] += step[a]
		t = tMax[a]
		tMax[a] += tDelta[a]
		stepped = a
	}
	return Hit{Position: origin.Add(d.Mul(maxDist)), Distance: maxDist}, false, nil
}
