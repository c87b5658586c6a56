package raymarch

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxQuadrants is the most regions a ray can traverse in contracted space.
const MaxQuadrants = 5

// Region bounds in contracted space, pulled slightly inward so boundary
// intersections resolve to the region being left.
const (
	innerBound = 1.0 - 1e-5
	outerBound = 2.0 - 1e-4
	// solutionEps is the tolerance for accepting a plane intersection.
	solutionEps = 1e-3
	// outerWall is where a ray is considered to have left contracted space.
	outerWall = 2.0 - 1e-3
)

// Quadrants holds the sorted world-space exit parameters of the regions a
// ray traverses. Unused entries are +Inf.
type Quadrants struct {
	Exits [MaxQuadrants]float64
	Count int
}

// FindTraversedQuadrants intersects the ray with the core cube and the six
// outer shells of contracted space and returns the exit parameters that
// lie at or beyond near, in ascending order.
func FindTraversedQuadrants(o, d mgl64.Vec3, near float64) Quadrants {
	var q Quadrants
	for i := range q.Exits {
		q.Exits[i] = math.Inf(1)
	}
	add := func(t float64) {
		if t >= near && q.Count < MaxQuadrants {
			q.Exits[q.Count] = t
			q.Count++
		}
	}

	core := mgl64.Vec3{1, 1, 1}
	add(tMax(o, d, planeHitsCore(o, d, core.Mul(-1)), planeHitsCore(o, d, core), core.Mul(-1), core))

	for axis := 0; axis < 3; axis++ {
		for _, s := range []float64{1, -1} {
			boxMin := mgl64.Vec3{-innerBound, -innerBound, -innerBound}
			boxMax := mgl64.Vec3{innerBound, innerBound, innerBound}
			if s > 0 {
				boxMin[axis], boxMax[axis] = innerBound, outerBound
			} else {
				boxMin[axis], boxMax[axis] = -outerBound, -innerBound
			}
			t0 := planeHitsShell(o, d, boxMin, axis, s)
			t1 := planeHitsShell(o, d, boxMax, axis, s)
			add(tMax(o, d, t0, t1, boxMin, boxMax))
		}
	}

	sort.Float64s(q.Exits[:q.Count])
	return q
}

// planeHitsCore solves o + t*d = p per axis inside the core cube.
func planeHitsCore(o, d, p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{(p[0] - o[0]) / d[0], (p[1] - o[1]) / d[1], (p[2] - o[2]) / d[2]}
}

// planeHitsShell solves contract(o + t*d) = p per axis inside the outer
// shell whose dominant axis is axis with sign s.
func planeHitsShell(o, d, p mgl64.Vec3, axis int, s float64) mgl64.Vec3 {
	var t mgl64.Vec3
	for b := 0; b < 3; b++ {
		if b == axis {
			t[b] = (s/(2.0-s*p[b]) - o[b]) / d[b]
			continue
		}
		t[b] = (o[b] - p[b]*s*o[axis]) / (p[b]*s*d[axis] - d[b])
	}
	return t
}

// tMax discards candidate intersections that do not land on their plane
// within the box and returns the largest remaining parameter, or -Inf.
func tMax(o, d, t0, t1, boxMin, boxMax mgl64.Vec3) float64 {
	best := math.Inf(-1)
	check := func(t float64, plane mgl64.Vec3, axis int) {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return
		}
		q := Contract(o.Add(d.Mul(t)))
		if !(math.Abs(q[axis]-plane[axis]) <= solutionEps) {
			return
		}
		for a := 0; a < 3; a++ {
			if !(q[a] >= boxMin[a]-solutionEps && q[a] <= boxMax[a]+solutionEps) {
				return
			}
		}
		if t > best {
			best = t
		}
	}
	for a := 0; a < 3; a++ {
		check(t0[a], boxMin, a)
		check(t1[a], boxMax, a)
	}
	return best
}

// quadrantSetup describes the ray within one region of contracted space.
type quadrantSetup struct {
	origin    mgl64.Vec3 // contracted
	direction mgl64.Vec3 // contracted, unit length
	tEnter    float64    // contracted-space parameters of the region
	tExit     float64
}

// setupQuadrant linearizes the ray inside the region containing o+tP*d.
// tP and tQ must both fall inside that region. ok is false when the two
// points coincide in contracted space.
func setupQuadrant(o, d mgl64.Vec3, tP, tQ float64) (r quadrantSetup, ok bool) {
	xP := o.Add(d.Mul(tP))
	abs := absVec(xP)

	boxMin := mgl64.Vec3{-1, -1, -1}
	boxMax := mgl64.Vec3{1, 1, 1}
	if max3(abs) > 1.0 {
		a := argmax(abs)
		if xP[a] > 0 {
			boxMin[a], boxMax[a] = 1, 2
		} else {
			boxMin[a], boxMax[a] = -2, -1
		}
	}

	r.origin = Contract(xP)
	diff := Contract(o.Add(d.Mul(tQ))).Sub(r.origin)
	length := diff.Len()
	if !(length > 0) || math.IsInf(length, 0) {
		return r, false
	}
	r.direction = diff.Mul(1 / length)
	r.tEnter, r.tExit = rayAABB(boxMin, boxMax, r.origin, inverse(r.direction))
	return r, true
}
