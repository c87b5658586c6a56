package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Contract maps world space into the cube [-2,2]^3. Points inside the
// unit cube are unchanged; outside it the dominant axis is folded into
// (1,2] and the other axes are divided by the dominant magnitude.
func Contract(x mgl64.Vec3) mgl64.Vec3 {
	abs := absVec(x)
	xMax := max3(abs)
	if xMax <= 1.0 {
		return x
	}
	scale := 1.0 / xMax
	z := x.Mul(scale)
	a := argmax(abs)
	z[a] *= 2.0 - scale
	return z
}

// InverseContract is the inverse of Contract on [-2,2]^3.
func InverseContract(z mgl64.Vec3) mgl64.Vec3 {
	abs := absVec(z)
	zMax := max3(abs)
	if zMax <= 1.0 {
		return z
	}
	const eps = 1e-6
	scale := 1.0 / math.Max(eps, 2.0-zMax)
	x := z.Mul(scale)
	a := argmax(abs)
	x[a] = sign(x[a]) * scale
	return x
}

// rayAABB returns the entry and exit parameters of the ray o + t*d against
// the box, given invD = 1/d. Undefined slab terms (0 * Inf) are ignored so
// axis-parallel rays resolve against the remaining slabs.
func rayAABB(boxMin, boxMax, o, invD mgl64.Vec3) (tNear, tFar float64) {
	tNear, tFar = math.Inf(-1), math.Inf(1)
	for a := 0; a < 3; a++ {
		t1 := (boxMin[a] - o[a]) * invD[a]
		t2 := (boxMax[a] - o[a]) * invD[a]
		lo, hi := minNum(t1, t2), maxNum(t1, t2)
		tNear = maxNum(tNear, lo)
		tFar = minNum(tFar, hi)
	}
	return tNear, tFar
}

func minNum(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	case a < b:
		return a
	default:
		return b
	}
}

func maxNum(a, b float64) float64 {
	switch {
	case math.IsNaN(a):
		return b
	case math.IsNaN(b):
		return a
	case a > b:
		return a
	default:
		return b
	}
}

func absVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

func max3(v mgl64.Vec3) float64 {
	return math.Max(math.Max(v[0], v[1]), v[2])
}

// argmax returns the dominant axis, preferring x over y over z on ties.
func argmax(abs mgl64.Vec3) int {
	switch {
	case abs[0] >= abs[1] && abs[0] >= abs[2]:
		return 0
	case abs[1] >= abs[0] && abs[1] >= abs[2]:
		return 1
	default:
		return 2
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func inverse(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{1 / v[0], 1 / v[1], 1 / v[2]}
}

func floorVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Floor(v[0]), math.Floor(v[1]), math.Floor(v[2])}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
