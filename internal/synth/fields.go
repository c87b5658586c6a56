package synth

import "github.com/go-gl/mathgl/mgl64"

// Sphere is a field holding a colored ball of the given radius.
func Sphere(center mgl64.Vec3, radius float64, rgb mgl64.Vec3) Field {
	return func(x mgl64.Vec3) Sample {
		if x.Sub(center).Len() > radius {
			return Empty
		}
		return Sample{Density: 10, RGB: rgb}
	}
}

// Box is a field holding an axis-aligned colored box.
func Box(lo, hi mgl64.Vec3, rgb mgl64.Vec3) Field {
	return func(x mgl64.Vec3) Sample {
		for a := 0; a < 3; a++ {
			if x[a] < lo[a] || x[a] > hi[a] {
				return Empty
			}
		}
		return Sample{Density: 10, RGB: rgb}
	}
}

// Union returns the densest sample of the given fields at each point.
func Union(fields ...Field) Field {
	return func(x mgl64.Vec3) Sample {
		best := Empty
		for _, f := range fields {
			if s := f(x); s.Density > best.Density {
				best = s
			}
		}
		return best
	}
}
