package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name       string
		pitch, yaw float64
		want       mgl64.Vec3
	}{
		{"front", 0, 0, mgl64.Vec3{0, 0, 2}},
		{"side", 0, math.Pi / 2, mgl64.Vec3{2, 0, 0}},
		{"above", math.Pi / 2, 0, mgl64.Vec3{0, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOrbitCamera()
			c.Distance, c.Pitch, c.Yaw = 2, tt.pitch, tt.yaw
			if got := c.Position(); !got.ApproxEqualThreshold(tt.want, 1e-9) {
				t.Errorf("Position = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCenterRayHitsCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = mgl64.Vec3{0.5, -0.25, 0}
	c.Yaw = 0.7
	r := c.Rays(101, 51)
	want := c.Center.Sub(c.Position()).Normalize()
	if got := r.Direction(50, 25); !got.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("center ray %v, want %v", got, want)
	}
	if !r.Origin.ApproxEqualThreshold(c.Position(), 1e-12) {
		t.Errorf("origin %v, want %v", r.Origin, c.Position())
	}
}

func TestRayOrientation(t *testing.T) {
	c := NewOrbitCamera()
	c.Pitch = 0
	r := c.Rays(64, 64)
	// Looking down -z: image right is +x, image top is +y.
	if d := r.Direction(63, 32); d[0] <= 0 {
		t.Errorf("right edge ray %v should point to +x", d)
	}
	if d := r.Direction(32, 0); d[1] <= 0 {
		t.Errorf("top row ray %v should point to +y", d)
	}
	top, bottom := r.Direction(32, 0), r.Direction(32, 63)
	half := math.Acos(top.Dot(bottom)) / 2
	if want := mgl64.DegToRad(c.FovY) / 2; math.Abs(half-want) > 0.02 {
		t.Errorf("half vertical fov %g, want about %g", half, want)
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	if c.Pitch != c.MaxPitch {
		t.Errorf("pitch %g, want %g", c.Pitch, c.MaxPitch)
	}
	c.HandleDrag(100, -1e6)
	if c.Pitch != c.MinPitch {
		t.Errorf("pitch %g, want %g", c.Pitch, c.MinPitch)
	}
	if c.Yaw != -100*c.DragSensitivity {
		t.Errorf("yaw %g", c.Yaw)
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleZoom(1000)
	if c.Distance != c.MinDistance {
		t.Errorf("distance %g, want %g", c.Distance, c.MinDistance)
	}
	c.HandleZoom(-1e9)
	if c.Distance != c.MaxDistance {
		t.Errorf("distance %g, want %g", c.Distance, c.MaxDistance)
	}
}

func TestHandleMovement(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleMovement(1, 0, 0)
	if c.Center[2] >= 0 || c.Center[0] != 0 {
		t.Errorf("forward moved center to %v", c.Center)
	}
	c.HandleMovement(0, 0, 1)
	if c.Center[1] <= 0 {
		t.Errorf("up moved center to %v", c.Center)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{3, 1, 1})
	if !c.Center.ApproxEqualThreshold(mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Errorf("center %v", c.Center)
	}
	radius := math.Sqrt(24) / 2
	if c.Distance <= radius {
		t.Errorf("distance %g does not clear the bounding sphere %g", c.Distance, radius)
	}
}
