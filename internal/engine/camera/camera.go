// Package camera provides the orbit camera shared by the viewer and the
// offline renderer.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center mgl64.Vec3

	// Spherical coordinates
	Distance float64 // Distance from center
	Pitch    float64 // Vertical angle, radians
	Yaw      float64 // Horizontal angle, radians

	// Projection
	FovY      float64 // Vertical field of view, degrees
	Near, Far float64

	// Constraints
	MinDistance float64
	MaxDistance float64
	MinPitch    float64
	MaxPitch    float64

	// Sensitivity
	DragSensitivity float64
	ZoomSensitivity float64
}

// NewOrbitCamera creates a new orbit camera framing the unit cube.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        3.0,
		Pitch:           0.3,
		FovY:            50,
		Near:            0.01,
		Far:             100,
		MinDistance:     0.1,
		MaxDistance:     50.0,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() mgl64.Vec3 {
	x := c.Distance * math.Cos(c.Pitch) * math.Sin(c.Yaw)
	y := c.Distance * math.Sin(c.Pitch)
	z := c.Distance * math.Cos(c.Pitch) * math.Cos(c.Yaw)
	return c.Center.Add(mgl64.Vec3{x, y, z})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position(), c.Center, mgl64.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective projection for the aspect ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// InvViewProj returns the inverse view-projection matrix the kernel uses
// to unproject screen positions into ray directions.
func (c *OrbitCamera) InvViewProj(aspect float64) mgl64.Mat4 {
	return c.ProjectionMatrix(aspect).Mul4(c.ViewMatrix()).Inv()
}

// Rays generates pinhole rays for a width x height image. Ray generation
// mirrors the vertex kernel: directions join the unprojected near and far
// points of each pixel center.
type Rays struct {
	Origin        mgl64.Vec3
	invViewProj   mgl64.Mat4
	width, height int
}

// Rays prepares ray generation for an image of the given size.
func (c *OrbitCamera) Rays(width, height int) *Rays {
	return &Rays{
		Origin:      c.Position(),
		invViewProj: c.InvViewProj(float64(width) / float64(height)),
		width:       width,
		height:      height,
	}
}

// Direction returns the unit direction through pixel (px, py); row 0 is
// the top of the image.
func (r *Rays) Direction(px, py int) mgl64.Vec3 {
	ndcX := 2*(float64(px)+0.5)/float64(r.width) - 1
	ndcY := 1 - 2*(float64(py)+0.5)/float64(r.height)
	far := r.invViewProj.Mul4x1(mgl64.Vec4{ndcX, ndcY, 1, 1})
	near := r.invViewProj.Mul4x1(mgl64.Vec4{ndcX, ndcY, -1, 1})
	d := far.Vec3().Mul(1 / far[3]).Sub(near.Vec3().Mul(1 / near[3]))
	return d.Normalize()
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float64) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.Pitch = mgl64.Clamp(c.Pitch, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float64) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = mgl64.Clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the camera center point based on keyboard input.
func (c *OrbitCamera) HandleMovement(forward, right, up float64) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	dirX, dirZ := math.Sin(c.Yaw), math.Cos(c.Yaw)
	rightX, rightZ := math.Cos(c.Yaw), -math.Sin(c.Yaw)

	// Negate forward so W moves "into" the scene
	c.Center[0] += (-dirX*forward + rightX*right) * speed
	c.Center[2] += (-dirZ*forward + rightZ*right) * speed
	c.Center[1] += up * speed
}

// FitToBounds centers the camera on the box and backs off until the whole
// box fits the vertical field of view.
func (c *OrbitCamera) FitToBounds(lo, hi mgl64.Vec3) {
	c.Center = lo.Add(hi).Mul(0.5)
	radius := hi.Sub(lo).Len() / 2
	c.Distance = radius / math.Sin(mgl64.DegToRad(c.FovY)/2)
	c.Distance = mgl64.Clamp(c.Distance, c.MinDistance, c.MaxDistance)
}
