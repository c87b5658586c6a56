// Package renderer draws a baked scene with the generated GPU kernel.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
	"github.com/Faultbox/merfbake/internal/engine/shader"
	"github.com/Faultbox/merfbake/internal/engine/texture"
	"github.com/Faultbox/merfbake/internal/logger"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/internal/shadergen"
)

// Renderer owns the GPU resources of one scene.
type Renderer struct {
	program  *shader.Program
	textures *texture.Set
	uniforms map[string][]float64

	quadVAO uint32
	quadVBO uint32
}

// Init loads OpenGL function pointers and logs the driver. It must be
// called once after a context is current.
func Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return nil
}

// New uploads the scene and builds its kernel.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(s *scene.Scene, k *shadergen.Kernel) (*Renderer, error) {
	r := &Renderer{uniforms: s.Uniforms()}

	var err error
	r.program, err = shader.Build(k)
	if err != nil {
		return nil, fmt.Errorf("building kernel: %w", err)
	}
	r.textures, err = texture.Upload(s)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("uploading scene: %w", err)
	}

	r.program.Use()
	r.program.BindSamplers()
	if err := r.program.SetUniforms(r.uniforms); err != nil {
		r.Close()
		return nil, err
	}
	r.createQuad()

	gl.Disable(gl.DEPTH_TEST)
	logger.Debug("renderer ready",
		zap.String("scene", s.Name),
		zap.Uint32("program", r.program.ID),
		zap.Int("textures", r.textures.Len()),
	)
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	if r.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &r.quadVAO)
	}
	if r.quadVBO != 0 {
		gl.DeleteBuffers(1, &r.quadVBO)
	}
	if r.textures != nil {
		r.textures.Destroy()
	}
	if r.program != nil {
		r.program.Delete()
	}
}

// View holds the per-frame kernel inputs.
type View struct {
	Camera         *camera.OrbitCamera
	Width, Height  int
	DisplayMode    raymarch.DisplayMode
	StepMultiplier int
}

// FrameUniforms returns the camera-dependent slot values of a view.
func FrameUniforms(v View) map[string][]float64 {
	inv := v.Camera.InvViewProj(float64(v.Width) / float64(v.Height))
	pos := v.Camera.Position()
	step := v.StepMultiplier
	if step < 1 {
		step = 1
	}
	return map[string][]float64{
		shadergen.SlotInvViewProj:    inv[:],
		shadergen.SlotCameraPosition: {pos[0], pos[1], pos[2]},
		shadergen.SlotNear:           {v.Camera.Near},
		shadergen.SlotDisplayMode:    {float64(v.DisplayMode)},
		shadergen.SlotStepMult:       {float64(step)},
	}
}

// Draw renders the view into the current framebuffer.
func (r *Renderer) Draw(v View) error {
	gl.Viewport(0, 0, int32(v.Width), int32(v.Height))
	gl.ClearColor(1, 1, 1, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	r.program.Use()
	if err := r.program.SetUniforms(FrameUniforms(v)); err != nil {
		return err
	}
	r.textures.Bind()
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	return nil
}

// createQuad creates the full-screen triangle strip read by the vertex
// kernel's position attribute.
func (r *Renderer) createQuad() {
	vertices := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}

	gl.GenVertexArrays(1, &r.quadVAO)
	gl.BindVertexArray(r.quadVAO)

	gl.GenBuffers(1, &r.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	// Position attribute (location = 0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, nil)
	gl.EnableVertexAttribArray(0)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}
