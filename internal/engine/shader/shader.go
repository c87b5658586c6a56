// Package shader builds the generated ray march kernel into an OpenGL
// program and binds kernel slots to it.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/merfbake/internal/shadergen"
)

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns the program ID or an error if compilation/linking fails.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", gl.GoStr(&log[0]))
	}
	return program, nil
}

// compileShader compiles a single shader of the given type.
func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, gl.GoStr(&log[0]))
	}
	return shader, nil
}

// Program is a linked kernel with cached uniform locations. Slots the
// compiler optimized away resolve to -1 and are skipped.
type Program struct {
	ID        uint32
	locations map[string]int32
}

// Build compiles and links a generated kernel.
func Build(k *shadergen.Kernel) (*Program, error) {
	id, err := CompileProgram(k.Vertex, k.Fragment)
	if err != nil {
		return nil, err
	}
	p := &Program{ID: id, locations: make(map[string]int32, len(shadergen.Slots))}
	for _, s := range shadergen.Slots {
		p.locations[s.Name] = gl.GetUniformLocation(id, gl.Str(s.Name+"\x00"))
	}
	return p, nil
}

// Use makes the program current.
func (p *Program) Use() { gl.UseProgram(p.ID) }

// Location returns the cached location of a slot, or -1.
func (p *Program) Location(slot string) int32 {
	if loc, ok := p.locations[slot]; ok {
		return loc
	}
	return -1
}

// BindSamplers points every sampler slot at its texture unit.
func (p *Program) BindSamplers() {
	for _, s := range shadergen.Slots {
		if !s.Kind.IsSampler() {
			continue
		}
		if loc := p.Location(s.Name); loc >= 0 {
			gl.Uniform1i(loc, int32(shadergen.TextureUnit(s.Name)))
		}
	}
}

// SetUniforms uploads slot values; matrices are column-major. The program
// must be current.
func (p *Program) SetUniforms(values map[string][]float64) error {
	for name, v := range values {
		slot, ok := shadergen.LookupSlot(name)
		if !ok {
			return fmt.Errorf("unknown slot %q", name)
		}
		if err := CheckArity(slot, len(v)); err != nil {
			return err
		}
		loc := p.Location(name)
		if loc < 0 {
			continue
		}
		f := ToFloat32(v)
		switch slot.Kind {
		case shadergen.KindFloat:
			gl.Uniform1f(loc, f[0])
		case shadergen.KindInt:
			gl.Uniform1i(loc, int32(v[0]))
		case shadergen.KindVec2:
			gl.Uniform2fv(loc, 1, &f[0])
		case shadergen.KindVec3:
			gl.Uniform3fv(loc, 1, &f[0])
		case shadergen.KindVec4Array:
			gl.Uniform4fv(loc, int32(len(f)/4), &f[0])
		case shadergen.KindMat3:
			gl.UniformMatrix3fv(loc, 1, false, &f[0])
		case shadergen.KindMat4:
			gl.UniformMatrix4fv(loc, 1, false, &f[0])
		}
	}
	return nil
}

// CheckArity reports whether n floats fit a slot.
func CheckArity(slot shadergen.Slot, n int) error {
	want := map[shadergen.SlotKind]int{
		shadergen.KindFloat: 1,
		shadergen.KindInt:   1,
		shadergen.KindVec2:  2,
		shadergen.KindVec3:  3,
		shadergen.KindMat3:  9,
		shadergen.KindMat4:  16,
	}
	switch {
	case slot.Kind.IsSampler():
		return fmt.Errorf("slot %s is a sampler", slot.Name)
	case slot.Kind == shadergen.KindVec4Array:
		if n == 0 || n%4 != 0 {
			return fmt.Errorf("slot %s takes whole vec4s, got %d floats", slot.Name, n)
		}
	case want[slot.Kind] != n:
		return fmt.Errorf("slot %s takes %d floats, got %d", slot.Name, want[slot.Kind], n)
	}
	return nil
}

// ToFloat32 narrows values for upload.
func ToFloat32(v []float64) []float32 {
	f := make([]float32, len(v))
	for i, x := range v {
		f[i] = float32(x)
	}
	return f
}

// Delete releases the program.
func (p *Program) Delete() {
	if p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}
