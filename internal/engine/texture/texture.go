// Package texture uploads scene buffers to OpenGL textures bound to the
// kernel's sampler slots.
package texture

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/merfbake/internal/logger"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/internal/shadergen"
	"github.com/Faultbox/merfbake/pkg/merf"
)

// Texture is one uploaded buffer.
type Texture struct {
	ID     uint32
	Target uint32
	Unit   int
	Slot   string
}

// Set holds every texture of a scene.
type Set struct {
	textures []*Texture
}

// Layout describes how a volume maps onto GL enums.
type Layout struct {
	Internal int32
	Format   uint32
}

// VolumeLayout returns the GL layout of an 8-bit volume with the given
// channel count.
func VolumeLayout(channels int) (Layout, error) {
	switch channels {
	case 1:
		return Layout{gl.R8, gl.RED}, nil
	case 2:
		return Layout{gl.RG8, gl.RG}, nil
	case 3:
		return Layout{gl.RGB8, gl.RGB}, nil
	case 4:
		return Layout{gl.RGBA8, gl.RGBA}, nil
	default:
		return Layout{}, fmt.Errorf("%w: %d channels", merf.ErrPrecondition, channels)
	}
}

// Filter returns the sampling filter of a slot. Occupancy grids and the
// atlas index are looked up by block and must not blend neighbors.
func Filter(slot string) int32 {
	if slot == shadergen.SlotSparseGridIndex {
		return gl.NEAREST
	}
	for i := 0; i < merf.OccupancyLevelCount; i++ {
		if slot == shadergen.SlotOccupancyGrid(i) {
			return gl.NEAREST
		}
	}
	return gl.LINEAR
}

// Target returns the texture target of a sampler slot kind.
func Target(kind shadergen.SlotKind) (uint32, error) {
	switch kind {
	case shadergen.KindSampler3D:
		return gl.TEXTURE_3D, nil
	case shadergen.KindSampler2DArray:
		return gl.TEXTURE_2D_ARRAY, nil
	case shadergen.KindSampler2D:
		return gl.TEXTURE_2D, nil
	default:
		return 0, fmt.Errorf("%w: slot kind %s is not a sampler", merf.ErrPrecondition, kind.GLSL())
	}
}

// Upload creates a texture for every volume and weight buffer of the
// scene. A GL context must be current.
func Upload(s *scene.Scene) (*Set, error) {
	set := &Set{}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)

	for slot, v := range s.Volumes() {
		tex, err := newTexture(slot)
		if err != nil {
			set.Destroy()
			return nil, err
		}
		layout, err := VolumeLayout(v.Channels)
		if err != nil {
			set.Destroy()
			return nil, fmt.Errorf("%s: %w", slot, err)
		}
		gl.TexImage3D(tex.Target, 0, layout.Internal, int32(v.Width), int32(v.Height), int32(v.Depth),
			0, layout.Format, gl.UNSIGNED_BYTE, gl.Ptr(v.Data))
		set.textures = append(set.textures, tex)
	}

	for slot, l := range s.WeightBuffers() {
		tex, err := newTexture(slot)
		if err != nil {
			set.Destroy()
			return nil, err
		}
		gl.TexImage2D(tex.Target, 0, gl.RGBA32F, int32(l.PaddedOut()), int32(l.PaddedIn()/4),
			0, gl.RGBA, gl.FLOAT, gl.Ptr(l.Packed))
		set.textures = append(set.textures, tex)
	}

	logger.Debug("textures uploaded", zap.String("scene", s.Name), zap.Int("count", len(set.textures)))
	return set, nil
}

func newTexture(slot string) (*Texture, error) {
	info, ok := shadergen.LookupSlot(slot)
	if !ok {
		return nil, fmt.Errorf("%w: unknown slot %q", merf.ErrPrecondition, slot)
	}
	target, err := Target(info.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slot, err)
	}
	tex := &Texture{Target: target, Unit: shadergen.TextureUnit(slot), Slot: slot}
	filter := Filter(slot)
	if target == gl.TEXTURE_2D {
		// Weights are fetched texel by texel.
		filter = gl.NEAREST
	}

	gl.GenTextures(1, &tex.ID)
	gl.BindTexture(target, tex.ID)
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	if target != gl.TEXTURE_2D {
		gl.TexParameteri(target, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	}
	return tex, nil
}

// Bind binds every texture to its unit.
func (s *Set) Bind() {
	for _, t := range s.textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(t.Unit))
		gl.BindTexture(t.Target, t.ID)
	}
}

// Len returns the number of textures.
func (s *Set) Len() int { return len(s.textures) }

// Destroy releases all textures.
func (s *Set) Destroy() {
	for _, t := range s.textures {
		gl.DeleteTextures(1, &t.ID)
	}
	s.textures = nil
}
