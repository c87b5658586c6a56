package texture

import (
	"errors"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/merfbake/internal/shadergen"
	"github.com/Faultbox/merfbake/pkg/merf"
)

func TestVolumeLayout(t *testing.T) {
	tests := []struct {
		channels int
		want     Layout
	}{
		{1, Layout{gl.R8, gl.RED}},
		{2, Layout{gl.RG8, gl.RG}},
		{3, Layout{gl.RGB8, gl.RGB}},
		{4, Layout{gl.RGBA8, gl.RGBA}},
	}
	for _, tt := range tests {
		got, err := VolumeLayout(tt.channels)
		if err != nil || got != tt.want {
			t.Errorf("VolumeLayout(%d) = %v, %v; want %v", tt.channels, got, err, tt.want)
		}
	}
	if _, err := VolumeLayout(5); !errors.Is(err, merf.ErrPrecondition) {
		t.Errorf("VolumeLayout(5) err = %v", err)
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		slot string
		want int32
	}{
		{shadergen.SlotSparseGridIndex, gl.NEAREST},
		{shadergen.SlotOccupancyGrid(0), gl.NEAREST},
		{shadergen.SlotOccupancyGrid(4), gl.NEAREST},
		{shadergen.SlotSparseGridDensity, gl.LINEAR},
		{shadergen.SlotPlaneRgb, gl.LINEAR},
	}
	for _, tt := range tests {
		if got := Filter(tt.slot); got != tt.want {
			t.Errorf("Filter(%s) = %d, want %d", tt.slot, got, tt.want)
		}
	}
}

func TestTarget(t *testing.T) {
	for _, s := range shadergen.Slots {
		target, err := Target(s.Kind)
		if s.Kind.IsSampler() != (err == nil) {
			t.Errorf("Target(%s) err = %v", s.Name, err)
			continue
		}
		if err != nil {
			continue
		}
		want := map[shadergen.SlotKind]uint32{
			shadergen.KindSampler3D:      gl.TEXTURE_3D,
			shadergen.KindSampler2DArray: gl.TEXTURE_2D_ARRAY,
			shadergen.KindSampler2D:      gl.TEXTURE_2D,
		}[s.Kind]
		if target != want {
			t.Errorf("Target(%s) = %#x, want %#x", s.Name, target, want)
		}
	}
}
