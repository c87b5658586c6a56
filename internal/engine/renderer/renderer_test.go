package renderer

import (
	"testing"

	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
	"github.com/Faultbox/merfbake/internal/engine/shader"
	"github.com/Faultbox/merfbake/internal/shadergen"
)

func TestFrameUniforms(t *testing.T) {
	cam := camera.NewOrbitCamera()
	u := FrameUniforms(View{Camera: cam, Width: 640, Height: 480, DisplayMode: raymarch.DisplayFeatures})

	for name, v := range u {
		slot, ok := shadergen.LookupSlot(name)
		if !ok {
			t.Errorf("no slot %s", name)
			continue
		}
		if err := shader.CheckArity(slot, len(v)); err != nil {
			t.Error(err)
		}
	}
	if got := u[shadergen.SlotDisplayMode][0]; got != float64(raymarch.DisplayFeatures) {
		t.Errorf("display mode = %g", got)
	}
	if got := u[shadergen.SlotStepMult][0]; got != 1 {
		t.Errorf("step multiplier = %g, want 1", got)
	}
	pos := cam.Position()
	if got := u[shadergen.SlotCameraPosition]; got[0] != pos[0] || got[1] != pos[1] || got[2] != pos[2] {
		t.Errorf("camera position = %v, want %v", got, pos)
	}
}
