package render_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
	"github.com/Faultbox/merfbake/internal/importer"
	"github.com/Faultbox/merfbake/internal/render"
	"github.com/Faultbox/merfbake/internal/synth"
)

func redBoxKernel(t *testing.T) *raymarch.Kernel {
	t.Helper()
	cfg := synth.DefaultConfig()
	cfg.GridSize = 32
	cfg.BlockSize = 4
	box := synth.Box(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{7, -7, -7})
	src, err := synth.Generate(cfg, box)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s, err := importer.Build(context.Background(), "box", src.Params, src.Images, importer.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return raymarch.New(s, raymarch.Options{})
}

func frontCamera() *camera.OrbitCamera {
	c := camera.NewOrbitCamera()
	c.Pitch, c.Yaw, c.Distance = 0, 0, 3
	return c
}

func TestFrame(t *testing.T) {
	k := redBoxKernel(t)
	img, err := render.Frame(context.Background(), k, frontCamera(), render.Options{Width: 33, Height: 17, Workers: 3})
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if len(img.Pix) != 33*17*3 {
		t.Fatalf("%d bytes", len(img.Pix))
	}

	center := img.At(16, 8)
	if center[0] < 0.9 || center[1] > 0.05 || center[2] > 0.05 {
		t.Errorf("center pixel %v, want red", center)
	}
	if corner := img.At(0, 0); corner != [3]float64{1, 1, 1} {
		t.Errorf("corner pixel %v, want white background", corner)
	}

	st := img.Stats
	if st.Rays != 33*17 {
		t.Errorf("rays = %d", st.Rays)
	}
	if st.Hits == 0 || st.Hits == st.Rays {
		t.Errorf("hits = %d of %d", st.Hits, st.Rays)
	}
	total := 0
	for _, n := range st.Terminations {
		total += n
	}
	if total != st.Rays {
		t.Errorf("terminations sum to %d, want %d", total, st.Rays)
	}
	if st.MeanSteps() <= 0 || st.MeanSteps() > float64(k.MaxSteps()) {
		t.Errorf("mean steps %g", st.MeanSteps())
	}
}

// Frames must not depend on how rows are scheduled.
func TestFrameDeterministic(t *testing.T) {
	k := redBoxKernel(t)
	cam := frontCamera()
	cam.Yaw = 0.4
	a, err := render.Frame(context.Background(), k, cam, render.Options{Width: 24, Height: 24, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := render.Frame(context.Background(), k, cam, render.Options{Width: 24, Height: 24, Workers: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("frames differ between 1 and 8 workers")
	}
}

func TestFrameCancelled(t *testing.T) {
	k := redBoxKernel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := render.Frame(ctx, k, frontCamera(), render.Options{Width: 16, Height: 16})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWritePNG(t *testing.T) {
	img := &render.Image{Width: 2, Height: 1, Pix: []byte{255, 0, 0, 0, 0, 255}}
	var buf bytes.Buffer
	if err := img.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := decoded.At(1, 0).RGBA()
	if r != 0 || g != 0 || b != 0xffff {
		t.Errorf("pixel (1,0) = %d %d %d, want blue", r, g, b)
	}
}
