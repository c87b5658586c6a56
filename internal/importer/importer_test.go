package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/merfbake/internal/assets"
	"github.com/Faultbox/merfbake/internal/imagecodec"
	"github.com/Faultbox/merfbake/internal/synth"
	"github.com/Faultbox/merfbake/pkg/merf"
)

func writeScene(t *testing.T) (string, *synth.Source) {
	t.Helper()
	cfg := synth.DefaultConfig()
	cfg.GridSize = 32
	cfg.BlockSize = 4
	src, err := synth.Generate(cfg, synth.Sphere(mgl64.Vec3{0.2, 0, -0.1}, 0.6, mgl64.Vec3{-3, 4, 1}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	dir := t.TempDir()
	if err := src.WriteDir(dir); err != nil {
		t.Fatalf("WriteDir: %v", err)
	}
	return dir, src
}

func importDir(dir string, opts Options) (*Importer, *assets.Manager) {
	m := assets.NewManager("")
	m.AddSource(assets.DirSource{Root: dir})
	return New(m, opts), m
}

func TestImportMatchesBuild(t *testing.T) {
	dir, src := writeScene(t)
	im, _ := importDir(dir, Options{ValidateOccupancy: true})
	got, err := im.Import(context.Background(), "sphere")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want, err := Build(context.Background(), "sphere", src.Params, src.Images, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	gotVols, wantVols := got.Volumes(), want.Volumes()
	if len(gotVols) != len(wantVols) {
		t.Fatalf("%d volumes, want %d", len(gotVols), len(wantVols))
	}
	for slot, w := range wantVols {
		g := gotVols[slot]
		if g == nil || g.Size() != w.Size() || !bytes.Equal(g.Data, w.Data) {
			t.Errorf("volume %s differs after the disk round trip", slot)
		}
	}
	if got.Atlas == nil || got.Atlas.Index == nil || got.Triplanes != nil {
		t.Error("unexpected representation set")
	}
	for i := range got.Network.Layers {
		if len(got.Network.Layers[i].Packed) != len(want.Network.Layers[i].Packed) {
			t.Errorf("layer %d packed size differs", i)
		}
	}
}

func TestImportAllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, dir string)
		wantErr error
	}{
		{
			name: "missing slice",
			mutate: func(t *testing.T, dir string) {
				if err := os.Remove(filepath.Join(dir, "feature_000.png")); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: assets.ErrNotFound,
		},
		{
			name: "corrupt image",
			mutate: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, "atlas_indices.png"), []byte("junk"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: merf.ErrDecode,
		},
		{
			name: "wrong mask size",
			mutate: func(t *testing.T, dir string) {
				writePNG(t, filepath.Join(dir, "occupancy_grid_16.png"), merf.NewRawImage(3, 9))
			},
			wantErr: merf.ErrPrecondition,
		},
		{
			name: "broken params",
			mutate: func(t *testing.T, dir string) {
				if err := os.WriteFile(filepath.Join(dir, merf.ParamsFile), []byte("{"), 0644); err != nil {
					t.Fatal(err)
				}
			},
			wantErr: merf.ErrDecode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, _ := writeScene(t)
			tt.mutate(t, dir)
			im, _ := importDir(dir, Options{})
			s, err := im.Import(context.Background(), "sphere")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if s != nil {
				t.Error("scene returned on failure")
			}
		})
	}
}

func TestValidateOccupancy(t *testing.T) {
	dir, src := writeScene(t)
	// An empty coarse level under an occupied fine level breaks the hierarchy.
	res := merf.OccupancyResolution(src.Params.GridWidth, 32)
	writePNG(t, filepath.Join(dir, "occupancy_grid_32.png"), merf.NewRawImage(res, res*res))

	im, _ := importDir(dir, Options{ValidateOccupancy: true})
	if _, err := im.Import(context.Background(), "sphere"); !errors.Is(err, merf.ErrNotConservative) {
		t.Errorf("err = %v, want ErrNotConservative", err)
	}

	im, _ = importDir(dir, Options{})
	if _, err := im.Import(context.Background(), "sphere"); err != nil {
		t.Errorf("unvalidated import failed: %v", err)
	}
}

func TestImageFile(t *testing.T) {
	p := &merf.SceneParameters{}
	if got := ImageFile(p, "rgba_000"); got != "rgba_000.png" {
		t.Errorf("default format: %s", got)
	}
	p.Format = "webp"
	if got := ImageFile(p, "rgba_000"); got != "rgba_000.webp" {
		t.Errorf("webp format: %s", got)
	}
}

func writePNG(t *testing.T, path string, img *merf.RawImage) {
	t.Helper()
	var buf bytes.Buffer
	if err := imagecodec.EncodePNG(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}
