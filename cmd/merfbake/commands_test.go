package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/merfbake/internal/config"
)

func TestShape(t *testing.T) {
	for _, name := range []string{"sphere", "Box", "spheres"} {
		if _, err := shape(name); err != nil {
			t.Errorf("shape(%q): %v", name, err)
		}
	}
	if _, err := shape("torus"); err == nil {
		t.Error("shape(torus) should fail")
	}
}

func TestSynthBakeRender(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	bundle := filepath.Join(dir, "bundle")
	png := filepath.Join(dir, "frame.png")

	cfg := config.Default()
	cfg.Import.CacheDir = filepath.Join(dir, "cache")
	cfg.Render.Width, cfg.Render.Height = 32, 24
	ctx := context.Background()

	*flagGrid, *flagBlock, *flagShape, *flagPlanes = 16, 4, "sphere", false
	*flagOut = src
	if err := cmdSynth(nil); err != nil {
		t.Fatalf("synth: %v", err)
	}
	if err := cmdInfo(ctx, cfg, []string{src}); err != nil {
		t.Fatalf("info: %v", err)
	}

	*flagOut = bundle
	if err := cmdBake(ctx, cfg, []string{src}); err != nil {
		t.Fatalf("bake: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bundle, "bundle.yaml")); err != nil {
		t.Fatalf("bundle manifest: %v", err)
	}

	*flagOut = png
	if err := cmdRender(ctx, cfg, []string{bundle}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if fi, err := os.Stat(png); err != nil || fi.Size() == 0 {
		t.Fatalf("frame not written: %v", err)
	}
}

func TestMissingArguments(t *testing.T) {
	cfg := config.Default()
	*flagOut = ""
	if err := cmdBake(context.Background(), cfg, []string{"x"}); err != errUsage {
		t.Errorf("bake without -o = %v, want errUsage", err)
	}
	if err := cmdInfo(context.Background(), cfg, nil); err != errUsage {
		t.Errorf("info without scene = %v, want errUsage", err)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "merfbake", config.FileName)
	cfg := config.Default()
	cfg.Render.DisplayMode = "features"

	*flagOut, *flagForce = path, false
	defer func() { *flagOut, *flagForce = "", false }()
	if err := cmdConfig(cfg, []string{"init"}); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "display_mode: features"; !strings.Contains(string(data), want) {
		t.Errorf("saved config lacks %q:\n%s", want, data)
	}

	if err := cmdConfig(cfg, []string{"init"}); !errors.Is(err, config.ErrExists) {
		t.Errorf("second init = %v, want ErrExists", err)
	}
	*flagForce = true
	if err := cmdConfig(cfg, []string{"init"}); err != nil {
		t.Errorf("forced init: %v", err)
	}

	if err := cmdConfig(cfg, []string{"show"}); err != nil {
		t.Errorf("config show: %v", err)
	}
	if err := cmdConfig(cfg, []string{"edit"}); err == nil {
		t.Error("expected unknown action to fail")
	}
}
