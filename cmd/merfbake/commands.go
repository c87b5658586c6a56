package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/merfbake/internal/config"
	"github.com/Faultbox/merfbake/internal/engine/camera"
	"github.com/Faultbox/merfbake/internal/engine/raymarch"
	"github.com/Faultbox/merfbake/internal/importer"
	"github.com/Faultbox/merfbake/internal/logger"
	"github.com/Faultbox/merfbake/internal/render"
	"github.com/Faultbox/merfbake/internal/scene"
	"github.com/Faultbox/merfbake/internal/shadergen"
	"github.com/Faultbox/merfbake/internal/synth"
)

var errUsage = errors.New("missing arguments, see merfbake help")

func cmdInfo(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	s, k, err := importer.Open(ctx, cfg.Import, args[0])
	if err != nil {
		return err
	}
	p := s.Params
	st := s.Stats()

	fmt.Printf("Scene:      %s\n", s.Name)
	fmt.Printf("Min:        %v\n", p.MinPosition())
	if p.UsesSparseGrid() {
		b := p.BlockGridSize()
		fmt.Printf("Grid:       %dx%dx%d voxels of %g, blocks of %d (%dx%dx%d)\n",
			p.GridWidth, p.GridHeight, p.GridDepth, p.VoxelSize, p.BlockSize, b[0], b[1], b[2])
		fmt.Printf("Atlas:      %dx%dx%d in %d slices of depth %d\n",
			p.AtlasWidth, p.AtlasHeight, p.AtlasDepth, p.NumSlices, p.SliceDepth)
	} else {
		fmt.Println("Grid:       none")
	}
	if p.UsesTriplane() {
		fmt.Printf("Triplanes:  %dx%d texels of %g\n", p.PlaneWidth0, p.PlaneHeight0, p.VoxelSizeTriplane)
	} else {
		fmt.Println("Triplanes:  none")
	}
	if s.Occupancy != nil {
		fmt.Println("Occupancy:")
		for i := range s.Occupancy {
			g := &s.Occupancy[i]
			fmt.Printf("  %-4d %dx%dx%d voxel %g\n", g.BlockSize, g.Width, g.Height, g.Depth, g.VoxelSize)
		}
	}
	fmt.Print("Network:    ")
	for i, l := range s.Network.Layers {
		if i > 0 {
			fmt.Print(" -> ")
		}
		fmt.Printf("%dx%d", l.PaddedIn(), l.PaddedOut())
	}
	fmt.Println()
	fmt.Printf("Buffers:    %d volumes, %.2f MB texels, %.2f KB weights\n",
		st.Volumes, float64(st.VolumeBytes)/(1024*1024), float64(st.WeightBytes)/1024)
	fmt.Printf("Occupied:   %d finest blocks\n", st.OccupiedFine)
	fmt.Printf("Kernel:     %v\n", k != nil)
	return nil
}

func cmdBake(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || *flagOut == "" {
		return errUsage
	}
	s, _, err := importer.Open(ctx, cfg.Import, args[0])
	if err != nil {
		return err
	}
	opts := shadergen.DefaultOptions(s.Params)
	opts.LargerStepsWhenOccluded = cfg.Render.LargerSteps
	opts.CompactOutputLayer = *flagCompact
	k, err := shadergen.Generate(s.Params, s.Network, opts)
	if err != nil {
		return err
	}
	m, err := scene.WriteBundle(*flagOut, s, k)
	if err != nil {
		return err
	}
	logger.Info("bundle written", zap.String("dir", *flagOut), zap.Int("buffers", len(m.Buffers)))
	fmt.Printf("Baked %s into %s (%d buffers)\n", s.Name, *flagOut, len(m.Buffers))
	return nil
}

func cmdRender(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	s, _, err := importer.Open(ctx, cfg.Import, args[0])
	if err != nil {
		return err
	}

	cam := camera.NewOrbitCamera()
	cam.FovY = cfg.Render.FovY
	cam.Yaw = mgl64.DegToRad(*flagYaw)
	cam.Pitch = mgl64.DegToRad(*flagPitch)
	if *flagDistance > 0 {
		cam.Distance = *flagDistance
	} else {
		cam.FitToBounds(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	}

	opts := cfg.KernelOptions()
	opts.Near = cam.Near
	k := raymarch.New(s, opts)

	img, err := render.Frame(ctx, k, cam, render.Options{
		Width:   cfg.Render.Width,
		Height:  cfg.Render.Height,
		Workers: cfg.Render.Workers,
	})
	if err != nil {
		return err
	}
	st := img.Stats
	logger.Info("frame rendered",
		zap.String("scene", s.Name),
		zap.Stringer("mode", opts.DisplayMode),
		zap.Int("hits", st.Hits),
		zap.Float64("mean_steps", st.MeanSteps()),
		zap.Duration("elapsed", st.Elapsed))

	out := *flagOut
	if out == "" {
		out = s.Name + ".png"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := img.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Rendered %dx%d to %s in %v (%d/%d rays hit, %.1f steps/ray)\n",
		img.Width, img.Height, out, st.Elapsed.Round(1e6), st.Hits, st.Rays, st.MeanSteps())
	return nil
}

func cmdSynth(args []string) error {
	out := *flagOut
	if out == "" && len(args) > 0 {
		out = args[0]
	}
	if out == "" {
		return errUsage
	}

	cfg := synth.DefaultConfig()
	cfg.GridSize = *flagGrid
	cfg.BlockSize = *flagBlock
	field, err := shape(*flagShape)
	if err != nil {
		return err
	}
	if *flagPlanes {
		cfg.Planes = groundPlane
	}
	src, err := synth.Generate(cfg, field)
	if err != nil {
		return err
	}
	if err := src.WriteDir(out); err != nil {
		return err
	}
	fmt.Printf("Wrote %d images to %s\n", len(src.Images), out)
	return nil
}

func shape(name string) (synth.Field, error) {
	switch strings.ToLower(name) {
	case "sphere":
		return synth.Sphere(mgl64.Vec3{}, 0.6, mgl64.Vec3{2, -1, -1}), nil
	case "box":
		return synth.Box(mgl64.Vec3{-0.5, -0.5, -0.5}, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{-1, 2, -1}), nil
	case "spheres":
		return synth.Union(
			synth.Sphere(mgl64.Vec3{-0.45, 0, 0}, 0.35, mgl64.Vec3{3, -2, -2}),
			synth.Sphere(mgl64.Vec3{0.45, 0, 0}, 0.35, mgl64.Vec3{-2, -2, 3}),
			synth.Box(mgl64.Vec3{-0.2, 0.3, -0.2}, mgl64.Vec3{0.2, 0.7, 0.2}, mgl64.Vec3{-2, 3, -2}),
		), nil
	default:
		return nil, fmt.Errorf("unknown shape %q", name)
	}
}

// groundPlane darkens the xz plane below the objects.
func groundPlane(p int, u, v float64) synth.Sample {
	if p != 1 || math.Abs(u) > 1 || math.Abs(v) > 1 {
		return synth.Sample{Density: -5}
	}
	return synth.Sample{Density: -5, RGB: mgl64.Vec3{-1, -1, -1}}
}

// cmdConfig prints or saves the configuration after file and flag overrides.
func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	switch args[0] {
	case "show":
		data, err := cfg.Encode()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "init":
		path := *flagOut
		if path == "" {
			path = config.DefaultPath()
		}
		if err := cfg.SaveTo(path, *flagForce); err != nil {
			return err
		}
		logger.Info("config saved", zap.String("path", path))
		fmt.Printf("Wrote %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown config action %q", args[0])
	}
}
