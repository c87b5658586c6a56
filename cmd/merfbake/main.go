// merfbake is a CLI utility for importing, baking and rendering MERF scenes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/Faultbox/merfbake/internal/config"
	"github.com/Faultbox/merfbake/internal/logger"
)

// Command flags. Shared settings (size, display mode, import source,
// logging) come from the config package.
var (
	flagOut      = flag.String("o", "", "Output file or directory")
	flagCompact  = flag.Bool("compact", false, "Bake the output layer as constants")
	flagYaw      = flag.Float64("yaw", 0, "Camera yaw in degrees")
	flagPitch    = flag.Float64("pitch", 20, "Camera pitch in degrees")
	flagDistance = flag.Float64("distance", 0, "Camera distance (0 fits the scene)")
	flagGrid     = flag.Int("grid", 64, "Synthetic grid resolution")
	flagBlock    = flag.Int("block", 8, "Synthetic macroblock size")
	flagShape    = flag.String("shape", "spheres", "Synthetic field: sphere, box or spheres")
	flagPlanes   = flag.Bool("planes", false, "Add triplanes to the synthetic scene")
	flagForce    = flag.Bool("force", false, "Replace an existing config file")
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	if err := config.ParseArgs(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := config.Args()
	switch command {
	case "info":
		err = cmdInfo(ctx, cfg, args)
	case "bake":
		err = cmdBake(ctx, cfg, args)
	case "render":
		err = cmdRender(ctx, cfg, args)
	case "synth":
		err = cmdSynth(args)
	case "config":
		err = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`merfbake - MERF scene baking utility

Usage:
  merfbake <command> [options] <args>

Commands:
  info <scene>                 Show scene parameters and buffer sizes
  bake [-compact] -o <dir> <scene>
                               Write render-ready buffers and the GPU kernel
  render [-o out.png] [-yaw d] [-pitch d] [-distance d] <scene>
                               Render a frame on the CPU
  synth [-grid n] [-block n] [-shape s] [-planes] -o <dir>
                               Write a synthetic exported scene
  config show                  Print the effective configuration
  config init [-force] [-o path]
                               Save the effective configuration

A scene is an exported scene directory, a baked bundle directory, or with
-base-url a scene name resolved against <base-url>/<name>.json.

Common options:
  -config, -debug, -base-url, -cache-dir, -validate, -mode, -width, -height

Examples:
  merfbake synth -o ./spheres
  merfbake info ./spheres
  merfbake bake -o ./spheres.bundle ./spheres
  merfbake render -mode diffuse -o frame.png ./spheres.bundle
  merfbake config init -width 1920 -height 1080`)
}
