package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagBaseURL    = flag.String("base-url", "", "Remote scene root URL")
	flagCacheDir   = flag.String("cache-dir", "", "Directory caching fetched scene files")
	flagValidate   = flag.Bool("validate", false, "Validate occupancy grids on import")
	flagMode       = flag.String("mode", "", "Display mode (normal, diffuse, features, view_dependent, coarse_grid)")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Output width")
	flagHeight     = flag.Int("height", 0, "Output height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ParseArgs parses flags from args, for tools that take a subcommand
// before their flags.
func ParseArgs(args []string) error {
	return flag.CommandLine.Parse(args)
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config. Size flags apply
// to both the offline renderer and the viewer.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBaseURL != "" {
		cfg.Import.BaseURL = *flagBaseURL
	}
	if *flagCacheDir != "" {
		cfg.Import.CacheDir = *flagCacheDir
	}
	if *flagValidate {
		cfg.Import.ValidateOccupancy = true
	}
	if *flagMode != "" {
		cfg.Render.DisplayMode = *flagMode
	}
	if *flagWindowed {
		cfg.Viewer.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Viewer.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Render.Width = *flagWidth
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Render.Height = *flagHeight
		cfg.Viewer.Height = *flagHeight
	}
}
