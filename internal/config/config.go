// Package config handles merfbake configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Render  RenderConfig  `yaml:"render"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig holds scene acquisition settings.
type ImportConfig struct {
	CacheDir          string `yaml:"cache_dir"`          // Local copies of fetched files; empty disables
	BaseURL           string `yaml:"base_url"`           // Remote scene root; empty reads local directories only
	ValidateOccupancy bool   `yaml:"validate_occupancy"` // Check occupancy grids are conservative
}

// RenderConfig holds offline rendering settings.
type RenderConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	StepMultiplier int     `yaml:"step_multiplier"`
	LargerSteps    bool    `yaml:"larger_steps"`
	DisplayMode    string  `yaml:"display_mode"`
	Workers        int     `yaml:"workers"` // 0 uses GOMAXPROCS
	FovY           float64 `yaml:"fov_y"`   // Degrees
}

// ViewerConfig holds interactive window settings.
type ViewerConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			CacheDir: "",
			BaseURL:  "",
		},
		Render: RenderConfig{
			Width:          640,
			Height:         480,
			StepMultiplier: 1,
			LargerSteps:    true,
			DisplayMode:    "normal",
			Workers:        0,
			FovY:           50,
		},
		Viewer: ViewerConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
