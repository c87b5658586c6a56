package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/merfbake/internal/engine/raymarch"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no renderer can honor.
func (c *Config) Validate() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size %dx%d must be positive", c.Render.Width, c.Render.Height)
	}
	if c.Render.StepMultiplier < 1 {
		return fmt.Errorf("render.step_multiplier %d must be at least 1", c.Render.StepMultiplier)
	}
	if c.Render.FovY <= 0 || c.Render.FovY >= 180 {
		return fmt.Errorf("render.fov_y %g must lie in (0, 180)", c.Render.FovY)
	}
	if _, err := raymarch.ParseDisplayMode(c.Render.DisplayMode); err != nil {
		return fmt.Errorf("render.display_mode: %w", err)
	}
	return nil
}

// KernelOptions maps the render settings onto ray march options.
func (c *Config) KernelOptions() raymarch.Options {
	mode, _ := raymarch.ParseDisplayMode(c.Render.DisplayMode)
	return raymarch.Options{
		StepMultiplier:          c.Render.StepMultiplier,
		LargerStepsWhenOccluded: c.Render.LargerSteps,
		DisplayMode:             mode,
	}
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./" + FileName,
		DefaultPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "merfbake")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "merfbake")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "merfbake")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "merfbake")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
