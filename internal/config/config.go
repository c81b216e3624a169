// Package config provides configuration loading and management for trackview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	Viewer Viewer `yaml:"viewer"`
	Plots  Plots  `yaml:"plots"`
	Jobs   Jobs   `yaml:"jobs"`

	Log struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Viewer holds the rendering parameters of a viewing session.
type Viewer struct {
	// HalfViewport is half the edge length of the square crop shown around
	// the selected particle.
	HalfViewport int `yaml:"halfViewport"`

	// DefaultContrast is the initial saturation threshold for fluorescence channels
	DefaultContrast int `yaml:"defaultContrast"`

	// BrightfieldThreshold is the fixed saturation threshold used for channel 0
	BrightfieldThreshold int `yaml:"brightfieldThreshold"`

	// JPEGQuality is the encoder quality of the rendered frame (1-100)
	JPEGQuality int `yaml:"jpegQuality"`
}

// Viewport returns the full edge length of the crop.
func (v Viewer) Viewport() int {
	return 2 * v.HalfViewport
}

// Plots holds the color coding and raster size of the time-series plots.
type Plots struct {
	ColorDefault    string  `yaml:"colorDefault"`
	ColorSelected   string  `yaml:"colorSelected"`
	ColorDisabled   string  `yaml:"colorDisabled"`
	OpacityDefault  float64 `yaml:"opacityDefault"`
	OpacitySelected float64 `yaml:"opacitySelected"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
}

// Jobs configures the background job queue.
type Jobs struct {
	// Workers is the number of jobs that may run at the same time
	Workers int `yaml:"workers"`

	// Commands maps a job kind (segmentation, tracking, square_roi, export)
	// to the argv prefix of the external program that performs it.
	Commands map[string][]string `yaml:"commands"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Viewer.HalfViewport = 400
	cfg.Viewer.DefaultContrast = 10000
	cfg.Viewer.BrightfieldThreshold = 40000
	cfg.Viewer.JPEGQuality = 90

	cfg.Plots.ColorDefault = "#808080"
	cfg.Plots.ColorSelected = "#FF0000"
	cfg.Plots.ColorDisabled = "#FF8C00"
	cfg.Plots.OpacityDefault = 0.5
	cfg.Plots.OpacitySelected = 1
	cfg.Plots.Width = 640
	cfg.Plots.Height = 300

	cfg.Jobs.Workers = max(1, runtime.NumCPU()/2)
	cfg.Jobs.Commands = map[string][]string{}

	cfg.Log.Level = "info"

	return cfg
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if c.Viewer.HalfViewport <= 0 {
		return fmt.Errorf("viewer.halfViewport must be positive, got %d", c.Viewer.HalfViewport)
	}
	if c.Viewer.DefaultContrast < 0 || c.Viewer.DefaultContrast > 65535 {
		return fmt.Errorf("viewer.defaultContrast out of range: %d", c.Viewer.DefaultContrast)
	}
	if c.Viewer.BrightfieldThreshold <= 0 || c.Viewer.BrightfieldThreshold > 65535 {
		return fmt.Errorf("viewer.brightfieldThreshold out of range: %d", c.Viewer.BrightfieldThreshold)
	}
	if c.Viewer.JPEGQuality < 1 || c.Viewer.JPEGQuality > 100 {
		return fmt.Errorf("viewer.jpegQuality out of range: %d", c.Viewer.JPEGQuality)
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be positive, got %d", c.Jobs.Workers)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
