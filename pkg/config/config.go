// Package config provides configuration loading and management for sliceview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"sliceview/pkg/orientation"
	"sliceview/pkg/render"
)

// ErrInvalid is wrapped by every validation error
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores cut slice stacks in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Render parameters
	Render struct {
		// Width and Height of each rendered canvas in pixels
		Width  int `yaml:"width"`
		Height int `yaml:"height"`

		// Orientations to render: sagittal, coronal, axial (or x, y, z)
		Orientations []string `yaml:"orientations"`

		// MinColor and MaxColor are the ends of the gray ramp as hex colors
		MinColor string `yaml:"minColor"`
		MaxColor string `yaml:"maxColor"`

		// LabelOpacity of the label overlay, 0-1
		LabelOpacity float64 `yaml:"labelOpacity"`

		// Navigators draws the crosshair and readout at the probe point
		Navigators bool `yaml:"navigators"`
	} `yaml:"render"`

	// Volume parameters for the generated phantom
	Volume struct {
		// Dimensions of the phantom in voxels along X, Y and Z
		Dimensions [3]int `yaml:"dimensions"`

		// Spacing in mm along X, Y and Z
		Spacing [3]float64 `yaml:"spacing"`

		// LowerThreshold and UpperThreshold as fractions of the scalar range
		LowerThreshold float64 `yaml:"lowerThreshold"`
		UpperThreshold float64 `yaml:"upperThreshold"`

		// WindowQuantiles picks the initial window from the scalar
		// distribution; [0, 1] is the full range
		WindowQuantiles [2]float64 `yaml:"windowQuantiles"`
	} `yaml:"volume"`

	// Overlay parameters for measurement markers
	Overlay struct {
		// Enabled draws markers along the phantom's shell
		Enabled bool `yaml:"enabled"`

		// GradientStart and GradientEnd are hex colors of the marker palette
		GradientStart string `yaml:"gradientStart"`
		GradientEnd   string `yaml:"gradientEnd"`

		// Steps is the number of palette entries
		Steps int `yaml:"steps"`

		// Radius of a marker in slice pixels
		Radius int `yaml:"radius"`

		// ValueScale converts marker values into palette positions
		ValueScale float64 `yaml:"valueScale"`
	} `yaml:"overlay"`

	// Output parameters
	Output struct {
		// Dir is where rendered frames are written
		Dir string `yaml:"dir"`

		// Format of the frames: jpg or png
		Format string `yaml:"format"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Render.Width = 512
	cfg.Render.Height = 512
	cfg.Render.Orientations = []string{"sagittal", "coronal", "axial"}
	cfg.Render.MinColor = "#000000"
	cfg.Render.MaxColor = "#ffffff"
	cfg.Render.LabelOpacity = 0.5
	cfg.Render.Navigators = true

	cfg.Volume.Dimensions = [3]int{64, 64, 48}
	cfg.Volume.Spacing = [3]float64{1, 1, 1.5}
	cfg.Volume.LowerThreshold = 0
	cfg.Volume.UpperThreshold = 1
	cfg.Volume.WindowQuantiles = [2]float64{0, 1}

	cfg.Overlay.Enabled = true
	cfg.Overlay.GradientStart = "#0000ff"
	cfg.Overlay.GradientEnd = "#ff0000"
	cfg.Overlay.Steps = 11
	cfg.Overlay.Radius = 1
	cfg.Overlay.ValueScale = 10

	cfg.Output.Dir = "frames"
	cfg.Output.Format = "png"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks the configuration for values the renderer cannot use
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("%w: numCores must be at least 1, got %d", ErrInvalid, c.Processing.NumCores)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalid, c.Render.Width, c.Render.Height)
	}
	if _, err := c.Orientations(); err != nil {
		return err
	}
	for _, hex := range []string{c.Render.MinColor, c.Render.MaxColor} {
		if _, err := render.ParseHexColor(hex); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if c.Render.LabelOpacity < 0 || c.Render.LabelOpacity > 1 {
		return fmt.Errorf("%w: labelOpacity %g outside [0, 1]", ErrInvalid, c.Render.LabelOpacity)
	}

	for a, n := range c.Volume.Dimensions {
		if n <= 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrInvalid, a, n)
		}
		if c.Volume.Spacing[a] <= 0 {
			return fmt.Errorf("%w: spacing %d is %g", ErrInvalid, a, c.Volume.Spacing[a])
		}
	}
	lo, hi := c.Volume.LowerThreshold, c.Volume.UpperThreshold
	if lo < 0 || hi > 1 || lo > hi {
		return fmt.Errorf("%w: thresholds [%g, %g]", ErrInvalid, lo, hi)
	}
	q := c.Volume.WindowQuantiles
	if q[0] < 0 || q[1] > 1 || q[0] >= q[1] {
		return fmt.Errorf("%w: window quantiles %v", ErrInvalid, q)
	}

	if c.Overlay.Enabled {
		for _, hex := range []string{c.Overlay.GradientStart, c.Overlay.GradientEnd} {
			if _, err := render.ParseHexColor(hex); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalid, err)
			}
		}
		if c.Overlay.Steps < 1 || c.Overlay.Radius < 0 {
			return fmt.Errorf("%w: overlay steps %d radius %d", ErrInvalid, c.Overlay.Steps, c.Overlay.Radius)
		}
	}

	switch c.Output.Format {
	case "jpg", "png":
	default:
		return fmt.Errorf("%w: output format %q (must be jpg or png)", ErrInvalid, c.Output.Format)
	}
	return nil
}

// Orientations parses the configured orientation names
func (c *Config) Orientations() ([]orientation.Orientation, error) {
	if len(c.Render.Orientations) == 0 {
		return nil, fmt.Errorf("%w: no orientations", ErrInvalid)
	}
	out := make([]orientation.Orientation, 0, len(c.Render.Orientations))
	for _, name := range c.Render.Orientations {
		o, err := orientation.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
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
		return nil, fmt.Errorf("error in config file %s: %w", configPath, err)
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

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
