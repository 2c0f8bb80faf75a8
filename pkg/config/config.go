// Package config provides configuration loading and management for dropletsizer.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "dropletsizer/internal/errors"
)

// FrameRange is an inclusive range of frame indices
type FrameRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Len returns the number of indices in the range
func (r FrameRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// SourceDirectory holds one grayscale image per frame
	SourceDirectory string `yaml:"source_directory"`

	// FilePattern is a fmt pattern turning a frame index into a file name
	FilePattern string `yaml:"file_pattern"`

	// FrameRange selects the frames to process, both ends inclusive
	FrameRange FrameRange `yaml:"frame_range"`

	// MinRegionPixels discards regions whose area is not strictly greater than this
	MinRegionPixels int `yaml:"min_region_pixels"`

	// ScaleBarPixelLength is the length of the scale bar measured in pixels
	ScaleBarPixelLength float64 `yaml:"scale_bar_pixel_length"`

	// ScaleBarPhysicalLength is the length the scale bar represents in nanometers
	ScaleBarPhysicalLength float64 `yaml:"scale_bar_physical_length"`

	// InvertIntensity flips intensities before thresholding
	InvertIntensity bool `yaml:"invert_intensity"`

	// BinWidth is the histogram bin width in nanometers
	BinWidth float64 `yaml:"bin_width"`

	OutputTablePath  string `yaml:"output_table_path"`
	DistributionPath string `yaml:"distribution_path"`
	HeatmapPath      string `yaml:"heatmap_path"`

	// MaskDirectory, when set, receives the foreground mask of every frame
	MaskDirectory string `yaml:"mask_directory"`

	// NumWorkers bounds how many frames are measured concurrently, 1 keeps the
	// run strictly sequential
	NumWorkers int `yaml:"num_workers"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		SourceDirectory:        ".",
		FilePattern:            "frame_%04d.TIF",
		FrameRange:             FrameRange{Start: 0, End: 0},
		MinRegionPixels:        1,
		ScaleBarPixelLength:    440,
		ScaleBarPhysicalLength: 1000,
		InvertIntensity:        true,
		BinWidth:               50,
		OutputTablePath:        "droplet_diameters_by_frame.csv",
		NumWorkers:             1,
		LogLevel:               "info",
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case c.FrameRange.End < c.FrameRange.Start:
		return apperrors.NewInvalidConfigError(fmt.Sprintf("frame_range end %d is before start %d", c.FrameRange.End, c.FrameRange.Start))
	case c.MinRegionPixels < 0:
		return apperrors.NewInvalidConfigError(fmt.Sprintf("min_region_pixels must be >= 0, got %d", c.MinRegionPixels))
	case c.ScaleBarPixelLength <= 0:
		return apperrors.NewInvalidConfigError(fmt.Sprintf("scale_bar_pixel_length must be > 0, got %g", c.ScaleBarPixelLength))
	case c.ScaleBarPhysicalLength <= 0:
		return apperrors.NewInvalidConfigError(fmt.Sprintf("scale_bar_physical_length must be > 0, got %g", c.ScaleBarPhysicalLength))
	case c.BinWidth <= 0:
		return apperrors.NewInvalidConfigError(fmt.Sprintf("bin_width must be > 0, got %g", c.BinWidth))
	case c.NumWorkers < 1:
		return apperrors.NewInvalidConfigError(fmt.Sprintf("num_workers must be >= 1, got %d", c.NumWorkers))
	case strings.Count(c.FilePattern, "%") != 1 || !strings.Contains(c.FilePattern, "d"):
		return apperrors.NewInvalidConfigError(fmt.Sprintf("file_pattern %q must contain exactly one integer verb", c.FilePattern))
	case c.OutputTablePath == "":
		return apperrors.NewInvalidConfigError("output_table_path must not be empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

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
	return SaveConfig(DefaultConfig(), configPath)
}
