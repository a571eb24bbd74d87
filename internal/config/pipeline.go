package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/streamnorm/norm"
)

// Default pipeline parameters, used for any field the JSON file omits.
// The window/lane defaults match the layer-norm reference configuration.
const (
	DefaultWindow  = 384
	DefaultSIMD    = 4
	DefaultEpsilon = norm.DefaultEpsilon
)

// PipelineConfig represents the JSON tuning file for a normalization
// pipeline. Fields are pointers so a partial file only overrides what
// it names; the Get* methods provide fallback defaults for the rest.
type PipelineConfig struct {
	// Window is the normalization axis length N in samples.
	Window *int `json:"window,omitempty"`

	// SIMD is the number of lanes per chunk. Must divide Window.
	SIMD *int `json:"simd,omitempty"`

	// Epsilon biases the square root in the normalization step.
	Epsilon *float64 `json:"epsilon,omitempty"`

	// ChunkDepth is the pass-through queue capacity in chunks. Omit to
	// let the pipeline size it to one full window.
	ChunkDepth *int `json:"chunk_depth,omitempty"`

	// StatDepth is the scalar statistic queue capacity.
	StatDepth *int `json:"stat_depth,omitempty"`
}

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. The file
// is validated to have a .json extension and to be under the max file
// size. Fields omitted from the JSON retain their defaults, so partial
// configs are safe.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that set fields are usable together. Divisibility of
// window by simd is checked against the effective (defaulted) values
// because the constraint holds whichever side the file overrides.
func (c *PipelineConfig) Validate() error {
	if c.Window != nil && *c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %d", *c.Window)
	}
	if c.SIMD != nil && *c.SIMD <= 0 {
		return fmt.Errorf("simd must be positive, got %d", *c.SIMD)
	}
	if c.GetWindow()%c.GetSIMD() != 0 {
		return fmt.Errorf("window %d is not a multiple of simd %d", c.GetWindow(), c.GetSIMD())
	}
	if c.Epsilon != nil && *c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", *c.Epsilon)
	}
	if c.ChunkDepth != nil && *c.ChunkDepth <= 0 {
		return fmt.Errorf("chunk_depth must be positive, got %d", *c.ChunkDepth)
	}
	if c.StatDepth != nil && *c.StatDepth <= 0 {
		return fmt.Errorf("stat_depth must be positive, got %d", *c.StatDepth)
	}
	return nil
}

// GetWindow returns the configured window length or the default.
func (c *PipelineConfig) GetWindow() int {
	if c.Window != nil {
		return *c.Window
	}
	return DefaultWindow
}

// GetSIMD returns the configured lane count or the default.
func (c *PipelineConfig) GetSIMD() int {
	if c.SIMD != nil {
		return *c.SIMD
	}
	return DefaultSIMD
}

// GetEpsilon returns the configured epsilon or the default.
func (c *PipelineConfig) GetEpsilon() float64 {
	if c.Epsilon != nil {
		return *c.Epsilon
	}
	return DefaultEpsilon
}

// Norm converts the file values into a norm.Config, leaving queue
// depths at zero when unset so the pipeline applies its own sizing.
func (c *PipelineConfig) Norm() norm.Config {
	cfg := norm.Config{
		Window:  c.GetWindow(),
		SIMD:    c.GetSIMD(),
		Epsilon: c.GetEpsilon(),
	}
	if c.ChunkDepth != nil {
		cfg.ChunkDepth = *c.ChunkDepth
	}
	if c.StatDepth != nil {
		cfg.StatDepth = *c.StatDepth
	}
	return cfg
}
