package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// Fields are pointers so a partial JSON file only overrides what it names;
// the Get* accessors supply defaults for everything else.
type TuningConfig struct {
	// Tracker params
	SmoothingAlpha *float64 `json:"smoothing_alpha,omitempty"`
	MaxLostFrames  *int     `json:"max_lost_frames,omitempty"`

	// Putt segmentation params
	MotionThreshold    *float64 `json:"motion_threshold,omitempty"` // px/s
	StopFramesRequired *int     `json:"stop_frames_required,omitempty"`

	// Detection params
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`

	// Camera calibration
	PixelsPerMetre *float64 `json:"pixels_per_metre,omitempty"`

	// Telemetry params
	TelemetryLogInterval *string `json:"telemetry_log_interval,omitempty"` // duration string like "30s"
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a JSON file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under the max file size.
// Fields omitted from the JSON file retain their default values, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/<pkg>/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Bad tracking
// parameters would otherwise silently produce nonsensical estimates, so they
// are rejected here rather than at first use.
func (c *TuningConfig) Validate() error {
	if c.SmoothingAlpha != nil {
		if *c.SmoothingAlpha <= 0 || *c.SmoothingAlpha > 1 {
			return fmt.Errorf("smoothing_alpha must be in (0, 1], got %f", *c.SmoothingAlpha)
		}
	}
	if c.MaxLostFrames != nil && *c.MaxLostFrames < 1 {
		return fmt.Errorf("max_lost_frames must be at least 1, got %d", *c.MaxLostFrames)
	}
	if c.MotionThreshold != nil && *c.MotionThreshold <= 0 {
		return fmt.Errorf("motion_threshold must be positive, got %f", *c.MotionThreshold)
	}
	if c.StopFramesRequired != nil && *c.StopFramesRequired < 1 {
		return fmt.Errorf("stop_frames_required must be at least 1, got %d", *c.StopFramesRequired)
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.PixelsPerMetre != nil && *c.PixelsPerMetre <= 0 {
		return fmt.Errorf("pixels_per_metre must be positive, got %f", *c.PixelsPerMetre)
	}
	if c.TelemetryLogInterval != nil && *c.TelemetryLogInterval != "" {
		if _, err := time.ParseDuration(*c.TelemetryLogInterval); err != nil {
			return fmt.Errorf("invalid telemetry_log_interval '%s': %w", *c.TelemetryLogInterval, err)
		}
	}
	return nil
}

// GetSmoothingAlpha returns the EMA smoothing factor for the tracker.
func (c *TuningConfig) GetSmoothingAlpha() float64 {
	if c.SmoothingAlpha == nil {
		return 0.6
	}
	return *c.SmoothingAlpha
}

// GetMaxLostFrames returns the number of missed frames before a track is lost.
func (c *TuningConfig) GetMaxLostFrames() int {
	if c.MaxLostFrames == nil {
		return 15
	}
	return *c.MaxLostFrames
}

// GetMotionThreshold returns the speed (px/s) above which the ball counts as moving.
func (c *TuningConfig) GetMotionThreshold() float64 {
	if c.MotionThreshold == nil {
		return 5.0
	}
	return *c.MotionThreshold
}

// GetStopFramesRequired returns the consecutive below-threshold frames needed
// to declare a putt stopped.
func (c *TuningConfig) GetStopFramesRequired() int {
	if c.StopFramesRequired == nil {
		return 15
	}
	return *c.StopFramesRequired
}

// GetConfidenceThreshold returns the minimum detection confidence to keep.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.5
	}
	return *c.ConfidenceThreshold
}

// GetPixelsPerMetre returns the camera calibration factor.
func (c *TuningConfig) GetPixelsPerMetre() float64 {
	if c.PixelsPerMetre == nil {
		return 420.0
	}
	return *c.PixelsPerMetre
}

// GetTelemetryLogInterval parses and returns the telemetry drop-log interval.
func (c *TuningConfig) GetTelemetryLogInterval() time.Duration {
	if c.TelemetryLogInterval == nil || *c.TelemetryLogInterval == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(*c.TelemetryLogInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
