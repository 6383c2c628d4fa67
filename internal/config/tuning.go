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

// Assignment strategies accepted by the "assignment" key.
const (
	AssignmentGreedy    = "greedy"
	AssignmentHungarian = "hungarian"
)

// TuningConfig is the root configuration for tracking, detection filtering
// and session pacing. Every field is optional; the Get* methods supply the
// built-in default for anything the JSON leaves out.
type TuningConfig struct {
	// Tracker params
	MaxDistance    *float64 `json:"max_distance,omitempty"`
	MaxDisappeared *int     `json:"max_disappeared,omitempty"`
	HistoryLength  *int     `json:"history_length,omitempty"`
	Assignment     *string  `json:"assignment,omitempty"` // "greedy" or "hungarian"

	// Detection filter params
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	AllowedClasses      []string `json:"allowed_classes,omitempty"`

	// Session params
	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "33ms"
	VideoDir      *string `json:"video_dir,omitempty"`
	Annotate      *bool   `json:"annotate,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the JSON fall back to their defaults, so partial configs are safe.
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
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/crossing/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/video/ffmpeg/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.MaxDistance != nil && *c.MaxDistance <= 0 {
		return fmt.Errorf("max_distance must be positive, got %f", *c.MaxDistance)
	}
	if c.MaxDisappeared != nil && *c.MaxDisappeared < 0 {
		return fmt.Errorf("max_disappeared must be non-negative, got %d", *c.MaxDisappeared)
	}
	if c.HistoryLength != nil && *c.HistoryLength < 1 {
		return fmt.Errorf("history_length must be at least 1, got %d", *c.HistoryLength)
	}
	if c.Assignment != nil {
		switch *c.Assignment {
		case AssignmentGreedy, AssignmentHungarian:
		default:
			return fmt.Errorf("assignment must be %q or %q, got %q", AssignmentGreedy, AssignmentHungarian, *c.Assignment)
		}
	}
	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}
	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
		if d < 0 {
			return fmt.Errorf("frame_interval must be non-negative, got %s", d)
		}
	}
	return nil
}

// GetMaxDistance returns the max_distance value or the default.
func (c *TuningConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 80
	}
	return *c.MaxDistance
}

// GetMaxDisappeared returns the max_disappeared value or the default.
func (c *TuningConfig) GetMaxDisappeared() int {
	if c.MaxDisappeared == nil {
		return 30
	}
	return *c.MaxDisappeared
}

// GetHistoryLength returns the history_length value or the default.
func (c *TuningConfig) GetHistoryLength() int {
	if c.HistoryLength == nil {
		return 20
	}
	return *c.HistoryLength
}

// GetAssignment returns the assignment strategy or the default.
func (c *TuningConfig) GetAssignment() string {
	if c.Assignment == nil || *c.Assignment == "" {
		return AssignmentGreedy
	}
	return *c.Assignment
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.5
	}
	return *c.ConfidenceThreshold
}

// GetAllowedClasses returns the allowed_classes list or the default
// vehicle classes.
func (c *TuningConfig) GetAllowedClasses() []string {
	if c.AllowedClasses == nil {
		return []string{"car", "truck", "bus"}
	}
	out := make([]string, len(c.AllowedClasses))
	copy(out, c.AllowedClasses)
	return out
}

// GetFrameInterval parses and returns the FrameInterval as a time.Duration.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return 33 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil {
		return 33 * time.Millisecond // default on parse error
	}
	return d
}

// GetVideoDir returns the directory for recorded videos or the default.
func (c *TuningConfig) GetVideoDir() string {
	if c.VideoDir == nil || *c.VideoDir == "" {
		return "videos"
	}
	return *c.VideoDir
}

// GetAnnotate returns whether overlays are drawn onto frames.
func (c *TuningConfig) GetAnnotate() bool {
	if c.Annotate == nil {
		return true
	}
	return *c.Annotate
}
