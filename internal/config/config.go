// Package config loads and validates the curation pipeline configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the full pipeline configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Parsing  ParsingConfig  `yaml:"parsing"`
	OpenEdx  OpenEdxConfig  `yaml:"open_edx_spec"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	DB       DBConfig       `yaml:"db"`
	Courses  []CourseConfig `yaml:"courses"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Mode string `yaml:"mode"` // dev or prod
}

// ParsingConfig holds CSV parsing settings.
type ParsingConfig struct {
	TimestampFormats []string `yaml:"timestamp_formats"` // Accepted layouts, tried in order
}

// OpenEdxConfig holds platform-specific settings.
type OpenEdxConfig struct {
	VideoIDSpec string `yaml:"video_id_spec"` // MITx or HKUSTx
}

// PipelineConfig holds processing settings.
type PipelineConfig struct {
	Workers          int `yaml:"workers"`           // Max courses processed concurrently
	ProgressInterval int `yaml:"progress_interval"` // Log progress every N events
}

// DBConfig holds settings for the SQLite import step.
type DBConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// CourseConfig describes one course's input files and output location.
type CourseConfig struct {
	Name                  string `yaml:"name"`
	EventFile             string `yaml:"event_file"`              // EdxTrackEvent CSV export
	AnswerFile            string `yaml:"answer_file"`             // Answer table export (optional)
	CorrectMapFile        string `yaml:"correct_map_file"`        // CorrectMap table export (optional)
	OutputDir             string `yaml:"output_dir"`              // Per-course MOOCdb CSV directory
	ResourceHierarchyFile string `yaml:"resource_hierarchy_file"` // Pretty-printed tree (optional)
	ProblemHierarchyFile  string `yaml:"problem_hierarchy_file"`  // Pretty-printed tree (optional)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Mode: "prod",
		},
		Parsing: ParsingConfig{
			TimestampFormats: []string{
				"2006-01-02T15:04:05.999999",
				"2006-01-02T15:04:05",
				"2006-01-02 15:04:05.999999",
				"2006-01-02 15:04:05",
			},
		},
		OpenEdx: OpenEdxConfig{
			VideoIDSpec: "MITx",
		},
		Pipeline: PipelineConfig{
			Workers:          1,
			ProgressInterval: 500,
		},
	}
}

// Load reads the configuration from path on top of the defaults and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if !isValidLogMode(c.Log.Mode) {
		return fmt.Errorf("log.mode must be dev or prod (got: %s)", c.Log.Mode)
	}

	if len(c.Parsing.TimestampFormats) == 0 {
		return errors.New("parsing.timestamp_formats must list at least one layout")
	}

	if !isValidVideoIDSpec(c.OpenEdx.VideoIDSpec) {
		return fmt.Errorf("open_edx_spec.video_id_spec must be MITx or HKUSTx (got: %s)", c.OpenEdx.VideoIDSpec)
	}

	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be >= 1")
	}

	if c.Pipeline.ProgressInterval < 1 {
		return errors.New("pipeline.progress_interval must be >= 1")
	}

	if len(c.Courses) == 0 {
		return errors.New("at least one course must be configured")
	}

	names := make(map[string]struct{}, len(c.Courses))
	for i, course := range c.Courses {
		if course.Name == "" {
			return fmt.Errorf("courses[%d].name must not be empty", i)
		}
		if _, dup := names[course.Name]; dup {
			return fmt.Errorf("duplicate course name: %s", course.Name)
		}
		names[course.Name] = struct{}{}

		if course.EventFile == "" {
			return fmt.Errorf("course %s: event_file must not be empty", course.Name)
		}
		if course.OutputDir == "" {
			return fmt.Errorf("course %s: output_dir must not be empty", course.Name)
		}
	}

	return nil
}

func isValidLogMode(mode string) bool {
	switch mode {
	case "dev", "prod":
		return true
	}
	return false
}

func isValidVideoIDSpec(spec string) bool {
	switch spec {
	case "MITx", "HKUSTx":
		return true
	}
	return false
}
