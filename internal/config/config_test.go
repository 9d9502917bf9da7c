package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validCourse() CourseConfig {
	return CourseConfig{
		Name:      "6.002x",
		EventFile: "/data/6.002x/events.csv",
		OutputDir: "/data/6.002x/moocdb",
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "prod", cfg.Log.Mode)
	assert.Equal(t, "MITx", cfg.OpenEdx.VideoIDSpec)
	assert.Equal(t, 1, cfg.Pipeline.Workers)
	assert.NotEmpty(t, cfg.Parsing.TimestampFormats)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log:
  mode: dev
open_edx_spec:
  video_id_spec: HKUSTx
pipeline:
  workers: 4
db:
  path: /data/moocdb.sqlite
courses:
  - name: 6.002x
    event_file: /data/6.002x/events.csv
    answer_file: /data/6.002x/answers.csv
    output_dir: /data/6.002x/moocdb
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Log.Mode)
	assert.Equal(t, "HKUSTx", cfg.OpenEdx.VideoIDSpec)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "/data/moocdb.sqlite", cfg.DB.Path)

	require.Len(t, cfg.Courses, 1)
	assert.Equal(t, "6.002x", cfg.Courses[0].Name)
	assert.Equal(t, "/data/6.002x/answers.csv", cfg.Courses[0].AnswerFile)

	// Unset sections keep their defaults.
	assert.Equal(t, 500, cfg.Pipeline.ProgressInterval)
	assert.NotEmpty(t, cfg.Parsing.TimestampFormats)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "courses: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Courses = []CourseConfig{validCourse()}
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log mode", func(c *Config) { c.Log.Mode = "verbose" }},
		{"no timestamp formats", func(c *Config) { c.Parsing.TimestampFormats = nil }},
		{"bad video id spec", func(c *Config) { c.OpenEdx.VideoIDSpec = "EPFLx" }},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }},
		{"zero progress interval", func(c *Config) { c.Pipeline.ProgressInterval = 0 }},
		{"no courses", func(c *Config) { c.Courses = nil }},
		{"unnamed course", func(c *Config) { c.Courses[0].Name = "" }},
		{"missing event file", func(c *Config) { c.Courses[0].EventFile = "" }},
		{"missing output dir", func(c *Config) { c.Courses[0].OutputDir = "" }},
		{"duplicate course names", func(c *Config) { c.Courses = append(c.Courses, validCourse()) }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
