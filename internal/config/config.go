// Package config loads the YAML configuration file that overrides the
// core's zero-config defaults: metrics port, transcript root, database
// path, loop-detector tuning, and PTY window geometry.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/loopdetect"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Transcript   TranscriptConfig   `yaml:"transcript"`
	Database     DatabaseConfig     `yaml:"database"`
	LoopDetector LoopDetectorConfig `yaml:"loop_detector"`
	PTY          PTYConfig          `yaml:"pty"`
	Privacy      PrivacyConfig      `yaml:"privacy"`
}

type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// TranscriptConfig overrides the transcript root directory. An empty
// RootOverride falls back to trying ~/.config/claude/projects then
// ~/.claude/projects, matching transcript.LocateRoot.
type TranscriptConfig struct {
	RootOverride string `yaml:"root_override"`
}

// DatabaseConfig overrides the SQLite database location. An empty Path
// falls back to ~/.open-sonar/sessions.db, matching store.DefaultPath.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoopDetectorConfig struct {
	WindowSize      int `yaml:"window_size"`
	RepeatThreshold int `yaml:"repeat_threshold"`
	MinChunkLength  int `yaml:"min_chunk_length"`
}

// PTYConfig sizes the pty "sonar shell" opens when the local terminal's
// size cannot be read. "sonar agent" always uses 40x120.
type PTYConfig struct {
	DefaultRows int `yaml:"default_rows"`
	DefaultCols int `yaml:"default_cols"`
}

// PrivacyConfig controls whether agent ids are masked before an event
// payload is broadcast over /ws. MaskAgentIDs defaults to false (no masking),
// matching the teacher's own opt-in PrivacyFilter.
type PrivacyConfig struct {
	MaskAgentIDs bool `yaml:"mask_agent_ids"`
}

// Limits converts the loop detector section into loopdetect.Limits.
func (c LoopDetectorConfig) Limits() loopdetect.Limits {
	return loopdetect.Limits{
		WindowSize:      c.WindowSize,
		RepeatThreshold: c.RepeatThreshold,
		MinChunkLength:  c.MinChunkLength,
	}
}

// Filter converts the privacy section into an events.PrivacyFilter.
func (c PrivacyConfig) Filter() events.PrivacyFilter {
	return events.PrivacyFilter{MaskAgentIDs: c.MaskAgentIDs}
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{MetricsPort: 9090},
		LoopDetector: LoopDetectorConfig{
			WindowSize:      10,
			RepeatThreshold: 3,
			MinChunkLength:  50,
		},
		PTY: PTYConfig{
			DefaultRows: 40,
			DefaultCols: 120,
		},
	}
}

// Load reads and parses the YAML file at path, starting from the reference
// defaults so an omitted section keeps its zero-config behavior.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the reference defaults
// if the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

func defaultConfigDir() string {
	if value := os.Getenv("XDG_CONFIG_HOME"); value != "" {
		return value
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// DefaultConfigPath returns ~/.config/open-sonar/config.yaml (or
// $XDG_CONFIG_HOME/open-sonar/config.yaml).
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "open-sonar", "config.yaml")
}
