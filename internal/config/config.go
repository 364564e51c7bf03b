package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/satyaki-up/sprintboard/internal/tracker"
)

const FileName = ".sprintboard.yaml"

type Config struct {
	Path      string          `yaml:"-"`
	DBPath    string          `yaml:"db"`
	Project   string          `yaml:"project"`
	User      UserConfig      `yaml:"user"`
	Log       LogConfig       `yaml:"log"`
	Engine    EngineConfig    `yaml:"engine"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UserConfig names the comment author for this workspace.
type UserConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type EngineConfig struct {
	ReopenEpics       bool `yaml:"reopen_epics"`
	StrictTransitions bool `yaml:"strict_transitions"`
}

type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
	Stdout  bool `yaml:"stdout"`
}

// Default is the configuration used when no file is discovered.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Discover walks up from startDir looking for FileName. It returns nil when
// no file exists between startDir and the filesystem root.
func Discover(startDir string) (*Config, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			cfg, err := parseFile(candidate)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Load discovers the config file from startDir, falls back to Default, and
// applies SB_* environment overrides.
func Load(startDir string) (*Config, error) {
	cfg, err := Discover(startDir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	cfg.Path = path

	if cfg.DBPath != "" && !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Clean(filepath.Join(filepath.Dir(path), cfg.DBPath))
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("SB_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv("SB_PROJECT"); v != "" {
		c.Project = v
	}
	if v := getenv("SB_USER_ID"); v != "" {
		c.User.ID = v
	}
	if v := getenv("SB_USER_NAME"); v != "" {
		c.User.Name = v
	}
	if v := getenv("SB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("SB_OTEL_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SB_OTEL_ENABLED: %w", err)
		}
		c.Telemetry.Enabled = enabled
	}
	return c.validate()
}

func (c *Config) validate() error {
	c.Project = strings.ToUpper(strings.TrimSpace(c.Project))
	if c.Project != "" && !tracker.IsValidProjectKey(c.Project) {
		return fmt.Errorf("project must be 2-10 uppercase alphanumeric chars starting with a letter")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
