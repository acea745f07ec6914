// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "TROVEWATCH_CONFIG"

// Config is the trovewatch configuration.
type Config struct {
	// Coordinator configures how the coordinator is reached.
	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// Monitor configures job sessions.
	Monitor MonitorConfig `yaml:"monitor"`

	// Logging configures diagnostic output on stderr.
	Logging LoggingConfig `yaml:"logging"`
}

// CoordinatorConfig configures the coordinator connection.
type CoordinatorConfig struct {
	// SocketPath is the coordinator's unix socket.
	// Default: /var/lib/rmake/socket
	SocketPath string `yaml:"socket_path"`
}

// MonitorConfig holds session defaults. Command-line flags override
// each of them.
type MonitorConfig struct {
	// ShowBuildLogs tails the build log of troves while they build.
	ShowBuildLogs bool `yaml:"show_build_logs"`

	// ShowTroveDetails subscribes to trove-level log events.
	ShowTroveDetails bool `yaml:"show_trove_details"`

	// StayAttached keeps watching after the job finishes, until the
	// coordinator closes the stream.
	StayAttached bool `yaml:"stay_attached"`

	// PollInterval is the build-log poll throttle.
	// Default: 1s
	PollInterval string `yaml:"poll_interval"`

	// Color is auto, always, or never.
	// Default: auto
	Color string `yaml:"color"`

	// EndpointDir holds the temporary event sockets. Empty means the
	// system temporary directory.
	EndpointDir string `yaml:"endpoint_dir"`
}

// LoggingConfig configures the command logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`
}

var colorModes = []string{"auto", "always", "never"}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			SocketPath: "/var/lib/rmake/socket",
		},
		Monitor: MonitorConfig{
			PollInterval: "1s",
			Color:        "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Open loads path when it is set, otherwise the file named by
// TROVEWATCH_CONFIG, otherwise returns Default.
func Open(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(EnvVar) != "" {
		return Load()
	}
	return Default(), nil
}

// Load loads configuration from the file named by TROVEWATCH_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your trovewatch.yaml config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from path on top of Default. The only
// expansion performed is ${HOME} and similar variables in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	// JSON is a subset of YAML, so once comments and trailing commas
	// are stripped the YAML decoder reads it with the same tags.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Coordinator.SocketPath = expandVars(c.Coordinator.SocketPath, vars)
	c.Monitor.EndpointDir = expandVars(c.Monitor.EndpointDir, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// PollInterval returns monitor.poll_interval as a duration.
func (c *Config) PollInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(c.Monitor.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("monitor.poll_interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("monitor.poll_interval must be positive, got %s", interval)
	}
	return interval, nil
}

// LogLevel returns logging.level as an slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Coordinator.SocketPath == "" {
		errs = append(errs, fmt.Errorf("coordinator.socket_path is required"))
	}

	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(colorModes, c.Monitor.Color) {
		errs = append(errs, fmt.Errorf("monitor.color must be one of: %v", colorModes))
	}

	if c.Monitor.EndpointDir != "" {
		info, err := os.Stat(c.Monitor.EndpointDir)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("monitor.endpoint_dir: %w", err))
		case !info.IsDir():
			errs = append(errs, fmt.Errorf("monitor.endpoint_dir %s is not a directory", c.Monitor.EndpointDir))
		}
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
