// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Coordinator.SocketPath != "/var/lib/rmake/socket" {
		t.Errorf("expected socket_path=/var/lib/rmake/socket, got %s", cfg.Coordinator.SocketPath)
	}
	if cfg.Monitor.Color != "auto" {
		t.Errorf("expected color=auto, got %s", cfg.Monitor.Color)
	}
	if cfg.Monitor.ShowBuildLogs || cfg.Monitor.StayAttached {
		t.Error("expected build logs and stay_attached off by default")
	}

	interval, err := cfg.PollInterval()
	if err != nil || interval != time.Second {
		t.Errorf("PollInterval() = %v, %v; want 1s", interval, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when TROVEWATCH_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "TROVEWATCH_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithEnvVar(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, "trovewatch.yaml", `
coordinator:
  socket_path: /test/coordinator.sock
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Coordinator.SocketPath != "/test/coordinator.sock" {
		t.Errorf("expected socket_path=/test/coordinator.sock, got %s", cfg.Coordinator.SocketPath)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, "trovewatch.yaml", `
coordinator:
  socket_path: /custom/socket.sock

monitor:
  show_build_logs: true
  show_trove_details: true
  stay_attached: true
  poll_interval: 250ms
  color: never

logging:
  level: debug
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Coordinator.SocketPath != "/custom/socket.sock" {
		t.Errorf("expected socket_path=/custom/socket.sock, got %s", cfg.Coordinator.SocketPath)
	}
	if !cfg.Monitor.ShowBuildLogs || !cfg.Monitor.ShowTroveDetails || !cfg.Monitor.StayAttached {
		t.Errorf("monitor flags not loaded: %+v", cfg.Monitor)
	}
	if cfg.Monitor.Color != "never" {
		t.Errorf("expected color=never, got %s", cfg.Monitor.Color)
	}
	if interval, _ := cfg.PollInterval(); interval != 250*time.Millisecond {
		t.Errorf("expected poll_interval=250ms, got %s", interval)
	}
	if level, _ := cfg.LogLevel(); level != slog.LevelDebug {
		t.Errorf("expected level=debug, got %s", level)
	}
}

func TestLoadFile_KeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "trovewatch.yaml", "monitor:\n  show_build_logs: true\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Coordinator.SocketPath != Default().Coordinator.SocketPath {
		t.Errorf("socket_path = %s, want the default", cfg.Coordinator.SocketPath)
	}
	if cfg.Monitor.PollInterval != "1s" {
		t.Errorf("poll_interval = %s, want the default", cfg.Monitor.PollInterval)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	configPath := writeConfig(t, "trovewatch.jsonc", `{
  // Build farm coordinator.
  "coordinator": {"socket_path": "/srv/rmake/socket"},
  "monitor": {
    "show_build_logs": true,
    "color": "always", /* force colour in CI logs */
  },
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Coordinator.SocketPath != "/srv/rmake/socket" {
		t.Errorf("expected socket_path=/srv/rmake/socket, got %s", cfg.Coordinator.SocketPath)
	}
	if !cfg.Monitor.ShowBuildLogs || cfg.Monitor.Color != "always" {
		t.Errorf("monitor section not loaded: %+v", cfg.Monitor)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "bad.yaml", "monitor: [unclosed\n")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestOpen(t *testing.T) {
	flagPath := writeConfig(t, "flag.yaml", "coordinator:\n  socket_path: /from/flag\n")
	envPath := writeConfig(t, "env.yaml", "coordinator:\n  socket_path: /from/env\n")

	t.Setenv(EnvVar, envPath)
	cfg, err := Open(flagPath)
	if err != nil || cfg.Coordinator.SocketPath != "/from/flag" {
		t.Errorf("Open(flag) = %+v, %v; want the flag file", cfg, err)
	}
	cfg, err = Open("")
	if err != nil || cfg.Coordinator.SocketPath != "/from/env" {
		t.Errorf("Open(\"\") = %+v, %v; want the env file", cfg, err)
	}

	t.Setenv(EnvVar, "")
	cfg, err = Open("")
	if err != nil || cfg.Coordinator.SocketPath != Default().Coordinator.SocketPath {
		t.Errorf("Open without a file = %+v, %v; want defaults", cfg, err)
	}
}

func TestLoadFile_ExpandsPaths(t *testing.T) {
	t.Setenv("HOME", "/home/builder")
	t.Setenv("RMAKE_ROOT", "")
	cfg, err := LoadFile(writeConfig(t, "trovewatch.yaml", `
coordinator:
  socket_path: ${RMAKE_ROOT:-/var/lib/rmake}/socket
monitor:
  endpoint_dir: ${HOME}/.cache/trovewatch
`))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Coordinator.SocketPath != "/var/lib/rmake/socket" {
		t.Errorf("socket_path = %s", cfg.Coordinator.SocketPath)
	}
	if cfg.Monitor.EndpointDir != "/home/builder/.cache/trovewatch" {
		t.Errorf("endpoint_dir = %s", cfg.Monitor.EndpointDir)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/trovewatch",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/trovewatch",
		},
		{
			input:    "${TROVEWATCH_TEST_UNSET:-/fallback}/socket",
			vars:     map[string]string{},
			expected: "/fallback/socket",
		},
		{
			input:    "${TROVEWATCH_TEST_UNSET}/socket",
			vars:     map[string]string{},
			expected: "/socket",
		},
		{
			input:    "/no/variables",
			vars:     map[string]string{},
			expected: "/no/variables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := expandVars(tt.input, tt.vars); result != tt.expected {
				t.Errorf("expandVars(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	notDir := writeConfig(t, "file", "")

	cfg := Default()
	cfg.Coordinator.SocketPath = ""
	cfg.Monitor.PollInterval = "soon"
	cfg.Monitor.Color = "sometimes"
	cfg.Monitor.EndpointDir = notDir
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"coordinator.socket_path",
		"monitor.poll_interval",
		"monitor.color",
		"monitor.endpoint_dir",
		"logging.level",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error lacks %s: %v", want, err)
		}
	}
}

func TestValidate_NonPositiveInterval(t *testing.T) {
	cfg := Default()
	cfg.Monitor.PollInterval = "0s"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero poll_interval")
	}
}
