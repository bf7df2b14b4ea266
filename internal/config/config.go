// Package config loads the collector's YAML configuration file. Command-line
// flag overrides are applied on top of it by cmd/collector.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Decode    DecodeConfig    `yaml:"decode"`
	Logging   LoggingConfig   `yaml:"logging"`
	Publish   PublishConfig   `yaml:"publish"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Diag      DiagConfig      `yaml:"diag"`
}

// ListenConfig controls the UDP ingest socket.
type ListenConfig struct {
	Addr       string `yaml:"addr"`
	BufferSize int    `yaml:"buffer_size"`
}

// DecodeConfig selects which datagram handlers are wired into the dispatch
// chain. Handlers are tried in v5-before-v9 order regardless of which of
// these are enabled, so disabling one never changes the other's precedence.
type DecodeConfig struct {
	NetflowV5 bool `yaml:"netflow_v5"`
	NetflowV9 bool `yaml:"netflow_v9"`
}

// LoggingConfig controls the diagnostic logging sink.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	ConsoleOutput bool   `yaml:"console_output"`
}

// PublishConfig controls which output publishers are active.
type PublishConfig struct {
	Print     bool   `yaml:"print"`
	JSONFile  string `yaml:"json_file"`
	CSVFile   string `yaml:"csv_file"`
	CSVHeader bool   `yaml:"csv_header"`
	Dashboard bool   `yaml:"dashboard"`
}

// DashboardConfig controls the live TUI publisher.
type DashboardConfig struct {
	RingSize   int  `yaml:"ring_size"`
	ResolveDNS bool `yaml:"resolve_dns"`
}

// DiagConfig controls the diagnostics HTTP surface.
type DiagConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a Config with the collector's built-in defaults, used when
// no config file is given and as the base that a loaded file is merged onto.
func Default() Config {
	return Config{
		Listen: ListenConfig{
			Addr:       ":2055",
			BufferSize: 1024 * 1024,
		},
		Decode: DecodeConfig{
			NetflowV5: true,
			NetflowV9: true,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			ConsoleOutput: true,
		},
		Publish: PublishConfig{
			Print:     true,
			CSVHeader: true,
		},
		Dashboard: DashboardConfig{
			RingSize:   10000,
			ResolveDNS: true,
		},
		Diag: DiagConfig{
			Enabled: false,
			Addr:    ":8080",
		},
	}
}

// Load reads and parses a YAML config file, starting from Default() so that
// a file only needs to override the fields it cares about.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
