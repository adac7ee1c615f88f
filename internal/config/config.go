// Package config loads figbridge settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// FIGBRIDGE_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// JournalDisabled turns the run journal off when used as the journal path.
const JournalDisabled = "-"

// Config holds every tunable of the bridge.
type Config struct {
	Host string `yaml:"host" env:"FIGBRIDGE_HOST"`
	Port int    `yaml:"port" env:"FIGBRIDGE_PORT"`

	WaitPlugin     time.Duration `yaml:"wait_plugin" env:"FIGBRIDGE_WAIT_PLUGIN"`
	OpTimeout      time.Duration `yaml:"op_timeout" env:"FIGBRIDGE_OP_TIMEOUT"`
	LivenessWindow time.Duration `yaml:"liveness_window" env:"FIGBRIDGE_LIVENESS_WINDOW"`
	ReapInterval   time.Duration `yaml:"reap_interval" env:"FIGBRIDGE_REAP_INTERVAL"`
	ReapMaxAge     time.Duration `yaml:"reap_max_age" env:"FIGBRIDGE_REAP_MAX_AGE"`

	// TempRoot confines plan and capture files. Empty selects
	// $TMPDIR/auto-figma.
	TempRoot string `yaml:"temp_root" env:"FIGBRIDGE_TEMP_ROOT"`

	// Journal is the SQLite run journal path. Empty selects
	// <temp_root>/figbridge.db; JournalDisabled turns it off.
	Journal string `yaml:"journal" env:"FIGBRIDGE_JOURNAL"`

	LogFile       string `yaml:"log_file" env:"FIGBRIDGE_LOG_FILE"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb" env:"FIGBRIDGE_LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `yaml:"log_max_backups" env:"FIGBRIDGE_LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `yaml:"log_max_age_days" env:"FIGBRIDGE_LOG_MAX_AGE_DAYS"`

	CDPEndpoint string `yaml:"cdp_endpoint" env:"FIGBRIDGE_CDP_ENDPOINT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           38450,
		WaitPlugin:     25 * time.Second,
		OpTimeout:      30 * time.Second,
		LivenessWindow: 2500 * time.Millisecond,
		ReapInterval:   30 * time.Second,
		ReapMaxAge:     5 * time.Minute,
		LogMaxSizeMB:   10,
		LogMaxBackups:  3,
		LogMaxAgeDays:  7,
		CDPEndpoint:    "http://127.0.0.1:9222/json",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is not validated so that
// flags can still override it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Unknown keys are
// rejected; keys absent from the file keep their current values.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays FIGBRIDGE_* environment variables onto cfg.
func ParseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1-65535, got %d", c.Port)
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"wait_plugin", c.WaitPlugin},
		{"op_timeout", c.OpTimeout},
		{"liveness_window", c.LivenessWindow},
		{"reap_interval", c.ReapInterval},
		{"reap_max_age", c.ReapMaxAge},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.d)
		}
	}
	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		return errors.New("log rotation limits must not be negative")
	}
	return nil
}

// Addr returns host:port for the bridge listener.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the URL the plugin polls.
func (c Config) BaseURL() string {
	return "http://" + c.Addr()
}
