// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "30s" / "5m" strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full service configuration.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// DesignSource is the YAML file served by the built-in file-backed
	// design source client.
	DesignSource string `yaml:"design_source"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	// BumpThreshold is the change count above which a change set forces a
	// major bump.
	BumpThreshold int `yaml:"bump_threshold"`

	// Cooldown is the per-artifact window gating AUTO regeneration.
	Cooldown Duration `yaml:"cooldown"`

	// QueueCapacity bounds the pending regeneration queue.
	QueueCapacity int `yaml:"queue_capacity"`

	// Workers is the regeneration worker count.
	Workers int `yaml:"workers"`

	// RequestTimeout bounds a single queued regeneration.
	RequestTimeout Duration `yaml:"request_timeout"`

	// SweepInterval is the scheduled detection interval.
	SweepInterval Duration `yaml:"sweep_interval"`

	// MetricsAddr is the Prometheus listen address, empty to disable.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var c Config
	c.DBPath = "loom.db"
	c.DesignSource = "design.yaml"
	c.Log.Level = "info"
	c.BumpThreshold = 5
	c.Cooldown = Duration(5 * time.Minute)
	c.QueueCapacity = 256
	c.Workers = 4
	c.RequestTimeout = Duration(30 * time.Second)
	c.SweepInterval = Duration(10 * time.Minute)
	c.MetricsAddr = ""
	return c
}

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.BumpThreshold <= 0 {
		return fmt.Errorf("bump_threshold must be positive, got %d", c.BumpThreshold)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}
