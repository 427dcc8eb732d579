package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	RotationDays int `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type Config struct {
	SpoolPaths      []string      `yaml:"spool_paths" json:"spool_paths"`           // Roots swept for orphaned scratch files
	AgeOffMinutes   int           `yaml:"age_off_minutes" json:"age_off_minutes"`   // Minimum age before a file counts as orphaned
	IntervalMinutes int           `yaml:"interval_minutes" json:"interval_minutes"` // Sweep interval
	Recursive       bool          `yaml:"recursive" json:"recursive"`               // Use the forceful strategy for directories
	MaxCPUPercent   float64       `yaml:"max_cpu_percent" json:"max_cpu_percent"`   // Pacing limit for the sweep loop
	DatabasePath    string        `yaml:"database_path" json:"database_path"`       // SQLite reap history, empty disables
	Prometheus      PrometheusCfg `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg    `yaml:"logging" json:"logging"`
}

var (
	errNoPaths         = errors.New("configuration must specify spool_paths")
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeAge     = errors.New("age_off_minutes cannot be negative")
	errInvalidInterval = errors.New("interval_minutes cannot be negative")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if len(c.SpoolPaths) == 0 {
		return errNoPaths
	}

	if c.AgeOffMinutes < 0 {
		return errNegativeAge
	}
	if c.AgeOffMinutes == 0 {
		c.AgeOffMinutes = 60
	}

	if c.IntervalMinutes < 0 {
		return errInvalidInterval
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 15
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9090
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	if c.MaxCPUPercent <= 0 {
		c.MaxCPUPercent = 10.0
	}

	cleaned := make([]string, 0, len(c.SpoolPaths))
	for _, p := range c.SpoolPaths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return err
		}
		cleaned = append(cleaned, cp)
	}
	c.SpoolPaths = cleaned

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) AgeOff() time.Duration {
	return time.Duration(c.AgeOffMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
