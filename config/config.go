// Package config loads runtime configuration from YAML files.
//
// Configuration is optional everywhere: every field has a working default and
// a missing file is not an error for LoadOrDefault. The file shape mirrors
// the value objects it populates:
//
//	run:
//	  max_model_calls: 100
//	  max_tool_iterations: 5
//	  event_buffer_size: 64
//	cache:
//	  enabled: true
//	  ttl: 5m
//	  max_entries: 256
//	logging:
//	  level: info
//	  format: json
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

// LoggingConfig selects the log level and output format for the framework
// logger. Format is "json" or "text".
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config aggregates all tunable runtime settings.
type Config struct {
	Run     core.RunConfig `yaml:"run"`
	Cache   cacheYAML      `yaml:"cache"`
	Logging LoggingConfig  `yaml:"logging"`
}

// cacheYAML mirrors core.CacheConfig with a string TTL so config files can
// write durations as "5m" or "30s".
type cacheYAML struct {
	Enabled    bool   `yaml:"enabled"`
	TTL        string `yaml:"ttl"`
	MaxEntries int    `yaml:"max_entries"`
}

// Default returns a Config matching the framework's built-in defaults.
func Default() *Config {
	rc := core.DefaultRunConfig()
	cc := core.DefaultCacheConfig()
	return &Config{
		Run: rc,
		Cache: cacheYAML{
			Enabled:    cc.Enabled,
			TTL:        cc.TTL.String(),
			MaxEntries: cc.MaxEntries,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads and parses a YAML config file. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault behaves like Load but returns the defaults when the file does
// not exist. Other read or parse failures are still reported.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML config bytes over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Run.MaxModelCalls < 0 {
		return fmt.Errorf("run.max_model_calls must not be negative, got %d", c.Run.MaxModelCalls)
	}
	if c.Run.MaxToolIterations < 0 {
		return fmt.Errorf("run.max_tool_iterations must not be negative, got %d", c.Run.MaxToolIterations)
	}
	if c.Run.EventBufferSize < 0 {
		return fmt.Errorf("run.event_buffer_size must not be negative, got %d", c.Run.EventBufferSize)
	}
	if c.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
			return fmt.Errorf("cache.ttl: %w", err)
		}
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries)
	}
	return nil
}

// RunConfig returns the run limits as a core value object.
func (c *Config) RunConfig() core.RunConfig { return c.Run }

// CacheConfig converts the cache section into the core value object.
func (c *Config) CacheConfig() core.CacheConfig {
	cc := core.DefaultCacheConfig()
	cc.Enabled = c.Cache.Enabled
	if c.Cache.TTL != "" {
		if d, err := time.ParseDuration(c.Cache.TTL); err == nil {
			cc.TTL = d
		}
	}
	if c.Cache.MaxEntries > 0 {
		cc.MaxEntries = c.Cache.MaxEntries
	}
	return cc
}

// LoggerConfig converts the logging section into the framework logger
// configuration.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultLoggerConfig()
	if c.Logging.Level != "" {
		lc.Level = logging.ParseLevel(c.Logging.Level)
	}
	if c.Logging.Format != "" {
		lc.Format = c.Logging.Format
	}
	return lc
}
