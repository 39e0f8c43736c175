package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvPath is the environment variable consulted when no explicit path is passed to Load.
const EnvPath = "EMBER_CONFIG"

// Load loads configuration from a layered set of sources:
//  1. Built-in defaults
//  2. YAML config file (explicit path or EMBER_CONFIG env), fields absent in it keep their defaults
//  3. Validation
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}

		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for values the server can't operate with.
func (c *Config) Validate() error {
	var errs []error

	if c.NET.ReadBufferSize <= 0 {
		errs = append(errs, errors.New("net.read_buffer_size must be positive"))
	}

	if c.NET.ReadTimeout <= 0 {
		errs = append(errs, errors.New("net.read_timeout must be positive"))
	}

	if c.NET.WriteTimeout <= 0 {
		errs = append(errs, errors.New("net.write_timeout must be positive"))
	}

	if c.NET.AcceptLoopInterruptPeriod <= 0 {
		errs = append(errs, errors.New("net.accept_loop_interrupt_period must be positive"))
	}

	if c.NET.WriteQueueSize <= 0 {
		errs = append(errs, errors.New("net.write_queue_size must be positive"))
	}

	if c.HTTP.MaxHeadLength < 64 {
		errs = append(errs, errors.New("http.max_head_length must be at least 64"))
	}

	if c.HTTP.MaxHeaders <= 0 {
		errs = append(errs, errors.New("http.max_headers must be positive"))
	}

	if c.HTTP.MaxBodySize < 0 {
		errs = append(errs, errors.New("http.max_body_size must not be negative"))
	}

	if c.HTTP.HeaderBufferSize <= 0 {
		errs = append(errs, errors.New("http.header_buffer_size must be positive"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel converts the textual level into slog.Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}

	return level, nil
}

// NewLogger builds a logger writing to stderr in the configured format and level.
func (l Log) NewLogger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
