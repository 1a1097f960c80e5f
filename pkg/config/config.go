// Package config loads sitegen's configuration file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/entrhq/sitegen/pkg/browser"
	"github.com/entrhq/sitegen/pkg/generation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding the host credentials.
const (
	EnvIdentity = "LOVABLE_EMAIL"
	EnvSecret   = "LOVABLE_PASSWORD"
)

// DefaultEnvFile is loaded by LoadEnv when no files are given.
const DefaultEnvFile = ".env"

// Config is the full sitegen configuration.
type Config struct {
	// Pipeline retry budget, timings and UI selectors
	Generation generation.Config `yaml:"generation" json:"generation"`

	// Browser launch settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// ConfigFilePath is the file this config was loaded from, if any
	ConfigFilePath string `yaml:"-" json:"-"`
}

// BrowserConfig defines how browser sessions are launched
type BrowserConfig struct {
	Viewport       browser.Viewport `yaml:"viewport" json:"viewport"`
	UserAgent      string           `yaml:"user_agent" json:"user_agent"`
	ExecutablePath string           `yaml:"executable_path" json:"executable_path"`
	Args           []string         `yaml:"args" json:"args"`
	MaxSessions    int              `yaml:"max_sessions" json:"max_sessions"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	OutputDir   string `yaml:"output_dir" json:"output_dir"`
	Screenshots bool   `yaml:"screenshots" json:"screenshots"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level"`
}

// MetricsConfig defines metrics export
type MetricsConfig struct {
	// TextfilePath receives the Prometheus text exposition after each run; empty disables it
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Generation: generation.DefaultConfig(),
		Browser: BrowserConfig{
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
			UserAgent:   browser.DefaultUserAgent,
			MaxSessions: browser.DefaultMaxSessions,
		},
		Artifacts: ArtifactConfig{
			Enabled:     true,
			OutputDir:   "sitegen-output",
			Screenshots: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML configuration file over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, config); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}
	config.ConfigFilePath = path

	if validationErr := config.Validate(); validationErr != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, validationErr)
	}
	return config, nil
}

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat env file %s: %w", f, err)
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Credentials reads the host credentials from the environment.
func Credentials() generation.Credentials {
	return generation.Credentials{
		Identity: strings.TrimSpace(os.Getenv(EnvIdentity)),
		Secret:   os.Getenv(EnvSecret),
	}
}

// SessionOptions converts the browser section to launch options. Headless is
// decided per request.
func (c *Config) SessionOptions() browser.SessionOptions {
	opts := browser.SessionOptions{
		UserAgent:      c.Browser.UserAgent,
		Args:           c.Browser.Args,
		ExecutablePath: c.Browser.ExecutablePath,
		Timeout:        c.Generation.ActionTimeout,
	}
	if c.Browser.Viewport.Width > 0 && c.Browser.Viewport.Height > 0 {
		viewport := c.Browser.Viewport
		opts.Viewport = &viewport
	}
	return opts
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}

	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("browser viewport cannot be negative")
	}
	if c.Browser.MaxSessions < 1 {
		return fmt.Errorf("browser max_sessions must be at least 1")
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts output_dir is required when artifacts are enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn or error)", c.Logging.Level)
	}

	return nil
}
