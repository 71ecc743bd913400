// Package config loads error-translator settings from a YAML file, a .env
// file and ERRTRANS_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix = "ERRTRANS_"

	// LegacyAPIKeyEnv is read when service.api_key is not set otherwise.
	LegacyAPIKeyEnv = "ERROR_TRANSLATOR_API_KEY"

	DefaultEndpoint       = "http://127.0.0.1:8000"
	DefaultTimeout        = 30 * time.Second
	DefaultMaxLines       = 50
	DefaultMaxFiles       = 100
	DefaultCaptureWindow  = 5
	DefaultPromptInterval = 10 * time.Second
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Endpoint: DefaultEndpoint,
			Timeout:  DefaultTimeout,
		},
		Context: ContextConfig{
			MaxLines:        DefaultMaxLines,
			MaxProjectFiles: DefaultMaxFiles,
		},
		Capture: CaptureConfig{
			Window:         DefaultCaptureWindow,
			PromptInterval: DefaultPromptInterval,
		},
		Log: LogConfig{
			Level:      "warn",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultPath is ~/.config/error-translator/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "error-translator", "config.yaml")
}

// Load reads configuration with this precedence (highest first):
//  1. ERRTRANS_* environment variables (ERRTRANS_SERVICE_API_KEY -> service.api_key)
//  2. .env in the working directory (loaded into the environment, never overriding it)
//  3. the YAML file at path (DefaultPath when empty; a missing file is fine)
//  4. Default()
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// ERRTRANS_CONTEXT_MAX_LINES -> context.max_lines: split on the first
	// underscore only, the field names keep theirs.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		section, field, ok := strings.Cut(lower, "_")
		if !ok {
			return lower
		}
		return section + "." + field
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if !cfg.Service.APIKey.IsSet() {
		cfg.Service.APIKey = Secret(os.Getenv(LegacyAPIKeyEnv))
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Timeout <= 0 {
		c.Service.Timeout = DefaultTimeout
	}
	if c.Context.MaxLines <= 0 {
		c.Context.MaxLines = DefaultMaxLines
	}
	if c.Context.MaxProjectFiles <= 0 {
		c.Context.MaxProjectFiles = DefaultMaxFiles
	}
	if c.Capture.Window < 0 {
		c.Capture.Window = DefaultCaptureWindow
	}
	if c.Capture.PromptInterval < 0 {
		c.Capture.PromptInterval = DefaultPromptInterval
	}
}

// Validate checks the service settings. It returns an *errs.Error of kind
// ConfigurationInvalid.
func (s ServiceConfig) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" {
		return errs.New(errs.KindConfigurationInvalid, "service.endpoint is empty")
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.New(errs.KindConfigurationInvalid, "service.endpoint %q is not an http(s) URL", s.Endpoint)
	}
	if strings.TrimSpace(s.APIKey.Value()) == "" {
		return errs.New(errs.KindConfigurationInvalid, "service.api_key is empty")
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Service.Validate(); err != nil {
		return err
	}
	if c.Context.MaxLines <= 0 {
		return errs.New(errs.KindConfigurationInvalid, "context.max_lines must be positive")
	}
	return nil
}
