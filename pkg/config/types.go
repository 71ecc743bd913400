package config

import (
	"encoding/json"
	"time"
)

// Secret holds a credential. It never prints or serializes its value.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalYAML implements yaml.Marshaler. Always returns redacted value.
func (s Secret) MarshalYAML() (any, error) {
	return s.String(), nil
}

type Config struct {
	Service ServiceConfig `koanf:"service" yaml:"service"`
	Context ContextConfig `koanf:"context" yaml:"context"`
	Capture CaptureConfig `koanf:"capture" yaml:"capture"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
}

// ServiceConfig points at the remote analysis service.
type ServiceConfig struct {
	Endpoint string        `koanf:"endpoint" yaml:"endpoint"`
	APIKey   Secret        `koanf:"api_key" yaml:"api_key"`
	Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
}

// ContextConfig bounds what the context gatherer collects.
type ContextConfig struct {
	MaxLines        int      `koanf:"max_lines" yaml:"max_lines"`
	MaxProjectFiles int      `koanf:"max_project_files" yaml:"max_project_files"`
	Extensions      []string `koanf:"extensions" yaml:"extensions"`
	ExcludeDirs     []string `koanf:"exclude_dirs" yaml:"exclude_dirs"`
}

// CaptureConfig drives terminal capture.
type CaptureConfig struct {
	Auto           bool          `koanf:"auto" yaml:"auto"`
	Window         int           `koanf:"window" yaml:"window"`
	PromptInterval time.Duration `koanf:"prompt_interval" yaml:"prompt_interval"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
	// File enables a rotating log file instead of stderr.
	File       string `koanf:"file" yaml:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups"`
}
