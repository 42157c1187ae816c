package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidationStrategy selects how thoroughly a parsed document is checked
// before its resources are fetched.
type ValidationStrategy int

const (
	// Skip performs no validation. Documents that violate the structural
	// rules may still fail later with a Validation error, never a panic.
	Skip ValidationStrategy = iota
	// Minimal checks only what the importer needs to resolve resources safely.
	Minimal
	// Complete runs every check, including the full schema rules.
	Complete
)

func (s ValidationStrategy) String() string {
	switch s {
	case Skip:
		return "skip"
	case Minimal:
		return "minimal"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s ValidationStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ValidationStrategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Set and Type let a strategy be bound directly as a command-line flag.
func (s *ValidationStrategy) Set(v string) error { return s.UnmarshalText([]byte(v)) }
func (s *ValidationStrategy) Type() string       { return "strategy" }

// ParseStrategy parses "skip", "minimal" or "complete" (case-insensitive).
func ParseStrategy(v string) (ValidationStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "skip":
		return Skip, nil
	case "minimal", "":
		return Minimal, nil
	case "complete":
		return Complete, nil
	}
	return Minimal, fmt.Errorf("config: unknown validation strategy %q", v)
}

// Config is the top-level configuration struct. Default() gives a ready to
// use value; override only what you need.
type Config struct {
	Validation        ValidationStrategy `yaml:"validation"`
	EnabledExtensions []string           `yaml:"enabled_extensions"`

	// Accept JSON with comments and trailing commas.
	Lenient bool `yaml:"lenient"`

	// Decode stage.
	DecodeWorkers     int  `yaml:"decode_workers"`      // 0 = runtime.NumCPU()
	MaxImageDimension int  `yaml:"max_image_dimension"` // 0 = unlimited; larger images are downscaled
	NormalizeRGBA     bool `yaml:"normalize_rgba"`

	// Images whose header declares more pixels than this are rejected before
	// any pixel memory is allocated. 0 = no limit.
	MaxImagePixels int64 `yaml:"max_image_pixels"`

	// Per-resource size limit applied by sources. 0 = no limit.
	MaxResourceBytes int64 `yaml:"max_resource_bytes"`

	// Worker pool controls for Submit.
	WorkerCount int           `yaml:"worker_count"` // default: runtime.NumCPU()
	QueueSize   int           `yaml:"queue_size"`   // max queued jobs before backpressure
	JobTimeout  time.Duration `yaml:"job_timeout"`

	// Sources.
	HTTP  HTTPConfig  `yaml:"http"`
	S3    S3Config    `yaml:"s3"`
	Retry RetryConfig `yaml:"retry"`

	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// HTTPConfig configures the HTTP source.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second; 0 = unlimited
	Burst     int           `yaml:"burst"`
	UserAgent string        `yaml:"user_agent"`
}

// S3Config configures the S3 source.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"` // optional custom endpoint (MinIO, etc.)
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// RetryConfig controls the retrying source decorator.
type RetryConfig struct {
	MaxTries        uint          `yaml:"max_tries"` // 0 or 1 = no retry
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Validation:     Minimal,
		MaxImagePixels: 1 << 26,
		QueueSize:      256,
		JobTimeout:     30 * time.Second,
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			Burst:     1,
			UserAgent: "gltf-importer",
		},
		Retry: RetryConfig{
			MaxTries:        3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, Validate(cfg)
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.Validation < Skip || c.Validation > Complete {
		return fmt.Errorf("config: invalid validation strategy %d", int(c.Validation))
	}
	if c.DecodeWorkers < 0 {
		return errors.New("config: DecodeWorkers must not be negative")
	}
	if c.MaxImageDimension < 0 {
		return errors.New("config: MaxImageDimension must not be negative")
	}
	if c.MaxImagePixels < 0 {
		return errors.New("config: MaxImagePixels must not be negative")
	}
	if c.MaxResourceBytes < 0 {
		return errors.New("config: MaxResourceBytes must not be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("config: HTTP.RateLimit must not be negative")
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.Burst < 1 {
		return errors.New("config: HTTP.Burst must be at least 1 when rate limiting")
	}
	if c.Retry.MaxInterval > 0 && c.Retry.InitialInterval > c.Retry.MaxInterval {
		return errors.New("config: Retry.InitialInterval must not exceed MaxInterval")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// ExtensionEnabled reports whether name is listed in EnabledExtensions.
func (c Config) ExtensionEnabled(name string) bool {
	for _, e := range c.EnabledExtensions {
		if e == name {
			return true
		}
	}
	return false
}
