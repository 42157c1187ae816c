package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, Minimal, cfg.Validation)
	assert.Empty(t, cfg.EnabledExtensions)
}

func TestZeroValueStrategyIsSkip(t *testing.T) {
	var cfg Config
	assert.Equal(t, Skip, cfg.Validation)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]ValidationStrategy{
		"skip": Skip, "Minimal": Minimal, " COMPLETE ": Complete, "": Minimal,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrategy("paranoid")
	assert.Error(t, err)
}

func TestStrategyYAMLRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(struct {
		V ValidationStrategy `yaml:"v"`
	}{Complete})
	require.NoError(t, err)
	assert.Equal(t, "v: complete\n", string(out))
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "importer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
validation: complete
enabled_extensions: [KHR_texture_transform]
decode_workers: 2
http:
  rate_limit: 5
  burst: 2
retry:
  max_tries: 5
  initial_interval: 50ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Complete, cfg.Validation)
	assert.True(t, cfg.ExtensionEnabled("KHR_texture_transform"))
	assert.False(t, cfg.ExtensionEnabled("KHR_draco_mesh_compression"))
	assert.Equal(t, 2, cfg.DecodeWorkers)
	assert.Equal(t, 5.0, cfg.HTTP.RateLimit)
	assert.Equal(t, uint(5), cfg.Retry.MaxTries)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialInterval)
	// untouched fields keep their defaults
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 256, cfg.QueueSize)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("validation: sometimes\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative workers":   func(c *Config) { c.DecodeWorkers = -1 },
		"negative limit":     func(c *Config) { c.MaxResourceBytes = -1 },
		"burst":              func(c *Config) { c.HTTP.RateLimit = 1; c.HTTP.Burst = 0 },
		"interval":           func(c *Config) { c.Retry.InitialInterval = time.Minute },
		"log level":          func(c *Config) { c.LogLevel = "chatty" },
		"unknown strategy":   func(c *Config) { c.Validation = 9 },
		"negative maxdim":    func(c *Config) { c.MaxImageDimension = -5 },
		"negative ratelimit": func(c *Config) { c.HTTP.RateLimit = -1 },
		"negative pixels":    func(c *Config) { c.MaxImagePixels = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
