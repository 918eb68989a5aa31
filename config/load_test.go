package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	defer Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Resolver.TimeoutMS)
	assert.Equal(t, 0, cfg.Resolver.DefaultTTLMS)
	assert.Equal(t, 0.0, cfg.Resolver.RatePerSecond)
	assert.Equal(t, 1, cfg.Resolver.Burst)
	assert.Equal(t, 0, cfg.Eval.ArtificialDelayMS)
	assert.False(t, cfg.Log.JSON)
}

func TestLoadIsCached(t *testing.T) {
	Reset()
	defer Reset()

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kalc.toml")
	content := `
[resolver]
timeout_ms = 250
rate_per_second = 2.5
burst = 4

[eval]
artificial_delay_ms = 10

[log]
json = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Resolver.TimeoutMS)
	assert.Equal(t, 2.5, cfg.Resolver.RatePerSecond)
	assert.Equal(t, 4, cfg.Resolver.Burst)
	// Unset keys keep their defaults.
	assert.Equal(t, 0, cfg.Resolver.DefaultTTLMS)
	assert.Equal(t, 10, cfg.Eval.ArtificialDelayMS)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
