package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"REBALANCER_DATA_DIR", "LOG_LEVEL", "LOG_PRETTY", "PRICE_CACHE_TTL_SECONDS"} {
		original, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, original)
			}
		})
	}
}

func TestLoadDefaultsDataDirWhenUnset(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	expected, _ := filepath.Abs(defaultDataDir)
	assert.Equal(t, expected, cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadCLIFlagTakesPrecedenceOverEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("REBALANCER_DATA_DIR", filepath.Join(t.TempDir(), "from-env"))

	cliDir := filepath.Join(t.TempDir(), "from-cli")
	cfg, err := Load(cliDir)
	require.NoError(t, err)
	expected, _ := filepath.Abs(cliDir)
	assert.Equal(t, expected, cfg.DataDir)
}

func TestLoadCreatesMissingDataDir(t *testing.T) {
	clearEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "data")

	cfg, err := Load(target)
	require.NoError(t, err)
	info, err := os.Stat(cfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadReadsLogLevelAndTTL(t *testing.T) {
	clearEnv(t)
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("PRICE_CACHE_TTL_SECONDS", "120")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 120*time.Second, cfg.PriceCacheTTL)
}
