package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PROJECT_ROOT", "/srv/cpi")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, IMAGERY_MODE_MOCK, cfg.ImageryMode)
	assert.Equal(t, DEFAULT_COLLECTION, cfg.DefaultCollection)
	assert.Equal(t, "EVI", cfg.DefaultBand)
	assert.Equal(t, 30.0, cfg.DefaultScale)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, 3, cfg.ReduceMaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.ReduceBackoff)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/srv/cpi/resources/cpi.geojson", cfg.PlotsGeoJSONPath)
	assert.Equal(t, "cartodb_id", cfg.PlotsIDField)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL)
	assert.Empty(t, cfg.RedisAddress)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	err := os.WriteFile(envFile, []byte("MAX_CONCURRENCY=3\nDEFAULT_BAND=NDVI\n"), 0644)
	assert.NoError(t, err)

	// Process environment wins over the file.
	t.Setenv("DEFAULT_BAND", "EVI2")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	// Registers a restore of MAX_CONCURRENCY, which the env file will set.
	t.Setenv("MAX_CONCURRENCY", "0")
	os.Unsetenv("MAX_CONCURRENCY")

	cfg := Load(envFile)

	assert.Equal(t, 3, cfg.MaxConcurrency)
	assert.Equal(t, "EVI2", cfg.DefaultBand)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_BadNumbersUseDefaults(t *testing.T) {
	t.Setenv("DEFAULT_SCALE", "thirty")
	t.Setenv("REDIS_DB", "x")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, 30.0, cfg.DefaultScale)
	assert.Equal(t, 0, cfg.RedisDB)
}
