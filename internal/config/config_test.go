package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/masterfy")
	for _, k := range []string{"PORT", "PRICE_UPDATE_INTERVAL", "BACKUP_INTERVAL", "BACKUP_DIR", "BACKUP_RETAIN", "DEFAULT_BENCHMARK_MULTIPLIER", "HTTP_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, time.Hour, c.PriceUpdateInterval)
	assert.Equal(t, 24*time.Hour, c.BackupInterval)
	assert.Equal(t, 7, c.BackupRetain)
	assert.Equal(t, "1", c.DefaultBenchmarkMultiplier.String())
	assert.Equal(t, 10*time.Second, c.HTTPTimeout)
	assert.Equal(t, logrus.DebugLevel, c.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://localhost/masterfy")
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_BENCHMARK_MULTIPLIER", "1.15")
	t.Setenv("BACKUP_RETAIN", "3")
	t.Setenv("LOG_LEVEL", "warn")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "1.15", c.DefaultBenchmarkMultiplier.String())
	assert.Equal(t, 3, c.BackupRetain)
	assert.Equal(t, logrus.WarnLevel, c.LogLevel)
}

func TestLoad_Rejects(t *testing.T) {
	t.Setenv("POSTGRES_URL", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("POSTGRES_URL", "postgres://localhost/masterfy")
	t.Setenv("DEFAULT_BENCHMARK_MULTIPLIER", "-1")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_BENCHMARK_MULTIPLIER", "")
	t.Setenv("BACKUP_RETAIN", "zero")
	_, err = Load()
	assert.Error(t, err)
}
