package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Instrument.MaxAttenuation)
	assert.Equal(t, "ft", cfg.Fitting.Mode)
	assert.Equal(t, "last", cfg.Categorizer.BestResultPolicy)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.AWS.ArchiveSignals)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("MAX_ATTENUATION", "30")
	t.Setenv("FIT_MODE", "none")
	t.Setenv("BEST_RESULT_POLICY", "strongest")
	t.Setenv("ARCHIVE_SIGNALS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Instrument.MaxAttenuation)
	assert.Equal(t, "none", cfg.Fitting.Mode)
	assert.Equal(t, "strongest", cfg.Categorizer.BestResultPolicy)
	assert.True(t, cfg.AWS.ArchiveSignals)
}

func TestLoad_RejectsNonPositiveAttenuation(t *testing.T) {
	viper.Reset()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("MAX_ATTENUATION", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetStringOrDefault(t *testing.T) {
	viper.Reset()
	assert.Equal(t, "fallback", GetStringOrDefault("FTMW_UNSET_KEY", "fallback"))

	viper.Set("FTMW_SET_KEY", "value")
	assert.Equal(t, "value", GetStringOrDefault("FTMW_SET_KEY", "fallback"))
}
