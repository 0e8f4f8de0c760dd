package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasador/server/internal/valuation"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "model/tasador_model.json", cfg.Artifact.Path)
	assert.Equal(t, 0.2165, cfg.Artifact.ErrorMargin)
	assert.Equal(t, 15.0, cfg.Bounds.MinArea)
	assert.Equal(t, 600.0, cfg.Bounds.MaxArea)
	assert.Equal(t, 6, cfg.Bounds.MaxRooms)
	assert.Equal(t, 5, cfg.Bounds.MaxBathrooms)
	assert.Equal(t, -38.12, cfg.TrainingArea.MinLat)
	assert.Equal(t, "ar", cfg.Geocoder.CountryCode)
	assert.Equal(t, 24*time.Hour, cfg.Geocoder.CacheTTL)
	assert.Equal(t, 100, cfg.BatchProcessing.QueueSize)
	assert.Equal(t, 90*24*time.Hour, cfg.History.Retention)
}

func TestEstimatorOptions(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	opts := cfg.EstimatorOptions(nil)
	assert.Equal(t, valuation.DefaultBounds(), opts.Bounds)
	assert.Equal(t, valuation.DefaultErrorMargin, opts.ErrorMargin)
	assert.Nil(t, opts.TrainingArea)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("warn", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.WithField("zone", 3).Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"zone":3`)

	_, err = NewLogger("loud", &buf)
	assert.Error(t, err)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MAX_TOTAL_AREA=900\nCORS_ALLOWED_ORIGINS=http://a.test,http://b.test\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("MAX_TOTAL_AREA")
		os.Unsetenv("CORS_ALLOWED_ORIGINS")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 900.0, cfg.Bounds.MaxArea)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("ARTIFACT_PATH", "/models/latest.json.gz")
	t.Setenv("GEOCODER_ENABLED", "false")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "/models/latest.json.gz", cfg.Artifact.Path)
	assert.False(t, cfg.Geocoder.Enabled)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{"non-positive minimum area", "MIN_TOTAL_AREA", "0", "MIN_TOTAL_AREA"},
		{"inverted area range", "MIN_TOTAL_AREA", "700", "exceeds"},
		{"margin too large", "ARTIFACT_ERROR_MARGIN", "1.5", "ARTIFACT_ERROR_MARGIN"},
		{"inverted training area", "TRAINING_AREA_MIN_LAT", "-37", "inverted"},
		{"inverted rooms", "MIN_ROOMS", "9", "minimums"},
		{"unparseable number", "MAX_ROOMS", "many", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
