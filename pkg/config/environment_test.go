package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"GLEAM_CACHE_DIR": "/tmp/cache"})
	require.NoError(t, err)

	assert.Equal(t, "off", cfg.LogLevel)
	assert.False(t, cfg.NoColour)
	assert.Empty(t, cfg.HexAPIKey)
	assert.Equal(t, "https://hex.pm/api", cfg.HexAPIURL)
	assert.Equal(t, "https://repo.hex.pm", cfg.HexRepoURL)
	assert.Equal(t, "gleam-backend", cfg.Backend)
	assert.Equal(t, "none", cfg.TraceExporter)
	assert.Equal(t, filepath.Join("/tmp/cache", "packages.db"), cfg.PackageIndexFile())
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"GLEAM_LOG":            "DEBUG",
		"GLEAM_LOG_NOCOLOUR":   "",
		"HEXPM_API_KEY":        "secret",
		"GLEAM_TRACE_EXPORTER": "otlp",
		"GLEAM_TRACE_ENDPOINT": "localhost:4317",
		"GLEAM_CACHE_DIR":      "/tmp/cache",
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.NoColour, "presence alone disables colour")

	key, err := cfg.RequireHexAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"exporter", map[string]string{"GLEAM_TRACE_EXPORTER": "jaeger"}, "GLEAM_TRACE_EXPORTER"},
		{"otlp without endpoint", map[string]string{"GLEAM_TRACE_EXPORTER": "otlp"}, "GLEAM_TRACE_ENDPOINT"},
		{"api url", map[string]string{"HEXPM_API_URL": "not a url"}, "HEXPM_API_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.vars["GLEAM_CACHE_DIR"] = "/tmp/cache"
			_, err := LoadFrom(tt.vars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogFilterDirectives(t *testing.T) {
	tests := []struct {
		filter string
		want   string
	}{
		{"", "off"},
		{"off", "off"},
		{"Warning", "warn"},
		{"gleam=debug", "debug"},
		{"gleam_cli=info", "info"},
		{"gleam::build=trace", "trace"},
		{"gleam", "trace"},
		{"hyper=trace", "off"},
		{"hyper=trace,gleam=warn", "warn"},
		{"info,gleam=debug", "debug"},
		{"gleam[compile]=error", "error"},
		{"loud", "off"},
		{"gleam=loud", "off"},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			cfg, err := LoadFrom(map[string]string{"GLEAM_LOG": tt.filter, "GLEAM_CACHE_DIR": "/tmp/cache"})
			require.NoError(t, err)
			assert.Equal(t, tt.filter, cfg.LogFilter)
			assert.Equal(t, tt.want, cfg.LogLevel)
		})
	}
}

func TestRequireHexAPIKeyMissing(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"GLEAM_CACHE_DIR": "/tmp/cache"})
	require.NoError(t, err)

	_, err = cfg.RequireHexAPIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEXPM_API_KEY")
}
