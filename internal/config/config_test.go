package config

import (
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfig, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "en-US", cfg.LanguageTool.Language)
	assert.Empty(t, cfg.LanguageTool.URL)
	assert.True(t, cfg.Semantic.Enabled)
	assert.Equal(t, 30, cfg.RateLimit.PerMinute)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load("testdata/introscore.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "rubrics/strict.yaml", cfg.RubricFile)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, LanguageTool{URL: "http://localhost:8010", Language: "en-GB"}, cfg.LanguageTool)
	assert.Equal(t, "bge-small-en", cfg.Embeddings.Model)
	assert.False(t, cfg.Semantic.Enabled)
	assert.Equal(t, Redis{Addr: "localhost:6379", DB: 2}, cfg.Redis)
	assert.Equal(t, 12, cfg.RateLimit.PerMinute)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("INTROSCORE_PORT", "7070")
	t.Setenv("INTROSCORE_LANGUAGETOOL_URL", "http://lt:8010")
	t.Setenv("INTROSCORE_SEMANTIC_ENABLED", "true")
	t.Setenv("INTROSCORE_CACHE_TTL", "90s")
	t.Setenv("INTROSCORE_CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load("testdata/introscore.yaml")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "http://lt:8010", cfg.LanguageTool.URL)
	assert.Equal(t, "en-GB", cfg.LanguageTool.Language)
	assert.True(t, cfg.Semantic.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfig, "testdata/introscore.yaml")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		env  map[string]string
		msg  string
	}{
		{name: "missing file", path: "testdata/nope.yaml", msg: "read config file"},
		{name: "invalid values", path: "testdata/bad_port.yaml", msg: "port 70000 out of range"},
		{name: "bad log level", path: "testdata/bad_port.yaml", msg: `unknown log level "chatty"`},
		{name: "non-positive rate limit", env: map[string]string{"INTROSCORE_RATELIMIT_PER_MINUTE": "0"}, msg: "ratelimit.per_minute"},
		{name: "zero timeout", env: map[string]string{"INTROSCORE_REQUEST_TIMEOUT": "0s"}, msg: "request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.path != "" {
				abs, err := filepath.Abs(tt.path)
				require.NoError(t, err)
				path = abs
			}
			t.Chdir(t.TempDir())
			t.Setenv(EnvConfig, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(path)
			require.Error(t, err)

			appErr := apperrors.ToAppError(err)
			assert.Equal(t, apperrors.CategoryConfiguration, appErr.Category)
			assert.Contains(t, appErr.Message(), tt.msg)
		})
	}
}
