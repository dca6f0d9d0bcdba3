package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "PORT", "GENERATION_PROVIDER", "GENERATION_MAX_ATTEMPTS",
		"VIDEO_SEARCH_MAX_CANDIDATES", "VIDEO_RESULT_LIMIT", "EXTERNAL_CALL_TIMEOUT_SEC",
		"VIDEO_CACHE_TTL_MIN", "GENERATION_QUEUE_NAME", "GENERATION_VISIBILITY_SEC", "GENERATION_JOB_TIMEOUT_SEC"} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini", cfg.GenerationProvider)
	assert.Equal(t, 5, cfg.GenerationMaxAttempts)
	assert.Equal(t, 8, int(cfg.VideoSearchMaxCandidates))
	assert.Equal(t, 4, cfg.VideoResultLimit)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout())
	assert.Equal(t, 24*time.Hour, cfg.VideoCacheTTL())
	assert.Equal(t, "course_generation_queue", cfg.GenerationQueueName)
	assert.Greater(t, cfg.GenerationVisibilitySec, cfg.GenerationJobTimeoutSec)
	assert.Equal(t, 660, cfg.GenerationVisibility())
}

func TestGenerationVisibilityCoversJobTimeout(t *testing.T) {
	cases := []struct {
		name       string
		visibility int
		timeout    int
		want       int
	}{
		{"shorter than job", 300, 600, 660},
		{"within margin", 620, 600, 660},
		{"already longer", 900, 600, 900},
		{"no job timeout", 120, 0, 120},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{GenerationVisibilitySec: tc.visibility, GenerationJobTimeoutSec: tc.timeout}
			assert.Equal(t, tc.want, cfg.GenerationVisibility())
		})
	}
}

// unsetenv removes key for the test; t.Setenv restores the previous value afterwards.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("GENERATION_PROVIDER", "openai")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "2")
	t.Setenv("EXTERNAL_CALL_TIMEOUT_SEC", "5")
	t.Setenv("VIDEO_SEARCH_RPS", "1.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "openai", cfg.GenerationProvider)
	assert.Equal(t, 2, cfg.GenerationMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout())
	assert.InDelta(t, 1.5, cfg.VideoSearchRPS, 0.001)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("GENERATION_MAX_ATTEMPTS", "many")

	_, err := Load()
	assert.Error(t, err)
}
