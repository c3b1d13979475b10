package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "PORT", "DEBUG", "FLASK_DEBUG", "HF_TOKEN", "HF_SPACE",
		"HF_SPACE_URL", "HF_API_NAME", "HF_API_BASE", "UPLOAD_DIR", "OUTPUT_DIR",
		"GENERATOR_CACHE_DIR", "MAX_UPLOAD_BYTES", "IMAGE_FETCH_TIMEOUT",
		"RATE_LIMIT_RPM", "WRITE_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.False(t, cfg.Debug)
	assert.Equal(t, DefaultSpace, cfg.Space)
	assert.Equal(t, DefaultAPIName, cfg.APIName)
	assert.Equal(t, int64(16<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.ImageFetchTimeout)
	assert.Equal(t, 0, cfg.RateLimitRPM)
	assert.Equal(t, "uploads", filepath.Base(cfg.UploadDir))
	assert.Equal(t, "output", filepath.Base(cfg.OutputDir))
	assert.Equal(t, "https://huggingface.co/spaces/tencent/Hunyuan3D-2.1", cfg.FallbackURL())
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("FLASK_DEBUG", "True")
	t.Setenv("HF_TOKEN", "hf_abc")
	t.Setenv("HF_SPACE_URL", "http://localhost:7860/")
	t.Setenv("IMAGE_FETCH_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_RPM", "12")

	cfg := FromEnv()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "hf_abc", cfg.HFToken)
	assert.Equal(t, "http://localhost:7860", cfg.SpaceURL)
	assert.Equal(t, 5*time.Second, cfg.ImageFetchTimeout)
	assert.Equal(t, 12, cfg.RateLimitRPM)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")
	t.Setenv("WRITE_TIMEOUT", "forever")
	t.Setenv("DEBUG", "maybe")

	cfg := FromEnv()

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.WriteTimeout)
	assert.False(t, cfg.Debug)
}

func TestValidate_RejectsBadSpace(t *testing.T) {
	clearEnv(t)
	t.Setenv("HF_SPACE", "no-owner")
	t.Setenv("HF_API_NAME", "generation_all")

	err := FromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Space")
	assert.Contains(t, err.Error(), "APIName")
}
