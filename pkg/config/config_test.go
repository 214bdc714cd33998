package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyweave/pkg/config"
)

func TestLoad_AppliesDefaultsWithNoEnvironment(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Session.WindowSize)
	assert.Equal(t, 1, cfg.Session.ProcessingDelay)
	assert.Equal(t, config.EvictionNone, cfg.Session.EvictionPolicy)
	assert.False(t, cfg.LLM.Enabled)
}

func TestLoad_ReadsOverridesFromEnvironment(t *testing.T) {
	os.Setenv("WINDOW_SIZE", "6")
	os.Setenv("PROCESSING_DELAY", "2")
	os.Setenv("SESSION_EVICTION_POLICY", "lru")
	defer func() {
		os.Unsetenv("WINDOW_SIZE")
		os.Unsetenv("PROCESSING_DELAY")
		os.Unsetenv("SESSION_EVICTION_POLICY")
	}()

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Session.WindowSize)
	assert.Equal(t, 2, cfg.Session.ProcessingDelay)
	assert.Equal(t, config.EvictionLRU, cfg.Session.EvictionPolicy)
}

func TestValidate_RejectsProcessingDelayAtOrAboveWindowSize(t *testing.T) {
	os.Setenv("WINDOW_SIZE", "4")
	os.Setenv("PROCESSING_DELAY", "4")
	defer func() {
		os.Unsetenv("WINDOW_SIZE")
		os.Unsetenv("PROCESSING_DELAY")
	}()

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate_RejectsAuthEnabledWithoutSecret(t *testing.T) {
	os.Setenv("ENABLE_AUTH", "true")
	defer os.Unsetenv("ENABLE_AUTH")

	_, err := config.Load()
	assert.Error(t, err)
}
