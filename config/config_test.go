package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.SessionDeadline)
	assert.Equal(t, 2, cfg.RetryMax)
	assert.Equal(t, 10*time.Minute, cfg.InterviewIdleWindow)
	assert.Equal(t, 12.0, cfg.HgbModerateBelow)
	assert.Equal(t, 10.0, cfg.HgbHighBelow)
	assert.Equal(t, 3, cfg.SymptomHighCount)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("HEMOSCAN_HTTP_PORT", "9090")
	t.Setenv("HEMOSCAN_SESSION_DEADLINE", "45s")
	t.Setenv("HEMOSCAN_HGB_HIGH_BELOW", "9.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.SessionDeadline)
	assert.Equal(t, 9.5, cfg.HgbHighBelow)
}
