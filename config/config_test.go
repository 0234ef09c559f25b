package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("PHOSPHOR_URL", "https://admin-api.phosphor.xyz")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 1, cfg.OwnershipMinQuantity)
	assert.Equal(t, 1000, cfg.ItemMaxSupply)
	assert.Equal(t, 15*time.Second, cfg.IssuanceTimeout)
	assert.False(t, cfg.IgnoreOwnershipCheck)
	assert.False(t, cfg.AllowMultipleFramesPerFid)
	assert.False(t, cfg.VerifyBody)
	assert.Equal(t, cfg.IssuanceURL, cfg.PublicIssuanceURL())
	assert.False(t, cfg.AdminEnabled())
}

func TestParseFlagsAreRealBooleans(t *testing.T) {
	setRequired(t)
	t.Setenv("CHALLENGE_IGNORE_OWNERSHIP_CHECK", "false")
	t.Setenv("FRAME_ALLOW_MULTIPLE_FOR_SAME_FID", "true")
	t.Setenv("VERIFY_BODY", "true")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.False(t, cfg.IgnoreOwnershipCheck)
	assert.True(t, cfg.AllowMultipleFramesPerFid)
	assert.True(t, cfg.VerifyBody)
}

func TestParsePublicURLOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("PHOSPHOR_PUBLIC_URL", "https://public-api.phosphor.xyz")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "https://public-api.phosphor.xyz", cfg.PublicIssuanceURL())
}

func TestParseRejectsMissingIssuanceURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "file::memory:")
	t.Setenv("PHOSPHOR_URL", "")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Parse()
	require.Error(t, err)
}

func TestParseRejectsShortJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Parse()
	require.Error(t, err)
}

func TestParseBadDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("PHOSPHOR_TIMEOUT", "soon")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
