package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "config.yaml", "server:\n  port: 9090\n")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "mysql", cfg.Database.Driver)
		assert.Equal(t, 168, cfg.JWT.ExpireHours)
		assert.Equal(t, int64(1000), cfg.Stripe.Amount)
		assert.Equal(t, 30, cfg.Stripe.PeriodDays)
		assert.Len(t, cfg.Stripe.Features, 5)
		assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxPhotoSize)
		assert.Equal(t, 10*time.Second, cfg.Email.Timeout())
		assert.Equal(t, time.Duration(0), cfg.Review.PendingTTL())
	})

	t.Run("prefers config.local.yaml", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "config.yaml", "jwt:\n  secret: public\n")
		writeConfig(t, dir, "config.local.yaml", "jwt:\n  secret: local\n")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.JWT.Secret)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "config.yaml", "review:\n  pending_ttl_hours: 1\n")
		t.Setenv("REVIEW_PENDING_TTL_HOURS", "48")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, cfg.Review.PendingTTL())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestEmailTimeout(t *testing.T) {
	cfg := EmailConfig{TimeoutSeconds: 3}
	assert.Equal(t, 3*time.Second, cfg.Timeout())
}
