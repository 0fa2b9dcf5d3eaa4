package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultLoginURL, cfg.LoginURL)
	assert.Equal(t, DefaultAPIHost, cfg.APIHost)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.WebAuthTimeout)
	assert.Equal(t, 1*time.Second, cfg.ErrorPollInterval)
	assert.Equal(t, 5*time.Minute, cfg.RefreshThreshold)
	assert.Equal(t, 30*time.Second, cfg.RefreshCooldownBase)
	assert.Equal(t, 10*time.Minute, cfg.RefreshBackoffCeiling)
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultLoginURL, cfg.LoginURL)
	})

	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultLoginURL, cfg.LoginURL)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
login_url: https://staging.trainingpeaks.com/login
headless: false
web_auth_timeout_ms: 45000
refresh_cooldown_ms: 5000
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "https://staging.trainingpeaks.com/login", cfg.LoginURL)
		assert.False(t, cfg.Headless)
		assert.Equal(t, 45*time.Second, cfg.WebAuthTimeout)
		assert.Equal(t, 5*time.Second, cfg.RefreshCooldownBase)
		// Untouched fields keep defaults
		assert.Equal(t, DefaultAPIHost, cfg.APIHost)
		assert.Equal(t, 2*time.Second, cfg.ElementWaitTimeout)
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("login_url: [unclosed"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TP_LOGIN_URL", "https://env.trainingpeaks.com/login")
	t.Setenv("TP_HEADLESS", "false")
	t.Setenv("TP_WEB_AUTH_TIMEOUT_MS", "60000")
	t.Setenv("TP_LAUNCH_TIMEOUT_MS", "not-a-number")
	t.Setenv("TP_ERROR_POLL_INTERVAL_MS", "250")
	t.Setenv("TP_REFRESH_THRESHOLD_MS", "120000")
	t.Setenv("TP_TOKEN_LIFETIME_FALLBACK_MS", "1800000")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "https://env.trainingpeaks.com/login", cfg.LoginURL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 60*time.Second, cfg.WebAuthTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.ErrorPollInterval)
	assert.Equal(t, 2*time.Minute, cfg.RefreshThreshold)
	assert.Equal(t, 30*time.Minute, cfg.TokenLifetimeFallback)
	// Malformed value leaves the default alone
	assert.Equal(t, 20*time.Second, cfg.LaunchTimeout)
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TP_API_HOST=api.example.com\n"), 0644))
		t.Setenv("TP_API_HOST", "") // ensure godotenv can set it
		os.Unsetenv("TP_API_HOST")

		require.NoError(t, LoadEnvFile(path))
		t.Cleanup(func() { os.Unsetenv("TP_API_HOST") })

		cfg := Default()
		cfg.ApplyEnv()
		assert.Equal(t, "api.example.com", cfg.APIHost)
	})
}
