// Package config holds the explicit configuration for the SDK.
//
// A single Config value is constructed at startup and passed to every
// component that needs it. There is deliberately no global singleton: the
// authenticator, browser controller and refresh coordinator all receive the
// same *Config by injection, which keeps tests free to build their own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for every tunable. Durations follow the platform's observed
// latency: the web login flow routinely takes 10-20s on a cold browser.
const (
	DefaultLoginURL = "https://home.trainingpeaks.com/login"
	DefaultAPIHost  = "tpapi.trainingpeaks.com"

	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultWebAuthTimeout     = 30 * time.Second
	defaultAPIAuthTimeout     = 10 * time.Second
	defaultTimeout            = 10 * time.Second
	defaultElementWaitTimeout = 2 * time.Second
	defaultLaunchTimeout      = 20 * time.Second
	defaultPageWaitTimeout    = 15 * time.Second
	defaultErrorPollInterval  = 1 * time.Second

	defaultRefreshThreshold      = 5 * time.Minute
	defaultRefreshCooldownBase   = 30 * time.Second
	defaultRefreshBackoffCeiling = 10 * time.Minute
	defaultTokenLifetimeFallback = 1 * time.Hour
)

// Config is the full configuration surface consumed by the SDK.
type Config struct {
	// LoginURL is the target of the browser navigation.
	LoginURL string

	// APIHost is the platform's API host, used to recognize intercepted
	// token/profile traffic and to build refresh/profile requests.
	APIHost string

	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// ExecutablePath optionally overrides the browser binary.
	ExecutablePath string

	// UserAgent is applied to the browser context and API requests.
	UserAgent string

	// WebAuthTimeout bounds the whole browser login attempt.
	WebAuthTimeout time.Duration

	// APIAuthTimeout bounds direct API calls (refresh, profile fetch).
	APIAuthTimeout time.Duration

	// DefaultTimeout is the page-level default for browser operations.
	DefaultTimeout time.Duration

	// ElementWaitTimeout is the per-candidate timeout when trying selector
	// fallback chains.
	ElementWaitTimeout time.Duration

	// LaunchTimeout bounds browser startup.
	LaunchTimeout time.Duration

	// PageWaitTimeout bounds navigation and post-submit load waits.
	PageWaitTimeout time.Duration

	// ErrorPollInterval is the cadence of the inline error banner poll.
	ErrorPollInterval time.Duration

	// RefreshThreshold is how close to expiry a token may get before
	// EnsureValidToken refreshes it.
	RefreshThreshold time.Duration

	// RefreshCooldownBase is the minimum wait between refresh attempts.
	// Consecutive failures double it up to RefreshBackoffCeiling.
	RefreshCooldownBase time.Duration

	// RefreshBackoffCeiling caps the scaled cooldown.
	RefreshBackoffCeiling time.Duration

	// TokenLifetimeFallback is assumed when a token response carries no
	// expiry and the access token is not a decodable JWT.
	TokenLifetimeFallback time.Duration
}

// fileConfig is the YAML wire form. All durations are in milliseconds, as the
// platform tooling has always expressed them.
type fileConfig struct {
	LoginURL                string `yaml:"login_url"`
	APIHost                 string `yaml:"api_host"`
	Headless                *bool  `yaml:"headless"`
	ExecutablePath          string `yaml:"executable_path"`
	UserAgent               string `yaml:"user_agent"`
	WebAuthTimeoutMS        int64  `yaml:"web_auth_timeout_ms"`
	APIAuthTimeoutMS        int64  `yaml:"api_auth_timeout_ms"`
	DefaultTimeoutMS        int64  `yaml:"default_timeout_ms"`
	ElementWaitTimeoutMS    int64  `yaml:"element_wait_timeout_ms"`
	LaunchTimeoutMS         int64  `yaml:"launch_timeout_ms"`
	PageWaitTimeoutMS       int64  `yaml:"page_wait_timeout_ms"`
	ErrorPollIntervalMS     int64  `yaml:"error_poll_interval_ms"`
	RefreshThresholdMS      int64  `yaml:"refresh_threshold_ms"`
	RefreshCooldownMS       int64  `yaml:"refresh_cooldown_ms"`
	RefreshBackoffCeilingMS int64  `yaml:"refresh_backoff_ceiling_ms"`
	TokenLifetimeFallbackMS int64  `yaml:"token_lifetime_fallback_ms"`
}

// Default returns a Config populated with production defaults.
func Default() *Config {
	return &Config{
		LoginURL:              DefaultLoginURL,
		APIHost:               DefaultAPIHost,
		Headless:              true,
		UserAgent:             DefaultUserAgent,
		WebAuthTimeout:        defaultWebAuthTimeout,
		APIAuthTimeout:        defaultAPIAuthTimeout,
		DefaultTimeout:        defaultTimeout,
		ElementWaitTimeout:    defaultElementWaitTimeout,
		LaunchTimeout:         defaultLaunchTimeout,
		PageWaitTimeout:       defaultPageWaitTimeout,
		ErrorPollInterval:     defaultErrorPollInterval,
		RefreshThreshold:      defaultRefreshThreshold,
		RefreshCooldownBase:   defaultRefreshCooldownBase,
		RefreshBackoffCeiling: defaultRefreshBackoffCeiling,
		TokenLifetimeFallback: defaultTokenLifetimeFallback,
	}
}

// Load reads a YAML config file and layers it over the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.apply(&fc)
	return cfg, nil
}

// apply copies every set field of the wire form onto the Config.
func (c *Config) apply(fc *fileConfig) {
	if fc.LoginURL != "" {
		c.LoginURL = fc.LoginURL
	}
	if fc.APIHost != "" {
		c.APIHost = fc.APIHost
	}
	if fc.Headless != nil {
		c.Headless = *fc.Headless
	}
	if fc.ExecutablePath != "" {
		c.ExecutablePath = fc.ExecutablePath
	}
	if fc.UserAgent != "" {
		c.UserAgent = fc.UserAgent
	}

	setDuration(&c.WebAuthTimeout, fc.WebAuthTimeoutMS)
	setDuration(&c.APIAuthTimeout, fc.APIAuthTimeoutMS)
	setDuration(&c.DefaultTimeout, fc.DefaultTimeoutMS)
	setDuration(&c.ElementWaitTimeout, fc.ElementWaitTimeoutMS)
	setDuration(&c.LaunchTimeout, fc.LaunchTimeoutMS)
	setDuration(&c.PageWaitTimeout, fc.PageWaitTimeoutMS)
	setDuration(&c.ErrorPollInterval, fc.ErrorPollIntervalMS)
	setDuration(&c.RefreshThreshold, fc.RefreshThresholdMS)
	setDuration(&c.RefreshCooldownBase, fc.RefreshCooldownMS)
	setDuration(&c.RefreshBackoffCeiling, fc.RefreshBackoffCeilingMS)
	setDuration(&c.TokenLifetimeFallback, fc.TokenLifetimeFallbackMS)
}

func setDuration(dst *time.Duration, ms int64) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

// LoadEnvFile loads a dotenv file into the process environment so ApplyEnv
// and credential lookups can see it. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from TP_* environment variables.
// Unset or malformed variables leave the current value in place.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TP_LOGIN_URL"); v != "" {
		c.LoginURL = v
	}
	if v := os.Getenv("TP_API_HOST"); v != "" {
		c.APIHost = v
	}
	if v := os.Getenv("TP_EXECUTABLE_PATH"); v != "" {
		c.ExecutablePath = v
	}
	if v := os.Getenv("TP_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("TP_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = b
		}
	}

	envDuration("TP_WEB_AUTH_TIMEOUT_MS", &c.WebAuthTimeout)
	envDuration("TP_API_AUTH_TIMEOUT_MS", &c.APIAuthTimeout)
	envDuration("TP_DEFAULT_TIMEOUT_MS", &c.DefaultTimeout)
	envDuration("TP_ELEMENT_WAIT_TIMEOUT_MS", &c.ElementWaitTimeout)
	envDuration("TP_LAUNCH_TIMEOUT_MS", &c.LaunchTimeout)
	envDuration("TP_PAGE_WAIT_TIMEOUT_MS", &c.PageWaitTimeout)
	envDuration("TP_ERROR_POLL_INTERVAL_MS", &c.ErrorPollInterval)
	envDuration("TP_REFRESH_THRESHOLD_MS", &c.RefreshThreshold)
	envDuration("TP_REFRESH_COOLDOWN_MS", &c.RefreshCooldownBase)
	envDuration("TP_REFRESH_BACKOFF_CEILING_MS", &c.RefreshBackoffCeiling)
	envDuration("TP_TOKEN_LIFETIME_FALLBACK_MS", &c.TokenLifetimeFallback)
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return
	}
	*dst = time.Duration(ms) * time.Millisecond
}
