package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/config"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

// refreshKey is the singleflight key; there is one token per coordinator,
// so all callers share one flight.
const refreshKey = "token-refresh"

// RefreshCoordinator keeps the stored token fresh. Concurrent callers of
// EnsureValidToken share a single upstream refresh (singleflight), and
// failed attempts are spaced by an exponential cooldown: base doubled per
// consecutive failure, capped at the ceiling, keyed off the last attempt
// timestamp. The failure count resets on the first subsequent success.
//
// Refresh failures never propagate: callers see a nil token and decide for
// themselves whether to force a new login.
type RefreshCoordinator struct {
	cfg     *config.Config
	client  HTTPClient
	storage SessionStorage
	log     *logging.Logger

	group singleflight.Group

	mu          sync.Mutex
	lastAttempt time.Time
	failures    int

	// now is swappable for cooldown tests
	now func() time.Time
}

// NewRefreshCoordinator creates a coordinator over the given storage and
// transport.
func NewRefreshCoordinator(cfg *config.Config, client HTTPClient, storage SessionStorage, log *logging.Logger) *RefreshCoordinator {
	return &RefreshCoordinator{
		cfg:     cfg,
		client:  client,
		storage: storage,
		log:     log,
		now:     time.Now,
	}
}

// EnsureValidToken returns a token usable right now, or nil when none can be
// produced. Decision order: no session → nil; token comfortably fresh →
// current token; token not refreshable → nil; cooldown pending → current
// token if unexpired, else nil; otherwise refresh and return the result.
// Concurrent callers share one flight.
func (r *RefreshCoordinator) EnsureValidToken(ctx context.Context) (*AuthToken, error) {
	session, err := r.storage.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if session == nil || session.Token.AccessToken == "" {
		return nil, nil
	}
	if !session.Token.NearExpiryAt(r.now(), r.cfg.RefreshThreshold) {
		token := session.Token
		return &token, nil
	}

	// Near expiry: coordinate through singleflight. The flight re-reads the
	// session and re-runs the decision table, so a caller whose flight starts
	// after another just finished sees the refreshed state instead of
	// refreshing a token that no longer needs it.
	result, _, _ := r.group.Do(refreshKey, func() (interface{}, error) {
		return r.refreshIfNeeded(ctx), nil
	})

	token, _ := result.(*AuthToken)
	return token, nil
}

// refreshIfNeeded evaluates the decision table against the current stored
// session and refreshes only when the token still needs it. Runs inside the
// singleflight, so at most one execution is live at a time.
func (r *RefreshCoordinator) refreshIfNeeded(ctx context.Context) *AuthToken {
	session, err := r.storage.Get(ctx)
	if err != nil {
		r.log.Warnf("failed to read session for refresh: %v", err)
		return nil
	}
	if session == nil || session.Token.AccessToken == "" {
		return nil
	}

	token := session.Token
	now := r.now()
	if !token.NearExpiryAt(now, r.cfg.RefreshThreshold) {
		return &token
	}
	if !token.Refreshable() {
		r.log.Debugf("token near expiry but carries no refresh token")
		return nil
	}

	r.mu.Lock()
	if !r.cooldownElapsedLocked(now) {
		r.mu.Unlock()
		if token.ExpiredAt(now) {
			return nil
		}
		return &token
	}
	r.lastAttempt = now
	r.mu.Unlock()

	refreshed, refreshErr := r.refresh(ctx, *session)

	r.mu.Lock()
	if refreshErr != nil {
		r.failures++
	} else {
		r.failures = 0
	}
	cooldown := r.cooldownLocked()
	r.mu.Unlock()

	if refreshErr != nil {
		r.log.Warnf("token refresh failed (next attempt in %s): %v", cooldown, refreshErr)
		return nil
	}
	return refreshed
}

// refresh calls the platform's refresh endpoint and replaces the stored
// session wholesale on success. Storage is left untouched on failure.
func (r *RefreshCoordinator) refresh(ctx context.Context, session Session) (*AuthToken, error) {
	url := "https://" + r.cfg.APIHost + refreshPath
	body, err := json.Marshal(map[string]string{
		"refresh_token": session.Token.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	resp, err := r.client.Post(ctx, url, body, nil)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("refresh endpoint returned %d", resp.Status)
	}

	token, ok := tokenFromJSON(resp.Body, r.cfg.TokenLifetimeFallback, r.now())
	if !ok {
		return nil, errors.New("refresh response carried no access token")
	}
	// The platform does not always rotate the refresh token; keep the old
	// one so the session stays refreshable
	if token.RefreshToken == "" {
		token.RefreshToken = session.Token.RefreshToken
	}

	updated := Session{Token: *token, User: session.User}
	if err := r.storage.Set(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed session: %w", err)
	}

	r.log.Infof("token refreshed, expires %s", token.ExpiresAt.Format(time.RFC3339))
	return token, nil
}

// cooldownLocked computes the current cooldown from the failure count.
// Caller holds r.mu.
func (r *RefreshCoordinator) cooldownLocked() time.Duration {
	if r.failures == 0 {
		return 0
	}
	cooldown := r.cfg.RefreshCooldownBase
	for i := 1; i < r.failures; i++ {
		cooldown *= 2
		if cooldown >= r.cfg.RefreshBackoffCeiling {
			return r.cfg.RefreshBackoffCeiling
		}
	}
	if cooldown > r.cfg.RefreshBackoffCeiling {
		return r.cfg.RefreshBackoffCeiling
	}
	return cooldown
}

// cooldownElapsedLocked reports whether enough time has passed since the
// last attempt. Caller holds r.mu.
func (r *RefreshCoordinator) cooldownElapsedLocked(now time.Time) bool {
	cooldown := r.cooldownLocked()
	if cooldown == 0 {
		return true
	}
	return now.Sub(r.lastAttempt) >= cooldown
}
