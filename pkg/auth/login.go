// Package auth implements authentication against the TrainingPeaks platform.
//
// The platform has no stable public login API; its only reliable login path
// is the interactive web form. Login drives a headless browser through that
// form while a network completion tracker intercepts the token and profile
// responses the flow issues as a side effect. Once a session exists,
// EnsureValidToken keeps the token fresh with a single-flight refresh
// against the platform's refresh endpoint.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/browser"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/config"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

// Authenticator is the entry point of the SDK: web login, session access,
// token refresh, logout.
type Authenticator struct {
	cfg        *config.Config
	engine     browser.Engine
	storage    SessionStorage
	httpClient HTTPClient
	log        *logging.Logger

	controller *browser.Controller
	refresher  *RefreshCoordinator
}

// Option customizes an Authenticator.
type Option func(*Authenticator)

// WithEngine replaces the browser engine (tests use a fake).
func WithEngine(engine browser.Engine) Option {
	return func(a *Authenticator) { a.engine = engine }
}

// WithStorage replaces the session storage backend.
func WithStorage(storage SessionStorage) Option {
	return func(a *Authenticator) { a.storage = storage }
}

// WithHTTPClient replaces the HTTP client used for refresh and profile
// calls.
func WithHTTPClient(client HTTPClient) Option {
	return func(a *Authenticator) { a.httpClient = client }
}

// WithLogger replaces the component logger.
func WithLogger(log *logging.Logger) Option {
	return func(a *Authenticator) { a.log = log }
}

// New creates an Authenticator. A nil config uses the defaults; unset
// collaborators get production implementations (Playwright engine, in-memory
// storage, net/http client).
func New(cfg *config.Config, opts ...Option) *Authenticator {
	if cfg == nil {
		cfg = config.Default()
	}

	a := &Authenticator{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.log == nil {
		a.log, _ = logging.NewLogger("auth")
	}
	if a.engine == nil {
		a.engine = browser.NewPlaywrightEngine()
	}
	if a.storage == nil {
		a.storage = NewMemoryStorage()
	}
	if a.httpClient == nil {
		a.httpClient = NewHTTPClient(cfg.APIAuthTimeout, cfg.UserAgent)
	}

	a.controller = browser.NewController(a.engine, cfg, a.log)
	a.refresher = NewRefreshCoordinator(cfg, a.httpClient, a.storage, a.log)
	return a
}

// Login authenticates with the platform through the web form and persists
// the resulting session. The browser resource is released on every exit
// path before the caller observes the result.
//
// Failures carry a sentinel from the taxonomy in errors.go, so callers can
// tell invalid credentials apart from transient failures.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	a.log.Infof("starting web login for user %q", creds.Username)

	// Created before the browser launch: the attempt deadline starts here,
	// so launch and form time count against it
	tracker := newCompletionTracker(a.cfg, a.log)

	handle, err := a.controller.Acquire()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}
	defer a.controller.Release(handle)

	tracker.Attach(handle.Page())

	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	go tracker.pollErrorBanners(pollCtx, handle.Page())

	form := newFormDriver(a.cfg, a.log, tracker.MarkSubmitted)
	if err := form.PerformLogin(handle.Page(), creds); err != nil {
		return nil, err
	}

	// One immediate banner check before settling into the event wait
	tracker.CheckErrorBanner(handle.Page())

	token, userID, err := tracker.Await(ctx)
	if err != nil {
		a.log.Warnf("login failed: %v", err)
		return nil, err
	}

	session := Session{
		Token: *token,
		User:  a.fetchUser(ctx, token, userID),
	}
	if err := a.storage.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	a.log.Infof("login complete for user id %s (token %s)", userID, logging.RedactToken(token.AccessToken))
	return &session, nil
}

// fetchUser enriches the intercepted user id with profile data from the
// API. Best effort: any failure falls back to the id alone.
func (a *Authenticator) fetchUser(ctx context.Context, token *AuthToken, userID string) User {
	user := User{ID: userID}

	url := "https://" + a.cfg.APIHost + userPath
	resp, err := a.httpClient.Get(ctx, url, map[string]string{
		"Authorization": token.Authorization(),
	})
	if err != nil {
		a.log.Debugf("profile fetch: %v", err)
		return user
	}
	if !resp.OK() {
		a.log.Debugf("profile fetch returned %d", resp.Status)
		return user
	}

	root := gjson.ParseBytes(resp.Body)
	node := root
	if nested := root.Get("user"); nested.IsObject() {
		node = nested
	}

	if name := node.Get("name").String(); name != "" {
		user.Name = name
	} else {
		full := strings.TrimSpace(node.Get("firstName").String() + " " + node.Get("lastName").String())
		user.Name = full
	}
	user.Avatar = node.Get("personPhotoUrl").String()

	if prefs := node.Get("preferences"); prefs.IsObject() {
		user.Preferences = make(map[string]string)
		prefs.ForEach(func(key, value gjson.Result) bool {
			user.Preferences[key.String()] = value.String()
			return true
		})
	}

	return user
}

// CurrentSession returns the persisted session, or nil when logged out.
func (a *Authenticator) CurrentSession(ctx context.Context) (*Session, error) {
	return a.storage.Get(ctx)
}

// CurrentUser returns the persisted user, or nil when logged out.
func (a *Authenticator) CurrentUser(ctx context.Context) (*User, error) {
	session, err := a.storage.Get(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	user := session.User
	return &user, nil
}

// EnsureValidToken returns a token valid for immediate use, refreshing it if
// needed, or nil when no usable token exists. See RefreshCoordinator.
func (a *Authenticator) EnsureValidToken(ctx context.Context) (*AuthToken, error) {
	return a.refresher.EnsureValidToken(ctx)
}

// Logout clears the persisted session. Always reported as successful:
// cleanup failures are logged, and clearing an already-empty store is fine.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.storage.Clear(ctx); err != nil {
		a.log.Warnf("session clear during logout: %v", err)
	}
	a.log.Infof("logged out")
	return nil
}

// Close releases the browser engine. Call once the Authenticator is no
// longer needed.
func (a *Authenticator) Close() error {
	return a.engine.Stop()
}
