package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/browser"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/config"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

// errorBannerSelectors are the known markup variants for the login page's
// inline error banner, probed in order.
var errorBannerSelectors = []string{
	"[data-cy='invalid-credentials-message']",
	".login-error",
	".error-message",
	".alert-danger",
}

// credentialErrorFragments identify banner text that means the credentials
// were rejected, as opposed to unrelated validation text.
var credentialErrorFragments = []string{
	"incorrect",
	"invalid",
	"username or password",
}

// pageErrorFragments identify page script errors that indicate an
// authentication problem rather than an unrelated frontend bug.
var pageErrorFragments = []string{
	"auth",
	"unauthorized",
	"forbidden",
	"login",
}

// bannerProbeTimeout bounds each banner selector probe. The poll runs every
// second; probes have to be much shorter than the interval.
const bannerProbeTimeout = 250 * time.Millisecond

// loginOutcome is the tracker's single settlement value.
type loginOutcome struct {
	token  *AuthToken
	userID string
	err    error
}

// interceptedSignal accumulates partial progress for one login attempt. It
// never escapes the tracker and is discarded after settlement.
type interceptedSignal struct {
	token  *AuthToken
	userID string
}

// completionTracker aggregates every signal of one login attempt (token
// response, profile response, platform error responses, inline error
// banners, page script errors, and the overall deadline) into a single
// settle-once outcome.
//
// Listeners fire on Playwright's event goroutines in any order; settleOnce
// guarantees exactly one settlement no matter how they race. Success needs
// both the token and the user id; any failure signal short-circuits and
// discards partial progress.
type completionTracker struct {
	cfg *config.Config
	log *logging.Logger

	done       chan loginOutcome
	settled    chan struct{}
	settleOnce sync.Once

	mu        sync.Mutex
	signal    interceptedSignal
	submitted bool

	// start anchors the attempt deadline: the tracker is created at the top
	// of the attempt, and Await spends whatever budget is left
	start time.Time
	now   func() time.Time
}

func newCompletionTracker(cfg *config.Config, log *logging.Logger) *completionTracker {
	t := &completionTracker{
		cfg:     cfg,
		log:     log,
		done:    make(chan loginOutcome, 1),
		settled: make(chan struct{}),
		now:     time.Now,
	}
	t.start = t.now()
	return t
}

// Attach subscribes the tracker to the page's network and error events.
// Must be called before navigation so the token response cannot be missed.
func (t *completionTracker) Attach(page browser.Page) {
	page.OnRequest(t.handleRequest)
	page.OnResponse(t.handleResponse)
	page.OnPageError(t.handlePageError)
}

// MarkSubmitted records that the form has been submitted. Banner checks are
// gated on this flag so pre-submission validation text never fails the
// attempt.
func (t *completionTracker) MarkSubmitted() {
	t.mu.Lock()
	t.submitted = true
	t.mu.Unlock()
}

// settle records the outcome exactly once. Later signals are ignored.
func (t *completionTracker) settle(outcome loginOutcome) {
	t.settleOnce.Do(func() {
		t.done <- outcome
		close(t.settled)
	})
}

// handleRequest logs recognized API traffic for debugging. Requests never
// gate completion.
func (t *completionTracker) handleRequest(req browser.Request) {
	url := req.URL()
	if !isPlatformURL(url) || !strings.Contains(url, "/users/") {
		return
	}
	t.log.Debugf("request %s %s headers=%v body=%s",
		req.Method(), url,
		logging.RedactHeaders(req.Headers()),
		logging.RedactBody(req.PostData()))
}

// handleResponse recognizes the token and profile responses and fails fast
// on platform error statuses.
func (t *completionTracker) handleResponse(resp browser.Response) {
	url := resp.URL()
	status := resp.Status()

	switch {
	case isTokenURL(url):
		t.handleTokenResponse(url, status, resp)
	case isUserURL(url) && status >= 200 && status < 300:
		t.handleUserResponse(url, resp)
	}

	// Invalid credentials surface as 401s (and other 4xx on the API host)
	// on several internal endpoints, not just the two recognized paths
	if status == 401 && isPlatformURL(url) {
		t.settle(loginOutcome{err: fmt.Errorf("%w: %s returned 401", ErrInvalidCredentials, url)})
		return
	}
	if status >= 400 && status < 500 && isAPIURL(url, t.cfg.APIHost) {
		t.settle(loginOutcome{err: fmt.Errorf("%w: %s returned %d", ErrInvalidCredentials, url, status)})
	}
}

func (t *completionTracker) handleTokenResponse(url string, status int, resp browser.Response) {
	if status == 401 {
		t.settle(loginOutcome{err: fmt.Errorf("%w: token endpoint returned 401", ErrInvalidCredentials)})
		return
	}
	if status >= 400 && status < 500 && isPlatformURL(url) {
		t.settle(loginOutcome{err: fmt.Errorf("%w: token endpoint returned %d", ErrInvalidCredentials, status)})
		return
	}
	if status < 200 || status >= 300 {
		return
	}

	body, err := resp.Body()
	if err != nil {
		// Without the token body the attempt can never complete; report
		// it now instead of burning the rest of the deadline
		t.settle(loginOutcome{err: fmt.Errorf("%w: token response body unreadable: %v", ErrIncompleteData, err)})
		return
	}

	token, ok := tokenFromJSON(body, t.cfg.TokenLifetimeFallback, t.now())
	if !ok {
		t.log.Warnf("token response from %s carried no access token", url)
		return
	}

	t.mu.Lock()
	t.signal.token = token
	t.mu.Unlock()
	t.log.Debugf("token signal received (expires %s)", token.ExpiresAt.Format(time.RFC3339))
	t.checkComplete()
}

func (t *completionTracker) handleUserResponse(url string, resp browser.Response) {
	body, err := resp.Body()
	if err != nil {
		t.log.Warnf("user response body unreadable: %v", err)
		return
	}

	userID, ok := userIDFromJSON(body)
	if !ok {
		t.log.Warnf("user response from %s carried no user id", url)
		return
	}

	t.mu.Lock()
	t.signal.userID = userID
	t.mu.Unlock()
	t.log.Debugf("user signal received (id %s)", userID)
	t.checkComplete()
}

// handlePageError fails the attempt on script errors that mention
// authentication terms; anything else is logged and ignored.
func (t *completionTracker) handlePageError(err error) {
	message := strings.ToLower(err.Error())
	for _, fragment := range pageErrorFragments {
		if strings.Contains(message, fragment) {
			t.settle(loginOutcome{err: fmt.Errorf("%w: page error: %v", ErrInvalidCredentials, err)})
			return
		}
	}
	t.log.Debugf("ignoring page error: %v", err)
}

// checkComplete settles successfully once both signals are present.
// Arrival order is not significant.
func (t *completionTracker) checkComplete() {
	t.mu.Lock()
	token := t.signal.token
	userID := t.signal.userID
	t.mu.Unlock()

	if token != nil && userID != "" {
		t.settle(loginOutcome{token: token, userID: userID})
	}
}

// pollErrorBanners probes the page for inline error banners on a fixed
// interval until the attempt settles or the context is canceled.
func (t *completionTracker) pollErrorBanners(ctx context.Context, page browser.Page) {
	ticker := time.NewTicker(t.cfg.ErrorPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.settled:
			return
		case <-ticker.C:
			t.CheckErrorBanner(page)
		}
	}
}

// CheckErrorBanner runs one pass over the banner selector candidates. It is
// a no-op until the form has been submitted.
func (t *completionTracker) CheckErrorBanner(page browser.Page) {
	t.mu.Lock()
	submitted := t.submitted
	t.mu.Unlock()
	if !submitted {
		return
	}

	for _, selector := range errorBannerSelectors {
		text, err := page.TextContent(selector, bannerProbeTimeout)
		if err != nil || text == "" {
			continue
		}
		lower := strings.ToLower(text)
		for _, fragment := range credentialErrorFragments {
			if strings.Contains(lower, fragment) {
				t.settle(loginOutcome{err: fmt.Errorf("%w: %s", ErrInvalidCredentials, strings.TrimSpace(text))})
				return
			}
		}
	}
}

// Await blocks until the attempt settles, the overall deadline elapses, or
// the context is canceled. Timeout with partial progress reports
// ErrIncompleteData; timeout with none reports ErrTimeout.
//
// The deadline is measured from tracker creation, so time spent launching
// the browser and driving the form counts against the same budget.
func (t *completionTracker) Await(ctx context.Context) (*AuthToken, string, error) {
	remaining := t.cfg.WebAuthTimeout - t.now().Sub(t.start)
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case outcome := <-t.done:
		return outcome.token, outcome.userID, outcome.err

	case <-timer.C:
		t.mu.Lock()
		partial := t.signal.token != nil || t.signal.userID != ""
		t.mu.Unlock()

		if partial {
			t.settle(loginOutcome{err: fmt.Errorf("%w after %s", ErrIncompleteData, t.cfg.WebAuthTimeout)})
		} else {
			t.settle(loginOutcome{err: fmt.Errorf("%w after %s", ErrTimeout, t.cfg.WebAuthTimeout)})
		}
		outcome := <-t.done
		return outcome.token, outcome.userID, outcome.err

	case <-ctx.Done():
		t.settle(loginOutcome{err: fmt.Errorf("login canceled: %w", ctx.Err())})
		outcome := <-t.done
		return outcome.token, outcome.userID, outcome.err
	}
}
