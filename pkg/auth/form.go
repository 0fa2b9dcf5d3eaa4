package auth

import (
	"fmt"
	"strings"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/browser"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/config"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

// The login page's markup is not under our control and has shipped several
// variants over time. The username field has been stable; password and
// submit controls are located by trying candidates in priority order with a
// short per-candidate timeout, which bounds total latency while tolerating
// markup drift.
const (
	usernameSelector      = "#username"
	cookieConsentSelector = "#onetrust-accept-btn-handler"
)

// selectorCandidate is one entry of a fallback chain.
type selectorCandidate struct {
	name     string
	selector string
}

var passwordSelectors = []selectorCandidate{
	{"id", "#password"},
	{"name attribute", `input[name="password"]`},
	{"input type", `input[type="password"]`},
	{"test id", `[data-cy="password"]`},
}

var submitSelectors = []selectorCandidate{
	{"submit type", `button[type="submit"]`},
	{"button id", "#btnSubmit"},
	{"test id", `[data-cy="submit"]`},
	{"button text", `button:has-text("Log In")`},
}

// formDriver executes the interactive steps of the web login.
type formDriver struct {
	cfg *config.Config
	log *logging.Logger

	// onSubmitted fires after the form is submitted, before the post-submit
	// wait, so banner polling can start at the right moment
	onSubmitted func()
}

func newFormDriver(cfg *config.Config, log *logging.Logger, onSubmitted func()) *formDriver {
	return &formDriver{
		cfg:         cfg,
		log:         log,
		onSubmitted: onSubmitted,
	}
}

// PerformLogin navigates to the login page, fills the credential fields and
// submits the form. Missing required fields are fatal; the cookie banner is
// best-effort.
func (d *formDriver) PerformLogin(page browser.Page, creds Credentials) error {
	d.log.Debugf("navigating to %s", d.cfg.LoginURL)
	err := page.Goto(d.cfg.LoginURL, browser.GotoOptions{
		WaitUntil: "networkidle",
		Timeout:   d.cfg.PageWaitTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	d.dismissCookieBanner(page)

	if err := page.Fill(usernameSelector, creds.Username, d.cfg.ElementWaitTimeout); err != nil {
		return fmt.Errorf("%w: username field %q: %v", ErrFieldNotFound, usernameSelector, err)
	}

	if err := d.fillFirst(page, passwordSelectors, creds.Password, "password"); err != nil {
		return err
	}

	if err := d.clickFirst(page, submitSelectors, "submit control"); err != nil {
		return err
	}
	d.log.Debugf("login form submitted")
	if d.onSubmitted != nil {
		d.onSubmitted()
	}

	// Wait for the resulting navigation/DOM update. A slow settle here is
	// not fatal; the completion tracker owns the real deadline
	if err := page.WaitForLoadState("networkidle", d.cfg.PageWaitTimeout); err != nil {
		d.log.Debugf("post-submit load wait: %v", err)
	}

	return nil
}

// dismissCookieBanner clicks the consent banner if present. Absence is not
// an error.
func (d *formDriver) dismissCookieBanner(page browser.Page) {
	if err := page.Click(cookieConsentSelector, d.cfg.ElementWaitTimeout); err != nil {
		d.log.Debugf("no cookie banner: %v", err)
		return
	}
	d.log.Debugf("cookie banner dismissed")
}

// fillFirst fills the first candidate that matches. Exhausting the chain is
// fatal, with an error naming every attempted selector.
func (d *formDriver) fillFirst(page browser.Page, candidates []selectorCandidate, value, field string) error {
	for _, candidate := range candidates {
		if err := page.Fill(candidate.selector, value, d.cfg.ElementWaitTimeout); err != nil {
			d.log.Debugf("%s candidate %s (%s): %v", field, candidate.name, candidate.selector, err)
			continue
		}
		d.log.Debugf("%s filled via %s", field, candidate.name)
		return nil
	}
	return fmt.Errorf("%w: %s field, tried %s", ErrFieldNotFound, field, describeCandidates(candidates))
}

// clickFirst clicks the first candidate that matches, same policy as
// fillFirst.
func (d *formDriver) clickFirst(page browser.Page, candidates []selectorCandidate, control string) error {
	for _, candidate := range candidates {
		if err := page.Click(candidate.selector, d.cfg.ElementWaitTimeout); err != nil {
			d.log.Debugf("%s candidate %s (%s): %v", control, candidate.name, candidate.selector, err)
			continue
		}
		d.log.Debugf("%s clicked via %s", control, candidate.name)
		return nil
	}
	return fmt.Errorf("%w: %s, tried %s", ErrFieldNotFound, control, describeCandidates(candidates))
}

func describeCandidates(candidates []selectorCandidate) string {
	selectors := make([]string, len(candidates))
	for i, candidate := range candidates {
		selectors[i] = candidate.selector
	}
	return strings.Join(selectors, ", ")
}
