// Package browser defines the headless browser port used by the login flow
// and its Playwright implementation.
//
// The whole automation engine sits behind small interfaces (Engine, Browser,
// Page) so the form driver and the network completion tracker can be tested
// against a fake without launching a real browser. Only the capabilities the
// login flow needs are exposed: navigate, wait, fill, click, read text, and
// subscribe to request/response/page-error events.
package browser

import (
	"time"
)

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// ExecutablePath optionally overrides the browser binary
	ExecutablePath string

	// Timeout bounds browser startup
	Timeout time.Duration
}

// PageOptions configures a new page and its context.
type PageOptions struct {
	// UserAgent is applied to the browser context
	UserAgent string

	// DefaultTimeout is the page-level default for operations
	DefaultTimeout time.Duration
}

// GotoOptions configures page navigation behavior.
type GotoOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout bounds the navigation (0 means page default)
	Timeout time.Duration
}

// Engine launches browser instances. Implementations: Playwright (production)
// and fakes (tests).
type Engine interface {
	// Launch starts a browser instance.
	Launch(opts LaunchOptions) (Browser, error)

	// Stop releases the engine itself. Safe to call once all browsers
	// are closed.
	Stop() error
}

// Browser is a running browser instance.
type Browser interface {
	// NewPage opens a page in a fresh context.
	NewPage(opts PageOptions) (Page, error)

	// Close shuts the browser down, closing any open pages.
	Close() error
}

// Page is one browser page with DOM access and network event hooks.
type Page interface {
	// Goto navigates to the URL and waits for the configured condition.
	Goto(url string, opts GotoOptions) error

	// WaitForLoadState waits for the page to reach a load state
	// ("load", "domcontentloaded", "networkidle").
	WaitForLoadState(state string, timeout time.Duration) error

	// WaitForSelector waits until an element matching the selector is
	// visible.
	WaitForSelector(selector string, timeout time.Duration) error

	// Fill sets the value of the input matching the selector.
	Fill(selector, value string, timeout time.Duration) error

	// Click clicks the element matching the selector.
	Click(selector string, timeout time.Duration) error

	// TextContent returns the text content of the first element matching
	// the selector.
	TextContent(selector string, timeout time.Duration) (string, error)

	// OnRequest subscribes to outgoing network requests.
	OnRequest(handler func(Request))

	// OnResponse subscribes to incoming network responses.
	OnResponse(handler func(Response))

	// OnPageError subscribes to uncaught page script errors.
	OnPageError(handler func(error))

	// Close closes the page and its context.
	Close() error
}

// Request is an outgoing network request observed on a page.
type Request interface {
	Method() string
	URL() string
	Headers() map[string]string
	PostData() string
}

// Response is an incoming network response observed on a page.
type Response interface {
	URL() string
	Status() int
	Body() ([]byte, error)
}
