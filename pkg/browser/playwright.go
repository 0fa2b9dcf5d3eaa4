package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine implements Engine on top of playwright-go.
// The driver is installed and started lazily on the first Launch.
type PlaywrightEngine struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
}

// NewPlaywrightEngine creates an engine backed by Playwright's bundled
// Chromium.
func NewPlaywrightEngine() *PlaywrightEngine {
	return &PlaywrightEngine{}
}

// initialize installs and starts the Playwright driver once.
func (e *PlaywrightEngine) initialize() error {
	if e.initialized {
		return nil
	}

	// Install and run Playwright with verbose=false and discard output so
	// driver chatter never reaches the caller's stdout
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	e.playwright = pw
	e.initialized = true
	return nil
}

// Launch starts a Chromium instance.
func (e *PlaywrightEngine) Launch(opts LaunchOptions) (Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.initialize(); err != nil {
		return nil, err
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}
	if opts.Timeout > 0 {
		launchOpts.Timeout = playwright.Float(ms(opts.Timeout))
	}

	browser, err := e.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &pwBrowser{browser: browser}, nil
}

// Stop shuts the Playwright driver down.
func (e *PlaywrightEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || e.playwright == nil {
		return nil
	}
	if err := e.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	e.initialized = false
	return nil
}

// pwBrowser wraps a Playwright browser instance.
type pwBrowser struct {
	browser playwright.Browser
}

// NewPage creates a context with the configured user agent and opens a page.
func (b *pwBrowser) NewPage(opts PageOptions) (Page, error) {
	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}

	context, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.DefaultTimeout > 0 {
		page.SetDefaultTimeout(ms(opts.DefaultTimeout))
	}

	return &pwPage{page: page, context: context}, nil
}

func (b *pwBrowser) Close() error {
	if err := b.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// pwPage wraps a Playwright page together with its owning context.
type pwPage struct {
	page    playwright.Page
	context playwright.BrowserContext
}

func (p *pwPage) Goto(url string, opts GotoOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(ms(opts.Timeout))
	}

	if _, err := p.page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *pwPage) WaitForLoadState(state string, timeout time.Duration) error {
	loadState := playwright.LoadState(state)
	playwrightOpts := playwright.PageWaitForLoadStateOptions{
		State: &loadState,
	}
	if timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(ms(timeout))
	}

	if err := p.page.WaitForLoadState(playwrightOpts); err != nil {
		return fmt.Errorf("wait for load state failed: %w", err)
	}
	return nil
}

func (p *pwPage) WaitForSelector(selector string, timeout time.Duration) error {
	playwrightOpts := playwright.PageWaitForSelectorOptions{
		// The predefined states are exported as pointers already
		State: playwright.WaitForSelectorStateVisible,
	}
	if timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(ms(timeout))
	}

	if _, err := p.page.WaitForSelector(selector, playwrightOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

func (p *pwPage) Fill(selector, value string, timeout time.Duration) error {
	playwrightOpts := playwright.PageFillOptions{}
	if timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(ms(timeout))
	}

	if err := p.page.Fill(selector, value, playwrightOpts); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	playwrightOpts := playwright.PageClickOptions{}
	if timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(ms(timeout))
	}

	if err := p.page.Click(selector, playwrightOpts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (p *pwPage) TextContent(selector string, timeout time.Duration) (string, error) {
	playwrightOpts := playwright.PageTextContentOptions{}
	if timeout > 0 {
		playwrightOpts.Timeout = playwright.Float(ms(timeout))
	}

	text, err := p.page.TextContent(selector, playwrightOpts)
	if err != nil {
		return "", fmt.Errorf("text content failed: %w", err)
	}
	return text, nil
}

func (p *pwPage) OnRequest(handler func(Request)) {
	p.page.OnRequest(func(request playwright.Request) {
		handler(&pwRequest{request: request})
	})
}

func (p *pwPage) OnResponse(handler func(Response)) {
	p.page.OnResponse(func(response playwright.Response) {
		handler(&pwResponse{response: response})
	})
}

func (p *pwPage) OnPageError(handler func(error)) {
	p.page.OnPageError(func(err error) {
		handler(err)
	})
}

func (p *pwPage) Close() error {
	_ = p.page.Close() // Ignore errors, continue cleanup
	if err := p.context.Close(); err != nil {
		return fmt.Errorf("failed to close context: %w", err)
	}
	return nil
}

// pwRequest adapts a Playwright request to the port.
type pwRequest struct {
	request playwright.Request
}

func (r *pwRequest) Method() string { return r.request.Method() }
func (r *pwRequest) URL() string    { return r.request.URL() }

func (r *pwRequest) Headers() map[string]string {
	return r.request.Headers()
}

func (r *pwRequest) PostData() string {
	data, err := r.request.PostData()
	if err != nil {
		return ""
	}
	return data
}

// pwResponse adapts a Playwright response to the port.
type pwResponse struct {
	response playwright.Response
}

func (r *pwResponse) URL() string { return r.response.URL() }
func (r *pwResponse) Status() int { return r.response.Status() }

func (r *pwResponse) Body() ([]byte, error) {
	return r.response.Body()
}

// ms converts a duration to Playwright's millisecond floats.
func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
