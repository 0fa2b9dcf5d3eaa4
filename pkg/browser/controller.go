package browser

import (
	"fmt"
	"sync"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/config"
	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/logging"
)

// Controller owns the lifecycle of one browser instance per login attempt.
// Release is idempotent, so callers can defer it unconditionally and still
// release explicitly on handled failures.
type Controller struct {
	engine Engine
	cfg    *config.Config
	log    *logging.Logger
}

// Handle is a scoped browser resource: one instance, one page.
type Handle struct {
	browser     Browser
	page        Page
	releaseOnce sync.Once
}

// Page returns the handle's page.
func (h *Handle) Page() Page {
	return h.page
}

// NewController creates a controller over the given engine.
func NewController(engine Engine, cfg *config.Config, log *logging.Logger) *Controller {
	return &Controller{
		engine: engine,
		cfg:    cfg,
		log:    log,
	}
}

// Acquire launches a browser and opens a page configured for the login flow.
// Launch failure is fatal for the attempt and is reported, not retried.
func (c *Controller) Acquire() (*Handle, error) {
	browser, err := c.engine.Launch(LaunchOptions{
		Headless:       c.cfg.Headless,
		ExecutablePath: c.cfg.ExecutablePath,
		Timeout:        c.cfg.LaunchTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	page, err := browser.NewPage(PageOptions{
		UserAgent:      c.cfg.UserAgent,
		DefaultTimeout: c.cfg.DefaultTimeout,
	})
	if err != nil {
		if closeErr := browser.Close(); closeErr != nil {
			c.log.Warnf("browser close after failed page open: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	c.log.Debugf("browser acquired (headless=%v)", c.cfg.Headless)
	return &Handle{browser: browser, page: page}, nil
}

// Release closes the handle's page and browser. It runs at most once per
// handle; close errors are logged, never propagated, so cleanup cannot mask
// the login outcome.
func (c *Controller) Release(h *Handle) {
	if h == nil {
		return
	}
	h.releaseOnce.Do(func() {
		if err := h.page.Close(); err != nil {
			c.log.Warnf("page close: %v", err)
		}
		if err := h.browser.Close(); err != nil {
			c.log.Warnf("browser close: %v", err)
		}
		c.log.Debugf("browser released")
	})
}
