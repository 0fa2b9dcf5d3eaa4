package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pablo-albaladejo/trainingpeaks-sdk-sub004/pkg/browser"
)

// Fake browser engine used across the auth tests. The fake page is driven
// from tests: selectors are registered as fillable/clickable, and network
// traffic is injected with emitResponse/emitPageError.

type fakeEngine struct {
	mu        sync.Mutex
	launchErr error
	pageErr   error
	browsers  []*fakeBrowser

	// configure configures every page the engine hands out
	configure func(*fakePage)
}

func (e *fakeEngine) Launch(opts browser.LaunchOptions) (browser.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.launchErr != nil {
		return nil, e.launchErr
	}
	b := &fakeBrowser{pageErr: e.pageErr, configure: e.configure}
	e.browsers = append(e.browsers, b)
	return b, nil
}

func (e *fakeEngine) Stop() error { return nil }

type fakeBrowser struct {
	pageErr   error
	configure func(*fakePage)
	closed    int
	pages     []*fakePage
}

func (b *fakeBrowser) NewPage(opts browser.PageOptions) (browser.Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	p := newFakePage()
	if b.configure != nil {
		b.configure(p)
	}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

type fillCall struct {
	selector string
	value    string
}

type fakePage struct {
	mu sync.Mutex

	fillable  map[string]bool
	clickable map[string]bool
	texts     map[string]string

	gotoErr  error
	gotoURLs []string
	fills    []fillCall
	clicks   []string
	closed   int

	// onClick fires after a successful click, outside the page lock, so
	// tests can emit responses at submit time
	onClick func(selector string)

	reqHandlers  []func(browser.Request)
	respHandlers []func(browser.Response)
	errHandlers  []func(error)
}

func newFakePage() *fakePage {
	return &fakePage{
		fillable:  make(map[string]bool),
		clickable: make(map[string]bool),
		texts:     make(map[string]string),
	}
}

func (p *fakePage) Goto(url string, opts browser.GotoOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gotoURLs = append(p.gotoURLs, url)
	return p.gotoErr
}

func (p *fakePage) WaitForLoadState(state string, timeout time.Duration) error { return nil }

func (p *fakePage) WaitForSelector(selector string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fillable[selector] || p.clickable[selector] {
		return nil
	}
	return fmt.Errorf("no element matching %q", selector)
}

func (p *fakePage) Fill(selector, value string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.fillable[selector] {
		return fmt.Errorf("no element matching %q", selector)
	}
	p.fills = append(p.fills, fillCall{selector: selector, value: value})
	return nil
}

func (p *fakePage) Click(selector string, timeout time.Duration) error {
	p.mu.Lock()
	if !p.clickable[selector] {
		p.mu.Unlock()
		return fmt.Errorf("no element matching %q", selector)
	}
	p.clicks = append(p.clicks, selector)
	onClick := p.onClick
	p.mu.Unlock()

	if onClick != nil {
		onClick(selector)
	}
	return nil
}

func (p *fakePage) TextContent(selector string, timeout time.Duration) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text, ok := p.texts[selector]
	if !ok {
		return "", fmt.Errorf("no element matching %q", selector)
	}
	return text, nil
}

func (p *fakePage) OnRequest(handler func(browser.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reqHandlers = append(p.reqHandlers, handler)
}

func (p *fakePage) OnResponse(handler func(browser.Response)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.respHandlers = append(p.respHandlers, handler)
}

func (p *fakePage) OnPageError(handler func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errHandlers = append(p.errHandlers, handler)
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePage) emitRequest(method, url string, headers map[string]string, body string) {
	p.mu.Lock()
	handlers := append([]func(browser.Request){}, p.reqHandlers...)
	p.mu.Unlock()
	req := &fakeRequest{method: method, url: url, headers: headers, body: body}
	for _, handler := range handlers {
		handler(req)
	}
}

func (p *fakePage) emitResponse(url string, status int, body string) {
	p.mu.Lock()
	handlers := append([]func(browser.Response){}, p.respHandlers...)
	p.mu.Unlock()
	resp := &fakeResponse{url: url, status: status, body: []byte(body)}
	for _, handler := range handlers {
		handler(resp)
	}
}

func (p *fakePage) emitBrokenResponse(url string, status int) {
	p.mu.Lock()
	handlers := append([]func(browser.Response){}, p.respHandlers...)
	p.mu.Unlock()
	resp := &fakeResponse{url: url, status: status, bodyErr: errors.New("body stream closed")}
	for _, handler := range handlers {
		handler(resp)
	}
}

func (p *fakePage) emitPageError(err error) {
	p.mu.Lock()
	handlers := append([]func(error){}, p.errHandlers...)
	p.mu.Unlock()
	for _, handler := range handlers {
		handler(err)
	}
}

type fakeRequest struct {
	method  string
	url     string
	headers map[string]string
	body    string
}

func (r *fakeRequest) Method() string             { return r.method }
func (r *fakeRequest) URL() string                { return r.url }
func (r *fakeRequest) Headers() map[string]string { return r.headers }
func (r *fakeRequest) PostData() string           { return r.body }

type fakeResponse struct {
	url     string
	status  int
	body    []byte
	bodyErr error
}

func (r *fakeResponse) URL() string { return r.url }
func (r *fakeResponse) Status() int { return r.status }
func (r *fakeResponse) Body() ([]byte, error) {
	if r.bodyErr != nil {
		return nil, r.bodyErr
	}
	return r.body, nil
}
