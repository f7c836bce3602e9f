package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/polzovatel/paged-sum-solver/internal/config"
)

const (
	defaultNavTimeout = 30 * time.Second
	defaultActionTime = 10 * time.Second
)

// ErrTimeout is returned (wrapped) whenever a bounded browser wait expires.
var ErrTimeout = errors.New("browser: wait timed out")

// Target names one clickable control, either by ARIA role and accessible name or by CSS selector.
type Target struct {
	Role     string
	Name     string
	Exact    bool
	Selector string
}

func (t Target) String() string {
	if t.Selector != "" {
		return t.Selector
	}
	return fmt.Sprintf("role=%s name=%q", t.Role, t.Name)
}

// Response is the part of a network response the solver looks at.
type Response struct {
	Status int
	Method string
	URL    string
}

// Controller exposes the browser actions the solver needs.
type Controller interface {
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	Click(ctx context.Context, target Target) error
	Exists(ctx context.Context, target Target) (bool, error)
	Fill(ctx context.Context, selector, text string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	TextContent(ctx context.Context, selector string) (string, error)
	TextContents(ctx context.Context, selector string) ([]string, error)
	// ExpectResponse registers a response waiter, then runs trigger, then blocks until
	// a response satisfying match arrives or timeout expires.
	ExpectResponse(ctx context.Context, match func(Response) bool, timeout time.Duration, trigger func() error) (Response, error)
	SaveState(ctx context.Context, path string) error
	Page() playwright.Page
}

// Launcher owns playwright lifecycle.
type Launcher struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	headless bool
}

func NewLauncher(ctx context.Context, cfg config.BrowserConfig) (*Launcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--log-level=3",
		},
		IgnoreDefaultArgs: []string{"--enable-automation"},
	}
	if ch := strings.TrimSpace(cfg.Channel); ch != "" {
		opts.Channel = playwright.String(ch)
	}
	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Launcher{pw: pw, browser: browser, headless: cfg.Headless}, nil
}

// NewController opens a fresh context and page. storagePath is loaded when the file exists.
func (l *Launcher) NewController(ctx context.Context, storagePath string) (Controller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := playwright.BrowserNewContextOptions{}
	if strings.TrimSpace(storagePath) != "" {
		if _, err := os.Stat(storagePath); err == nil {
			opts.StorageStatePath = playwright.String(storagePath)
		}
	}
	context, err := l.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(defaultNavTimeout.Milliseconds()))
	return &controller{context: context, page: page}, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

type controller struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (c *controller) Page() playwright.Page {
	return c.page
}

func (c *controller) Close(ctx context.Context) error {
	_ = ctx
	if c.page != nil {
		_ = c.page.Close()
	}
	if c.context != nil {
		return c.context.Close()
	}
	return nil
}

func (c *controller) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = defaultNavTimeout
	}
	_, err := c.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return wrap(err)
}

func (c *controller) locate(target Target) playwright.Locator {
	if target.Selector != "" {
		return c.page.Locator(target.Selector)
	}
	aria := playwright.AriaRole(strings.ToLower(strings.TrimSpace(target.Role)))
	return c.page.GetByRole(aria, playwright.PageGetByRoleOptions{
		Name:  target.Name,
		Exact: playwright.Bool(target.Exact),
	})
}

func (c *controller) Click(ctx context.Context, target Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// First() avoids a strict mode violation when a label repeats (top and bottom paginators).
	first := c.locate(target).First()
	if err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(defaultActionTime.Milliseconds())),
	}); err != nil {
		return wrap(err)
	}
	return wrap(first.Click())
}

func (c *controller) Exists(ctx context.Context, target Target) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	n, err := c.locate(target).Count()
	if err != nil {
		return false, wrap(err)
	}
	return n > 0, nil
}

func (c *controller) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := c.page.Locator(selector)
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}); err != nil {
		return wrap(err)
	}
	return wrap(loc.Fill(text))
}

// WaitFor waits until the first element matching selector is visible.
func (c *controller) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = defaultActionTime
	}
	loc := c.page.Locator(selector).First()
	return wrap(loc.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
		State:   playwright.WaitForSelectorStateVisible,
	}))
}

func (c *controller) TextContent(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := c.page.Locator(selector).First().TextContent()
	if err != nil {
		return "", wrap(err)
	}
	return text, nil
}

func (c *controller) TextContents(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts, err := c.page.Locator(selector).AllTextContents()
	if err != nil {
		return nil, wrap(err)
	}
	return texts, nil
}

func (c *controller) ExpectResponse(ctx context.Context, match func(Response) bool, timeout time.Duration, trigger func() error) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if timeout <= 0 {
		timeout = defaultActionTime
	}
	predicate := func(r playwright.Response) bool {
		return match(toResponse(r))
	}
	// playwright registers the waiter before invoking the callback, so the
	// response cannot complete ahead of the listener.
	resp, err := c.page.ExpectResponse(predicate, trigger, playwright.PageExpectResponseOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return Response{}, wrap(err)
	}
	return toResponse(resp), nil
}

func (c *controller) SaveState(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := c.context.StorageState()
	if err != nil {
		return wrap(err)
	}
	data, err := json.MarshalIndent(state, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func toResponse(r playwright.Response) Response {
	out := Response{Status: r.Status(), URL: r.URL()}
	if req := r.Request(); req != nil {
		out.Method = req.Method()
	}
	return out
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("playwright: %w", err)
}
