// Package browsertest provides an in-memory paginated problem page that
// implements browser.Controller for tests.
package browsertest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/config"
)

// Fake models the problem page: an item container, a paginator showing
// GroupSize page links plus a group-advance link, and an answer form.
// Page 1 is rendered on creation. Clicking the group-advance link reveals
// the next group and loads its first page, like the real site.
type Fake struct {
	mu sync.Mutex

	Pages      map[int][]string
	TotalPages int
	GroupSize  int
	NextLabel  string
	ProblemID  string
	Selectors  config.SelectorConfig

	// Drop lists how many data responses to swallow per page before one goes through.
	Drop map[int]int
	// Noise responses are offered to the matcher before the real one.
	Noise []browser.Response
	// Method is the HTTP method of data responses. Defaults to GET.
	Method string
	// OmitPageParam leaves the page number out of data response URLs.
	OmitPageParam bool

	ResultText string
	// ResultHidden keeps the result element invisible after submit.
	ResultHidden bool

	LoggedIn         bool
	LogsInDuringWait bool
	NavigateErr      error

	current    int
	groupStart int
	submitted  bool
	loginWaits int

	Clicks      []browser.Target
	Navigations []string
	Fills       map[string]string
	Saved       []string
	Closed      bool
}

var _ browser.Controller = (*Fake)(nil)

// New returns a fake whose pages are the given item texts, page 1 first.
func New(problemID string, pages ...[]string) *Fake {
	cfg := config.DefaultConfig()
	f := &Fake{
		Pages:      make(map[int][]string, len(pages)),
		TotalPages: len(pages),
		GroupSize:  cfg.Pagination.GroupSize,
		NextLabel:  cfg.Pagination.NextGroupLabel,
		ProblemID:  problemID,
		Selectors:  cfg.Selectors,
		Drop:       map[int]int{},
		ResultText: "答案正确",
		LoggedIn:   true,
		Fills:      map[string]string{},
		current:    1,
		groupStart: 1,
	}
	for i, items := range pages {
		f.Pages[i+1] = items
	}
	return f
}

// Current returns the page whose items are rendered.
func (f *Fake) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// ClickCount returns how many clicks hit target.
func (f *Fake) ClickCount(target browser.Target) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Clicks {
		if c == target {
			n++
		}
	}
	return n
}

func (f *Fake) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *Fake) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigations = append(f.Navigations, url)
	return f.NavigateErr
}

func (f *Fake) visible(target browser.Target) bool {
	if target.Selector != "" {
		switch target.Selector {
		case f.Selectors.Submit, f.Selectors.Answer:
			return true
		case f.Selectors.Result:
			return f.submitted && !f.ResultHidden
		}
		return false
	}
	if target.Role != "link" {
		return false
	}
	if target.Name == f.NextLabel {
		return f.groupStart+f.GroupSize <= f.TotalPages
	}
	n, err := strconv.Atoi(target.Name)
	if err != nil {
		return false
	}
	return n >= f.groupStart && n < f.groupStart+f.GroupSize && n <= f.TotalPages
}

func (f *Fake) Click(ctx context.Context, target browser.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, target)
	if !f.visible(target) {
		return fmt.Errorf("%w: %s not visible", browser.ErrTimeout, target)
	}
	switch {
	case target.Selector == f.Selectors.Submit:
		f.submitted = true
	case target.Name == f.NextLabel:
		f.groupStart += f.GroupSize
		f.current = f.groupStart
	default:
		n, _ := strconv.Atoi(target.Name)
		f.current = n
	}
	return nil
}

func (f *Fake) Exists(ctx context.Context, target browser.Target) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible(target), nil
}

func (f *Fake) Fill(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if selector != f.Selectors.Answer {
		return fmt.Errorf("%w: %s not visible", browser.ErrTimeout, selector)
	}
	f.Fills[selector] = text
	return nil
}

func (f *Fake) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := false
	switch selector {
	case f.Selectors.Items:
		ok = len(f.Pages[f.current]) > 0
	case f.Selectors.Result:
		ok = f.submitted && !f.ResultHidden
	case f.Selectors.LoggedIn:
		f.loginWaits++
		ok = f.LoggedIn || (f.LogsInDuringWait && f.loginWaits > 1)
	}
	if !ok {
		return fmt.Errorf("%w: %s after %s", browser.ErrTimeout, selector, timeout)
	}
	return nil
}

func (f *Fake) TextContent(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if selector == f.Selectors.Result && f.submitted {
		return f.ResultText, nil
	}
	return "", nil
}

func (f *Fake) TextContents(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if selector != f.Selectors.Items {
		return nil, nil
	}
	return append([]string(nil), f.Pages[f.current]...), nil
}

// ExpectResponse runs trigger, offers the noise responses to match, then the
// data response for the page the trigger loaded (unless Drop swallows it).
func (f *Fake) ExpectResponse(ctx context.Context, match func(browser.Response) bool, timeout time.Duration, trigger func() error) (browser.Response, error) {
	if err := ctx.Err(); err != nil {
		return browser.Response{}, err
	}
	if err := trigger(); err != nil {
		return browser.Response{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Noise {
		if match(r) {
			return r, nil
		}
	}
	page := f.current
	if f.Drop[page] > 0 {
		f.Drop[page]--
		return browser.Response{}, fmt.Errorf("%w: no response after %s", browser.ErrTimeout, timeout)
	}
	resp := f.DataResponse(page)
	if !match(resp) {
		return browser.Response{}, fmt.Errorf("%w: no matching response after %s", browser.ErrTimeout, timeout)
	}
	return resp, nil
}

// DataResponse is the response the site sends when page is loaded.
func (f *Fake) DataResponse(page int) browser.Response {
	method := f.Method
	if method == "" {
		method = "GET"
	}
	url := fmt.Sprintf("https://www.mashangpa.com/api/problem-detail/%s/data/", f.ProblemID)
	if !f.OmitPageParam {
		url += "?page=" + strconv.Itoa(page)
	}
	return browser.Response{Status: 200, Method: method, URL: url}
}

func (f *Fake) SaveState(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Saved = append(f.Saved, path)
	return nil
}

func (f *Fake) Page() playwright.Page {
	return nil
}
