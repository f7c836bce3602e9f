package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
)

const maxLinks = 40

// Summary is a compact view of the problem page, logged when a run aborts.
type Summary struct {
	URL    string
	Title  string
	Links  []string
	Items  []string
	Result string
}

// ToMap returns summary as a JSON-friendly map.
func (s Summary) ToMap() map[string]any {
	return map[string]any{
		"url":    s.URL,
		"title":  s.Title,
		"links":  s.Links,
		"items":  s.Items,
		"result": s.Result,
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTITLE: %s\n", s.URL, s.Title)
	fmt.Fprintf(&b, "LINKS: %s\n", strings.Join(s.Links, " | "))
	fmt.Fprintf(&b, "ITEMS: %s\n", strings.Join(s.Items, " "))
	if s.Result != "" {
		fmt.Fprintf(&b, "RESULT: %s\n", s.Result)
	}
	return b.String()
}

// Selectors tells Collect where the items and the result message live.
type Selectors struct {
	Items  string
	Result string
}

// Collect reads what the page currently shows. Errors on individual parts are
// ignored; a partial summary is still useful next to the failure it explains.
func Collect(ctx context.Context, ctrl browser.Controller, sel Selectors) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	var s Summary
	if page := ctrl.Page(); page != nil {
		s.URL = page.URL()
		s.Title, _ = page.Title()
		s.Links, _ = collectLinks(page, maxLinks)
	}
	if sel.Items != "" {
		s.Items, _ = ctrl.TextContents(ctx, sel.Items)
	}
	if sel.Result != "" {
		if text, err := ctrl.TextContent(ctx, sel.Result); err == nil {
			s.Result = strings.TrimSpace(text)
		}
	}
	return s, nil
}

// collectLinks returns the labels of visible links, which is where the paginator lives.
func collectLinks(page playwright.Page, limit int) ([]string, error) {
	script := `(limit) => {
		const out = [];
		for (const a of document.querySelectorAll("a")) {
			if (out.length >= limit) break;
			const rect = a.getBoundingClientRect();
			if (rect.width === 0 && rect.height === 0) continue;
			const t = (a.innerText || a.textContent || "").trim();
			if (t && t.length <= 20) out.push(t);
		}
		return out;
	}`
	val, err := page.Evaluate(script, limit)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var links []string
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// WithDeadline shortens context to avoid long snapshot waits.
func WithDeadline(ctx context.Context, dur time.Duration) (context.Context, context.CancelFunc) {
	if dur <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, dur)
}
