package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Extractor reads the integers rendered in the item container.
type Extractor struct {
	surface  Surface
	selector string
	timeout  time.Duration
}

func NewExtractor(surface Surface, selector string, timeout time.Duration) *Extractor {
	return &Extractor{surface: surface, selector: selector, timeout: timeout}
}

// Extract waits for the first item to be visible, then parses every item.
// The visibility wait is what keeps the previous page's items from being read.
func (e *Extractor) Extract(ctx context.Context) ([]int, error) {
	if err := e.surface.WaitFor(ctx, e.selector, e.timeout); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", e.selector, err)
	}
	texts, err := e.surface.TextContents(ctx, e.selector)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.selector, err)
	}
	return ParseItems(texts)
}

// ParseItems converts item texts to integers. Nothing is coerced: an empty or
// non-numeric text is an ItemParseError.
func ParseItems(texts []string) ([]int, error) {
	items := make([]int, 0, len(texts))
	for _, raw := range texts {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ItemParseError{Raw: raw, Err: err}
		}
		items = append(items, n)
	}
	return items, nil
}
