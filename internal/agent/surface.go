package agent

import (
	"context"
	"time"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
)

// Surface is the part of browser.Controller the solver drives.
type Surface interface {
	Click(ctx context.Context, target browser.Target) error
	Exists(ctx context.Context, target browser.Target) (bool, error)
	Fill(ctx context.Context, selector, text string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	TextContent(ctx context.Context, selector string) (string, error)
	TextContents(ctx context.Context, selector string) ([]string, error)
	ExpectResponse(ctx context.Context, match func(browser.Response) bool, timeout time.Duration, trigger func() error) (browser.Response, error)
}
