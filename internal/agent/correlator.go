package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
)

var errAlreadyTriggered = errors.New("trigger already dispatched")

// Correlator clicks a paginator control and waits for the data response it causes.
type Correlator struct {
	surface   Surface
	matcher   *EndpointMatcher
	nextLabel string
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewCorrelator(surface Surface, matcher *EndpointMatcher, nextGroupLabel string, timeout time.Duration, logger zerolog.Logger) *Correlator {
	return &Correlator{
		surface:   surface,
		matcher:   matcher,
		nextLabel: nextGroupLabel,
		timeout:   timeout,
		logger:    logger,
	}
}

// Correlate arms a listener for page's data response, then clicks the
// action's control once. The response only signals that loading finished.
func (c *Correlator) Correlate(ctx context.Context, page int, action Action) (browser.Response, error) {
	target := action.Target(c.nextLabel)

	var clickErr error
	dispatched := false
	trigger := func() error {
		if dispatched {
			return errAlreadyTriggered
		}
		dispatched = true
		clickErr = c.surface.Click(ctx, target)
		return clickErr
	}
	match := func(r browser.Response) bool {
		ok := c.matcher.Match(r.URL, page)
		c.logger.Debug().
			Int("page", page).
			Str("method", r.Method).
			Str("url", r.URL).
			Bool("match", ok).
			Msg("response seen")
		return ok
	}

	resp, err := c.surface.ExpectResponse(ctx, match, c.timeout, trigger)
	if clickErr != nil {
		return browser.Response{}, fmt.Errorf("click %s: %w", target, clickErr)
	}
	if err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return browser.Response{}, &NavigationTimeoutError{
				Page:    page,
				Action:  action,
				Pattern: c.matcher.Pattern(),
				Err:     err,
			}
		}
		return browser.Response{}, err
	}
	return resp, nil
}
