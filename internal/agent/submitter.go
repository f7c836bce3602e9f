package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/config"
)

// SubmissionResult is the submitted total and the confirmation text, verbatim.
type SubmissionResult struct {
	Total   int
	Message string
}

type Submitter struct {
	surface   Surface
	selectors config.SelectorConfig
	timeout   time.Duration
	settle    time.Duration
	logger    zerolog.Logger
}

func NewSubmitter(surface Surface, selectors config.SelectorConfig, timeout, settle time.Duration, logger zerolog.Logger) *Submitter {
	return &Submitter{
		surface:   surface,
		selectors: selectors,
		timeout:   timeout,
		settle:    settle,
		logger:    logger,
	}
}

// Submit fills the answer, clicks submit and returns the result message.
// Whether the answer was right is for the site to say.
func (s *Submitter) Submit(ctx context.Context, total int) (SubmissionResult, error) {
	answer := strconv.Itoa(total)
	s.logger.Info().Str("answer", answer).Msg("filling answer")
	if err := s.surface.Fill(ctx, s.selectors.Answer, answer); err != nil {
		return SubmissionResult{}, fmt.Errorf("fill %s: %w", s.selectors.Answer, err)
	}
	if err := s.surface.Click(ctx, browser.Target{Selector: s.selectors.Submit}); err != nil {
		return SubmissionResult{}, fmt.Errorf("click %s: %w", s.selectors.Submit, err)
	}
	if err := s.surface.WaitFor(ctx, s.selectors.Result, s.timeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return SubmissionResult{}, &SubmissionTimeoutError{Total: total, Selector: s.selectors.Result, Err: err}
		}
		return SubmissionResult{}, err
	}
	// the message node turns visible before its text is final
	if err := sleep(ctx, s.settle); err != nil {
		return SubmissionResult{}, err
	}
	msg, err := s.surface.TextContent(ctx, s.selectors.Result)
	if err != nil {
		return SubmissionResult{}, fmt.Errorf("read %s: %w", s.selectors.Result, err)
	}
	return SubmissionResult{Total: total, Message: msg}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
