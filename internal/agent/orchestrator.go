package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/config"
	"github.com/polzovatel/paged-sum-solver/internal/snapshot"
)

const snapshotTimeout = 5 * time.Second

type Config struct {
	TotalPages     int
	NextGroupLabel string
	// DetectEnd finishes early when the control for the next page is missing.
	DetectEnd  bool
	Retries    int
	RetryDelay time.Duration
}

// Result is what a completed run produced.
type Result struct {
	Aggregate  Aggregate
	PageSums   []int
	Submission SubmissionResult
}

type summaryFunc func(ctx context.Context) (snapshot.Summary, error)

// Orchestrator walks the pages strictly forward, folding each page's items
// into the aggregate, and submits the total once the last page is folded.
type Orchestrator struct {
	cfg        Config
	planner    Planner
	surface    Surface
	correlator *Correlator
	extractor  *Extractor
	submitter  *Submitter
	logger     zerolog.Logger
}

func NewOrchestrator(cfg Config, planner Planner, surface Surface, correlator *Correlator, extractor *Extractor, submitter *Submitter, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		planner:    planner,
		surface:    surface,
		correlator: correlator,
		extractor:  extractor,
		submitter:  submitter,
		logger:     logger,
	}
}

// Build wires an orchestrator for problemID from validated configuration.
func Build(cfg config.Config, problemID string, surface Surface, logger zerolog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	planner, err := NewPlanner(cfg.Pagination.GroupSize)
	if err != nil {
		return nil, err
	}
	matcher, err := NewEndpointMatcher(cfg.Site.EndpointPattern(problemID))
	if err != nil {
		return nil, err
	}
	label := cfg.Pagination.NextGroupLabel
	correlator := NewCorrelator(surface, matcher, label, cfg.Timeouts.ResponseTimeout(), logger.With().Str("comp", "correlator").Logger())
	extractor := NewExtractor(surface, cfg.Selectors.Items, cfg.Timeouts.ItemsTimeout())
	submitter := NewSubmitter(surface, cfg.Selectors, cfg.Timeouts.SubmitTimeout(), cfg.Timeouts.SettleDelay(), logger.With().Str("comp", "submit").Logger())
	return NewOrchestrator(Config{
		TotalPages:     cfg.Pagination.TotalPages,
		NextGroupLabel: label,
		DetectEnd:      cfg.Pagination.DetectEnd,
		Retries:        cfg.Pagination.Retries,
		RetryDelay:     cfg.Pagination.RetryDelayDuration(),
	}, planner, surface, correlator, extractor, submitter, logger), nil
}

// Run processes page 1 as already rendered, then pages 2..TotalPages, then
// submits. Any failure aborts the run before submission; snap, when set, is
// used to log what the page looked like at that moment.
func (o *Orchestrator) Run(ctx context.Context, snap summaryFunc) (Result, error) {
	if o.cfg.TotalPages <= 0 {
		return Result{}, fmt.Errorf("%w: total pages must be positive, got %d", ErrInvalidConfig, o.cfg.TotalPages)
	}
	var res Result

	o.logger.Info().Int("page", 1).Msg("reading initial page")
	if err := o.collect(ctx, 1, &res); err != nil {
		return o.abort(ctx, snap, res, err)
	}

	for page := 2; page <= o.cfg.TotalPages; page++ {
		if err := ctx.Err(); err != nil {
			return o.abort(ctx, snap, res, &PageError{Page: page, Stage: StagePlan, Err: err})
		}
		action, err := o.planner.Plan(page)
		if err != nil {
			return o.abort(ctx, snap, res, &PageError{Page: page, Stage: StagePlan, Err: err})
		}
		if o.cfg.DetectEnd {
			ok, err := o.surface.Exists(ctx, action.Target(o.cfg.NextGroupLabel))
			if err != nil {
				return o.abort(ctx, snap, res, &PageError{Page: page, Stage: StagePlan, Action: &action, Err: err})
			}
			if !ok {
				o.logger.Info().Int("page", page).Str("action", action.String()).Msg("no control for next page, pagination exhausted")
				break
			}
		}

		o.logger.Info().Int("page", page).Str("action", action.String()).Msg("navigating")
		resp, used, err := o.advance(ctx, page, action)
		if err != nil {
			return o.abort(ctx, snap, res, &PageError{Page: page, Stage: StageNavigate, Action: &used, Err: err})
		}
		o.logger.Info().
			Int("page", page).
			Int("status", resp.Status).
			Str("method", resp.Method).
			Str("url", resp.URL).
			Msg("data response")

		if err := o.collect(ctx, page, &res); err != nil {
			return o.abort(ctx, snap, res, err)
		}
	}

	o.logger.Info().Int("pages", res.Aggregate.Pages).Int("total", res.Aggregate.Total).Msg("all pages read")
	sub, err := o.submitter.Submit(ctx, res.Aggregate.Total)
	if err != nil {
		return o.abort(ctx, snap, res, &PageError{Page: res.Aggregate.Pages, Stage: StageSubmit, Err: err})
	}
	res.Submission = sub
	o.logger.Info().Int("total", sub.Total).Str("result", sub.Message).Msg("submitted")
	return res, nil
}

// collect extracts the rendered page and folds it into res.
func (o *Orchestrator) collect(ctx context.Context, page int, res *Result) error {
	items, err := o.extractor.Extract(ctx)
	if err != nil {
		return &PageError{Page: page, Stage: StageExtract, Err: err}
	}
	sum, err := res.Aggregate.Fold(page, items)
	if err != nil {
		return &PageError{Page: page, Stage: StageFold, Err: err}
	}
	res.PageSums = append(res.PageSums, sum)
	o.logger.Info().
		Int("page", page).
		Int("items", len(items)).
		Int("sum", sum).
		Int("total", res.Aggregate.Total).
		Msg("page folded")
	return nil
}

// advance correlates action for page. Navigation timeouts are retried up to
// cfg.Retries times, each retry re-planned and clicked once; every other
// error is final. It returns the action of the last attempt.
func (o *Orchestrator) advance(ctx context.Context, page int, action Action) (browser.Response, Action, error) {
	var resp browser.Response
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			action = o.replan(ctx, page, action)
		}
		r, err := o.correlator.Correlate(ctx, page, action)
		if err == nil {
			resp = r
			return nil
		}
		if errors.Is(err, ErrNavigationTimeout) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		o.logger.Warn().Err(err).Int("page", page).Int("attempt", attempt).Dur("wait", wait).Msg("navigation timed out, retrying")
	}

	retries := o.cfg.Retries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(o.cfg.RetryDelay), uint64(retries)), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return browser.Response{}, action, err
	}
	return resp, action, nil
}

// replan avoids clicking the group-advance control twice: if the group already
// advanced during the failed attempt, the page's own link is now present.
func (o *Orchestrator) replan(ctx context.Context, page int, prev Action) Action {
	if prev.Kind != ActionAdvanceGroup {
		return prev
	}
	direct := DirectPage(page)
	ok, err := o.surface.Exists(ctx, direct.Target(o.cfg.NextGroupLabel))
	if err != nil || !ok {
		return prev
	}
	o.logger.Info().Int("page", page).Msg("group already advanced, using page link")
	return direct
}

func (o *Orchestrator) abort(ctx context.Context, snap summaryFunc, res Result, err error) (Result, error) {
	ev := o.logger.Error().Err(err).Int("pages", res.Aggregate.Pages).Int("total", res.Aggregate.Total)
	if snap != nil {
		ctxSnap, cancel := snapshot.WithDeadline(context.WithoutCancel(ctx), snapshotTimeout)
		summary, snapErr := snap(ctxSnap)
		cancel()
		if snapErr == nil {
			ev = ev.Interface("snapshot", summary.ToMap())
		}
	}
	ev.Msg("run aborted")
	return res, err
}
