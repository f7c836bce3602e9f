package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/browser/browsertest"
	"github.com/polzovatel/paged-sum-solver/internal/config"
	"github.com/polzovatel/paged-sum-solver/internal/snapshot"
)

var nextGroup = browser.Target{Role: "link", Name: "下一页 »"}

func build(t *testing.T, cfg config.Config, fake *browsertest.Fake) *Orchestrator {
	t.Helper()
	o, err := Build(cfg, testProblem, fake, zerolog.Nop())
	require.NoError(t, err)
	return o
}

func TestRunScenario(t *testing.T) {
	fake := newFake(scenarioPages())
	fake.ResultText = "恭喜你，答案正确！"
	o := build(t, testConfig(), fake)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, Aggregate{Total: 32, Pages: 20}, res.Aggregate)
	require.Len(t, res.PageSums, 20)
	assert.Equal(t, []int{10, 3, 3, 3, 3, 10}, res.PageSums[:6])
	assert.Equal(t, 32, res.Submission.Total)
	assert.NotEmpty(t, res.Submission.Message)
	assert.Equal(t, "恭喜你，答案正确！", res.Submission.Message)
	assert.Equal(t, "32", fake.Fills["#user-answer"])

	// the group control is used at pages 6, 11 and 16 only
	assert.Equal(t, 3, fake.ClickCount(nextGroup))
	for page := 2; page <= 20; page++ {
		want := 1
		if page == 6 || page == 11 || page == 16 {
			want = 0
		}
		assert.Equal(t, want, fake.ClickCount(DirectPage(page).Target("下一页 »")), "page %d", page)
	}
	assert.Equal(t, 20, fake.Current())
}

func TestRunSinglePage(t *testing.T) {
	fake := newFake([][]string{{"4", "4"}})
	cfg := testConfig()
	cfg.Pagination.TotalPages = 1
	o := build(t, cfg, fake)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 8, res.Submission.Total)
	assert.Equal(t, []browser.Target{{Selector: "button[type='submit']"}}, fake.Clicks, "only the submit click")
}

func TestRunAbortsOnNavigationTimeout(t *testing.T) {
	fake := newFake(numbered(20))
	fake.Drop[3] = 1
	o := build(t, testConfig(), fake)

	var snapped bool
	snap := func(ctx context.Context) (snapshot.Summary, error) {
		snapped = true
		return snapshot.Collect(ctx, fake, snapshot.Selectors{Items: itemsSelector})
	}
	res, err := o.Run(context.Background(), snap)
	require.Error(t, err)
	assert.True(t, snapped)

	assert.ErrorIs(t, err, ErrNavigationTimeout)
	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 3, pageErr.Page)
	assert.Equal(t, StageNavigate, pageErr.Stage)
	require.NotNil(t, pageErr.Action)
	assert.Equal(t, DirectPage(3), *pageErr.Action)
	assert.Contains(t, err.Error(), "page 3 navigate (page link 3)")

	assert.Equal(t, 1, fake.ClickCount(DirectPage(3).Target("下一页 »")), "no retry by default")
	assert.Equal(t, Aggregate{Total: 3, Pages: 2}, res.Aggregate)
	assert.Empty(t, fake.Fills, "no partial submission")
}

func TestRunRetriesDirectPage(t *testing.T) {
	fake := newFake(numbered(20))
	fake.Drop[3] = 2
	cfg := testConfig()
	cfg.Pagination.Retries = 2
	o := build(t, cfg, fake)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 210, res.Submission.Total)
	assert.Equal(t, 3, fake.ClickCount(DirectPage(3).Target("下一页 »")))
}

func TestRunRetriesAreBounded(t *testing.T) {
	fake := newFake(numbered(20))
	fake.Drop[4] = 10
	cfg := testConfig()
	cfg.Pagination.Retries = 2
	o := build(t, cfg, fake)

	_, err := o.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNavigationTimeout)
	assert.Equal(t, 3, fake.ClickCount(DirectPage(4).Target("下一页 »")))
	assert.Empty(t, fake.Fills)
}

func TestRunRetryAfterGroupAdvanceUsesPageLink(t *testing.T) {
	fake := newFake(numbered(20))
	fake.Drop[6] = 1
	cfg := testConfig()
	cfg.Pagination.Retries = 1
	o := build(t, cfg, fake)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 210, res.Aggregate.Total)
	assert.Equal(t, 20, res.Aggregate.Pages)
	// one group click per boundary, the retry went through link "6"
	assert.Equal(t, 3, fake.ClickCount(nextGroup))
	assert.Equal(t, 1, fake.ClickCount(DirectPage(6).Target("下一页 »")))
}

func TestRunAbortsOnItemParseError(t *testing.T) {
	pages := numbered(20)
	pages[3] = []string{"7", "seven"}
	fake := newFake(pages)
	cfg := testConfig()
	cfg.Pagination.Retries = 3
	o := build(t, cfg, fake)

	res, err := o.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrItemParse)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 4, pageErr.Page)
	assert.Equal(t, StageExtract, pageErr.Stage)
	assert.Equal(t, 3, res.Aggregate.Pages)
	assert.Empty(t, fake.Fills)
}

func TestRunAbortsOnEmptyInitialPage(t *testing.T) {
	fake := newFake([][]string{{}, {"1"}})
	o := build(t, testConfig(), fake)

	_, err := o.Run(context.Background(), nil)
	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 1, pageErr.Page)
	assert.Equal(t, StageExtract, pageErr.Stage)
	assert.Empty(t, fake.Clicks)
}

func TestRunMissingControlWithoutDetectEnd(t *testing.T) {
	fake := newFake(numbered(8))
	o := build(t, testConfig(), fake)

	_, err := o.Run(context.Background(), nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNavigationTimeout)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, 9, pageErr.Page)
	assert.Equal(t, StageNavigate, pageErr.Stage)
}

func TestRunDetectEnd(t *testing.T) {
	fake := newFake(numbered(8))
	cfg := testConfig()
	cfg.Pagination.DetectEnd = true
	o := build(t, cfg, fake)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Aggregate{Total: 36, Pages: 8}, res.Aggregate)
	assert.Equal(t, "36", fake.Fills["#user-answer"])
}

func TestRunDetectEndAtGroupBoundary(t *testing.T) {
	fake := newFake(numbered(10))
	cfg := testConfig()
	cfg.Pagination.DetectEnd = true
	o := build(t, cfg, fake)

	res, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Aggregate.Pages)
	assert.Equal(t, 1, fake.ClickCount(nextGroup))
}

func TestRunSubmissionTimeout(t *testing.T) {
	fake := newFake(numbered(20))
	fake.ResultHidden = true
	o := build(t, testConfig(), fake)

	res, err := o.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionTimeout)

	var pageErr *PageError
	require.ErrorAs(t, err, &pageErr)
	assert.Equal(t, StageSubmit, pageErr.Stage)
	assert.Equal(t, 210, res.Aggregate.Total)
}

func TestRunCancelled(t *testing.T) {
	fake := newFake(numbered(20))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := build(t, testConfig(), fake)

	_, err := o.Run(ctx, nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, fake.Clicks)
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Pagination.GroupSize = 0
	_, err := Build(cfg, testProblem, newFake(numbered(1)), zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig()
	cfg.Pagination.TotalPages = -1
	_, err = Build(cfg, testProblem, newFake(numbered(1)), zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunRejectsZeroPages(t *testing.T) {
	fake := newFake(numbered(1))
	planner, err := NewPlanner(5)
	require.NoError(t, err)
	o := NewOrchestrator(Config{}, planner, fake, nil, nil, nil, zerolog.Nop())

	_, err = o.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
