package agent

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/config"
)

func newTestSubmitter(s Surface, settle time.Duration) *Submitter {
	return NewSubmitter(s, config.DefaultConfig().Selectors, time.Second, settle, zerolog.Nop())
}

func TestSubmit(t *testing.T) {
	fake := newFake(numbered(1))
	fake.ResultText = "  恭喜你，答案正确！\n"
	sub := newTestSubmitter(fake, 0)

	res, err := sub.Submit(context.Background(), 32)
	require.NoError(t, err)
	assert.Equal(t, 32, res.Total)
	assert.Equal(t, "  恭喜你，答案正确！\n", res.Message, "message is returned verbatim")
	assert.Equal(t, "32", fake.Fills["#user-answer"])
	assert.Equal(t, 1, fake.ClickCount(browser.Target{Selector: "button[type='submit']"}))
}

func TestSubmitTimeout(t *testing.T) {
	fake := newFake(numbered(1))
	fake.ResultHidden = true
	sub := newTestSubmitter(fake, 0)

	_, err := sub.Submit(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionTimeout)

	var subErr *SubmissionTimeoutError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 5, subErr.Total)
	assert.Equal(t, "#result-message", subErr.Selector)
}

func TestSubmitSettleHonoursContext(t *testing.T) {
	fake := newFake(numbered(1))
	sub := newTestSubmitter(fake, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Submit(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmitSettles(t *testing.T) {
	fake := newFake(numbered(1))
	sub := newTestSubmitter(fake, 10*time.Millisecond)

	start := time.Now()
	_, err := sub.Submit(context.Background(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
