package agent

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polzovatel/paged-sum-solver/internal/browser/browsertest"
	"github.com/polzovatel/paged-sum-solver/internal/config"
)

const testProblem = "7"

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Timeouts.Settle = "0s"
	cfg.Pagination.RetryDelay = "0s"
	return cfg
}

func testMatcher(t *testing.T) *EndpointMatcher {
	t.Helper()
	m, err := NewEndpointMatcher(config.DefaultConfig().Site.EndpointPattern(testProblem))
	require.NoError(t, err)
	return m
}

// scenarioPages is the reference run: page 1 sums to 10, pages 2-5 to 3
// each, page 6 to 10 and the remaining pages to 0. Total 32.
func scenarioPages() [][]string {
	pages := [][]string{{"3", "5", "2"}}
	for i := 2; i <= 5; i++ {
		pages = append(pages, []string{"1", "1", "1"})
	}
	pages = append(pages, []string{"10"})
	for i := 7; i <= 20; i++ {
		pages = append(pages, []string{"0"})
	}
	return pages
}

func numbered(n int) [][]string {
	pages := make([][]string, n)
	for i := range pages {
		pages[i] = []string{strconv.Itoa(i + 1)}
	}
	return pages
}

func newFake(pages [][]string) *browsertest.Fake {
	return browsertest.New(testProblem, pages...)
}
