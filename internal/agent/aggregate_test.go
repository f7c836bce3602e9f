package agent

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateFold(t *testing.T) {
	var agg Aggregate

	sum, err := agg.Fold(1, []int{3, 5, 2})
	require.NoError(t, err)
	assert.Equal(t, 10, sum)

	sum, err = agg.Fold(2, nil)
	require.NoError(t, err)
	assert.Zero(t, sum)

	sum, err = agg.Fold(3, []int{-4, 1})
	require.NoError(t, err)
	assert.Equal(t, -3, sum)

	assert.Equal(t, Aggregate{Total: 7, Pages: 3}, agg)
}

func TestAggregateRejectsSkipsAndRepeats(t *testing.T) {
	var agg Aggregate
	_, err := agg.Fold(2, []int{1})
	require.Error(t, err)

	_, err = agg.Fold(1, []int{1})
	require.NoError(t, err)
	_, err = agg.Fold(1, []int{1})
	require.Error(t, err)

	assert.Equal(t, Aggregate{Total: 1, Pages: 1}, agg)
}

func TestAggregateMatchesSumOfAllItems(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		pages := make([][]int, 1+rng.Intn(25))
		want := 0
		for i := range pages {
			items := make([]int, rng.Intn(12))
			for j := range items {
				items[j] = rng.Intn(2001) - 1000
				want += items[j]
			}
			pages[i] = items
		}

		var agg, shuffled Aggregate
		for i, items := range pages {
			_, err := agg.Fold(i+1, items)
			require.NoError(t, err)

			perm := append([]int(nil), items...)
			rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			_, err = shuffled.Fold(i+1, perm)
			require.NoError(t, err)
		}
		assert.Equal(t, want, agg.Total)
		assert.Equal(t, len(pages), agg.Pages)
		assert.Equal(t, agg, shuffled)
	}
}
