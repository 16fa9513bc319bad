package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildItemOptionSet(t *testing.T) {
	w := Word{ID: 7, Text: "approve", Translation: "одобрить"}
	pool := []string{"одобрить", "пара", "непара", "решение"}

	item, err := BuildItem(w, pool)
	require.NoError(t, err)
	require.Equal(t, int64(7), item.ID)
	require.Equal(t, "approve", item.Prompt)
	require.Len(t, item.Options, 4)

	labels := make(map[string]struct{}, 4)
	correct := 0
	for _, opt := range item.Options {
		labels[opt.Label] = struct{}{}
		if opt.Value == CorrectValue {
			correct++
			require.Equal(t, "одобрить", opt.Label)
		}
	}
	require.Len(t, labels, 4, "options must be distinct")
	require.Equal(t, 1, correct, "correct answer must appear exactly once")
}

func TestBuildItemShufflesCorrectPosition(t *testing.T) {
	w := Word{ID: 7, Text: "approve", Translation: "одобрить"}
	pool := []string{"одобрить", "пара", "непара", "решение"}

	positions := make(map[int]struct{})
	for i := 0; i < 200; i++ {
		item, err := BuildItem(w, pool)
		require.NoError(t, err)
		for pos, opt := range item.Options {
			if opt.Value == CorrectValue {
				positions[pos] = struct{}{}
			}
		}
	}
	require.Greater(t, len(positions), 1, "correct option position must vary")
}

func TestBuildItemPoolTooSmall(t *testing.T) {
	w := Word{ID: 1, Text: "pair", Translation: "пара"}
	_, err := BuildItem(w, []string{"пара", "непара"})

	var poolErr *InsufficientPoolError
	require.True(t, errors.As(err, &poolErr))
	require.Equal(t, DistractorCount, poolErr.Need)
	require.Equal(t, 1, poolErr.Have)
}

func TestBuildItemDeduplicatesPool(t *testing.T) {
	w := Word{ID: 2, Text: "approve", Translation: "одобрить"}
	pool := []string{"пара", "пара", "пара", "непара", "решение", "одобрить"}

	item, err := BuildItem(w, pool)
	require.NoError(t, err)

	labels := make(map[string]struct{}, len(item.Options))
	for _, opt := range item.Options {
		labels[opt.Label] = struct{}{}
	}
	require.Len(t, labels, 4)
}

func TestEvaluate(t *testing.T) {
	require.True(t, Evaluate(Item{}, CorrectValue))
	require.False(t, Evaluate(Item{}, WrongValue))
	require.False(t, Evaluate(Item{}, "одобрить"), "text must never be treated as the sentinel")
}

func TestQueueDeliversEachItemOnce(t *testing.T) {
	items := []Item{{ID: 1}, {ID: 2}, {ID: 3}}
	q := NewQueue(items)

	seen := make(map[int64]int)
	for i := 0; i < len(items); i++ {
		item, ok := q.Next()
		require.True(t, ok)
		seen[item.ID]++
	}
	_, ok := q.Next()
	require.False(t, ok, "queue must be exhausted after len(items) calls")
	require.Equal(t, 0, q.Len())
	for id, n := range seen {
		require.Equal(t, 1, n, "item %d delivered more than once", id)
	}
}
