package quiz

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordInvariant(t *testing.T) {
	var s Snapshot
	const n = 100
	for i := 0; i < n; i++ {
		s = Record(s, rand.Intn(2) == 0)
		require.Equal(t, i+1, s.Total)
		require.Equal(t, s.Total, s.Correct+s.Incorrect)
	}
	require.Equal(t, n, s.Total)
}

func TestSummarizeOrder(t *testing.T) {
	out := Summarize(Snapshot{Total: 10, Correct: 8, Incorrect: 2})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "10")
	require.Contains(t, lines[1], "8")
	require.Contains(t, lines[2], "2")
}
