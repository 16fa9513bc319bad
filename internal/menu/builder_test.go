package menu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func choices(n int) []ChoiceItem {
	items := make([]ChoiceItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, ChoiceItem{
			Label: fmt.Sprintf("item %d", i+1),
			Value: fmt.Sprintf("set:%d", i+1),
		})
	}
	return items
}

func TestPaginatePreservesOrder(t *testing.T) {
	rows := Paginate(choices(7), 3)
	require.Len(t, rows, 3)
	require.Len(t, rows[0], 3)
	require.Len(t, rows[1], 3)
	require.Len(t, rows[2], 1)
	require.Equal(t, "item 1", rows[0][0].Label)
	require.Equal(t, "item 7", rows[2][0].Label)
}

func TestPaginateSingleColumn(t *testing.T) {
	rows := Paginate(choices(3), 1)
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Len(t, row, 1)
	}
}

func TestNavigationBounds(t *testing.T) {
	for pages := 1; pages <= 4; pages++ {
		for page := 1; page <= pages; page++ {
			rows := WithNavigation(nil, page, pages, "page:prev", "page:next")

			wantPrev := page > 1
			wantNext := page < pages
			if !wantPrev && !wantNext {
				require.Empty(t, rows, "pages=%d page=%d", pages, page)
				continue
			}

			require.Len(t, rows, 1)
			nav := rows[0]
			labels := make([]string, 0, len(nav))
			for _, item := range nav {
				labels = append(labels, item.Label)
			}
			if wantPrev {
				require.Contains(t, labels, PrevLabel, "pages=%d page=%d", pages, page)
			} else {
				require.NotContains(t, labels, PrevLabel, "pages=%d page=%d", pages, page)
			}
			if wantNext {
				require.Contains(t, labels, NextLabel, "pages=%d page=%d", pages, page)
			} else {
				require.NotContains(t, labels, NextLabel, "pages=%d page=%d", pages, page)
			}
		}
	}
}

func TestNavigationMiddlePageScenario(t *testing.T) {
	rows := Paginate(choices(6), 1)
	rows = WithNavigation(rows, 2, 3, "page:1", "page:3")

	require.Len(t, rows, 7, "6 item rows plus one nav row")
	nav := rows[6]
	require.Len(t, nav, 2)
	require.Equal(t, PrevLabel, nav[0].Label)
	require.Equal(t, "page:1", nav[0].Value)
	require.Equal(t, NextLabel, nav[1].Label)
	require.Equal(t, "page:3", nav[1].Value)

	// Following the "<<" control to page 1: only ">>" remains.
	first := WithNavigation(Paginate(choices(6), 1), 1, 3, "page:0", "page:2")
	nav = first[len(first)-1]
	require.Len(t, nav, 1)
	require.Equal(t, NextLabel, nav[0].Label)
}
