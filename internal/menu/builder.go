// Package menu turns labeled options into a paginated grid of selectable
// choices plus navigation controls. The output is transport-agnostic; the
// Telegram keyboard rendering lives in core/telegram/keyboard.
package menu

const (
	// PrevLabel is the label of the previous-page control.
	PrevLabel = "<<"
	// NextLabel is the label of the next-page control.
	NextLabel = ">>"
)

// ChoiceItem is one selectable option: a visible label and an opaque value
// meaningful only to the menu that issued it.
type ChoiceItem struct {
	Label string
	Value string
}

// Row is one rendered line of choices.
type Row []ChoiceItem

// Paginate partitions items into rows of the given width, preserving order.
func Paginate(items []ChoiceItem, columns int) []Row {
	if columns <= 1 {
		rows := make([]Row, 0, len(items))
		for _, it := range items {
			rows = append(rows, Row{it})
		}
		return rows
	}
	var rows []Row
	for i := 0; i < len(items); i += columns {
		end := i + columns
		if end > len(items) {
			end = len(items)
		}
		rows = append(rows, Row(items[i:end]))
	}
	return rows
}

// WithNavigation appends a trailing row with a previous control when
// page > 1 and a next control when page < pages. A single page gets
// no navigation row at all.
func WithNavigation(rows []Row, page, pages int, prevValue, nextValue string) []Row {
	var nav Row
	if page > 1 {
		nav = append(nav, ChoiceItem{Label: PrevLabel, Value: prevValue})
	}
	if page < pages {
		nav = append(nav, ChoiceItem{Label: NextLabel, Value: nextValue})
	}
	if len(nav) == 0 {
		return rows
	}
	return append(rows, nav)
}
