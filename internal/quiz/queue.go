package quiz

// Queue holds the undelivered items of one quiz round.
// Each item is delivered exactly once; delivery order is not contractual.
type Queue struct {
	items []Item
}

// NewQueue wraps the provided items into a round queue.
func NewQueue(items []Item) *Queue {
	return &Queue{items: items}
}

// Len reports the number of undelivered items.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Next removes and returns one pending item. The second return value is
// false once the queue is exhausted.
func (q *Queue) Next() (Item, bool) {
	if q == nil || len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}
