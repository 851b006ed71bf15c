package engine

import (
	"sort"

	"rivulet/internal/model"
)

// mergeTimeline orders the accumulated items published-descending and
// keeps the head of the page. Items without a parsable published value
// carry the zero time, so they sink to the tail. The sort is stable:
// equal timestamps keep accumulation order, which is registry order
// then adapter-internal order.
func mergeTimeline(items []model.Entry, limit int) []model.Entry {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedTime().After(items[j].PublishedTime())
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
