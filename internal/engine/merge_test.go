package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rivulet/internal/model"
)

func entry(id, published string) model.Entry {
	return model.Entry{Type: model.TypeEntry, ID: id, Published: published}
}

func ids(entries []model.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestMergeTimelineSortsDescending(t *testing.T) {
	merged := mergeTimeline([]model.Entry{
		entry("old", "2024-01-15T10:00:00Z"),
		entry("new", "2024-01-15T11:00:00Z"),
		entry("middle", "2024-01-15T10:30:00Z"),
	}, 20)
	require.Equal(t, []string{"new", "middle", "old"}, ids(merged))
}

func TestMergeTimelineUnparseableSortsLast(t *testing.T) {
	merged := mergeTimeline([]model.Entry{
		entry("undated", ""),
		entry("garbage", "not-a-date"),
		entry("dated", "2024-01-15T10:00:00Z"),
	}, 20)
	require.Equal(t, "dated", merged[0].ID)
	// Unparseable entries keep their input order at the tail.
	require.Equal(t, []string{"undated", "garbage"}, ids(merged[1:]))
}

func TestMergeTimelineStableOnEqualTimestamps(t *testing.T) {
	merged := mergeTimeline([]model.Entry{
		entry("first", "2024-01-15T10:00:00Z"),
		entry("second", "2024-01-15T10:00:00Z"),
		entry("third", "2024-01-15T10:00:00Z"),
	}, 20)
	require.Equal(t, []string{"first", "second", "third"}, ids(merged))
}

func TestMergeTimelineTruncatesToLimitHead(t *testing.T) {
	merged := mergeTimeline([]model.Entry{
		entry("a", "2024-01-15T08:00:00Z"),
		entry("b", "2024-01-15T09:00:00Z"),
		entry("c", "2024-01-15T10:00:00Z"),
		entry("d", "2024-01-15T11:00:00Z"),
	}, 2)
	require.Equal(t, []string{"d", "c"}, ids(merged))
}
