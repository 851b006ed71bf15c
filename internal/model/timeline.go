package model

// DefaultTimelineLimit caps a timeline page when the caller does not
// ask for a size.
const DefaultTimelineLimit = 20

// MaxTimelineLimit bounds how large a page a caller may request.
const MaxTimelineLimit = 100

// TimelineQuery carries the parameters of one timeline read. After and
// Before are opaque cursors interpreted by each adapter independently,
// typically as exclusive published-time bounds; the engine passes them
// through verbatim.
type TimelineQuery struct {
	Channel string
	After   string
	Before  string
	Limit   int
}

// Paging holds the cursors an adapter reported for its slice of the
// timeline. Only one adapter's paging survives aggregation, so it is
// advisory rather than authoritative.
type Paging struct {
	After  string `json:"after,omitempty"`
	Before string `json:"before,omitempty"`
}

// Timeline is the accumulated result of a timeline read across all
// adapters.
type Timeline struct {
	Items  []Entry `json:"items"`
	Paging *Paging `json:"paging,omitempty"`
}
