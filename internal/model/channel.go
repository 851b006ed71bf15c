package model

// Channel is a named grouping of feeds. Uids are unique within the
// aggregated namespace but not across adapters, so aggregation dedups
// by Uid with the earliest-registered adapter winning.
type Channel struct {
	Uid    string `json:"uid"`
	Name   string `json:"name"`
	Unread *int   `json:"unread,omitempty"`
}
