package model

// TypeFeed is the jf2 type literal for a followed feed.
const TypeFeed = "feed"

// Feed is a followed source within a channel. The URL is the identity
// key adapters use to answer ownership queries; there is no canonical
// cross-adapter feed identity, so following lists concatenate without
// deduplication.
type Feed struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Name  string `json:"name,omitempty"`
	Photo string `json:"photo,omitempty"`
	ID    string `json:"_id,omitempty"`
}

// NewFeed returns a Feed with the jf2 type set.
func NewFeed(url string) Feed {
	return Feed{Type: TypeFeed, URL: url}
}
