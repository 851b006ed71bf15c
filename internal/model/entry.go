package model

import "time"

// TypeEntry is the jf2 type literal for a timeline item.
const TypeEntry = "entry"

// Content is the html/text pair of an entry body.
type Content struct {
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

// Card is a jf2 author card.
type Card struct {
	Type  string `json:"type"`
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Photo string `json:"photo,omitempty"`
}

// Entry is one timeline item in jf2 form. Entries are ephemeral:
// constructed per request and never persisted by the aggregation core.
type Entry struct {
	Type      string   `json:"type"`
	ID        string   `json:"_id,omitempty"`
	Published string   `json:"published,omitempty"`
	URL       string   `json:"url,omitempty"`
	Name      string   `json:"name,omitempty"`
	Content   *Content `json:"content,omitempty"`
	Author    *Card    `json:"author,omitempty"`
	Photo     []string `json:"photo,omitempty"`
	Read      *bool    `json:"_is_read,omitempty"`
}

// PublishedTime parses the published timestamp for ordering. Entries
// without a parsable timestamp sort as the oldest possible value, never
// as an error.
func (e Entry) PublishedTime() time.Time {
	if e.Published == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, e.Published); err == nil {
			return t
		}
	}
	return time.Time{}
}
