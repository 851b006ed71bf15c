package local

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	xhtml "golang.org/x/net/html"
	"golang.org/x/time/rate"

	"rivulet/internal/config"
	"rivulet/internal/model"
)

// errNotModified signals a conditional GET hit; the stored entries are
// current.
var errNotModified = errors.New("feed not modified")

// fetchResult is one parsed feed plus the caching headers to remember.
type fetchResult struct {
	feed         *gofeed.Feed
	etag         string
	lastModified string
}

// fetcher pulls and normalizes remote feeds. Outbound requests are
// rate limited per host so a channel full of same-host feeds does not
// hammer the origin.
type fetcher struct {
	client    *http.Client
	sanitizer *bluemonday.Policy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newFetcher(client *http.Client) *fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &fetcher{
		client:    client,
		sanitizer: bluemonday.UGCPolicy(),
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (f *fetcher) hostLimiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 3)
		f.limiters[host] = l
	}
	return l
}

// fetch retrieves and parses the feed at feedURL. ETag/Last-Modified
// from a previous fetch enable conditional GETs; a 304 comes back as
// errNotModified.
func (f *fetcher) fetch(ctx context.Context, feedURL, etag, lastModified string) (fetchResult, error) {
	parsed, err := url.Parse(feedURL)
	if err != nil {
		return fetchResult{}, fmt.Errorf("parse feed url: %w", err)
	}
	if err := f.hostLimiter(parsed.Host).Wait(ctx); err != nil {
		return fetchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("User-Agent", config.UserAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return fetchResult{}, errNotModified
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fetchResult{}, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return fetchResult{}, fmt.Errorf("parse feed: %w", err)
	}

	return fetchResult{
		feed:         feed,
		etag:         strings.TrimSpace(resp.Header.Get("ETag")),
		lastModified: strings.TrimSpace(resp.Header.Get("Last-Modified")),
	}, nil
}

// feedInfo summarizes a parsed feed as a jf2 feed object.
func feedInfo(feedURL string, feed *gofeed.Feed) model.Feed {
	info := model.NewFeed(feedURL)
	info.Name = strings.TrimSpace(feed.Title)
	if feed.Image != nil {
		info.Photo = strings.TrimSpace(feed.Image.URL)
	}
	return info
}

// itemToEntry normalizes one feed item into jf2. HTML bodies are
// sanitized; the text body is derived from the sanitized HTML.
func (f *fetcher) itemToEntry(item *gofeed.Item) model.Entry {
	entry := model.Entry{
		Type: model.TypeEntry,
		ID:   entryID(item),
		URL:  strings.TrimSpace(item.Link),
		Name: strings.TrimSpace(item.Title),
	}

	if item.PublishedParsed != nil {
		entry.Published = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		entry.Published = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	if body != "" {
		html := f.sanitizer.Sanitize(body)
		entry.Content = &model.Content{
			HTML: html,
			Text: htmlToText(html),
		}
	}

	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		entry.Author = &model.Card{Type: "card", Name: item.Authors[0].Name}
	}
	if item.Image != nil && item.Image.URL != "" {
		entry.Photo = []string{item.Image.URL}
	}

	return entry
}

// entryID derives a stable id for an item: its GUID when present,
// otherwise a name-based UUID of its link so refetches dedupe, and a
// random UUID as the last resort.
func entryID(item *gofeed.Item) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
	}
	return uuid.NewString()
}

// htmlToText flattens sanitized HTML into plain text.
func htmlToText(s string) string {
	node, err := xhtml.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}
