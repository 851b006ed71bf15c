// Package local is the reference sqlite-backed adapter: it stores
// channels, subscriptions and fetched entries locally and serves them
// through the capability contract. Channel uids it creates carry the
// chn- prefix, which is the namespace region it claims for ownership
// routing.
package local

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"rivulet/internal/adapter"
	"rivulet/internal/logger"
	"rivulet/internal/model"
)

// ID is the adapter's registry id.
const ID = "local"

// Local implements the full capability set over sqlite.
type Local struct {
	adapter.Base
	store   *store
	fetcher *fetcher
}

// Option tweaks construction.
type Option func(*Local)

// WithHTTPClient overrides the fetch client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Local) {
		l.fetcher = newFetcher(client)
	}
}

// WithPriority places the adapter at the given registry priority.
func WithPriority(p int) Option {
	return func(l *Local) {
		l.Base.Prio = p
	}
}

// New builds the adapter over an opened database.
func New(db *sql.DB, opts ...Option) *Local {
	l := &Local{
		Base:    adapter.Base{AdapterID: ID, DisplayName: "Local subscriptions"},
		store:   &store{db: db},
		fetcher: newFetcher(nil),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ownsChannel reports whether the channel uid lives in this adapter's
// tables. The chn- prefix is a cheap pre-filter; the table answers
// authoritatively.
func (l *Local) ownsChannel(ctx context.Context, uid string) bool {
	if !strings.HasPrefix(uid, "chn-") {
		return false
	}
	ok, err := l.store.channelExists(ctx, uid)
	if err != nil {
		logger.Error("channel ownership check failed",
			"module", "local",
			"action", "owns_channel",
			"resource", "channel",
			"result", "failed",
			"channel", uid,
			"error", err)
		return false
	}
	return ok
}

// CanHandle accepts http(s) URLs only.
func (l *Local) CanHandle(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// OwnsFeed answers from the feeds table.
func (l *Local) OwnsFeed(ctx context.Context, url string) bool {
	ok, err := l.store.anyFeedWithURL(ctx, url)
	return err == nil && ok
}

func (l *Local) Channels(ctx context.Context, acc []model.Channel, userID string) ([]model.Channel, error) {
	channels, err := l.store.listChannels(ctx)
	if err != nil {
		return acc, err
	}
	for _, c := range channels {
		unread := c.Unread
		acc = append(acc, model.Channel{Uid: c.Uid, Name: c.Name, Unread: &unread})
	}
	return acc, nil
}

func (l *Local) Timeline(ctx context.Context, acc *model.Timeline, q model.TimelineQuery, userID string) (*model.Timeline, error) {
	if !l.ownsChannel(ctx, q.Channel) {
		return acc, nil
	}

	entries, err := l.store.listEntries(ctx, entryFilter{
		ChannelUid: q.Channel,
		Before:     q.Before,
		After:      q.After,
		Limit:      q.Limit,
	})
	if err != nil {
		return acc, err
	}

	acc.Items = append(acc.Items, entries...)
	if q.Limit > 0 && len(entries) == q.Limit {
		acc.Paging = &model.Paging{Before: entries[len(entries)-1].Published}
	}
	return acc, nil
}

func (l *Local) Following(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	if !l.ownsChannel(ctx, channel) {
		return acc, nil
	}

	feeds, err := l.store.listFeeds(ctx, channel)
	if err != nil {
		return acc, err
	}
	for _, f := range feeds {
		acc = append(acc, feedToModel(f))
	}
	return acc, nil
}

// Follow verifies the URL parses as a feed, stores the subscription
// and pulls the initial items. A URL this adapter cannot handle, or a
// channel it does not own, passes to the next adapter.
func (l *Local) Follow(ctx context.Context, channel, url, userID string) adapter.Result[model.Feed] {
	if !l.CanHandle(url) || !l.ownsChannel(ctx, channel) {
		return adapter.Pass[model.Feed]()
	}

	res, err := l.fetcher.fetch(ctx, url, "", "")
	if err != nil {
		return adapter.Failed[model.Feed](err)
	}

	info := feedInfo(url, res.feed)
	feedID, err := l.store.createFeed(ctx, storedFeed{
		ChannelUid:   channel,
		URL:          url,
		Name:         info.Name,
		Photo:        info.Photo,
		SiteURL:      strings.TrimSpace(res.feed.Link),
		ETag:         res.etag,
		LastModified: res.lastModified,
	})
	if err != nil {
		return adapter.Failed[model.Feed](err)
	}

	for _, item := range res.feed.Items {
		if err := l.store.upsertEntry(ctx, feedID, channel, l.fetcher.itemToEntry(item)); err != nil {
			return adapter.Failed[model.Feed](err)
		}
	}

	logger.Info("feed followed",
		"module", "local",
		"action", "follow",
		"resource", "feed",
		"result", "ok",
		"channel", channel,
		"url", url,
		"items", len(res.feed.Items))
	return adapter.Handled(info)
}

// Unfollow removes the subscription and its entries. A feed this
// adapter does not own passes to the next adapter.
func (l *Local) Unfollow(ctx context.Context, channel, url, userID string) adapter.Ack {
	if !l.ownsChannel(ctx, channel) {
		return adapter.Pass[struct{}]()
	}
	if _, ok, err := l.store.feedByURL(ctx, channel, url); err != nil {
		return adapter.Failed[struct{}](err)
	} else if !ok {
		return adapter.Pass[struct{}]()
	}

	if err := l.store.deleteFeed(ctx, channel, url); err != nil {
		return adapter.Failed[struct{}](err)
	}
	return adapter.Done()
}

// CreateChannel creates a channel, or returns the existing one when
// the name is already taken so repeated creates are idempotent.
func (l *Local) CreateChannel(ctx context.Context, name, userID string) adapter.Result[model.Channel] {
	if existing, ok, err := l.store.channelByName(ctx, name); err != nil {
		return adapter.Failed[model.Channel](err)
	} else if ok {
		return adapter.Handled(model.Channel{Uid: existing.Uid, Name: existing.Name})
	}

	created, err := l.store.createChannel(ctx, name)
	if err != nil {
		return adapter.Failed[model.Channel](err)
	}
	return adapter.Handled(model.Channel{Uid: created.Uid, Name: created.Name})
}

func (l *Local) UpdateChannel(ctx context.Context, uid, name, userID string) adapter.Result[model.Channel] {
	if !l.ownsChannel(ctx, uid) {
		return adapter.Pass[model.Channel]()
	}
	if err := l.store.renameChannel(ctx, uid, name); err != nil {
		return adapter.Failed[model.Channel](err)
	}
	return adapter.Handled(model.Channel{Uid: uid, Name: name})
}

func (l *Local) DeleteChannel(ctx context.Context, uid, userID string) adapter.Ack {
	if !l.ownsChannel(ctx, uid) {
		return adapter.Pass[struct{}]()
	}
	if err := l.store.deleteChannel(ctx, uid); err != nil {
		return adapter.Failed[struct{}](err)
	}
	return adapter.Done()
}

// OrderChannels reorders the uids it owns; a list touching none of its
// channels passes.
func (l *Local) OrderChannels(ctx context.Context, uids []string, userID string) adapter.Ack {
	var owned []string
	for _, uid := range uids {
		if l.ownsChannel(ctx, uid) {
			owned = append(owned, uid)
		}
	}
	if len(owned) == 0 {
		return adapter.Pass[struct{}]()
	}
	if err := l.store.orderChannels(ctx, owned); err != nil {
		return adapter.Failed[struct{}](err)
	}
	return adapter.Done()
}

func (l *Local) MarkRead(ctx context.Context, channel string, entries []string, userID string) adapter.Ack {
	return l.setRead(ctx, channel, entries, true)
}

func (l *Local) MarkUnread(ctx context.Context, channel string, entries []string, userID string) adapter.Ack {
	return l.setRead(ctx, channel, entries, false)
}

func (l *Local) setRead(ctx context.Context, channel string, entries []string, read bool) adapter.Ack {
	if !l.ownsChannel(ctx, channel) {
		return adapter.Pass[struct{}]()
	}
	if err := l.store.setRead(ctx, channel, entries, read); err != nil {
		return adapter.Failed[struct{}](err)
	}
	return adapter.Done()
}

func (l *Local) RemoveEntry(ctx context.Context, channel, entry, userID string) adapter.Ack {
	if !l.ownsChannel(ctx, channel) {
		return adapter.Pass[struct{}]()
	}
	if err := l.store.deleteEntry(ctx, channel, entry); err != nil {
		return adapter.Failed[struct{}](err)
	}
	return adapter.Done()
}

func (l *Local) Muted(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	return l.listFilters(ctx, acc, channel, filterMute)
}

func (l *Local) Blocked(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	return l.listFilters(ctx, acc, channel, filterBlock)
}

func (l *Local) listFilters(ctx context.Context, acc []model.Feed, channel, kind string) ([]model.Feed, error) {
	if !l.ownsChannel(ctx, channel) {
		return acc, nil
	}
	urls, err := l.store.listFilters(ctx, channel, kind)
	if err != nil {
		return acc, err
	}
	for _, url := range urls {
		acc = append(acc, model.NewFeed(url))
	}
	return acc, nil
}

func (l *Local) Mute(ctx context.Context, channel, url, userID string) adapter.Ack {
	return l.filterOp(ctx, channel, url, filterMute, true)
}

func (l *Local) Unmute(ctx context.Context, channel, url, userID string) adapter.Ack {
	return l.filterOp(ctx, channel, url, filterMute, false)
}

func (l *Local) Block(ctx context.Context, channel, url, userID string) adapter.Ack {
	return l.filterOp(ctx, channel, url, filterBlock, true)
}

func (l *Local) Unblock(ctx context.Context, channel, url, userID string) adapter.Ack {
	return l.filterOp(ctx, channel, url, filterBlock, false)
}

func (l *Local) filterOp(ctx context.Context, channel, url, kind string, add bool) adapter.Ack {
	if !l.ownsChannel(ctx, channel) {
		return adapter.Pass[struct{}]()
	}
	var err error
	if add {
		err = l.store.addFilter(ctx, channel, url, kind)
	} else {
		err = l.store.removeFilter(ctx, channel, url, kind)
	}
	if err != nil {
		return adapter.Failed[struct{}](err)
	}
	return adapter.Done()
}

// Search scans stored entry titles and text bodies.
func (l *Local) Search(ctx context.Context, query, userID string) adapter.Result[*model.Timeline] {
	entries, err := l.store.listEntries(ctx, entryFilter{Search: query, Limit: 40})
	if err != nil {
		return adapter.Failed[*model.Timeline](err)
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	return adapter.Handled(&model.Timeline{Items: entries})
}

// Preview fetches a URL live and returns its items without storing
// anything.
func (l *Local) Preview(ctx context.Context, url, userID string) adapter.Result[*model.Timeline] {
	if !l.CanHandle(url) {
		return adapter.Pass[*model.Timeline]()
	}

	res, err := l.fetcher.fetch(ctx, url, "", "")
	if err != nil {
		return adapter.Failed[*model.Timeline](err)
	}

	items := make([]model.Entry, 0, len(res.feed.Items))
	for _, item := range res.feed.Items {
		items = append(items, l.fetcher.itemToEntry(item))
	}
	return adapter.Handled(&model.Timeline{Items: items})
}

func feedToModel(f storedFeed) model.Feed {
	feed := model.NewFeed(f.URL)
	feed.Name = f.Name
	feed.Photo = f.Photo
	return feed
}
