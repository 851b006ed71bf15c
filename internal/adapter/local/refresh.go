package local

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"rivulet/internal/adapter"
	"rivulet/internal/logger"
)

// refreshConcurrency bounds how many feeds fetch at once. Per-host
// rate limiting still applies underneath.
const refreshConcurrency = 5

var (
	_ adapter.Adapter        = (*Local)(nil)
	_ adapter.ChannelManager = (*Local)(nil)
	_ adapter.Marker         = (*Local)(nil)
	_ adapter.MuteList       = (*Local)(nil)
	_ adapter.BlockList      = (*Local)(nil)
	_ adapter.Searcher       = (*Local)(nil)
	_ adapter.Previewer      = (*Local)(nil)
	_ adapter.URLMatcher     = (*Local)(nil)
	_ adapter.FeedOwner      = (*Local)(nil)
)

// RefreshAll refetches every followed feed and upserts new entries.
// One failing feed does not stop the others.
func (l *Local) RefreshAll(ctx context.Context) error {
	feeds, err := l.store.allFeeds(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)

	for _, feed := range feeds {
		feed := feed
		g.Go(func() error {
			if err := l.refreshFeed(ctx, feed); err != nil {
				logger.Warn("feed refresh failed",
					"module", "local",
					"action", "refresh",
					"resource", "feed",
					"result", "failed",
					"url", feed.URL,
					"error", err)
			}
			return ctx.Err()
		})
	}

	return g.Wait()
}

func (l *Local) refreshFeed(ctx context.Context, feed storedFeed) error {
	res, err := l.fetcher.fetch(ctx, feed.URL, feed.ETag, feed.LastModified)
	if errors.Is(err, errNotModified) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, item := range res.feed.Items {
		if err := l.store.upsertEntry(ctx, feed.ID, feed.ChannelUid, l.fetcher.itemToEntry(item)); err != nil {
			return err
		}
	}

	if res.etag != feed.ETag || res.lastModified != feed.LastModified {
		if err := l.store.saveFeedCache(ctx, feed.ID, res.etag, res.lastModified); err != nil {
			return err
		}
	}

	logger.Debug("feed refreshed",
		"module", "local",
		"action", "refresh",
		"resource", "feed",
		"result", "ok",
		"url", feed.URL,
		"items", len(res.feed.Items))
	return nil
}
