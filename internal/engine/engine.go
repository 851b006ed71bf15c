// Package engine implements the aggregation core: fan-out reads over
// every registered adapter, ownership routing for single-owner
// mutations, and the timeline merge.
package engine

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"rivulet/internal/adapter"
	"rivulet/internal/logger"
	"rivulet/internal/model"
)

// Engine aggregates reads and routes mutations across the adapter
// registry. Adapters are invoked strictly sequentially in registry
// order for both patterns.
type Engine struct {
	registry *adapter.Registry
}

// New builds an engine over the given registry.
func New(registry *adapter.Registry) *Engine {
	return &Engine{registry: registry}
}

// Channels aggregates every adapter's channels and dedups by uid,
// keeping the first occurrence so the earliest-registered adapter wins
// a collision. An empty final set means no adapter provides channels
// at all, which is ErrNotImplemented rather than an empty success.
func (e *Engine) Channels(ctx context.Context, userID string) ([]model.Channel, error) {
	acc := []model.Channel{}
	for _, a := range e.registry.Adapters() {
		next, err := a.Channels(ctx, acc, userID)
		if err != nil {
			e.skip(a, "channels", err)
			continue
		}
		acc = next
	}

	channels := lo.UniqBy(acc, func(c model.Channel) string { return c.Uid })
	if len(channels) == 0 {
		return nil, ErrNotImplemented
	}
	return channels, nil
}

// Timeline aggregates every adapter's items for the channel and merges
// them into one page: published descending, head-truncated to the
// query limit. Cursors are passed through to each adapter verbatim and
// never re-checked after the merge. Zero items is a valid page.
func (e *Engine) Timeline(ctx context.Context, q model.TimelineQuery, userID string) (*model.Timeline, error) {
	if q.Channel == "" {
		return nil, fmt.Errorf("%w: channel is required", ErrInvalid)
	}
	if q.Limit <= 0 {
		q.Limit = model.DefaultTimelineLimit
	}
	if q.Limit > model.MaxTimelineLimit {
		q.Limit = model.MaxTimelineLimit
	}

	acc := &model.Timeline{Items: []model.Entry{}}
	for _, a := range e.registry.Adapters() {
		next, err := a.Timeline(ctx, acc, q, userID)
		if err != nil || next == nil {
			e.skip(a, "timeline", err)
			continue
		}
		acc = next
	}

	acc.Items = mergeTimeline(acc.Items, q.Limit)
	return acc, nil
}

// Following aggregates the feeds followed in a channel. Feeds have no
// canonical cross-adapter identity, so this is pure concatenation in
// registry order, no dedup.
func (e *Engine) Following(ctx context.Context, channel, userID string) ([]model.Feed, error) {
	if channel == "" {
		return nil, fmt.Errorf("%w: channel is required", ErrInvalid)
	}

	acc := []model.Feed{}
	for _, a := range e.registry.Adapters() {
		next, err := a.Following(ctx, acc, channel, userID)
		if err != nil {
			e.skip(a, "following", err)
			continue
		}
		acc = next
	}
	return acc, nil
}

// Muted aggregates muted feeds from adapters carrying the mute
// capability. Concatenation, no dedup.
func (e *Engine) Muted(ctx context.Context, channel, userID string) ([]model.Feed, error) {
	if channel == "" {
		return nil, fmt.Errorf("%w: channel is required", ErrInvalid)
	}

	acc := []model.Feed{}
	for _, a := range e.registry.Adapters() {
		m, ok := a.(adapter.MuteList)
		if !ok {
			continue
		}
		next, err := m.Muted(ctx, acc, channel, userID)
		if err != nil {
			e.skip(a, "muted", err)
			continue
		}
		acc = next
	}
	return acc, nil
}

// Blocked aggregates blocked feeds from adapters carrying the block
// capability. Concatenation, no dedup.
func (e *Engine) Blocked(ctx context.Context, channel, userID string) ([]model.Feed, error) {
	if channel == "" {
		return nil, fmt.Errorf("%w: channel is required", ErrInvalid)
	}

	acc := []model.Feed{}
	for _, a := range e.registry.Adapters() {
		b, ok := a.(adapter.BlockList)
		if !ok {
			continue
		}
		next, err := b.Blocked(ctx, acc, channel, userID)
		if err != nil {
			e.skip(a, "blocked", err)
			continue
		}
		acc = next
	}
	return acc, nil
}

// skip records an adapter that errored during aggregation. The
// accumulator from earlier adapters is kept and later adapters still
// run; the failing adapter simply contributes nothing.
func (e *Engine) skip(a adapter.Adapter, action string, err error) {
	logger.Warn("adapter skipped during aggregation",
		"module", "engine",
		"action", action,
		"resource", "adapter",
		"result", "skipped",
		"adapter", a.ID(),
		"error", err)
}
