package engine

import (
	"context"
	"fmt"

	"rivulet/internal/adapter"
	"rivulet/internal/logger"
	"rivulet/internal/model"
)

// route walks the registry in order and applies call to each adapter
// until one answers. Adapters that pass (or lack the capability, which
// call signals by returning ok=false) hand the decision to the next
// adapter; the first Handled or Failed result terminates the chain and
// later adapters are never consulted. A chain where everyone passed is
// ErrNotImplemented.
func route[T any](ctx context.Context, reg *adapter.Registry, action string, call func(a adapter.Adapter) (adapter.Result[T], bool)) (T, error) {
	var zero T
	for _, a := range reg.Adapters() {
		res, ok := call(a)
		if !ok {
			continue
		}
		switch res.Status {
		case adapter.StatusPass:
			continue
		case adapter.StatusHandled:
			logger.Debug("routed call handled",
				"module", "engine",
				"action", action,
				"resource", "adapter",
				"result", "ok",
				"adapter", a.ID())
			return res.Value, nil
		case adapter.StatusFailed:
			logger.Error("routed call failed",
				"module", "engine",
				"action", action,
				"resource", "adapter",
				"result", "failed",
				"adapter", a.ID(),
				"error", res.Err)
			return zero, &AdapterError{AdapterID: a.ID(), Err: res.Err}
		}
	}
	return zero, ErrNotImplemented
}

// required wraps call for adapters whose capability is part of the
// required interface.
func required[T any](call func(a adapter.Adapter) adapter.Result[T]) func(adapter.Adapter) (adapter.Result[T], bool) {
	return func(a adapter.Adapter) (adapter.Result[T], bool) {
		return call(a), true
	}
}

// Follow routes a follow to the first adapter that claims the URL.
func (e *Engine) Follow(ctx context.Context, channel, url, userID string) (model.Feed, error) {
	if channel == "" || url == "" {
		return model.Feed{}, fmt.Errorf("%w: channel and url are required", ErrInvalid)
	}
	return route(ctx, e.registry, "follow", required(func(a adapter.Adapter) adapter.Result[model.Feed] {
		return a.Follow(ctx, channel, url, userID)
	}))
}

// Unfollow routes an unfollow to the adapter owning the feed URL.
func (e *Engine) Unfollow(ctx context.Context, channel, url, userID string) error {
	if channel == "" || url == "" {
		return fmt.Errorf("%w: channel and url are required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, "unfollow", required(func(a adapter.Adapter) adapter.Ack {
		return a.Unfollow(ctx, channel, url, userID)
	}))
	return err
}

// CreateChannel routes channel creation to the first adapter managing
// a channel namespace.
func (e *Engine) CreateChannel(ctx context.Context, name, userID string) (model.Channel, error) {
	if name == "" {
		return model.Channel{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	return route(ctx, e.registry, "create_channel", func(a adapter.Adapter) (adapter.Result[model.Channel], bool) {
		m, ok := a.(adapter.ChannelManager)
		if !ok {
			return adapter.Pass[model.Channel](), false
		}
		return m.CreateChannel(ctx, name, userID), true
	})
}

// UpdateChannel routes a rename to the adapter owning the channel uid.
func (e *Engine) UpdateChannel(ctx context.Context, uid, name, userID string) (model.Channel, error) {
	if uid == "" || name == "" {
		return model.Channel{}, fmt.Errorf("%w: channel and name are required", ErrInvalid)
	}
	return route(ctx, e.registry, "update_channel", func(a adapter.Adapter) (adapter.Result[model.Channel], bool) {
		m, ok := a.(adapter.ChannelManager)
		if !ok {
			return adapter.Pass[model.Channel](), false
		}
		return m.UpdateChannel(ctx, uid, name, userID), true
	})
}

// DeleteChannel routes a delete to the adapter owning the channel uid.
func (e *Engine) DeleteChannel(ctx context.Context, uid, userID string) error {
	if uid == "" {
		return fmt.Errorf("%w: channel is required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, "delete_channel", func(a adapter.Adapter) (adapter.Ack, bool) {
		m, ok := a.(adapter.ChannelManager)
		if !ok {
			return adapter.Pass[struct{}](), false
		}
		return m.DeleteChannel(ctx, uid, userID), true
	})
	return err
}

// OrderChannels routes a reorder of the given uids.
func (e *Engine) OrderChannels(ctx context.Context, uids []string, userID string) error {
	if len(uids) == 0 {
		return fmt.Errorf("%w: channels are required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, "order_channels", func(a adapter.Adapter) (adapter.Ack, bool) {
		m, ok := a.(adapter.ChannelManager)
		if !ok {
			return adapter.Pass[struct{}](), false
		}
		return m.OrderChannels(ctx, uids, userID), true
	})
	return err
}

// MarkRead routes read-marking for the given entry ids. Marking is
// idempotent at the adapter: re-marking read entries succeeds.
func (e *Engine) MarkRead(ctx context.Context, channel string, entries []string, userID string) error {
	return e.mark(ctx, "mark_read", channel, entries, userID, adapter.Marker.MarkRead)
}

// MarkUnread routes unread-marking for the given entry ids.
func (e *Engine) MarkUnread(ctx context.Context, channel string, entries []string, userID string) error {
	return e.mark(ctx, "mark_unread", channel, entries, userID, adapter.Marker.MarkUnread)
}

func (e *Engine) mark(ctx context.Context, action, channel string, entries []string, userID string, op func(adapter.Marker, context.Context, string, []string, string) adapter.Ack) error {
	if channel == "" || len(entries) == 0 {
		return fmt.Errorf("%w: channel and entry are required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, action, func(a adapter.Adapter) (adapter.Ack, bool) {
		m, ok := a.(adapter.Marker)
		if !ok {
			return adapter.Pass[struct{}](), false
		}
		return op(m, ctx, channel, entries, userID), true
	})
	return err
}

// RemoveEntry routes removal of one entry from a channel timeline.
func (e *Engine) RemoveEntry(ctx context.Context, channel, entry, userID string) error {
	if channel == "" || entry == "" {
		return fmt.Errorf("%w: channel and entry are required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, "timeline_remove", func(a adapter.Adapter) (adapter.Ack, bool) {
		m, ok := a.(adapter.Marker)
		if !ok {
			return adapter.Pass[struct{}](), false
		}
		return m.RemoveEntry(ctx, channel, entry, userID), true
	})
	return err
}

// Mute routes muting of a feed URL within a channel.
func (e *Engine) Mute(ctx context.Context, channel, url, userID string) error {
	return e.muteOp(ctx, "mute", channel, url, userID, adapter.MuteList.Mute)
}

// Unmute routes unmuting of a feed URL within a channel.
func (e *Engine) Unmute(ctx context.Context, channel, url, userID string) error {
	return e.muteOp(ctx, "unmute", channel, url, userID, adapter.MuteList.Unmute)
}

func (e *Engine) muteOp(ctx context.Context, action, channel, url, userID string, op func(adapter.MuteList, context.Context, string, string, string) adapter.Ack) error {
	if channel == "" || url == "" {
		return fmt.Errorf("%w: channel and url are required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, action, func(a adapter.Adapter) (adapter.Ack, bool) {
		m, ok := a.(adapter.MuteList)
		if !ok {
			return adapter.Pass[struct{}](), false
		}
		return op(m, ctx, channel, url, userID), true
	})
	return err
}

// Block routes blocking of a feed URL within a channel.
func (e *Engine) Block(ctx context.Context, channel, url, userID string) error {
	return e.blockOp(ctx, "block", channel, url, userID, adapter.BlockList.Block)
}

// Unblock routes unblocking of a feed URL within a channel.
func (e *Engine) Unblock(ctx context.Context, channel, url, userID string) error {
	return e.blockOp(ctx, "unblock", channel, url, userID, adapter.BlockList.Unblock)
}

func (e *Engine) blockOp(ctx context.Context, action, channel, url, userID string, op func(adapter.BlockList, context.Context, string, string, string) adapter.Ack) error {
	if channel == "" || url == "" {
		return fmt.Errorf("%w: channel and url are required", ErrInvalid)
	}
	_, err := route(ctx, e.registry, action, func(a adapter.Adapter) (adapter.Ack, bool) {
		b, ok := a.(adapter.BlockList)
		if !ok {
			return adapter.Pass[struct{}](), false
		}
		return op(b, ctx, channel, url, userID), true
	})
	return err
}

// Search routes a content search to the first adapter that can answer
// it. The result shape is the answering adapter's.
func (e *Engine) Search(ctx context.Context, query, userID string) (*model.Timeline, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalid)
	}
	return route(ctx, e.registry, "search", func(a adapter.Adapter) (adapter.Result[*model.Timeline], bool) {
		s, ok := a.(adapter.Searcher)
		if !ok {
			return adapter.Pass[*model.Timeline](), false
		}
		return s.Search(ctx, query, userID), true
	})
}

// Preview routes a fetch-without-subscribing of a URL.
func (e *Engine) Preview(ctx context.Context, url, userID string) (*model.Timeline, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalid)
	}
	return route(ctx, e.registry, "preview", func(a adapter.Adapter) (adapter.Result[*model.Timeline], bool) {
		p, ok := a.(adapter.Previewer)
		if !ok {
			return adapter.Pass[*model.Timeline](), false
		}
		return p.Preview(ctx, url, userID), true
	})
}
