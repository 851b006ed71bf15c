// Package adapter defines the capability contract every backend
// provider implements and the registry the engine fans out over.
//
// List-producing reads use an accumulator: each adapter receives the
// running result from earlier adapters and returns it with only its own
// contributions appended. Single-owner mutations use a routed Result:
// an adapter either passes the call to the next adapter, handles it
// with a concrete value, or fails it terminally.
package adapter

import (
	"context"

	"rivulet/internal/model"
)

// DefaultPriority is the registry position most adapters register at.
// Lower values are consulted earlier.
const DefaultPriority = 10

// Status tags a routed call outcome.
type Status int

const (
	// StatusPass means the adapter declines the call; the router moves
	// on to the next adapter.
	StatusPass Status = iota
	// StatusHandled means the adapter performed the call; the router
	// stops and later adapters are never consulted.
	StatusHandled
	// StatusFailed means the adapter claimed the call and could not
	// perform it. The router stops: retrying on another adapter could
	// double-apply a mutation.
	StatusFailed
)

// Result is the three-state return of a routed (single-owner) call.
type Result[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Pass declines a routed call.
func Pass[T any]() Result[T] {
	return Result[T]{Status: StatusPass}
}

// Handled resolves a routed call with a value.
func Handled[T any](v T) Result[T] {
	return Result[T]{Status: StatusHandled, Value: v}
}

// Failed resolves a routed call with a terminal error.
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: err}
}

// Ack is the routed result of calls that succeed without a payload.
type Ack = Result[struct{}]

// Done acknowledges a routed call that has no payload.
func Done() Ack {
	return Handled(struct{}{})
}

// Adapter is the required capability set. Every adapter must produce a
// meaningful answer for these, even if the answer is "nothing from me":
// the accumulator methods return their input unchanged, Follow and
// Unfollow return Pass.
type Adapter interface {
	// ID is the stable unique name of the adapter.
	ID() string
	// Name is the display name.
	Name() string
	// Priority orders routing and listing; lower runs earlier. Ties
	// keep registration order.
	Priority() int

	// Channels appends this adapter's channels to acc.
	Channels(ctx context.Context, acc []model.Channel, userID string) ([]model.Channel, error)
	// Timeline appends this adapter's items for the channel to acc,
	// honoring the query cursors against its own backing store.
	Timeline(ctx context.Context, acc *model.Timeline, q model.TimelineQuery, userID string) (*model.Timeline, error)
	// Following appends the feeds followed in the channel to acc.
	Following(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error)

	Follow(ctx context.Context, channel, url, userID string) Result[model.Feed]
	Unfollow(ctx context.Context, channel, url, userID string) Ack
}

// ChannelManager is the optional channel-mutation capability.
type ChannelManager interface {
	CreateChannel(ctx context.Context, name, userID string) Result[model.Channel]
	UpdateChannel(ctx context.Context, uid, name, userID string) Result[model.Channel]
	DeleteChannel(ctx context.Context, uid, userID string) Ack
	OrderChannels(ctx context.Context, uids []string, userID string) Ack
}

// Marker is the optional read-state capability. Marking must be
// idempotent: re-marking an already-read entry succeeds.
type Marker interface {
	MarkRead(ctx context.Context, channel string, entries []string, userID string) Ack
	MarkUnread(ctx context.Context, channel string, entries []string, userID string) Ack
	RemoveEntry(ctx context.Context, channel, entry, userID string) Ack
}

// MuteList is the optional mute capability.
type MuteList interface {
	Muted(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error)
	Mute(ctx context.Context, channel, url, userID string) Ack
	Unmute(ctx context.Context, channel, url, userID string) Ack
}

// BlockList is the optional block capability.
type BlockList interface {
	Blocked(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error)
	Block(ctx context.Context, channel, url, userID string) Ack
	Unblock(ctx context.Context, channel, url, userID string) Ack
}

// Searcher is the optional search capability.
type Searcher interface {
	Search(ctx context.Context, query, userID string) Result[*model.Timeline]
}

// Previewer is the optional preview capability.
type Previewer interface {
	Preview(ctx context.Context, url, userID string) Result[*model.Timeline]
}

// URLMatcher is an advisory predicate an adapter may expose so that its
// own Follow can bail out early. The engine never enforces it.
type URLMatcher interface {
	CanHandle(url string) bool
}

// FeedOwner is an advisory predicate for unfollow routing: does this
// adapter manage the given feed URL.
type FeedOwner interface {
	OwnsFeed(ctx context.Context, url string) bool
}

// CanHandle reports the advisory URL predicate for a, defaulting to
// true when the adapter does not implement URLMatcher.
func CanHandle(a Adapter, url string) bool {
	if m, ok := a.(URLMatcher); ok {
		return m.CanHandle(url)
	}
	return true
}

// OwnsFeed reports the advisory ownership predicate for a, defaulting
// to false when the adapter does not implement FeedOwner.
func OwnsFeed(ctx context.Context, a Adapter, url string) bool {
	if o, ok := a.(FeedOwner); ok {
		return o.OwnsFeed(ctx, url)
	}
	return false
}
