package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rivulet/internal/adapter"
	"rivulet/internal/engine"
	"rivulet/internal/model"
)

// fake is a configurable in-memory adapter for exercising the
// aggregation and routing contracts.
type fake struct {
	adapter.Base
	channels    []model.Channel
	feeds       []model.Feed
	items       []model.Entry
	paging      *model.Paging
	readErr     error
	follow      adapter.Result[model.Feed]
	followCalls int
	unfollow    adapter.Ack
	lastQuery   model.TimelineQuery
}

func newFake(id string, priority int) *fake {
	return &fake{
		Base:     adapter.Base{AdapterID: id, DisplayName: id, Prio: priority},
		follow:   adapter.Pass[model.Feed](),
		unfollow: adapter.Pass[struct{}](),
	}
}

func (f *fake) Channels(ctx context.Context, acc []model.Channel, userID string) ([]model.Channel, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append(acc, f.channels...), nil
}

func (f *fake) Timeline(ctx context.Context, acc *model.Timeline, q model.TimelineQuery, userID string) (*model.Timeline, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.lastQuery = q
	acc.Items = append(acc.Items, f.items...)
	if f.paging != nil {
		acc.Paging = f.paging
	}
	return acc, nil
}

func (f *fake) Following(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append(acc, f.feeds...), nil
}

func (f *fake) Follow(ctx context.Context, channel, url, userID string) adapter.Result[model.Feed] {
	f.followCalls++
	return f.follow
}

func (f *fake) Unfollow(ctx context.Context, channel, url, userID string) adapter.Ack {
	return f.unfollow
}

func newEngine(t *testing.T, adapters ...adapter.Adapter) *engine.Engine {
	t.Helper()
	reg, err := adapter.NewRegistry(adapters...)
	require.NoError(t, err)
	return engine.New(reg)
}

func TestChannelsDedupFirstAdapterWins(t *testing.T) {
	a := newFake("a", 10)
	a.channels = []model.Channel{{Uid: "home", Name: "Home"}}
	b := newFake("b", 20)
	b.channels = []model.Channel{{Uid: "home", Name: "dup"}, {Uid: "other", Name: "Other"}}

	channels, err := newEngine(t, a, b).Channels(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, "home", channels[0].Uid)
	require.Equal(t, "Home", channels[0].Name)
	require.Equal(t, "other", channels[1].Uid)
}

func TestChannelsEmptyIsNotImplemented(t *testing.T) {
	_, err := newEngine(t, newFake("a", 10), newFake("b", 20)).Channels(context.Background(), "me")
	require.ErrorIs(t, err, engine.ErrNotImplemented)
}

func TestChannelsSkipsFailingAdapter(t *testing.T) {
	a := newFake("a", 10)
	a.channels = []model.Channel{{Uid: "home", Name: "Home"}}
	broken := newFake("broken", 15)
	broken.readErr = errors.New("backend down")
	c := newFake("c", 20)
	c.channels = []model.Channel{{Uid: "notifications", Name: "Notifications"}}

	channels, err := newEngine(t, a, broken, c).Channels(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, "home", channels[0].Uid)
	require.Equal(t, "notifications", channels[1].Uid)
}

func TestFollowingConcatenatesWithoutDedup(t *testing.T) {
	a := newFake("a", 10)
	a.feeds = []model.Feed{model.NewFeed("https://example.com/feed")}
	b := newFake("b", 20)
	b.feeds = []model.Feed{model.NewFeed("https://example.com/feed"), model.NewFeed("https://other.org/rss")}

	feeds, err := newEngine(t, a, b).Following(context.Background(), "home", "me")
	require.NoError(t, err)
	require.Len(t, feeds, 3)
}

func TestFollowingRequiresChannel(t *testing.T) {
	_, err := newEngine(t, newFake("a", 10)).Following(context.Background(), "", "me")
	require.ErrorIs(t, err, engine.ErrInvalid)
}

func TestTimelineMergesAndSorts(t *testing.T) {
	a := newFake("a", 10)
	a.items = []model.Entry{
		{Type: model.TypeEntry, ID: "1", Published: "2024-01-15T10:00:00Z"},
	}
	b := newFake("b", 20)
	b.items = []model.Entry{
		{Type: model.TypeEntry, ID: "2", Published: "2024-01-15T11:00:00Z"},
	}

	timeline, err := newEngine(t, a, b).Timeline(context.Background(), model.TimelineQuery{Channel: "home"}, "me")
	require.NoError(t, err)
	require.Len(t, timeline.Items, 2)
	require.Equal(t, "2", timeline.Items[0].ID)
	require.Equal(t, "1", timeline.Items[1].ID)
}

func TestTimelineEmptyIsSuccess(t *testing.T) {
	timeline, err := newEngine(t, newFake("a", 10)).Timeline(context.Background(), model.TimelineQuery{Channel: "home"}, "me")
	require.NoError(t, err)
	require.NotNil(t, timeline.Items)
	require.Empty(t, timeline.Items)
}

func TestTimelineRequiresChannel(t *testing.T) {
	_, err := newEngine(t, newFake("a", 10)).Timeline(context.Background(), model.TimelineQuery{}, "me")
	require.ErrorIs(t, err, engine.ErrInvalid)
}

func TestTimelineCursorsPassThroughToAdapters(t *testing.T) {
	a := newFake("a", 10)
	q := model.TimelineQuery{Channel: "home", After: "cursor-a", Before: "cursor-b", Limit: 7}

	_, err := newEngine(t, a).Timeline(context.Background(), q, "me")
	require.NoError(t, err)
	require.Equal(t, "cursor-a", a.lastQuery.After)
	require.Equal(t, "cursor-b", a.lastQuery.Before)
	require.Equal(t, 7, a.lastQuery.Limit)
}

func TestTimelineDefaultAndMaxLimit(t *testing.T) {
	a := newFake("a", 10)

	_, err := newEngine(t, a).Timeline(context.Background(), model.TimelineQuery{Channel: "home"}, "me")
	require.NoError(t, err)
	require.Equal(t, model.DefaultTimelineLimit, a.lastQuery.Limit)

	_, err = newEngine(t, a).Timeline(context.Background(), model.TimelineQuery{Channel: "home", Limit: 10000}, "me")
	require.NoError(t, err)
	require.Equal(t, model.MaxTimelineLimit, a.lastQuery.Limit)
}

func TestTimelinePagingComesFromAdapter(t *testing.T) {
	a := newFake("a", 10)
	a.paging = &model.Paging{Before: "2024-01-01T00:00:00Z"}

	timeline, err := newEngine(t, a).Timeline(context.Background(), model.TimelineQuery{Channel: "home"}, "me")
	require.NoError(t, err)
	require.NotNil(t, timeline.Paging)
	require.Equal(t, "2024-01-01T00:00:00Z", timeline.Paging.Before)
}

// muteFake carries the optional mute capability on top of fake.
type muteFake struct {
	*fake
	muted []model.Feed
}

func (m *muteFake) Muted(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	return append(acc, m.muted...), nil
}

func (m *muteFake) Mute(ctx context.Context, channel, url, userID string) adapter.Ack {
	return adapter.Done()
}

func (m *muteFake) Unmute(ctx context.Context, channel, url, userID string) adapter.Ack {
	return adapter.Done()
}

func TestMutedOnlyConsultsCapabilityHolders(t *testing.T) {
	plain := newFake("plain", 10)
	withMute := &muteFake{fake: newFake("muter", 20), muted: []model.Feed{model.NewFeed("https://loud.example")}}

	feeds, err := newEngine(t, plain, withMute).Muted(context.Background(), "home", "me")
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	require.Equal(t, "https://loud.example", feeds[0].URL)
}

func TestMuteWithoutCapabilityIsNotImplemented(t *testing.T) {
	err := newEngine(t, newFake("plain", 10)).Mute(context.Background(), "home", "https://loud.example", "me")
	require.ErrorIs(t, err, engine.ErrNotImplemented)
}
