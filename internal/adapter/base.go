package adapter

import (
	"context"

	"rivulet/internal/model"
)

// Base provides the inert defaults of the required capability set: the
// accumulator methods return their input unchanged and the routed
// methods pass. Concrete adapters embed Base and override what they
// actually provide.
type Base struct {
	AdapterID   string
	DisplayName string
	Prio        int
}

func (b Base) ID() string   { return b.AdapterID }
func (b Base) Name() string { return b.DisplayName }

func (b Base) Priority() int {
	if b.Prio == 0 {
		return DefaultPriority
	}
	return b.Prio
}

func (b Base) Channels(ctx context.Context, acc []model.Channel, userID string) ([]model.Channel, error) {
	return acc, nil
}

func (b Base) Timeline(ctx context.Context, acc *model.Timeline, q model.TimelineQuery, userID string) (*model.Timeline, error) {
	return acc, nil
}

func (b Base) Following(ctx context.Context, acc []model.Feed, channel, userID string) ([]model.Feed, error) {
	return acc, nil
}

func (b Base) Follow(ctx context.Context, channel, url, userID string) Result[model.Feed] {
	return Pass[model.Feed]()
}

func (b Base) Unfollow(ctx context.Context, channel, url, userID string) Ack {
	return Pass[struct{}]()
}
