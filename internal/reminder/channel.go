package reminder

import (
	"context"
	"fmt"
	"time"
)

// Channel delivers one reminder. A non-nil error is recorded as a failed
// outcome; it never stops the tick.
type Channel interface {
	Send(ctx context.Context, text string, kind Kind) error
}

// ChannelFunc adapts a plain function to Channel.
type ChannelFunc func(ctx context.Context, text string, kind Kind) error

func (f ChannelFunc) Send(ctx context.Context, text string, kind Kind) error {
	return f(ctx, text, kind)
}

// Registry is an ordered ChannelID -> Channel map. Delivery results follow
// registration order. A Registry is not modified after it is handed to a
// Scheduler.
type Registry struct {
	ids   []ChannelID
	chans map[ChannelID]Channel
}

func NewRegistry() *Registry {
	return &Registry{chans: map[ChannelID]Channel{}}
}

func (r *Registry) Register(id ChannelID, ch Channel) error {
	if id == "" || ch == nil {
		return fmt.Errorf("%w: channel id and sender are required", ErrInvalidArgument)
	}
	if _, ok := r.chans[id]; ok {
		return fmt.Errorf("%w: channel %q already registered", ErrInvalidArgument, id)
	}
	r.ids = append(r.ids, id)
	r.chans[id] = ch
	return nil
}

func (r *Registry) Get(id ChannelID) (Channel, bool) {
	if r == nil {
		return nil, false
	}
	ch, ok := r.chans[id]
	return ch, ok
}

func (r *Registry) IDs() []ChannelID {
	if r == nil {
		return nil
	}
	return append([]ChannelID(nil), r.ids...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// Clock is the scheduler's time source for control operations.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
