// Package memory implements domain.EventBus with in-process fan-out. The
// whole system is single-process, so lifecycle events never leave it.
package memory

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing messages rather than blocking
// publishers.
const subscriberBuffer = 64

type subscriber struct {
	channel string
	ch      chan []byte
}

// Bus is an in-process publish/subscribe bus.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscriber
	logger *slog.Logger
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]*subscriber),
		logger: logger.With(slog.String("component", "bus")),
	}
}

// Publish delivers payload to every subscriber of channel. Delivery is
// best-effort: a full subscriber buffer drops the message for that subscriber
// so a slow consumer cannot stall a write request.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.channel != channel {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			b.logger.WarnContext(ctx, "dropping event for slow subscriber",
				slog.String("channel", channel),
			)
		}
	}
	return nil
}

// Subscribe returns a channel receiving every payload published to channel.
// The subscription is removed and the channel closed when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := &subscriber{
		channel: channel,
		ch:      make(chan []byte, subscriberBuffer),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub.ch)
		}
	}()

	return sub.ch, nil
}

// Close drops every subscription and closes its channel. Publishing after
// Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
