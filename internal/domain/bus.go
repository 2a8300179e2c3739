package domain

import "context"

// EventBus provides in-process pub/sub for lifecycle events. Subscriptions
// are torn down when the subscriber's context is cancelled.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Well-known event channels.
const (
	ChannelOrders   = "orders"
	ChannelDisputes = "disputes"
	ChannelGuides   = "guides"
)
