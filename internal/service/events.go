package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/traveltrust/trustd/internal/domain"
)

// event is the envelope published on the in-process bus and forwarded to
// websocket subscribers.
type event struct {
	Type string         `json:"type"`
	Time time.Time      `json:"time"`
	Data map[string]any `json:"data"`
}

// publishEvent marshals and publishes a lifecycle event. Event delivery is
// best-effort and never fails the triggering operation.
func publishEvent(ctx context.Context, bus domain.EventBus, logger *slog.Logger, channel, eventType string, data map[string]any) {
	if bus == nil {
		return
	}
	payload, err := json.Marshal(event{
		Type: eventType,
		Time: time.Now().UTC(),
		Data: data,
	})
	if err != nil {
		logger.ErrorContext(ctx, "marshal event failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "publish event failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}
