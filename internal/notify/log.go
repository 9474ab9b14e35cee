package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/events"
)

// Log writes every emitted event to the structured log. Low-stock events
// are raised to warn so they surface in default log views.
type Log struct {
	Logger zerolog.Logger
}

// Notify implements events.Notifier.
func (l *Log) Notify(_ context.Context, event events.Event) error {
	evt := l.Logger.Info()
	if event.Topic == events.TopicStockLow {
		evt = l.Logger.Warn()
	}
	evt.
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID.String()).
		RawJSON("payload", event.Payload).
		Msg("domain event")
	return nil
}
