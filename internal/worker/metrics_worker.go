package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/facility-ops/internal/events"
	"github.com/spec-kit/facility-ops/internal/observability"
)

// StartMetricsWorker subscribes to every ticket event type and feeds the activity counters.
func StartMetricsWorker(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil || metrics == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			metrics.RecordTicketEvent(string(event.Type))
			if payload, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
				metrics.RecordTransition(string(payload.OldStatus), string(payload.NewStatus))
			}
			return nil
		})
	}
	logger.Debug("ticket metrics worker subscribed", zap.Int("event_types", len(events.AllEventTypes)))
}
