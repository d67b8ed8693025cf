package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink implements the Sink interface by writing events to the application
// log. It serves deployments without a broker.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

// Publish writes the event as a structured log entry.
func (s *LogSink) Publish(ctx context.Context, e Event) error {
	s.log.Info("event emitted",
		zap.String("type", string(e.Type)),
		zap.String("routing_key", e.RoutingKey()),
		zap.String("driver_id", e.DriverID),
		zap.String("boundary_id", e.BoundaryID),
		zap.String("request_id", e.RequestID),
		zap.String("from", e.From),
		zap.String("to", e.To),
	)
	return nil
}
