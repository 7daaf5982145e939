package middleware

import (
	"context"
	"time"

	"github.com/streamkit/eventstream/core"
)

// MetricsCollector is the interface that metrics backends must implement.
// This keeps the middleware decoupled from any specific metrics library.
type MetricsCollector interface {
	// EventProcessed records that an event was handled. eventType is the
	// envelope's type, duration is processing time, err is nil on success.
	EventProcessed(eventType string, duration time.Duration, err error)
}

// Metrics returns middleware that reports processing metrics to the given collector.
func Metrics(collector MetricsCollector) Middleware {
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(ctx context.Context, msg *core.EventMessage) error {
			start := time.Now()
			err := next(ctx, msg)
			collector.EventProcessed(msg.Type, time.Since(start), err)
			return err
		}
	}
}
