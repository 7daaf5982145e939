package middleware

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/core"
)

// Logging returns middleware that logs message processing duration and errors.
func Logging(logger *logrus.Logger) Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(ctx context.Context, msg *core.EventMessage) error {
			start := time.Now()
			err := next(ctx, msg)
			entry := logger.WithFields(logrus.Fields{
				"id":      msg.ID,
				"type":    msg.Type,
				"source":  msg.Source,
				"elapsed": time.Since(start).String(),
			})
			if err != nil {
				entry.WithError(err).Error("event handler failed")
			} else {
				entry.Info("event handled")
			}
			return err
		}
	}
}
