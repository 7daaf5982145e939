package middleware

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/core"
)

// Middleware wraps a HandlerFunc to add cross-cutting behavior.
type Middleware func(next core.HandlerFunc) core.HandlerFunc

// Chain applies middleware in reverse order: given [A, B, C], the call
// order is A -> B -> C -> handler.
func Chain(h core.HandlerFunc, mws ...Middleware) core.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recovery returns middleware that recovers from panics in handlers, logs
// the stack trace, and returns the panic as an error so the retry policy
// treats it like any other handler failure.
func Recovery(logger *logrus.Logger) Middleware {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return func(next core.HandlerFunc) core.HandlerFunc {
		return func(ctx context.Context, msg *core.EventMessage) (err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.WithFields(logrus.Fields{
						"id":   msg.ID,
						"type": msg.Type,
					}).Errorf("panic recovered: %v\n%s", r, buf[:n])
					err = fmt.Errorf("eventstream: panic recovered: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}
