// Package eventstream provides the top-level API for the event streaming
// core: one publish/subscribe contract served by interchangeable broker
// adapters. It re-exports core types for convenience, so users can write:
//
//	s, err := eventstream.New(broker.FromEnv())
//	s.Subscribe(ctx, "user.events", eventstream.EventHandler{...})
//	s.Publish(ctx, "user.events", eventstream.CreateUserEvent("user.created", "u1", data))
package eventstream

import (
	"github.com/streamkit/eventstream/core"
)

// Re-export core types at the package level for ergonomic usage.
type (
	EventMessage    = core.EventMessage
	EventHandler    = core.EventHandler
	HandlerFunc     = core.HandlerFunc
	HandlerOptions  = core.HandlerOptions
	Adapter         = core.Adapter
	MetricsSnapshot = core.MetricsSnapshot
	HealthStatus    = core.HealthStatus
)
