package core

import "context"

// Adapter is the contract every broker plugin implements. Exactly one adapter
// is active per Stream, selected by the broker factory at startup.
//
// Accessors returning registry, metrics, or health data always return
// snapshot copies, never live internal structures.
type Adapter interface {
	// Publish sends one message to a topic. Transport failures are returned
	// to the caller and recorded as failed events; the facade decides whether
	// to surface them further.
	Publish(ctx context.Context, topic string, msg *EventMessage) error

	// PublishBatch sends messages preserving input order. Element failures
	// are reported as an aggregate error; delivery of the remaining elements
	// is best-effort (see DESIGN.md).
	PublishBatch(ctx context.Context, topic string, msgs []*EventMessage) error

	// Subscribe registers a handler for a topic. The first handler on a topic
	// opens the transport consumption mechanism; later handlers join the same
	// delivery loop. Deliveries are filtered by handler.EventType.
	Subscribe(ctx context.Context, topic string, handler EventHandler) error

	// Unsubscribe removes handlers matching eventType from a topic and
	// releases the transport subscription once none remain.
	Unsubscribe(ctx context.Context, topic, eventType string) error

	// Subscriptions returns a copy of the topic -> handlers registry.
	Subscriptions() map[string][]EventHandler

	// Metrics returns a point-in-time counter snapshot.
	Metrics() MetricsSnapshot

	// Health computes status from connectivity and standing issues. Never
	// cached; every call re-evaluates.
	Health() HealthStatus

	// Close releases the transport connection and stops all delivery loops.
	Close() error
}
