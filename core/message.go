package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventMessage is the broker-agnostic event envelope. The same shape travels
// over every backend; transport-level attributes (partition key, routing key,
// AMQP properties) are derived from it inside each plugin.
type EventMessage struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]any    `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// Clone returns a copy with its own maps; values are shared. Plugins clone
// before mutating metadata (dead-letter tagging) so the caller's message is
// never touched after Publish returns.
func (m *EventMessage) Clone() *EventMessage {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Data != nil {
		cp.Data = make(map[string]any, len(m.Data))
		for k, v := range m.Data {
			cp.Data[k] = v
		}
	}
	if m.Metadata != nil {
		cp.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			cp.Metadata[k] = v
		}
	}
	if m.Headers != nil {
		cp.Headers = make(map[string]string, len(m.Headers))
		for k, v := range m.Headers {
			cp.Headers[k] = v
		}
	}
	return &cp
}

// EncodeMessage serializes the envelope for the wire. All plugins share this
// codec so a message published through one provider and inspected on another
// (e.g. replayed from a dead-letter topic) decodes identically.
func EncodeMessage(m *EventMessage) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("eventstream: encode message %q: %w", m.ID, err)
	}
	return data, nil
}

// DecodeMessage deserializes a wire payload back into an envelope.
func DecodeMessage(data []byte) (*EventMessage, error) {
	var m EventMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("eventstream: decode message: %w", err)
	}
	return &m, nil
}

// HandlerFunc processes a single delivered event. Returning an error triggers
// the retry/dead-letter policy configured on the owning EventHandler.
type HandlerFunc func(ctx context.Context, msg *EventMessage) error

// HandlerOptions controls the per-handler failure policy.
type HandlerOptions struct {
	// Retry enables re-invocation after a handler error.
	Retry bool
	// MaxRetries is the number of re-invocations after the initial attempt.
	MaxRetries int
	// RetryDelay is the base wait; attempt n waits RetryDelay * n.
	RetryDelay time.Duration
	// DeadLetterQueue, when set, receives messages whose retries are exhausted.
	DeadLetterQueue string
}

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

func (o HandlerOptions) withDefaults() HandlerOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// EventHandler binds a handler function to the event type it reacts to.
// Multiple handlers may subscribe to the same topic; each sees only
// deliveries whose Type equals its EventType.
type EventHandler struct {
	EventType string
	Handler   HandlerFunc
	Options   HandlerOptions
}
