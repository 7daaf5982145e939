// Package mock provides test doubles for the adapter contract.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/streamkit/eventstream/core"
)

// Adapter is a test double for core.Adapter. It records publishes, lets
// tests deliver messages to registered handlers, and can be primed with
// errors.
type Adapter struct {
	mu        sync.Mutex
	published []Published
	registry  *core.SubscriptionRegistry
	metrics   *core.Metrics
	dispatch  *core.Dispatcher
	connected bool
	closed    bool

	// PublishErr fails Publish/PublishBatch when set. FailFor fails only
	// the message whose ID matches and FailTopic only the matching topic,
	// for partial-failure tests.
	PublishErr   error
	FailFor      string
	FailTopic    string
	SubscribeErr error
}

// Published records a message sent through Publish or PublishBatch.
type Published struct {
	Topic   string
	Message *core.EventMessage
}

// NewAdapter returns a connected mock with an immediate-retry dispatcher.
func NewAdapter() *Adapter {
	a := &Adapter{
		registry:  core.NewSubscriptionRegistry(),
		metrics:   core.NewMetrics(),
		connected: true,
	}
	a.dispatch = core.NewDispatcher(a.Publish, a.metrics, nil)
	a.dispatch.Sleep = func(context.Context, time.Duration) {}
	return a
}

var errFailFor = errors.New("mock: primed failure")

func (a *Adapter) Publish(_ context.Context, topic string, msg *core.EventMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.PublishErr != nil {
		a.metrics.RecordFailed()
		return a.PublishErr
	}
	if a.FailFor != "" && msg.ID == a.FailFor {
		a.metrics.RecordFailed()
		return &core.ConnectionError{Provider: "mock", Op: "publish", Err: errFailFor}
	}
	if a.FailTopic != "" && topic == a.FailTopic {
		a.metrics.RecordFailed()
		return &core.ConnectionError{Provider: "mock", Op: "publish to " + topic, Err: errFailFor}
	}
	a.published = append(a.published, Published{Topic: topic, Message: msg})
	a.metrics.RecordPublished(1)
	return nil
}

func (a *Adapter) PublishBatch(ctx context.Context, topic string, msgs []*core.EventMessage) error {
	var errs []error
	for _, msg := range msgs {
		if err := a.Publish(ctx, topic, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Adapter) Subscribe(_ context.Context, topic string, handler core.EventHandler) error {
	a.mu.Lock()
	if a.SubscribeErr != nil {
		err := a.SubscribeErr
		a.mu.Unlock()
		return err
	}
	a.mu.Unlock()
	a.registry.Add(topic, handler)
	return nil
}

func (a *Adapter) Unsubscribe(_ context.Context, topic, eventType string) error {
	removed, _ := a.registry.Remove(topic, eventType)
	if !removed {
		return core.ErrNoHandler
	}
	return nil
}

func (a *Adapter) Subscriptions() map[string][]core.EventHandler {
	return a.registry.Snapshot()
}

func (a *Adapter) Metrics() core.MetricsSnapshot {
	return a.metrics.Snapshot()
}

func (a *Adapter) Health() core.HealthStatus {
	a.mu.Lock()
	connected := a.connected && !a.closed
	a.mu.Unlock()
	return core.EvaluateHealth("mock", connected, a.metrics.Snapshot(), nil)
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.connected = false
	return nil
}

// Deliver simulates an incoming message: it runs the full dispatch loop
// (event-type filtering, retry, dead-letter) against registered handlers.
func (a *Adapter) Deliver(ctx context.Context, topic string, msg *core.EventMessage) {
	for _, h := range a.registry.HandlersFor(topic) {
		if h.EventType != msg.Type {
			continue
		}
		_, _ = a.dispatch.Dispatch(ctx, topic, h, msg)
	}
}

// SetConnected overrides the connectivity flag for health tests.
func (a *Adapter) SetConnected(connected bool) {
	a.mu.Lock()
	a.connected = connected
	a.mu.Unlock()
}

// Published returns a copy of all recorded publishes.
func (a *Adapter) Published() []Published {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Published, len(a.published))
	copy(out, a.published)
	return out
}

// PublishedTo filters recorded publishes by topic.
func (a *Adapter) PublishedTo(topic string) []Published {
	var out []Published
	for _, p := range a.Published() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// RecordFailure bumps the failure counter directly, for error-rate tests.
func (a *Adapter) RecordFailure() {
	a.metrics.RecordFailed()
}
