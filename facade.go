package eventstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
	"github.com/streamkit/eventstream/core"
	"github.com/streamkit/eventstream/core/middleware"
)

// Stream states. Only StateConnected permits publish/subscribe; calls in any
// other state fail fast with core.ErrNotInitialized rather than queuing.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Stream is the event streaming facade. It selects exactly one adapter at
// startup, enriches outbound messages, forwards calls, and emits lifecycle
// notifications around both paths.
type Stream struct {
	adapter     core.Adapter
	provider    string
	opts        broker.Options
	logger      *logrus.Logger
	middlewares []middleware.Middleware
	notifier    notifier

	mu    sync.RWMutex
	state State
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the structured logger.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// WithMiddleware appends handler middleware applied to every subscription,
// inside the always-present recovery layer.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *Stream) { s.middlewares = append(s.middlewares, mws...) }
}

// WithObserver registers a lifecycle notification observer.
func WithObserver(obs Observer) Option {
	return func(s *Stream) { s.notifier.add(obs) }
}

// WithPolicy overrides the stream-level retry/dead-letter policy. New takes
// the policy from the Config; this option is for NewWithAdapter callers.
func WithPolicy(opts broker.Options) Option {
	return func(s *Stream) { s.opts = opts }
}

// New resolves the configured provider through the broker registry and
// connects its adapter. An unknown provider or missing provider settings is
// a *core.ConfigurationError, fatal at startup.
func New(cfg broker.Config, opts ...Option) (*Stream, error) {
	// A zero Options value means the caller never set a policy; treating it
	// literally would turn retry and dead-lettering off for every handler.
	bopts := cfg.Options
	if bopts == (broker.Options{}) {
		bopts = broker.DefaultOptions()
	}
	s := newStream(cfg.Provider, bopts, opts)

	s.setState(StateConnecting)
	adapter, err := broker.Create(cfg.Provider, cfg)
	if err != nil {
		s.setState(StateDisconnected)
		return nil, err
	}
	s.adapter = adapter
	s.setState(StateConnected)
	s.logger.WithField("provider", cfg.Provider).Info("event streaming connected")
	return s, nil
}

// NewWithAdapter wires a pre-built adapter, bypassing the registry. Used
// when the adapter needs constructor arguments the Config cannot carry, and
// by tests.
func NewWithAdapter(provider string, adapter core.Adapter, opts ...Option) *Stream {
	s := newStream(provider, broker.DefaultOptions(), opts)
	s.adapter = adapter
	s.setState(StateConnected)
	return s
}

func newStream(provider string, bopts broker.Options, opts []Option) *Stream {
	s := &Stream{
		provider: provider,
		opts:     bopts,
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	return s
}

// State reports the connection state.
func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// ready gates operations on the connected state.
func (s *Stream) ready() error {
	if s.State() != StateConnected {
		return fmt.Errorf("event streaming service %s: %w", s.State(), core.ErrNotInitialized)
	}
	return nil
}

// Publish enriches the message and delegates to the active adapter. Failures
// emit an event.publish.failed notification and are still returned so the
// caller can run compensating logic.
func (s *Stream) Publish(ctx context.Context, topic string, msg *core.EventMessage) error {
	if err := s.ready(); err != nil {
		return err
	}
	enriched := core.Enrich(msg, time.Now())
	if err := s.adapter.Publish(ctx, topic, enriched); err != nil {
		s.notifier.emit(NotifyPublishFailed, topic, enriched, err)
		return err
	}
	s.notifier.emit(NotifyPublished, topic, enriched, nil)
	return nil
}

// PublishBatch enriches every message and delegates. Notification granularity
// is per batch, mirroring the adapter's aggregate failure reporting.
func (s *Stream) PublishBatch(ctx context.Context, topic string, msgs []*core.EventMessage) error {
	if err := s.ready(); err != nil {
		return err
	}
	now := time.Now()
	enriched := make([]*core.EventMessage, len(msgs))
	for i, m := range msgs {
		enriched[i] = core.Enrich(m, now)
	}
	if err := s.adapter.PublishBatch(ctx, topic, enriched); err != nil {
		s.notifier.emit(NotifyPublishFailed, topic, nil, err)
		return err
	}
	s.notifier.emit(NotifyPublished, topic, nil, nil)
	return nil
}

// Subscribe applies the stream's retry defaults and middleware to the
// handler, wraps it with receive-path notifications, and delegates.
func (s *Stream) Subscribe(ctx context.Context, topic string, handler core.EventHandler) error {
	if err := s.ready(); err != nil {
		return err
	}
	if handler.Handler == nil {
		return &core.ConfigurationError{Provider: s.provider, Reason: "subscribe requires a handler function"}
	}

	handler.Options = s.applyPolicy(handler.Options)

	inner := middleware.Chain(handler.Handler, s.middlewares...)
	inner = middleware.Recovery(s.logger)(inner)

	wrapped := handler
	wrapped.Handler = func(ctx context.Context, msg *core.EventMessage) error {
		s.notifier.emit(NotifyReceived, topic, msg, nil)
		if err := inner(ctx, msg); err != nil {
			s.notifier.emit(NotifyProcessFailed, topic, msg, err)
			return err
		}
		s.notifier.emit(NotifyProcessed, topic, msg, nil)
		return nil
	}
	return s.adapter.Subscribe(ctx, topic, wrapped)
}

// applyPolicy folds the stream-level retry configuration into per-handler
// options: config defaults fill unset fields, and disabling retry or the
// dead-letter queue at stream level overrides the handler.
func (s *Stream) applyPolicy(o core.HandlerOptions) core.HandlerOptions {
	if o.MaxRetries <= 0 && s.opts.MaxRetries > 0 {
		o.MaxRetries = s.opts.MaxRetries
	}
	if o.RetryDelay <= 0 && s.opts.RetryDelay > 0 {
		o.RetryDelay = s.opts.RetryDelay
	}
	if !s.opts.EnableRetry {
		o.Retry = false
	}
	if !s.opts.EnableDeadLetterQueue {
		o.DeadLetterQueue = ""
	}
	return o
}

// Unsubscribe removes handlers for (topic, eventType).
func (s *Stream) Unsubscribe(ctx context.Context, topic, eventType string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.adapter.Unsubscribe(ctx, topic, eventType)
}

// PublishToMultipleTopics fans one message out over topics. Failures are
// joined; topics that already succeeded stay published (no rollback).
func (s *Stream) PublishToMultipleTopics(ctx context.Context, topics []string, msg *core.EventMessage) error {
	var errs []error
	for _, topic := range topics {
		if err := s.Publish(ctx, topic, msg); err != nil {
			errs = append(errs, fmt.Errorf("topic %q: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// SubscribeToMultipleTopics registers the same handler on every topic.
func (s *Stream) SubscribeToMultipleTopics(ctx context.Context, topics []string, handler core.EventHandler) error {
	var errs []error
	for _, topic := range topics {
		if err := s.Subscribe(ctx, topic, handler); err != nil {
			errs = append(errs, fmt.Errorf("topic %q: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// Subscriptions returns a copy of the adapter's registry.
func (s *Stream) Subscriptions() map[string][]core.EventHandler {
	if s.State() != StateConnected {
		return map[string][]core.EventHandler{}
	}
	return s.adapter.Subscriptions()
}

// Metrics returns the adapter's counter snapshot.
func (s *Stream) Metrics() core.MetricsSnapshot {
	if s.State() != StateConnected {
		return core.MetricsSnapshot{}
	}
	return s.adapter.Metrics()
}

// Health reports the adapter's health; while disconnected it reports the
// facade's own unhealthy status without touching the adapter.
func (s *Stream) Health() core.HealthStatus {
	if s.State() != StateConnected {
		return core.EvaluateHealth(s.provider, false, core.MetricsSnapshot{}, nil)
	}
	return s.adapter.Health()
}

// AddObserver registers a lifecycle notification observer.
func (s *Stream) AddObserver(obs Observer) {
	s.notifier.add(obs)
}

// Provider returns the configured provider name.
func (s *Stream) Provider() string { return s.provider }

// Close tears down the adapter and moves the stream to disconnected.
func (s *Stream) Close() error {
	if s.State() == StateDisconnected {
		return nil
	}
	s.setState(StateDisconnected)
	if s.adapter == nil {
		return nil
	}
	return s.adapter.Close()
}
