// Package redis implements the pub/sub-channel adapter on go-redis.
//
// Redis Pub/Sub has no persistence and no ack concept: a message published
// while no subscriber is live is lost, and the retry policy only protects
// against handler-side failure, not delivery loss.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
	"github.com/streamkit/eventstream/core"
)

const providerName = broker.ProviderRedis

func init() {
	broker.Register(providerName, func(cfg broker.Config) (core.Adapter, error) {
		if cfg.Addr == "" {
			return nil, &core.ConfigurationError{Provider: providerName, Reason: "a redis address is required"}
		}
		return New(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, optsFromConfig(cfg)...)
	})
}

// Adapter implements core.Adapter for Redis Pub/Sub.
//
// Design decisions:
//   - Channel name is "<keyPrefix><topic>:<eventType>", so event-type
//     filtering happens at the transport: a subscription only ever receives
//     its own event type.
//   - One *redis.PubSub and receive goroutine per subscribed channel.
//   - PublishBatch runs through one pipeline for throughput; per-command
//     errors are joined into an aggregate error.
type Adapter struct {
	client *redis.Client
	opts   options
	logger *logrus.Logger

	registry *core.SubscriptionRegistry
	metrics  *core.Metrics
	dispatch *core.Dispatcher

	mu        sync.Mutex
	subs      map[string]*subscription // keyed by channel name
	connected bool
	lastIssue string
	closed    bool
}

// subscription is one channel's receive loop.
type subscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Redis Adapter and verifies connectivity with a ping.
func New(ropts *redis.Options, fns ...Option) (*Adapter, error) {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = logrus.StandardLogger()
	}

	client := redis.NewClient(ropts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, &core.ConnectionError{Provider: providerName, Op: "ping", Err: err}
	}

	a := &Adapter{
		client:    client,
		opts:      opts,
		logger:    opts.logger,
		registry:  core.NewSubscriptionRegistry(),
		metrics:   core.NewMetrics(),
		subs:      make(map[string]*subscription),
		connected: true,
	}
	a.dispatch = core.NewDispatcher(a.Publish, a.metrics, a.logger)
	return a, nil
}

// channelName derives the pub/sub channel for a topic and event type.
func (a *Adapter) channelName(topic, eventType string) string {
	return a.opts.keyPrefix + topic + ":" + eventType
}

// Publish fires one message at "<topic>:<type>". With no live subscriber the
// message is lost; that is the channel backend's contract.
func (a *Adapter) Publish(ctx context.Context, topic string, msg *core.EventMessage) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return core.ErrAdapterClosed
	}
	a.mu.Unlock()

	body, err := core.EncodeMessage(msg)
	if err != nil {
		return err
	}
	if err := a.client.Publish(ctx, a.channelName(topic, msg.Type), body).Err(); err != nil {
		a.metrics.RecordFailed()
		a.fail("publish", err)
		return &core.ConnectionError{Provider: providerName, Op: "publish", Err: err}
	}
	a.metrics.RecordPublished(1)
	return nil
}

// PublishBatch pipelines all messages in input order and joins per-command
// failures into one aggregate error.
func (a *Adapter) PublishBatch(ctx context.Context, topic string, msgs []*core.EventMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return core.ErrAdapterClosed
	}
	a.mu.Unlock()

	pipe := a.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(msgs))
	for i, msg := range msgs {
		body, err := core.EncodeMessage(msg)
		if err != nil {
			return err
		}
		cmds[i] = pipe.Publish(ctx, a.channelName(topic, msg.Type), body)
	}
	_, execErr := pipe.Exec(ctx)

	var errs []error
	published := 0
	for i, cmd := range cmds {
		if err := cmd.Err(); err != nil {
			errs = append(errs, fmt.Errorf("message %d (%s): %w", i, msgs[i].ID, err))
			continue
		}
		published++
	}
	if len(errs) == 0 && execErr != nil {
		errs = append(errs, execErr)
	}
	a.metrics.RecordPublished(published)

	if len(errs) > 0 {
		a.metrics.RecordFailed()
		a.fail("publish batch", errs[0])
		return &core.ConnectionError{
			Provider: providerName,
			Op:       fmt.Sprintf("batch to %q (%d of %d failed)", topic, len(errs), len(msgs)),
			Err:      errors.Join(errs...),
		}
	}
	return nil
}

// Subscribe opens the handler's channel subscription unless one is already
// receiving for the same (topic, eventType).
func (a *Adapter) Subscribe(ctx context.Context, topic string, handler core.EventHandler) error {
	channel := a.channelName(topic, handler.EventType)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return core.ErrAdapterClosed
	}
	_, exists := a.subs[channel]
	if !exists {
		// Reserve the slot while still holding the lock, so a concurrent
		// Subscribe for the same (topic, eventType) cannot open a second
		// receive loop and orphan this one's PubSub connection.
		a.subs[channel] = nil
	}
	a.mu.Unlock()

	a.registry.Add(topic, handler)
	if exists {
		return nil
	}

	pubsub := a.client.Subscribe(ctx, channel)
	// Force the SUBSCRIBE round-trip so transport failures surface here,
	// not in the receive loop.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		a.registry.Remove(topic, handler.EventType)
		a.mu.Lock()
		delete(a.subs, channel)
		a.mu.Unlock()
		a.fail("subscribe", err)
		return &core.ConnectionError{Provider: providerName, Op: "subscribe " + channel, Err: err}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}
	a.mu.Lock()
	a.subs[channel] = sub
	a.mu.Unlock()

	go a.receiveLoop(loopCtx, topic, handler.EventType, sub)
	return nil
}

// receiveLoop delivers channel messages to all handlers registered for the
// channel's event type.
func (a *Adapter) receiveLoop(ctx context.Context, topic, eventType string, sub *subscription) {
	defer close(sub.done)
	for {
		raw, err := sub.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.fail("receive", err)
			a.logger.WithField("topic", topic).WithError(err).Error("redis receive failed, subscription stopped")
			return
		}

		msg, err := core.DecodeMessage([]byte(raw.Payload))
		if err != nil {
			a.metrics.RecordFailed()
			a.logger.WithField("topic", topic).WithError(err).Warn("dropping undecodable message")
			continue
		}

		for _, h := range a.registry.HandlersFor(topic) {
			if h.EventType != eventType {
				continue
			}
			_, _ = a.dispatch.Dispatch(ctx, topic, h, msg)
		}
	}
}

// Unsubscribe removes matching handlers and closes the channel subscription.
func (a *Adapter) Unsubscribe(_ context.Context, topic, eventType string) error {
	removed, _ := a.registry.Remove(topic, eventType)
	if !removed {
		return fmt.Errorf("eventstream/redis: unsubscribe %s/%s: %w", topic, eventType, core.ErrNoHandler)
	}

	channel := a.channelName(topic, eventType)
	a.mu.Lock()
	sub := a.subs[channel]
	delete(a.subs, channel)
	a.mu.Unlock()

	if sub != nil {
		sub.cancel()
		if err := sub.pubsub.Close(); err != nil {
			return &core.ConnectionError{Provider: providerName, Op: "close subscription", Err: err}
		}
		<-sub.done
	}
	return nil
}

// Subscriptions returns a copy of the registry.
func (a *Adapter) Subscriptions() map[string][]core.EventHandler {
	return a.registry.Snapshot()
}

// Metrics returns a counter snapshot.
func (a *Adapter) Metrics() core.MetricsSnapshot {
	return a.metrics.Snapshot()
}

// Health recomputes status from connectivity and the error rate.
func (a *Adapter) Health() core.HealthStatus {
	a.mu.Lock()
	connected := a.connected && !a.closed
	var extra []string
	if a.lastIssue != "" {
		extra = []string{a.lastIssue}
	}
	a.mu.Unlock()
	return core.EvaluateHealth(providerName, connected, a.metrics.Snapshot(), extra)
}

// Close stops all receive loops and closes the client.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	subs := make([]*subscription, 0, len(a.subs))
	for _, s := range a.subs {
		if s != nil { // reserved slots have no loop yet
			subs = append(subs, s)
		}
	}
	a.subs = make(map[string]*subscription)
	a.mu.Unlock()

	var errs []error
	for _, s := range subs {
		s.cancel()
		if err := s.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("eventstream/redis: close subscription: %w", err))
		}
		<-s.done
	}
	if err := a.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("eventstream/redis: close client: %w", err))
	}
	return errors.Join(errs...)
}

func (a *Adapter) fail(op string, err error) {
	a.mu.Lock()
	a.connected = false
	a.lastIssue = fmt.Sprintf("%s: %v", op, err)
	a.mu.Unlock()
}
