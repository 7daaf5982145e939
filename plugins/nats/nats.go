// Package nats implements a supplementary JetStream provider. It is not one
// of the three core backends but keeps full contract parity, so deployments
// already on NATS can adopt the same Adapter surface.
package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
	"github.com/streamkit/eventstream/core"
)

const providerName = broker.ProviderNATS

func init() {
	broker.Register(providerName, func(cfg broker.Config) (core.Adapter, error) {
		if len(cfg.Brokers) == 0 {
			return nil, &core.ConfigurationError{Provider: providerName, Reason: "a NATS URL is required in Brokers[0]"}
		}
		return New(cfg.Brokers[0], cfg.Group)
	})
}

const (
	headerEventType      = "event-type"
	headerEventSource    = "event-source"
	headerEventTimestamp = "event-timestamp"
)

// Adapter implements core.Adapter for NATS JetStream.
//
// Design decisions:
//   - One connection, one JetStream context.
//   - Each consumed topic gets (or updates) a stream plus a durable consumer
//     named after the configured group; a second Subscribe joins the handler
//     list instead of starting a duplicate consumer.
//   - JetStream's own ack/redelivery is left at AckExplicit with MaxDeliver 1;
//     redelivery is the shared retry policy's job.
type Adapter struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	group  string
	opts   options
	logger *logrus.Logger

	registry *core.SubscriptionRegistry
	metrics  *core.Metrics
	dispatch *core.Dispatcher

	mu        sync.Mutex
	consumers map[string]jetstream.ConsumeContext
	connected bool
	lastIssue string
	closed    bool
}

// New creates a JetStream Adapter. url is a standard NATS URL (nats://host:port).
func New(url, group string, fns ...Option) (*Adapter, error) {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = logrus.StandardLogger()
	}

	nc, err := nats.Connect(url)
	if err != nil {
		return nil, &core.ConnectionError{Provider: providerName, Op: "connect", Err: err}
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, &core.ConnectionError{Provider: providerName, Op: "init jetstream", Err: err}
	}

	a := &Adapter{
		conn:      nc,
		js:        js,
		group:     group,
		opts:      opts,
		logger:    opts.logger,
		registry:  core.NewSubscriptionRegistry(),
		metrics:   core.NewMetrics(),
		consumers: make(map[string]jetstream.ConsumeContext),
		connected: true,
	}
	a.dispatch = core.NewDispatcher(a.Publish, a.metrics, a.logger)
	return a, nil
}

// Publish sends one message to the topic subject.
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
	nm := &nats.Msg{
		Subject: topic,
		Data:    body,
		Header: nats.Header{
			headerEventType:      []string{msg.Type},
			headerEventSource:    []string{msg.Source},
			headerEventTimestamp: []string{msg.Timestamp.UTC().Format(time.RFC3339Nano)},
		},
	}
	if _, err := a.js.PublishMsg(ctx, nm); err != nil {
		a.metrics.RecordFailed()
		a.fail("publish", err)
		return &core.ConnectionError{Provider: providerName, Op: "publish", Err: err}
	}
	a.metrics.RecordPublished(1)
	return nil
}

// PublishBatch sends sequentially in input order, joining element failures.
func (a *Adapter) PublishBatch(ctx context.Context, topic string, msgs []*core.EventMessage) error {
	var errs []error
	for i, msg := range msgs {
		if err := a.Publish(ctx, topic, msg); err != nil {
			errs = append(errs, fmt.Errorf("message %d (%s): %w", i, msg.ID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("eventstream/nats: batch to %q: %d of %d failed: %w",
			topic, len(errs), len(msgs), errors.Join(errs...))
	}
	return nil
}

// Subscribe ensures the topic's stream and durable consumer exist and joins
// the handler to the delivery loop.
func (a *Adapter) Subscribe(ctx context.Context, topic string, handler core.EventHandler) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return core.ErrAdapterClosed
	}
	a.mu.Unlock()

	if first := a.registry.Add(topic, handler); !first {
		return nil
	}

	streamName := sanitizeStreamName(topic)
	stream, err := a.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{topic},
		Retention: jetstream.LimitsPolicy,
		Storage:   a.opts.storage,
		MaxAge:    a.opts.maxAge,
	})
	if err != nil {
		a.registry.Remove(topic, handler.EventType)
		a.fail("create stream", err)
		return &core.ConnectionError{Provider: providerName, Op: "create stream " + streamName, Err: err}
	}

	consumerName := a.group
	if consumerName == "" {
		consumerName = "eventstream-" + streamName
	}
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:    consumerName,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    a.opts.ackWait,
		MaxDeliver: 1,
	})
	if err != nil {
		a.registry.Remove(topic, handler.EventType)
		a.fail("create consumer", err)
		return &core.ConnectionError{Provider: providerName, Op: "create consumer " + consumerName, Err: err}
	}

	cc, err := cons.Consume(func(jsMsg jetstream.Msg) {
		a.handleDelivery(topic, jsMsg)
	})
	if err != nil {
		a.registry.Remove(topic, handler.EventType)
		a.fail("consume", err)
		return &core.ConnectionError{Provider: providerName, Op: "consume " + consumerName, Err: err}
	}

	a.mu.Lock()
	a.consumers[topic] = cc
	a.mu.Unlock()
	return nil
}

func (a *Adapter) handleDelivery(topic string, jsMsg jetstream.Msg) {
	msg, err := core.DecodeMessage(jsMsg.Data())
	if err != nil {
		a.metrics.RecordFailed()
		a.logger.WithField("topic", topic).WithError(err).Warn("dropping undecodable message")
		_ = jsMsg.Ack()
		return
	}

	matched := false
	for _, h := range a.registry.HandlersFor(topic) {
		if h.EventType != msg.Type {
			continue
		}
		matched = true
		_, _ = a.dispatch.Dispatch(context.Background(), topic, h, msg)
	}
	if !matched {
		a.logger.WithFields(logrus.Fields{"topic": topic, "type": msg.Type}).Debug("no handler for event type")
	}
	_ = jsMsg.Ack()
}

// Unsubscribe removes matching handlers and stops the topic's consumer once
// none remain.
func (a *Adapter) Unsubscribe(_ context.Context, topic, eventType string) error {
	removed, empty := a.registry.Remove(topic, eventType)
	if !removed {
		return fmt.Errorf("eventstream/nats: unsubscribe %s/%s: %w", topic, eventType, core.ErrNoHandler)
	}
	if !empty {
		return nil
	}

	a.mu.Lock()
	cc := a.consumers[topic]
	delete(a.consumers, topic)
	a.mu.Unlock()

	if cc != nil {
		cc.Stop()
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
	connected := a.connected && !a.closed && a.conn.IsConnected()
	var extra []string
	if a.lastIssue != "" {
		extra = []string{a.lastIssue}
	}
	a.mu.Unlock()
	return core.EvaluateHealth(providerName, connected, a.metrics.Snapshot(), extra)
}

// Close stops all consumers and closes the connection.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	consumers := make([]jetstream.ConsumeContext, 0, len(a.consumers))
	for _, cc := range a.consumers {
		consumers = append(consumers, cc)
	}
	a.consumers = make(map[string]jetstream.ConsumeContext)
	a.mu.Unlock()

	for _, cc := range consumers {
		cc.Stop()
	}
	a.conn.Close()
	return nil
}

func (a *Adapter) fail(op string, err error) {
	a.mu.Lock()
	a.connected = false
	a.lastIssue = fmt.Sprintf("%s: %v", op, err)
	a.mu.Unlock()
}

// sanitizeStreamName converts a subject to a valid stream name.
func sanitizeStreamName(topic string) string {
	buf := make([]byte, len(topic))
	for i := 0; i < len(topic); i++ {
		c := topic[i]
		if c == '.' || c == '*' || c == '>' {
			buf[i] = '-'
		} else {
			buf[i] = c
		}
	}
	return string(buf)
}
