// Package kafka implements the partitioned-log adapter on segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
	"github.com/streamkit/eventstream/core"
)

const providerName = broker.ProviderKafka

func init() {
	broker.Register(providerName, func(cfg broker.Config) (core.Adapter, error) {
		opts := optsFromConfig(cfg)
		return New(cfg.Brokers, cfg.Group, opts...)
	})
}

// Transport header names carrying envelope attributes alongside the body.
const (
	headerEventType      = "event-type"
	headerEventSource    = "event-source"
	headerEventTimestamp = "event-timestamp"
)

// Adapter implements core.Adapter for Apache Kafka.
//
// Design decisions:
//   - One kafka.Writer shared across all Publish calls (thread-safe by library).
//   - Message key = envelope ID, so messages sharing an ID stay on one
//     partition and keep their relative order.
//   - One kafka.Reader per consumed topic within the shared consumer group;
//     a second Subscribe on a consumed topic joins the existing handler list
//     instead of starting a duplicate fetch loop.
//   - Retry/dead-letter handling lives in the shared dispatcher; offsets are
//     committed once the dispatcher reaches a terminal state.
type Adapter struct {
	brokers []string
	group   string
	opts    options
	logger  *logrus.Logger

	writer   *kafka.Writer
	registry *core.SubscriptionRegistry
	metrics  *core.Metrics
	dispatch *core.Dispatcher

	mu        sync.Mutex
	consumers map[string]*consumer
	connected bool
	lastIssue string
	closed    bool
}

// consumer is one topic's fetch loop.
type consumer struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Kafka Adapter.
func New(brokers []string, group string, fns ...Option) (*Adapter, error) {
	if len(brokers) == 0 {
		return nil, &core.ConfigurationError{Provider: providerName, Reason: "at least one broker address is required"}
	}

	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = logrus.StandardLogger()
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    opts.batchSize,
		RequiredAcks: kafka.RequireAll,
	}

	a := &Adapter{
		brokers:   brokers,
		group:     group,
		opts:      opts,
		logger:    opts.logger,
		writer:    w,
		registry:  core.NewSubscriptionRegistry(),
		metrics:   core.NewMetrics(),
		consumers: make(map[string]*consumer),
		connected: true,
	}
	a.dispatch = core.NewDispatcher(a.Publish, a.metrics, a.logger)
	return a, nil
}

// Publish sends one message keyed by its ID, with type/source/timestamp
// carried as headers.
func (a *Adapter) Publish(ctx context.Context, topic string, msg *core.EventMessage) error {
	km, err := a.toKafka(topic, msg)
	if err != nil {
		return err
	}
	if err := a.write(ctx, km); err != nil {
		return err
	}
	a.metrics.RecordPublished(1)
	return nil
}

// PublishBatch hands the whole ordered slice to one WriteMessages call; the
// client reports an aggregate error when any element fails.
func (a *Adapter) PublishBatch(ctx context.Context, topic string, msgs []*core.EventMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	kms := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		km, err := a.toKafka(topic, msg)
		if err != nil {
			return err
		}
		kms[i] = km
	}
	if err := a.write(ctx, kms...); err != nil {
		return err
	}
	a.metrics.RecordPublished(len(msgs))
	return nil
}

func (a *Adapter) toKafka(topic string, msg *core.EventMessage) (kafka.Message, error) {
	body, err := core.EncodeMessage(msg)
	if err != nil {
		return kafka.Message{}, err
	}
	headers := []kafka.Header{
		{Key: headerEventType, Value: []byte(msg.Type)},
		{Key: headerEventSource, Value: []byte(msg.Source)},
		{Key: headerEventTimestamp, Value: []byte(msg.Timestamp.UTC().Format(time.RFC3339Nano))},
	}
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.ID),
		Value:   body,
		Headers: headers,
	}, nil
}

func (a *Adapter) write(ctx context.Context, kms ...kafka.Message) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return core.ErrAdapterClosed
	}
	a.mu.Unlock()

	if err := a.writer.WriteMessages(ctx, kms...); err != nil {
		a.metrics.RecordFailed()
		a.fail("publish", err)
		return &core.ConnectionError{Provider: providerName, Op: "publish", Err: err}
	}
	return nil
}

// Subscribe registers a handler. The first handler on a topic opens a group
// reader and starts its fetch loop; later handlers join the same loop.
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

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  a.brokers,
		Topic:    topic,
		GroupID:  a.group,
		MinBytes: a.opts.minBytes,
		MaxBytes: a.opts.maxBytes,
		MaxWait:  a.opts.maxWait,
	})

	loopCtx, cancel := context.WithCancel(context.Background())
	c := &consumer{reader: r, cancel: cancel, done: make(chan struct{})}

	a.mu.Lock()
	a.consumers[topic] = c
	a.mu.Unlock()

	go a.consumeLoop(loopCtx, topic, c)
	return nil
}

// consumeLoop fetches, decodes and dispatches until cancelled or the
// transport fails.
func (a *Adapter) consumeLoop(ctx context.Context, topic string, c *consumer) {
	defer close(c.done)
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // released via Unsubscribe or Close
			}
			a.fail("fetch", err)
			a.logger.WithField("topic", topic).WithError(err).Error("kafka fetch failed, consumption stopped")
			return
		}

		msg, err := core.DecodeMessage(raw.Value)
		if err != nil {
			a.metrics.RecordFailed()
			a.logger.WithField("topic", topic).WithError(err).Warn("dropping undecodable message")
			_ = c.reader.CommitMessages(ctx, raw)
			continue
		}

		matched := false
		for _, h := range a.registry.HandlersFor(topic) {
			if h.EventType != msg.Type {
				continue
			}
			matched = true
			_, _ = a.dispatch.Dispatch(ctx, topic, h, msg)
		}
		if !matched {
			a.logger.WithFields(logrus.Fields{"topic": topic, "type": msg.Type}).Debug("no handler for event type")
		}

		// Terminal dispatch states (delivered, dead-lettered, failed) all
		// consume the offset; redelivery is the retry policy's job, not the
		// group coordinator's.
		if err := c.reader.CommitMessages(ctx, raw); err != nil && ctx.Err() == nil {
			a.fail("commit", err)
			a.logger.WithField("topic", topic).WithError(err).Warn("offset commit failed")
		}
	}
}

// Unsubscribe removes matching handlers and closes the topic's reader once
// no handlers remain.
func (a *Adapter) Unsubscribe(_ context.Context, topic, eventType string) error {
	removed, empty := a.registry.Remove(topic, eventType)
	if !removed {
		return fmt.Errorf("eventstream/kafka: unsubscribe %s/%s: %w", topic, eventType, core.ErrNoHandler)
	}
	if !empty {
		return nil
	}

	a.mu.Lock()
	c := a.consumers[topic]
	delete(a.consumers, topic)
	a.mu.Unlock()

	if c != nil {
		c.cancel()
		if err := c.reader.Close(); err != nil {
			return &core.ConnectionError{Provider: providerName, Op: "close reader", Err: err}
		}
		<-c.done
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

// Close flushes the writer and stops all fetch loops.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	consumers := make([]*consumer, 0, len(a.consumers))
	for _, c := range a.consumers {
		consumers = append(consumers, c)
	}
	a.consumers = make(map[string]*consumer)
	a.mu.Unlock()

	var errs []error
	if err := a.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("eventstream/kafka: close writer: %w", err))
	}
	for _, c := range consumers {
		c.cancel()
		if err := c.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("eventstream/kafka: close reader: %w", err))
		}
		<-c.done
	}
	return errors.Join(errs...)
}

// fail flips connectivity and records the issue for health reporting.
func (a *Adapter) fail(op string, err error) {
	a.mu.Lock()
	a.connected = false
	a.lastIssue = fmt.Sprintf("%s: %v", op, err)
	a.mu.Unlock()
}
