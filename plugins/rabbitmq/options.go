package rabbitmq

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
)

// Option configures the RabbitMQ adapter.
type Option func(*options)

type options struct {
	exchange   string
	queue      string
	routingKey string
	queueTTL   time.Duration

	prefetchCount int
	logger        *logrus.Logger
}

func defaults() options {
	return options{
		exchange:      "events",
		queue:         "eventstream",
		queueTTL:      24 * time.Hour,
		prefetchCount: 10,
	}
}

// WithExchange sets the topic exchange name.
func WithExchange(name string) Option {
	return func(o *options) {
		if name != "" {
			o.exchange = name
		}
	}
}

// WithQueue sets the queue name prefix; the declared queue per topic is
// "<prefix>.<topic>".
func WithQueue(name string) Option {
	return func(o *options) {
		if name != "" {
			o.queue = name
		}
	}
}

// WithRoutingKey overrides the derived "<topic>.<eventType>" key.
func WithRoutingKey(key string) Option {
	return func(o *options) { o.routingKey = key }
}

// WithQueueTTL sets the per-queue message TTL.
func WithQueueTTL(d time.Duration) Option {
	return func(o *options) { o.queueTTL = d }
}

// WithPrefetchCount sets how many messages are delivered before requiring ack.
func WithPrefetchCount(n int) Option {
	return func(o *options) { o.prefetchCount = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// optsFromConfig maps the shared configuration onto adapter options.
func optsFromConfig(cfg broker.Config) []Option {
	opts := []Option{
		WithExchange(cfg.Exchange),
		WithQueue(cfg.Queue),
	}
	if cfg.RoutingKey != "" {
		opts = append(opts, WithRoutingKey(cfg.RoutingKey))
	}
	if cfg.QueueTTL > 0 {
		opts = append(opts, WithQueueTTL(cfg.QueueTTL))
	}
	return opts
}
