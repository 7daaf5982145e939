package kafka

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
)

// Option configures the Kafka adapter.
type Option func(*options)

type options struct {
	// Writer
	batchSize int

	// Reader
	minBytes int
	maxBytes int
	maxWait  time.Duration

	logger *logrus.Logger
}

func defaults() options {
	return options{
		batchSize: 100,
		minBytes:  1,
		maxBytes:  10e6, // 10 MB
		maxWait:   500 * time.Millisecond,
	}
}

// WithBatchSize sets the maximum batch size for writes.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithMaxBytes sets the maximum bytes per fetch.
func WithMaxBytes(n int) Option {
	return func(o *options) { o.maxBytes = n }
}

// WithMaxWait sets the maximum wait time for fetches.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) { o.maxWait = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// optsFromConfig maps the shared configuration onto adapter options.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if cfg.Options.BatchSize > 0 {
		opts = append(opts, WithBatchSize(cfg.Options.BatchSize))
	}
	return opts
}
