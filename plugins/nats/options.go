package nats

import (
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// Option configures the NATS adapter.
type Option func(*options)

type options struct {
	storage jetstream.StorageType
	maxAge  time.Duration
	ackWait time.Duration
	logger  *logrus.Logger
}

func defaults() options {
	return options{
		storage: jetstream.FileStorage,
		ackWait: 30 * time.Second,
	}
}

// WithStorage sets the stream storage type (file or memory).
func WithStorage(s jetstream.StorageType) Option {
	return func(o *options) { o.storage = s }
}

// WithMaxAge sets the maximum age of messages in the stream.
func WithMaxAge(d time.Duration) Option {
	return func(o *options) { o.maxAge = d }
}

// WithAckWait sets how long the server waits for an ack before redelivering.
func WithAckWait(d time.Duration) Option {
	return func(o *options) { o.ackWait = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}
