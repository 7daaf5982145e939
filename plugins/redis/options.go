package redis

import (
	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/broker"
)

// Option configures the Redis adapter.
type Option func(*options)

type options struct {
	keyPrefix string
	logger    *logrus.Logger
}

func defaults() options {
	return options{}
}

// WithKeyPrefix namespaces all channel names.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithLogger sets the structured logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// optsFromConfig maps the shared configuration onto adapter options.
func optsFromConfig(cfg broker.Config) []Option {
	var opts []Option
	if cfg.KeyPrefix != "" {
		opts = append(opts, WithKeyPrefix(cfg.KeyPrefix))
	}
	return opts
}
