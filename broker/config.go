package broker

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by Create. Kafka is the partitioned-log backend,
// RabbitMQ the topic-exchange backend, Redis the pub/sub-channel backend;
// NATS JetStream ships as a supplementary provider.
const (
	ProviderKafka    = "kafka"
	ProviderRabbitMQ = "rabbitmq"
	ProviderRedis    = "redis"
	ProviderNATS     = "nats"
)

// Config is the provider-agnostic configuration. Plugins read the fields
// they need and reject construction when their required ones are missing.
type Config struct {
	// Provider selects the backend adapter.
	Provider string

	// Brokers lists broker addresses: Kafka/NATS host:port entries, or a
	// full AMQP URI in Brokers[0] for RabbitMQ.
	Brokers []string

	// Group is the consumer group (Kafka) or durable consumer name (NATS).
	Group string

	// RabbitMQ settings.
	Exchange   string
	Queue      string        // queue name prefix; the queue per topic is "<Queue>.<topic>"
	RoutingKey string        // overrides the derived routing key when set
	QueueTTL   time.Duration // x-message-ttl on declared queues

	// Redis settings.
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // namespace prepended to channel names

	Options Options
}

// Options are cross-cutting toggles shared by all providers. BatchSize,
// FlushInterval, Compression and Encryption are accepted but not yet acted
// on; they are forward-compatible slots.
type Options struct {
	EnableMetrics         bool
	EnableHealthChecks    bool
	EnableRetry           bool
	EnableDeadLetterQueue bool
	MaxRetries            int
	RetryDelay            time.Duration

	BatchSize     int
	FlushInterval time.Duration
	Compression   bool
	Encryption    bool
}

// DefaultOptions enables the full retry/metrics stack with the standard
// retry budget.
func DefaultOptions() Options {
	return Options{
		EnableMetrics:         true,
		EnableHealthChecks:    true,
		EnableRetry:           true,
		EnableDeadLetterQueue: true,
		MaxRetries:            3,
		RetryDelay:            time.Second,
	}
}

// FromEnv loads the configuration surface from EVENTSTREAM_* variables.
// Unset variables fall back to the given defaults.
func FromEnv() Config {
	cfg := Config{
		Provider:   getEnv("EVENTSTREAM_PROVIDER", ProviderKafka),
		Brokers:    splitList(getEnv("EVENTSTREAM_BROKERS", "localhost:9092")),
		Group:      getEnv("EVENTSTREAM_GROUP", "eventstream"),
		Exchange:   getEnv("EVENTSTREAM_EXCHANGE", "events"),
		Queue:      getEnv("EVENTSTREAM_QUEUE", "eventstream"),
		RoutingKey: getEnv("EVENTSTREAM_ROUTING_KEY", ""),
		QueueTTL:   getDuration("EVENTSTREAM_QUEUE_TTL", 24*time.Hour),
		Addr:       getEnv("EVENTSTREAM_REDIS_ADDR", "localhost:6379"),
		Password:   getEnv("EVENTSTREAM_REDIS_PASSWORD", ""),
		DB:         getInt("EVENTSTREAM_REDIS_DB", 0),
		KeyPrefix:  getEnv("EVENTSTREAM_REDIS_KEY_PREFIX", ""),
		Options:    DefaultOptions(),
	}
	cfg.Options.MaxRetries = getInt("EVENTSTREAM_MAX_RETRIES", cfg.Options.MaxRetries)
	cfg.Options.RetryDelay = getDuration("EVENTSTREAM_RETRY_DELAY", cfg.Options.RetryDelay)
	cfg.Options.EnableRetry = getBool("EVENTSTREAM_ENABLE_RETRY", cfg.Options.EnableRetry)
	cfg.Options.EnableDeadLetterQueue = getBool("EVENTSTREAM_ENABLE_DLQ", cfg.Options.EnableDeadLetterQueue)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
