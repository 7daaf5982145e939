package broker

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Provider != ProviderKafka {
		t.Errorf("expected default provider kafka, got %q", cfg.Provider)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("unexpected default brokers: %v", cfg.Brokers)
	}
	if cfg.Options.MaxRetries != 3 || cfg.Options.RetryDelay != time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.Options)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("EVENTSTREAM_PROVIDER", ProviderRedis)
	t.Setenv("EVENTSTREAM_BROKERS", "b1:9092, b2:9092")
	t.Setenv("EVENTSTREAM_MAX_RETRIES", "5")
	t.Setenv("EVENTSTREAM_RETRY_DELAY", "250ms")
	t.Setenv("EVENTSTREAM_ENABLE_DLQ", "false")

	cfg := FromEnv()
	if cfg.Provider != ProviderRedis {
		t.Errorf("expected provider redis, got %q", cfg.Provider)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "b2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Brokers)
	}
	if cfg.Options.MaxRetries != 5 {
		t.Errorf("expected maxRetries 5, got %d", cfg.Options.MaxRetries)
	}
	if cfg.Options.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected retryDelay 250ms, got %v", cfg.Options.RetryDelay)
	}
	if cfg.Options.EnableDeadLetterQueue {
		t.Error("expected dead-letter queue disabled")
	}
}
