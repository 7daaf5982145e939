package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streamkit/eventstream/core"
)

func TestNew_RequiresBrokers(t *testing.T) {
	_, err := New(nil, "group")
	var cfgErr *core.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Provider != "kafka" {
		t.Errorf("expected provider kafka, got %s", cfgErr.Provider)
	}
}

func TestToKafka_Mapping(t *testing.T) {
	a, err := New([]string{"localhost:9092"}, "group")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &core.EventMessage{
		ID:        "m1",
		Type:      "order.created",
		Source:    "order-service",
		Timestamp: ts,
		Data:      map[string]any{"orderId": "o1"},
		Headers:   map[string]string{"traceparent": "00-abc"},
	}

	km, err := a.toKafka("orders", msg)
	if err != nil {
		t.Fatalf("toKafka: %v", err)
	}
	if km.Topic != "orders" {
		t.Errorf("expected topic orders, got %s", km.Topic)
	}
	if string(km.Key) != "m1" {
		t.Errorf("expected key m1, got %s", km.Key)
	}

	headers := map[string]string{}
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers[headerEventType] != "order.created" {
		t.Errorf("expected event-type header, got %q", headers[headerEventType])
	}
	if headers[headerEventSource] != "order-service" {
		t.Errorf("expected event-source header, got %q", headers[headerEventSource])
	}
	if headers[headerEventTimestamp] != ts.Format(time.RFC3339Nano) {
		t.Errorf("expected RFC3339 timestamp, got %q", headers[headerEventTimestamp])
	}
	if headers["traceparent"] != "00-abc" {
		t.Errorf("expected caller header carried through, got %q", headers["traceparent"])
	}

	decoded, err := core.DecodeMessage(km.Value)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ID != "m1" || decoded.Data["orderId"] != "o1" {
		t.Errorf("body does not round-trip: %+v", decoded)
	}
}

func TestUnsubscribe_NoHandler(t *testing.T) {
	a, err := New([]string{"localhost:9092"}, "group")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	if err := a.Unsubscribe(context.Background(), "orders", "order.created"); !errors.Is(err, core.ErrNoHandler) {
		t.Fatalf("expected ErrNoHandler, got %v", err)
	}
}

func TestHealth_ReflectsFailures(t *testing.T) {
	a, err := New([]string{"localhost:9092"}, "group")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	defer a.Close()

	if h := a.Health(); h.Status != core.StatusHealthy || !h.Connected {
		t.Fatalf("expected healthy before any transport error, got %+v", h)
	}

	a.fail("publish", errors.New("broker unreachable"))
	h := a.Health()
	if h.Status != core.StatusUnhealthy || h.Connected {
		t.Fatalf("expected unhealthy after transport failure, got %+v", h)
	}
	found := false
	for _, issue := range h.Issues {
		if issue == "Not connected to kafka" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected connectivity issue, got %v", h.Issues)
	}
}

func TestOptionDefaults(t *testing.T) {
	o := defaults()
	if o.batchSize != 100 || o.minBytes != 1 || o.maxWait != 500*time.Millisecond {
		t.Errorf("unexpected defaults: %+v", o)
	}
	WithBatchSize(0)(&o)
	if o.batchSize != 100 {
		t.Errorf("batch size 0 must be ignored, got %d", o.batchSize)
	}
	WithBatchSize(25)(&o)
	if o.batchSize != 25 {
		t.Errorf("expected batch size 25, got %d", o.batchSize)
	}
}
