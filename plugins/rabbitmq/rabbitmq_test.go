package rabbitmq

import (
	"testing"
	"time"

	"github.com/streamkit/eventstream/core"
)

func TestRoutingKey(t *testing.T) {
	a := &Adapter{opts: defaults()}
	if got := a.routingKey("user.events", "user.created"); got != "user.events.user.created" {
		t.Errorf("expected derived key, got %s", got)
	}

	a.opts.routingKey = "fixed.key"
	if got := a.routingKey("user.events", "user.created"); got != "fixed.key" {
		t.Errorf("expected override to win, got %s", got)
	}
}

func TestQueueName(t *testing.T) {
	a := &Adapter{opts: defaults()}
	if got := a.queueName("orders"); got != "eventstream.orders" {
		t.Errorf("expected prefixed queue name, got %s", got)
	}
}

func TestToPublishing(t *testing.T) {
	a := &Adapter{opts: defaults()}
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &core.EventMessage{
		ID:        "m1",
		Type:      "payment.completed",
		Source:    "payment-service",
		Timestamp: ts,
		Data:      map[string]any{"paymentId": "p1"},
		Headers:   map[string]string{"traceparent": "00-abc"},
	}

	pub, err := a.toPublishing(msg)
	if err != nil {
		t.Fatalf("toPublishing: %v", err)
	}
	if pub.ContentType != "application/json" {
		t.Errorf("expected json content type, got %s", pub.ContentType)
	}
	if pub.MessageId != "m1" || pub.Type != "payment.completed" || pub.AppId != "payment-service" {
		t.Errorf("envelope attributes not mapped: %+v", pub)
	}
	if !pub.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp carried through, got %v", pub.Timestamp)
	}
	if pub.Headers[headerEventType] != "payment.completed" {
		t.Errorf("expected event-type header, got %v", pub.Headers)
	}
	if pub.Headers["traceparent"] != "00-abc" {
		t.Errorf("expected caller header carried through, got %v", pub.Headers)
	}

	decoded, err := core.DecodeMessage(pub.Body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ID != "m1" || decoded.Data["paymentId"] != "p1" {
		t.Errorf("body does not round-trip: %+v", decoded)
	}
}

func TestOptsFromConfigDefaults(t *testing.T) {
	o := defaults()
	if o.exchange != "events" || o.queue != "eventstream" || o.queueTTL != 24*time.Hour {
		t.Errorf("unexpected defaults: %+v", o)
	}
	// Empty names must not clobber the defaults.
	WithExchange("")(&o)
	WithQueue("")(&o)
	if o.exchange != "events" || o.queue != "eventstream" {
		t.Errorf("empty overrides must be ignored: %+v", o)
	}
}
