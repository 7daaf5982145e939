package eventstream_test

import (
	"testing"

	"github.com/streamkit/eventstream"
	"github.com/streamkit/eventstream/core"
)

func TestCreateEvent(t *testing.T) {
	data := map[string]any{"k": "v"}
	meta := map[string]string{"tenant": "a"}

	msg := eventstream.CreateEvent("thing.happened", "thing-service", data, meta)

	if msg.Type != "thing.happened" || msg.Source != "thing-service" {
		t.Fatalf("unexpected type/source: %q %q", msg.Type, msg.Source)
	}
	if msg.Data["k"] != "v" || msg.Metadata["tenant"] != "a" {
		t.Error("caller data/metadata not carried over")
	}
	if msg.Metadata[core.MetaCorrelationID] == "" {
		t.Error("expected a fresh correlationId")
	}
	if msg.ID != "" || !msg.Timestamp.IsZero() {
		t.Error("builders must not assign id/timestamp; enrichment does")
	}
}

func TestCreateEvent_DoesNotMutateCallerMaps(t *testing.T) {
	data := map[string]any{}
	meta := map[string]string{}
	_ = eventstream.CreateEvent("x", "s", data, meta)

	if len(meta) != 0 {
		t.Error("caller metadata map was mutated")
	}
}

func TestCreateEvent_FreshCorrelationIDPerCall(t *testing.T) {
	a := eventstream.CreateEvent("x", "s", nil, nil)
	b := eventstream.CreateEvent("x", "s", nil, nil)
	if a.Metadata[core.MetaCorrelationID] == b.Metadata[core.MetaCorrelationID] {
		t.Error("expected distinct correlation ids")
	}
}

func TestDomainEventBuilders(t *testing.T) {
	cases := []struct {
		name   string
		msg    *core.EventMessage
		source string
		idKey  string
		id     string
	}{
		{"user", eventstream.CreateUserEvent("user.created", "u1", nil), eventstream.SourceUserService, "userId", "u1"},
		{"order", eventstream.CreateOrderEvent("order.created", "o1", nil), eventstream.SourceOrderService, "orderId", "o1"},
		{"payment", eventstream.CreatePaymentEvent("payment.completed", "p1", nil), eventstream.SourcePaymentService, "paymentId", "p1"},
		{"inventory", eventstream.CreateInventoryEvent("inventory.low", "i1", nil), eventstream.SourceInventoryService, "itemId", "i1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.msg.Source != tc.source {
				t.Errorf("expected source %q, got %q", tc.source, tc.msg.Source)
			}
			if tc.msg.Data[tc.idKey] != tc.id {
				t.Errorf("expected %s=%q in data, got %v", tc.idKey, tc.id, tc.msg.Data)
			}
			if tc.msg.Metadata[core.MetaCorrelationID] == "" {
				t.Error("expected a correlationId")
			}
		})
	}
}
