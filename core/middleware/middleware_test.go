package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/streamkit/eventstream/core"
	"github.com/streamkit/eventstream/core/middleware"
)

func testLogger(buf *bytes.Buffer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(buf)
	return l
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logging(testLogger(&buf))(func(context.Context, *core.EventMessage) error {
		return nil
	})

	msg := &core.EventMessage{ID: "m1", Type: "user.created", Source: "user-service"}
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "event handled") {
		t.Errorf("expected success log, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "user.created") {
		t.Errorf("expected event type in log, got: %s", buf.String())
	}
}

func TestLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Logging(testLogger(&buf))(func(context.Context, *core.EventMessage) error {
		return errors.New("boom")
	})

	_ = handler(context.Background(), &core.EventMessage{ID: "m1", Type: "x"})
	if !strings.Contains(buf.String(), "event handler failed") {
		t.Errorf("expected failure log, got: %s", buf.String())
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.Recovery(testLogger(&buf))(func(context.Context, *core.EventMessage) error {
		panic("test panic")
	})

	err := handler(context.Background(), &core.EventMessage{ID: "m1", Type: "x"})
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if !strings.Contains(err.Error(), "panic recovered") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := middleware.Recovery(nil)(func(context.Context, *core.EventMessage) error {
		return nil
	})
	if err := handler(context.Background(), &core.EventMessage{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type captureCollector struct {
	eventType string
	duration  time.Duration
	err       error
}

func (c *captureCollector) EventProcessed(eventType string, duration time.Duration, err error) {
	c.eventType = eventType
	c.duration = duration
	c.err = err
}

func TestMetrics(t *testing.T) {
	collector := &captureCollector{}
	boom := errors.New("boom")
	handler := middleware.Metrics(collector)(func(context.Context, *core.EventMessage) error {
		return boom
	})

	_ = handler(context.Background(), &core.EventMessage{Type: "order.created"})
	if collector.eventType != "order.created" {
		t.Errorf("expected event type recorded, got %q", collector.eventType)
	}
	if !errors.Is(collector.err, boom) {
		t.Errorf("expected handler error recorded, got %v", collector.err)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware {
		return func(next core.HandlerFunc) core.HandlerFunc {
			return func(ctx context.Context, msg *core.EventMessage) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}

	h := middleware.Chain(func(context.Context, *core.EventMessage) error {
		order = append(order, "handler")
		return nil
	}, mw("a"), mw("b"))

	_ = h(context.Background(), &core.EventMessage{})
	if got := strings.Join(order, ","); got != "a,b,handler" {
		t.Errorf("unexpected call order: %s", got)
	}
}

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := middleware.NewPrometheusCollector(reg)

	c.EventProcessed("user.created", 5*time.Millisecond, nil)
	c.EventProcessed("user.created", 5*time.Millisecond, errors.New("boom"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"eventstream_events_processed_total",
		"eventstream_events_failed_total",
		"eventstream_event_processing_seconds",
	} {
		if !found[name] {
			t.Errorf("expected metric family %q to be registered", name)
		}
	}
}
