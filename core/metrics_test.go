package core

import (
	"testing"
	"time"
)

func TestMetrics_ZeroEventsNoNaN(t *testing.T) {
	s := NewMetrics().Snapshot()
	if s.ErrorRate != 0 {
		t.Fatalf("expected errorRate 0 with no events, got %v", s.ErrorRate)
	}
	if s.TotalEvents != 0 {
		t.Fatalf("expected totalEvents 0, got %d", s.TotalEvents)
	}
}

func TestMetrics_ErrorRate(t *testing.T) {
	m := NewMetrics()
	m.RecordPublished(6)
	m.RecordConsumed(time.Millisecond)
	m.RecordConsumed(time.Millisecond)
	m.RecordFailed()
	m.RecordFailed()

	s := m.Snapshot()
	if s.TotalEvents != 10 {
		t.Fatalf("expected totalEvents 10, got %d", s.TotalEvents)
	}
	if want := float64(s.FailedEvents) / float64(s.TotalEvents); s.ErrorRate != want {
		t.Errorf("expected errorRate %v, got %v", want, s.ErrorRate)
	}
	if s.PublishedEvents != 6 || s.ConsumedEvents != 2 || s.FailedEvents != 2 {
		t.Errorf("unexpected counters: %+v", s)
	}
}

func TestMetrics_AverageLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordConsumed(10 * time.Millisecond)
	m.RecordConsumed(30 * time.Millisecond)

	s := m.Snapshot()
	if s.AverageLatency < 19.9 || s.AverageLatency > 20.1 {
		t.Errorf("expected cumulative mean ~20ms, got %vms", s.AverageLatency)
	}
}

func TestMetrics_Throughput(t *testing.T) {
	m := NewMetrics()
	m.RecordPublished(5)
	time.Sleep(10 * time.Millisecond)

	if s := m.Snapshot(); s.Throughput <= 0 {
		t.Errorf("expected positive throughput, got %v", s.Throughput)
	}
}
