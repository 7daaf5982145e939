package core

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of an adapter's counters plus the
// derived rates consumers render.
type MetricsSnapshot struct {
	TotalEvents     uint64  `json:"totalEvents"`
	PublishedEvents uint64  `json:"publishedEvents"`
	ConsumedEvents  uint64  `json:"consumedEvents"`
	FailedEvents    uint64  `json:"failedEvents"`
	ErrorRate       float64 `json:"errorRate"`
	Throughput      float64 `json:"throughput"` // events per second since start
	AverageLatency  float64 `json:"averageLatency"` // handler execution, milliseconds
}

// Metrics accumulates event counters for one adapter. Safe for concurrent
// use; updates happen per handler execution so a slow handler never blocks
// another's accounting.
//
// AverageLatency is a cumulative mean over all samples. The original system
// used a (old+new)/2 recency-biased formula; see DESIGN.md for the change.
type Metrics struct {
	mu             sync.Mutex
	published      uint64
	consumed       uint64
	failed         uint64
	latencySamples uint64
	latencyAvgMs   float64
	start          time.Time
}

// NewMetrics returns a Metrics anchored at the current time for throughput.
func NewMetrics() *Metrics {
	return &Metrics{start: time.Now()}
}

// RecordPublished counts n successfully published events.
func (m *Metrics) RecordPublished(n int) {
	m.mu.Lock()
	m.published += uint64(n)
	m.mu.Unlock()
}

// RecordConsumed counts one handled event and folds its handler latency
// into the running average.
func (m *Metrics) RecordConsumed(latency time.Duration) {
	m.mu.Lock()
	m.consumed++
	m.latencySamples++
	sample := float64(latency) / float64(time.Millisecond)
	m.latencyAvgMs += (sample - m.latencyAvgMs) / float64(m.latencySamples)
	m.mu.Unlock()
}

// RecordFailed counts a publish or handler failure.
func (m *Metrics) RecordFailed() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
}

// Snapshot derives errorRate and throughput from the counters. ErrorRate is
// 0, never NaN, while no events have been seen.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.published + m.consumed + m.failed
	s := MetricsSnapshot{
		TotalEvents:     total,
		PublishedEvents: m.published,
		ConsumedEvents:  m.consumed,
		FailedEvents:    m.failed,
		AverageLatency:  m.latencyAvgMs,
	}
	if total > 0 {
		s.ErrorRate = float64(m.failed) / float64(total)
	}
	if elapsed := time.Since(m.start).Seconds(); elapsed > 0 {
		s.Throughput = float64(total) / elapsed
	}
	return s
}
