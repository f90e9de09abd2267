package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksIngested   atomic.Uint64
	bigTrades       atomic.Uint64
	parseErrors     atomic.Uint64
	unhandledFrames atomic.Uint64
	reconnects      atomic.Uint64

	// Gauges
	activeSubscriptions atomic.Int32
	feedConnected       atomic.Int32 // 1 = authenticated, 0 = not
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records one ingested tick.
func (m *Metrics) RecordTick() {
	m.ticksIngested.Add(1)
}

// RecordBigTrade records one large-trade detection.
func (m *Metrics) RecordBigTrade() {
	m.bigTrades.Add(1)
}

// RecordParseError records one unparsable frame field.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
}

// RecordUnhandledFrame records one frame with an unknown event discriminator.
func (m *Metrics) RecordUnhandledFrame() {
	m.unhandledFrames.Add(1)
}

// RecordReconnect records one scheduled reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// SetActiveSubscriptions sets the current subscribed-symbol count.
func (m *Metrics) SetActiveSubscriptions(count int32) {
	m.activeSubscriptions.Store(count)
}

// SetFeedConnected sets the session gauge (true = authenticated).
func (m *Metrics) SetFeedConnected(connected bool) {
	if connected {
		m.feedConnected.Store(1)
	} else {
		m.feedConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksIngested       uint64
	BigTrades           uint64
	ParseErrors         uint64
	UnhandledFrames     uint64
	Reconnects          uint64
	ActiveSubscriptions int32
	FeedConnected       bool
	Timestamp           time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TicksIngested:       m.ticksIngested.Load(),
		BigTrades:           m.bigTrades.Load(),
		ParseErrors:         m.parseErrors.Load(),
		UnhandledFrames:     m.unhandledFrames.Load(),
		Reconnects:          m.reconnects.Load(),
		ActiveSubscriptions: m.activeSubscriptions.Load(),
		FeedConnected:       m.feedConnected.Load() == 1,
		Timestamp:           time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksIngested.Store(0)
	m.bigTrades.Store(0)
	m.parseErrors.Store(0)
	m.unhandledFrames.Store(0)
	m.reconnects.Store(0)
	m.activeSubscriptions.Store(0)
	m.feedConnected.Store(0)
}
