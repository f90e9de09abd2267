package service

import (
	"log/slog"
	"sort"
	"sync"

	"tickwatch/internal/domain"
	"tickwatch/internal/event"
	"tickwatch/internal/infra"
)

// Result is the admission outcome of a StartMonitor call.
type Result int

const (
	ResultAccepted Result = iota
	ResultAlreadyMonitored
	ResultLimitExceeded
	ResultNoAPIKey
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultAccepted:
		return "ACCEPTED"
	case ResultAlreadyMonitored:
		return "ALREADY_MONITORED"
	case ResultLimitExceeded:
		return "LIMIT_EXCEEDED"
	case ResultNoAPIKey:
		return "NO_API_KEY"
	default:
		return "FAILED"
	}
}

// FeedSession is the slice of the feed session the monitor drives.
type FeedSession interface {
	Subscribe(symbol string) error
	Unsubscribe(symbol string) error
	Authenticated() bool
}

// Monitor gates symbol subscriptions against the provider quota and exposes
// the engine's query surface. It owns the subscribed-symbol set; the set
// never exceeds the configured quota.
type Monitor struct {
	mu      sync.RWMutex
	watched map[string]event.TickListener // Value may be nil

	session  FeedSession
	cache    *TickCache
	registry *event.Registry

	enabled bool
	apiKey  string
	quota   int
}

// NewMonitor wires the admission controller to the session, cache and
// fan-out registry. It registers a global tick listener that dispatches
// per-symbol delivery callbacks.
func NewMonitor(cfg *infra.Config, session FeedSession, cache *TickCache, registry *event.Registry) *Monitor {
	m := &Monitor{
		watched:  make(map[string]event.TickListener),
		session:  session,
		cache:    cache,
		registry: registry,
		enabled:  cfg.Feed.Enabled,
		apiKey:   cfg.Feed.APIKey,
		quota:    cfg.Feed.MaxSubscriptions,
	}
	registry.AddTickListener(m.dispatch)
	return m
}

// dispatch forwards a tick to the symbol's delivery callback, if any.
func (m *Monitor) dispatch(symbol string, tick domain.Tick) {
	m.mu.RLock()
	fn := m.watched[symbol]
	m.mu.RUnlock()
	if fn != nil {
		fn(symbol, tick)
	}
}

// StartMonitor admits a symbol without a per-symbol delivery callback.
func (m *Monitor) StartMonitor(symbol string) Result {
	return m.StartMonitorFunc(symbol, nil)
}

// StartMonitorFunc admits a symbol and attaches an optional delivery
// callback that receives every tick for it. The subscribed-set size never
// exceeds the quota; re-admitting a monitored symbol is an idempotent no-op
// and sends no duplicate subscribe frame.
func (m *Monitor) StartMonitorFunc(symbol string, fn event.TickListener) Result {
	if !m.enabled || m.apiKey == "" {
		return ResultNoAPIKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.watched[symbol]; ok {
		return ResultAlreadyMonitored
	}
	if len(m.watched) >= m.quota {
		slog.Warn("Subscription quota reached",
			slog.String("symbol", symbol),
			slog.Int("quota", m.quota),
		)
		return ResultLimitExceeded
	}

	if err := m.session.Subscribe(symbol); err != nil {
		slog.Error("Subscribe frame failed", slog.String("symbol", symbol), slog.Any("error", err))
		return ResultFailed
	}

	m.watched[symbol] = fn
	m.cache.EnsureHistory(symbol)
	infra.GlobalMetrics.SetActiveSubscriptions(int32(len(m.watched)))
	slog.Info("Symbol monitored", slog.String("symbol", symbol), slog.Int("active", len(m.watched)))
	return ResultAccepted
}

// StopMonitor removes a symbol from the subscribed set (no-op if absent)
// and sends an unsubscribe frame when a session is active. Accumulated
// history survives; only the daily clear deletes it.
func (m *Monitor) StopMonitor(symbol string) {
	m.mu.Lock()
	_, ok := m.watched[symbol]
	if ok {
		delete(m.watched, symbol)
		infra.GlobalMetrics.SetActiveSubscriptions(int32(len(m.watched)))
	}
	m.mu.Unlock()

	if ok && m.session.Authenticated() {
		if err := m.session.Unsubscribe(symbol); err != nil {
			slog.Warn("Unsubscribe frame failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
}

// MonitoredSymbols returns the subscribed set sorted for consistent ordering.
func (m *Monitor) MonitoredSymbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.watched))
	for symbol := range m.watched {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// OnAuthenticated is the session hook. The very first authentication since
// process start forces the subscribed set empty (cold start); every later
// one re-issues a subscribe frame per still-monitored symbol.
func (m *Monitor) OnAuthenticated(firstConn bool) {
	if firstConn {
		m.mu.Lock()
		n := len(m.watched)
		m.watched = make(map[string]event.TickListener)
		m.mu.Unlock()
		infra.GlobalMetrics.SetActiveSubscriptions(0)
		if n > 0 {
			slog.Info("Cold start, discarding pre-seeded subscriptions", slog.Int("dropped", n))
		}
		return
	}

	for _, symbol := range m.MonitoredSymbols() {
		if err := m.session.Subscribe(symbol); err != nil {
			slog.Error("Resubscribe failed", slog.String("symbol", symbol), slog.Any("error", err))
		}
	}
}

// GetStats returns the on-demand aggregate for a symbol.
func (m *Monitor) GetStats(symbol string) domain.SymbolStats {
	return m.cache.Stats(symbol)
}

// GetRecentTicks returns up to limit most recent ticks, oldest first.
func (m *Monitor) GetRecentTicks(symbol string, limit int) []domain.Tick {
	return m.cache.Recent(symbol, limit)
}

// GetBigTrades returns ticks of at least thresholdLots board lots.
func (m *Monitor) GetBigTrades(symbol string, thresholdLots int64) []domain.Tick {
	return m.cache.BigTrades(symbol, thresholdLots)
}

// AddTickListener registers a global tick listener.
func (m *Monitor) AddTickListener(fn event.TickListener) int {
	return m.registry.AddTickListener(fn)
}

// AddBigTradeListener registers a global large-trade listener.
func (m *Monitor) AddBigTradeListener(fn event.BigTradeListener) int {
	return m.registry.AddBigTradeListener(fn)
}
