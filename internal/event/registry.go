package event

import (
	"log/slog"
	"sync"

	"tickwatch/internal/domain"
)

// TickListener receives every recorded tick for a symbol.
type TickListener func(symbol string, tick domain.Tick)

// BigTradeListener receives ticks whose lot count crossed the big-trade threshold.
type BigTradeListener func(symbol string, tick domain.Tick, lots int64)

// Registry decouples the ingestion pipeline from presentation layers.
// Two independent listener sets; registration, removal and notification
// are all safe to call concurrently. Notification order across listeners
// is unspecified.
type Registry struct {
	mu        sync.RWMutex
	nextID    int
	tickSubs  map[int]TickListener
	tradeSubs map[int]BigTradeListener
}

// NewRegistry creates an empty listener registry
func NewRegistry() *Registry {
	return &Registry{
		tickSubs:  make(map[int]TickListener),
		tradeSubs: make(map[int]BigTradeListener),
	}
}

// AddTickListener registers fn and returns an id usable with RemoveTickListener.
func (r *Registry) AddTickListener(fn TickListener) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.tickSubs[r.nextID] = fn
	return r.nextID
}

// RemoveTickListener deregisters a tick listener. No-op for unknown ids.
func (r *Registry) RemoveTickListener(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickSubs, id)
}

// AddBigTradeListener registers fn and returns an id usable with RemoveBigTradeListener.
func (r *Registry) AddBigTradeListener(fn BigTradeListener) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.tradeSubs[r.nextID] = fn
	return r.nextID
}

// RemoveBigTradeListener deregisters a big-trade listener. No-op for unknown ids.
func (r *Registry) RemoveBigTradeListener(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tradeSubs, id)
}

// NotifyTick fans a tick out to every registered tick listener.
// A panicking listener never blocks the others or the ingestion path.
func (r *Registry) NotifyTick(symbol string, tick domain.Tick) {
	r.mu.RLock()
	subs := make([]TickListener, 0, len(r.tickSubs))
	for _, fn := range r.tickSubs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		safeNotify(func() { fn(symbol, tick) })
	}
}

// NotifyBigTrade fans a large trade out to every registered big-trade listener.
func (r *Registry) NotifyBigTrade(symbol string, tick domain.Tick, lots int64) {
	r.mu.RLock()
	subs := make([]BigTradeListener, 0, len(r.tradeSubs))
	for _, fn := range r.tradeSubs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		safeNotify(func() { fn(symbol, tick, lots) })
	}
}

func safeNotify(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Listener panic recovered", slog.Any("panic", rec))
		}
	}()
	fn()
}
