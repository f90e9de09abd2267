package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tickwatch/internal/domain"
	"tickwatch/internal/event"
	"tickwatch/internal/infra"

	"github.com/shopspring/decimal"
)

// SnapshotStore receives end-of-day aggregates right before the daily clear.
type SnapshotStore interface {
	SaveDailyStats(stats []domain.DailyStat) error
}

// TickCache owns the per-symbol append-only tick history and computes
// statistics on demand. History is bounded only by the scheduled daily
// clear; nothing here persists raw ticks.
type TickCache struct {
	mu           sync.RWMutex
	history      map[string][]domain.Tick
	registry     *event.Registry
	bigTradeLots int64
	store        SnapshotStore // May be nil
}

// NewTickCache creates an empty cache. store may be nil when end-of-day
// snapshot persistence is not wanted.
func NewTickCache(registry *event.Registry, bigTradeLots int64, store SnapshotStore) *TickCache {
	return &TickCache{
		history:      make(map[string][]domain.Tick),
		registry:     registry,
		bigTradeLots: bigTradeLots,
		store:        store,
	}
}

// EnsureHistory lazily creates an empty history for a newly admitted symbol.
func (c *TickCache) EnsureHistory(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.history[symbol]; !ok {
		c.history[symbol] = make([]domain.Tick, 0, 256)
	}
}

// Record appends a tick to the symbol's history, runs large-trade detection
// and fans the tick out to listeners. Runs for every tick regardless of how
// the symbol was admitted.
func (c *TickCache) Record(symbol string, tick domain.Tick) {
	c.mu.Lock()
	c.history[symbol] = append(c.history[symbol], tick)
	c.mu.Unlock()

	infra.GlobalMetrics.RecordTick()
	c.registry.NotifyTick(symbol, tick)

	if lots := tick.Lots(); lots >= c.bigTradeLots {
		infra.GlobalMetrics.RecordBigTrade()
		c.registry.NotifyBigTrade(symbol, tick, lots)
	}
}

// Stats computes a symbol's aggregate in one pass over the full history.
// An absent or empty history yields the explicit empty value, never an error.
func (c *TickCache) Stats(symbol string) domain.SymbolStats {
	c.mu.RLock()
	ticks := c.history[symbol]
	c.mu.RUnlock()

	if len(ticks) == 0 {
		return domain.EmptyStats(symbol)
	}

	var totalVol, buyVol, sellVol int64
	sumPV := decimal.Zero
	high := ticks[0].Price
	low := ticks[0].Price

	for _, t := range ticks {
		totalVol += t.Volume
		switch t.Side {
		case domain.SideBuy:
			buyVol += t.Volume
		case domain.SideSell:
			sellVol += t.Volume
		}
		sumPV = sumPV.Add(t.Price.Mul(decimal.NewFromInt(t.Volume)))
		if t.Price.GreaterThan(high) {
			high = t.Price
		}
		if t.Price.LessThan(low) {
			low = t.Price
		}
	}

	avg := decimal.Zero
	if totalVol > 0 {
		avg = sumPV.DivRound(decimal.NewFromInt(totalVol), 2)
	}

	// No directional volume yet reads as a neutral 50.
	ratio := decimal.NewFromInt(50)
	if den := buyVol + sellVol; den > 0 {
		ratio = decimal.NewFromInt(buyVol * 100).DivRound(decimal.NewFromInt(den), 1)
	}

	last := ticks[len(ticks)-1]
	return domain.SymbolStats{
		Symbol:      symbol,
		TickCount:   len(ticks),
		TotalVolume: totalVol,
		BuyVolume:   buyVol,
		SellVolume:  sellVol,
		BuyRatio:    ratio,
		AvgPrice:    avg,
		LastPrice:   last.Price,
		HighPrice:   high,
		LowPrice:    low,
		OpenPrice:   ticks[0].Price,
		LastUpdate:  last.Time,
		Source:      domain.SourceRealtime,
	}
}

// Recent returns up to limit most recent ticks for a symbol, oldest first.
func (c *TickCache) Recent(symbol string, limit int) []domain.Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ticks := c.history[symbol]
	if limit > 0 && len(ticks) > limit {
		ticks = ticks[len(ticks)-limit:]
	}
	out := make([]domain.Tick, len(ticks))
	copy(out, ticks)
	return out
}

// BigTrades returns the ticks whose volume is at least thresholdLots board lots.
func (c *TickCache) BigTrades(symbol string, thresholdLots int64) []domain.Tick {
	c.mu.RLock()
	defer c.mu.RUnlock()

	minShares := thresholdLots * domain.SharesPerLot
	out := make([]domain.Tick, 0)
	for _, t := range c.history[symbol] {
		if t.Volume >= minShares {
			out = append(out, t)
		}
	}
	return out
}

// ClearAll snapshots every non-empty symbol to the store, then empties the
// whole history map. Subscriptions and listeners are untouched.
func (c *TickCache) ClearAll() {
	c.mu.Lock()
	symbols := make([]string, 0, len(c.history))
	for symbol, ticks := range c.history {
		if len(ticks) > 0 {
			symbols = append(symbols, symbol)
		}
	}
	c.mu.Unlock()

	date := time.Now().Format("2006-01-02")
	rows := make([]domain.DailyStat, 0, len(symbols))
	for _, symbol := range symbols {
		st := c.Stats(symbol)
		rows = append(rows, domain.DailyStat{
			Symbol:      symbol,
			Date:        date,
			TickCount:   st.TickCount,
			TotalVolume: st.TotalVolume,
			BuyVolume:   st.BuyVolume,
			SellVolume:  st.SellVolume,
			AvgPrice:    st.AvgPrice.StringFixed(2),
			HighPrice:   st.HighPrice.String(),
			LowPrice:    st.LowPrice.String(),
			OpenPrice:   st.OpenPrice.String(),
			ClosePrice:  st.LastPrice.String(),
		})
	}

	c.mu.Lock()
	c.history = make(map[string][]domain.Tick)
	c.mu.Unlock()

	if c.store != nil && len(rows) > 0 {
		if err := c.store.SaveDailyStats(rows); err != nil {
			slog.Error("Daily snapshot save failed", slog.Any("error", err))
		}
	}
	slog.Info("Tick history cleared", slog.Int("symbols", len(symbols)))
}

// StartDailyClear runs the once-per-business-day clear at the given
// wall-clock time, weekdays only.
func (c *TickCache) StartDailyClear(ctx context.Context, hour, minute int) {
	go func() {
		for {
			next := nextClearTime(time.Now(), hour, minute)
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				c.ClearAll()
			}
		}
	}()
}

// nextClearTime finds the next weekday occurrence of hour:minute after from.
func nextClearTime(from time.Time, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
