package event

import (
	"sync"
	"sync/atomic"
	"testing"

	"tickwatch/internal/domain"

	"github.com/shopspring/decimal"
)

func sampleTick(symbol string) domain.Tick {
	return domain.Tick{
		Symbol: symbol,
		Price:  decimal.NewFromInt(100),
		Volume: 1000,
		Side:   domain.SideBuy,
		Source: domain.SourceRealtime,
	}
}

func TestRegistry_NotifyTick(t *testing.T) {
	r := NewRegistry()

	var got atomic.Int32
	r.AddTickListener(func(symbol string, tick domain.Tick) {
		if symbol != "2330" {
			t.Errorf("expected symbol 2330, got %s", symbol)
		}
		got.Add(1)
	})
	r.AddTickListener(func(symbol string, tick domain.Tick) {
		got.Add(1)
	})

	r.NotifyTick("2330", sampleTick("2330"))

	if got.Load() != 2 {
		t.Errorf("expected 2 notifications, got %d", got.Load())
	}
}

func TestRegistry_RemoveListener(t *testing.T) {
	r := NewRegistry()

	var calls atomic.Int32
	id := r.AddTickListener(func(string, domain.Tick) { calls.Add(1) })
	r.RemoveTickListener(id)

	r.NotifyTick("2330", sampleTick("2330"))
	if calls.Load() != 0 {
		t.Error("removed listener should not be notified")
	}

	// Removing twice is a no-op
	r.RemoveTickListener(id)
}

func TestRegistry_PanicListenerDoesNotStopOthers(t *testing.T) {
	r := NewRegistry()

	var called atomic.Int32
	r.AddTickListener(func(string, domain.Tick) {
		panic("listener bug")
	})
	r.AddTickListener(func(string, domain.Tick) {
		called.Add(1)
	})
	r.AddBigTradeListener(func(string, domain.Tick, int64) {
		panic("big trade listener bug")
	})
	r.AddBigTradeListener(func(string, domain.Tick, int64) {
		called.Add(1)
	})

	// Must not panic out of the ingestion path
	r.NotifyTick("2330", sampleTick("2330"))
	r.NotifyBigTrade("2330", sampleTick("2330"), 150)

	if called.Load() != 2 {
		t.Errorf("expected surviving listeners to run, got %d calls", called.Load())
	}
}

func TestRegistry_BigTradeLots(t *testing.T) {
	r := NewRegistry()

	var gotLots atomic.Int64
	r.AddBigTradeListener(func(symbol string, tick domain.Tick, lots int64) {
		gotLots.Store(lots)
	})

	r.NotifyBigTrade("2330", sampleTick("2330"), 150)
	if gotLots.Load() != 150 {
		t.Errorf("expected 150 lots, got %d", gotLots.Load())
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := r.AddTickListener(func(string, domain.Tick) {})
				r.RemoveTickListener(id)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.NotifyTick("2330", sampleTick("2330"))
			}
		}()
	}
	wg.Wait()
}
