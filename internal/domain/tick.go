package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceRealtime tags ticks delivered by the streaming feed.
const SourceRealtime = "REALTIME"

// SharesPerLot is the board-lot size; big-trade thresholds are expressed in lots.
const SharesPerLot = 1000

// Side classifies a trade relative to the quoted bid/ask at execution time.
type Side int

const (
	SideNeutral Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "NEUTRAL"
	}
}

// Tick represents a single reported trade from the feed
type Tick struct {
	Symbol string          `json:"symbol"`
	Time   time.Time       `json:"time"`   // Source-reported time, receipt time if absent
	Price  decimal.Decimal `json:"price"`  // Executed price
	Bid    decimal.Decimal `json:"bid"`    // Best bid at execution
	Ask    decimal.Decimal `json:"ask"`    // Best ask at execution
	Volume int64           `json:"volume"` // Shares
	Serial int64           `json:"serial"` // Feed sequence number, 0 if absent
	Side   Side            `json:"side"`
	Source string          `json:"source"`
}

// Lots returns the tick volume in board lots (truncating).
func (t Tick) Lots() int64 {
	return t.Volume / SharesPerLot
}

// ClassifySide determines the trade direction from price against the quote.
// Buy when the trade hit the ask (price >= ask), sell when it hit the bid
// (price <= bid), neutral otherwise or when the quote side is missing.
func ClassifySide(price, bid, ask decimal.Decimal) Side {
	if ask.IsPositive() && price.GreaterThanOrEqual(ask) {
		return SideBuy
	}
	if bid.IsPositive() && price.LessThanOrEqual(bid) {
		return SideSell
	}
	return SideNeutral
}

// SymbolStats aggregates a symbol's tick history.
// Recomputed on demand; never stored independently of the history.
type SymbolStats struct {
	Symbol      string          `json:"symbol"`
	TickCount   int             `json:"tick_count"`
	TotalVolume int64           `json:"total_volume"` // Shares
	BuyVolume   int64           `json:"buy_volume"`
	SellVolume  int64           `json:"sell_volume"`
	BuyRatio    decimal.Decimal `json:"buy_ratio"` // 0-100, 50 when no directional volume
	AvgPrice    decimal.Decimal `json:"avg_price"` // Volume-weighted, 2dp half-up
	LastPrice   decimal.Decimal `json:"last_price"`
	HighPrice   decimal.Decimal `json:"high_price"`
	LowPrice    decimal.Decimal `json:"low_price"`
	OpenPrice   decimal.Decimal `json:"open_price"` // Earliest tick in history
	LastUpdate  time.Time       `json:"last_update"`
	Source      string          `json:"source"`
}

// EmptyStats is the explicit "no data yet" value for a symbol without history.
func EmptyStats(symbol string) SymbolStats {
	return SymbolStats{
		Symbol:   symbol,
		BuyRatio: decimal.NewFromInt(50),
		Source:   SourceRealtime,
	}
}
