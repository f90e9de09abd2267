package domain

import (
	"time"
)

// DailyStat is the end-of-day aggregate persisted for a symbol right
// before the scheduled history clear. Raw ticks are never persisted.
type DailyStat struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"index:idx_daily_symbol_date" json:"symbol"`
	Date        string    `gorm:"index:idx_daily_symbol_date" json:"date"` // YYYY-MM-DD
	TickCount   int       `json:"tick_count"`
	TotalVolume int64     `json:"total_volume"`
	BuyVolume   int64     `json:"buy_volume"`
	SellVolume  int64     `json:"sell_volume"`
	AvgPrice    string    `json:"avg_price"` // Decimal string, 2dp
	HighPrice   string    `json:"high_price"`
	LowPrice    string    `json:"low_price"`
	OpenPrice   string    `json:"open_price"`
	ClosePrice  string    `json:"close_price"`
	CreatedAt   time.Time `json:"created_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
