package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestClassifySide(t *testing.T) {
	tests := []struct {
		name            string
		price, bid, ask string
		want            Side
	}{
		{"hit ask exactly", "100", "99", "100", SideBuy},
		{"above ask", "101", "99", "100", SideBuy},
		{"hit bid exactly", "99", "99", "101", SideSell},
		{"below bid", "98", "99", "101", SideSell},
		{"between quote", "100", "99", "101", SideNeutral},
		{"no quote at all", "100", "0", "0", SideNeutral},
		{"ask missing, at bid", "99", "99", "0", SideSell},
		{"bid missing, at ask", "100", "0", "100", SideBuy},
		{"zero price with bid", "0", "99", "101", SideSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySide(d(tt.price), d(tt.bid), d(tt.ask))
			if got != tt.want {
				t.Errorf("ClassifySide(%s, %s, %s) = %v, want %v", tt.price, tt.bid, tt.ask, got, tt.want)
			}
		})
	}
}

func TestTickLots(t *testing.T) {
	tests := []struct {
		volume int64
		want   int64
	}{
		{150000, 150},
		{99000, 99},
		{999, 0},
		{1000, 1},
		{1999, 1},
		{0, 0},
	}

	for _, tt := range tests {
		tick := Tick{Volume: tt.volume}
		if got := tick.Lots(); got != tt.want {
			t.Errorf("Lots() with volume %d = %d, want %d", tt.volume, got, tt.want)
		}
	}
}

func TestEmptyStats(t *testing.T) {
	st := EmptyStats("2330")

	if st.Symbol != "2330" {
		t.Errorf("expected symbol 2330, got %s", st.Symbol)
	}
	if st.TickCount != 0 || st.TotalVolume != 0 || st.BuyVolume != 0 || st.SellVolume != 0 {
		t.Error("empty stats should have zero counts and volumes")
	}
	if !st.BuyRatio.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected buy ratio 50, got %v", st.BuyRatio)
	}
	if st.Source != SourceRealtime {
		t.Errorf("expected source %s, got %s", SourceRealtime, st.Source)
	}
}

func TestSideString(t *testing.T) {
	if SideBuy.String() != "BUY" || SideSell.String() != "SELL" || SideNeutral.String() != "NEUTRAL" {
		t.Error("unexpected Side string representation")
	}
}
