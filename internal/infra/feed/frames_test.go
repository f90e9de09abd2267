package feed

import (
	"encoding/json"
	"testing"
	"time"

	"tickwatch/internal/domain"
)

func TestMarshalAuth(t *testing.T) {
	b, err := marshalAuth("secret-key")
	if err != nil {
		t.Fatalf("marshalAuth failed: %v", err)
	}

	var f struct {
		Event string `json:"event"`
		Data  struct {
			APIKey string `json:"apikey"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if f.Event != "auth" || f.Data.APIKey != "secret-key" {
		t.Errorf("unexpected auth frame: %s", string(b))
	}
}

func TestMarshalSubscribeUnsubscribe(t *testing.T) {
	for _, tc := range []struct {
		marshal func(string) ([]byte, error)
		event   string
	}{
		{marshalSubscribe, "subscribe"},
		{marshalUnsubscribe, "unsubscribe"},
	} {
		b, err := tc.marshal("2330")
		if err != nil {
			t.Fatalf("marshal %s failed: %v", tc.event, err)
		}

		var f struct {
			Event string `json:"event"`
			Data  struct {
				Channel string `json:"channel"`
				Symbol  string `json:"symbol"`
			} `json:"data"`
		}
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if f.Event != tc.event || f.Data.Channel != ChannelTrades || f.Data.Symbol != "2330" {
			t.Errorf("unexpected %s frame: %s", tc.event, string(b))
		}
	}
}

func TestParseTick(t *testing.T) {
	receivedAt := time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC)

	raw := json.RawMessage(`{"price":"612.5","bid":"612","ask":"612.5","volume":3000,"serial":42,"at":"2026-08-28T09:14:59+08:00"}`)
	tick := parseTick("2330", raw, receivedAt)

	if tick.Symbol != "2330" {
		t.Errorf("expected symbol 2330, got %s", tick.Symbol)
	}
	if tick.Price.String() != "612.5" || tick.Bid.String() != "612" || tick.Ask.String() != "612.5" {
		t.Errorf("unexpected prices: price=%v bid=%v ask=%v", tick.Price, tick.Bid, tick.Ask)
	}
	if tick.Volume != 3000 || tick.Serial != 42 {
		t.Errorf("unexpected volume/serial: %d/%d", tick.Volume, tick.Serial)
	}
	if tick.Side != domain.SideBuy {
		t.Errorf("price at ask should classify as buy, got %v", tick.Side)
	}
	want, _ := time.Parse(time.RFC3339, "2026-08-28T09:14:59+08:00")
	if !tick.Time.Equal(want) {
		t.Errorf("expected source time %v, got %v", want, tick.Time)
	}
	if tick.Source != domain.SourceRealtime {
		t.Errorf("unexpected source tag %s", tick.Source)
	}
}

func TestParseTickDefaults(t *testing.T) {
	receivedAt := time.Now()

	tests := []struct {
		name string
		raw  string
	}{
		{"empty payload", `{}`},
		{"unparsable fields", `{"price":"n/a","bid":"","ask":"junk","at":"not-a-time"}`},
		{"negative volume", `{"price":"100","volume":-500}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tick := parseTick("2317", json.RawMessage(tt.raw), receivedAt)

			if tick.Bid.IsNegative() || tick.Ask.IsNegative() || tick.Price.IsNegative() {
				t.Error("prices must never be negative")
			}
			if tick.Volume < 0 {
				t.Error("volume must never be negative")
			}
			if !tick.Time.Equal(receivedAt) {
				t.Errorf("expected receipt-time fallback, got %v", tick.Time)
			}
		})
	}
}

func TestParseTickSellClassification(t *testing.T) {
	raw := json.RawMessage(`{"price":"99","bid":"99","ask":"101","volume":1000}`)
	tick := parseTick("2330", raw, time.Now())
	if tick.Side != domain.SideSell {
		t.Errorf("price at bid should classify as sell, got %v", tick.Side)
	}

	raw = json.RawMessage(`{"price":"100","bid":"99","ask":"101","volume":1000}`)
	tick = parseTick("2330", raw, time.Now())
	if tick.Side != domain.SideNeutral {
		t.Errorf("price between quote should be neutral, got %v", tick.Side)
	}
}

func TestErrorMessage(t *testing.T) {
	if got := errorMessage(json.RawMessage(`{"message":"invalid symbol"}`)); got != "invalid symbol" {
		t.Errorf("expected structured message, got %q", got)
	}
	if got := errorMessage(json.RawMessage(`"raw failure"`)); got != `"raw failure"` {
		t.Errorf("expected raw payload fallback, got %q", got)
	}
	if got := errorMessage(nil); got != "" {
		t.Errorf("expected empty message for nil payload, got %q", got)
	}
}
