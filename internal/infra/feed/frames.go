package feed

import (
	"encoding/json"
	"log/slog"
	"time"

	"tickwatch/internal/domain"
	"tickwatch/internal/infra"

	"github.com/shopspring/decimal"
)

// ChannelTrades is the only channel this engine subscribes to.
const ChannelTrades = "trades"

// Inbound frame events.
const (
	eventAuthenticated = "authenticated"
	eventData          = "data"
	eventError         = "error"
	eventPong          = "pong"
	eventSubscribed    = "subscribed"
)

// frame is the wire envelope for every inbound message, keyed by event.
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Symbol  string          `json:"symbol,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// outboundFrame carries a typed payload for auth/subscribe/unsubscribe.
type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type authData struct {
	APIKey string `json:"apikey"`
}

type channelData struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

func marshalAuth(apiKey string) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: "auth", Data: authData{APIKey: apiKey}})
}

func marshalSubscribe(symbol string) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: "subscribe", Data: channelData{Channel: ChannelTrades, Symbol: symbol}})
}

func marshalUnsubscribe(symbol string) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: "unsubscribe", Data: channelData{Channel: ChannelTrades, Symbol: symbol}})
}

// tickPayload mirrors the trade payload of a data frame. Prices come as
// strings; missing fields stay at their zero value.
type tickPayload struct {
	Price  string `json:"price"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
	Volume int64  `json:"volume"`
	Serial int64  `json:"serial"`
	At     string `json:"at"` // ISO-8601 with offset
}

type errorPayload struct {
	Message string `json:"message"`
}

// parseTick converts a trade payload into a domain Tick. Unparsable numeric
// fields default to zero and an unparsable timestamp falls back to the
// receipt time; neither aborts the connection.
func parseTick(symbol string, raw json.RawMessage, receivedAt time.Time) domain.Tick {
	var p tickPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			slog.Debug("Tick payload parse error", slog.String("symbol", symbol), slog.Any("error", err))
			infra.GlobalMetrics.RecordParseError()
		}
	}

	price := parsePrice(p.Price)
	bid := parsePrice(p.Bid)
	ask := parsePrice(p.Ask)

	ts := receivedAt
	if p.At != "" {
		if parsed, err := time.Parse(time.RFC3339, p.At); err == nil {
			ts = parsed
		} else {
			infra.GlobalMetrics.RecordParseError()
		}
	}

	volume := p.Volume
	if volume < 0 {
		volume = 0
	}

	return domain.Tick{
		Symbol: symbol,
		Time:   ts,
		Price:  price,
		Bid:    bid,
		Ask:    ask,
		Volume: volume,
		Serial: p.Serial,
		Side:   domain.ClassifySide(price, bid, ask),
		Source: domain.SourceRealtime,
	}
}

func parsePrice(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		infra.GlobalMetrics.RecordParseError()
		return decimal.Zero
	}
	return d
}

// errorMessage extracts a best-effort message from an error frame: the
// structured message field when present, otherwise the raw payload.
func errorMessage(raw json.RawMessage) string {
	var p errorPayload
	if err := json.Unmarshal(raw, &p); err == nil && p.Message != "" {
		return p.Message
	}
	return string(raw)
}
