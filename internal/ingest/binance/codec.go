package binance

import (
	"strings"

	"aggregator/internal/ingest"
	"aggregator/internal/model"
)

// DefaultURL is the partial book depth stream endpoint. The stream name is appended.
const DefaultURL = "wss://stream.binance.com:9443/ws/"

// StreamName returns the 20 level, 100ms partial depth stream for symbol.
func StreamName(symbol string) string {
	return strings.ToLower(symbol) + "@depth20@100ms"
}

// StreamURL joins base and the stream name for symbol. An empty base selects DefaultURL.
func StreamURL(base string, symbol string) string {
	if base == "" {
		base = DefaultURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + StreamName(symbol)
}

// Parse decodes a partial depth payload such as
// {"lastUpdateId":1,"bids":[["0.075","17.2"],...],"asks":[...]}.
func Parse(payload []byte) (model.OrderBook, error) {
	return ingest.ScanBook(payload, 0)
}

// Decode adapts Parse to ingest.Decoder.
func Decode(payload []byte) (model.OrderBook, bool, error) {
	book, err := Parse(payload)
	if err != nil {
		return model.OrderBook{}, false, err
	}
	return book, true, nil
}
