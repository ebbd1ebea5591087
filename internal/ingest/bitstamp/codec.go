package bitstamp

import (
	"strings"

	"aggregator/internal/ingest"
	"aggregator/internal/model"
	"aggregator/pkg/exception"
	"aggregator/pkg/scanner"
	"aggregator/pkg/websocket"

	"github.com/yanun0323/errors"
)

// DefaultURL is the exchange wide websocket endpoint.
const DefaultURL = "wss://ws.bitstamp.net"

var (
	keyEvent = []byte(`"event"`)
	keyData  = []byte(`"data"`)

	eventData             = []byte("data")
	eventRequestReconnect = []byte("bts:request_reconnect")
)

// Channel returns the order book channel name for symbol.
func Channel(symbol string) string {
	return "order_book_" + strings.ToLower(symbol)
}

// EncodeSubscribe appends the order book subscribe message for symbol to dst.
func EncodeSubscribe(dst []byte, symbol string) (websocket.MessageType, []byte) {
	dst = append(dst, `{"event":"bts:subscribe","data":{"channel":"`...)
	dst = append(dst, Channel(symbol)...)
	dst = append(dst, `"}}`...)
	return websocket.MessageText, dst
}

// IsReconnectRequest reports whether payload is the server asking the client
// to reconnect, which it does ahead of maintenance.
func IsReconnectRequest(payload []byte) bool {
	event, found := scanner.ScanStringField(payload, keyEvent)
	return found && scanner.Equal(event, eventRequestReconnect)
}

// Parse decodes an envelope such as
// {"data":{"bids":[...],"asks":[...],"timestamp":"..."},"channel":"order_book_ethbtc","event":"data"}.
// Envelopes whose event is not "data" carry no book and return ok false
// with a nil error.
func Parse(payload []byte) (book model.OrderBook, ok bool, err error) {
	event, found := scanner.ScanStringField(payload, keyEvent)
	if !found {
		return model.OrderBook{}, false, errors.Wrap(exception.ErrParse, "missing event")
	}
	if !scanner.Equal(event, eventData) {
		return model.OrderBook{}, false, nil
	}

	start, found := scanner.ValueIndex(payload, keyData, 0)
	if !found || payload[start] != '{' {
		return model.OrderBook{}, false, errors.Wrap(exception.ErrParse, "data is not an object")
	}
	book, err = ingest.ScanBook(payload, start)
	if err != nil {
		return model.OrderBook{}, false, err
	}
	return book, true, nil
}
