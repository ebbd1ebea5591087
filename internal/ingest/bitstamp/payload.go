package bitstamp

import "aggregator/internal/model"

// OrderBookEvent is the channel envelope for generic decoders.
type OrderBookEvent struct {
	Event   string        `json:"event"`
	Channel string        `json:"channel"`
	Data    OrderBookData `json:"data"`
}

type OrderBookData struct {
	Timestamp      string             `json:"timestamp"`
	Microtimestamp string             `json:"microtimestamp"`
	Bids           []model.PriceLevel `json:"bids"`
	Asks           []model.PriceLevel `json:"asks"`
}

// OrderBook converts the event. ok is false for envelopes that carry no book.
func (e *OrderBookEvent) OrderBook() (model.OrderBook, bool, error) {
	if e.Event != "data" {
		return model.OrderBook{}, false, nil
	}
	book, err := model.NewOrderBook(e.Data.Bids, e.Data.Asks)
	if err != nil {
		return model.OrderBook{}, false, err
	}
	return book, true, nil
}
