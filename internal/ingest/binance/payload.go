package binance

import "aggregator/internal/model"

// OrderBookEvent is the partial depth payload for generic decoders.
type OrderBookEvent struct {
	LastUpdateID uint64             `json:"lastUpdateId"`
	Bids         []model.PriceLevel `json:"bids"`
	Asks         []model.PriceLevel `json:"asks"`
}

// OrderBook converts the event, keeping the first model.Depth levels per side.
func (e *OrderBookEvent) OrderBook() (model.OrderBook, error) {
	return model.NewOrderBook(e.Bids, e.Asks)
}
