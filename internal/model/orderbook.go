package model

import (
	"strconv"

	"aggregator/internal/model/enum"
	"aggregator/pkg/exception"
)

// Depth is the number of price levels kept per side.
const Depth = 10

// PriceLevel is one (price, amount) point of a book side.
type PriceLevel struct {
	Price  float64
	Amount float64
}

func (l PriceLevel) AppendString(buf []byte) []byte {
	buf = append(buf, '(')
	buf = strconv.AppendFloat(buf, l.Price, 'f', -1, 64)
	buf = append(buf, ", "...)
	buf = strconv.AppendFloat(buf, l.Amount, 'f', -1, 64)
	return append(buf, ')')
}

// OrderBook is a fixed depth snapshot. Bid is ordered by price descending,
// Ask ascending, best level at index 0.
type OrderBook struct {
	Bid [Depth]PriceLevel
	Ask [Depth]PriceLevel
}

// NewOrderBook copies the first Depth levels of each side. Extra levels are
// discarded; fewer than Depth levels on either side is an error.
func NewOrderBook(bids, asks []PriceLevel) (OrderBook, error) {
	var (
		book OrderBook
		err  error
	)
	if book.Bid, err = collect(bids); err != nil {
		return OrderBook{}, err
	}
	if book.Ask, err = collect(asks); err != nil {
		return OrderBook{}, err
	}
	return book, nil
}

func collect(levels []PriceLevel) ([Depth]PriceLevel, error) {
	var b SideBuilder
	for _, l := range levels {
		if !b.Push(l) {
			break
		}
	}
	return b.Build()
}

// IsSorted reports whether bids are non-increasing and asks non-decreasing by price.
func (b *OrderBook) IsSorted() bool {
	for i := 1; i < Depth; i++ {
		if b.Bid[i].Price > b.Bid[i-1].Price {
			return false
		}
		if b.Ask[i].Price < b.Ask[i-1].Price {
			return false
		}
	}
	return true
}

// Spread is the best ask price minus the best bid price.
func (b *OrderBook) Spread() float64 {
	return b.Ask[0].Price - b.Bid[0].Price
}

// BestBid and BestAsk return the top of each side.
func (b *OrderBook) BestBid() PriceLevel { return b.Bid[0] }
func (b *OrderBook) BestAsk() PriceLevel { return b.Ask[0] }

func (b OrderBook) String() string {
	buf := make([]byte, 0, 64*Depth)
	buf = append(buf, "bid:"...)
	for i := range b.Bid {
		buf = append(buf, ' ')
		buf = b.Bid[i].AppendString(buf)
	}
	buf = append(buf, " ask:"...)
	for i := range b.Ask {
		buf = append(buf, ' ')
		buf = b.Ask[i].AppendString(buf)
	}
	return string(buf)
}

// Sources names the exchange that contributed each level of a merged OrderBook.
type Sources struct {
	Bid [Depth]enum.ExchangeID
	Ask [Depth]enum.ExchangeID
}

// SideBuilder fills one book side without allocating.
type SideBuilder struct {
	levels [Depth]PriceLevel
	n      int
}

// Push appends a level and reports whether it was kept. Once Depth levels
// are held further levels are ignored.
func (s *SideBuilder) Push(l PriceLevel) bool {
	if s.n >= Depth {
		return false
	}
	s.levels[s.n] = l
	s.n++
	return true
}

func (s *SideBuilder) Len() int   { return s.n }
func (s *SideBuilder) Full() bool { return s.n == Depth }

func (s *SideBuilder) Reset() {
	s.n = 0
}

// Build returns the collected levels, or ErrInsufficientDepth unless exactly Depth were pushed.
func (s *SideBuilder) Build() ([Depth]PriceLevel, error) {
	if s.n < Depth {
		return [Depth]PriceLevel{}, exception.ErrInsufficientDepth
	}
	return s.levels, nil
}
