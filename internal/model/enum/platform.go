package enum

import "strconv"

// ExchangeID names the origin of an order book stream.
type ExchangeID uint8

const (
	_exchange_beg ExchangeID = iota
	ExchangeBinance
	ExchangeBitstamp
	// ExchangeAggregate is the identity of the merged stream itself.
	ExchangeAggregate
	_exchange_end
)

func (e ExchangeID) IsAvailable() bool {
	return e > _exchange_beg && e < _exchange_end
}

// IsVenue reports whether the id can be used as a per-level source attribution.
func (e ExchangeID) IsVenue() bool {
	return e.IsAvailable() && e != ExchangeAggregate
}

func (e ExchangeID) String() string {
	switch e {
	case ExchangeBinance:
		return "binance"
	case ExchangeBitstamp:
		return "bitstamp"
	case ExchangeAggregate:
		return "aggregate"
	default:
		return "unknown(" + strconv.Itoa(int(e)) + ")"
	}
}
