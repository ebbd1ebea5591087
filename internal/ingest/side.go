package ingest

import (
	"aggregator/internal/model"
	"aggregator/pkg/exception"
	"aggregator/pkg/scanner"

	"github.com/yanun0323/errors"
)

var (
	KeyBids = []byte(`"bids"`)
	KeyAsks = []byte(`"asks"`)
)

// ScanSide decodes the pair array bound to key, searching payload from the
// given offset. The first model.Depth levels are kept and the rest are
// validated then discarded.
func ScanSide(payload []byte, key []byte, from int) ([model.Depth]model.PriceLevel, error) {
	start, ok := scanner.ValueIndex(payload, key, from)
	if !ok {
		return [model.Depth]model.PriceLevel{}, errors.Wrapf(exception.ErrParse, "missing %s", key)
	}
	it, err := scanner.NewPairIter(payload, start)
	if err != nil {
		return [model.Depth]model.PriceLevel{}, errors.Wrapf(err, "%s is not an array", key)
	}

	var side model.SideBuilder
	for {
		priceText, amountText, ok := it.Next()
		if !ok {
			break
		}
		if side.Full() {
			continue
		}
		price, err := scanner.ParseFloat(priceText)
		if err != nil {
			return [model.Depth]model.PriceLevel{}, errors.Wrapf(err, "%s price %q", key, priceText)
		}
		amount, err := scanner.ParseFloat(amountText)
		if err != nil {
			return [model.Depth]model.PriceLevel{}, errors.Wrapf(err, "%s amount %q", key, amountText)
		}
		side.Push(model.PriceLevel{Price: price, Amount: amount})
	}
	if err := it.Err(); err != nil {
		return [model.Depth]model.PriceLevel{}, errors.Wrapf(err, "walk %s", key)
	}

	levels, err := side.Build()
	if err != nil {
		return levels, errors.Wrapf(err, "%s has %d levels", key, side.Len())
	}
	return levels, nil
}

// ScanBook decodes both sides of a book object starting at from.
func ScanBook(payload []byte, from int) (model.OrderBook, error) {
	var (
		book model.OrderBook
		err  error
	)
	if book.Bid, err = ScanSide(payload, KeyBids, from); err != nil {
		return model.OrderBook{}, err
	}
	if book.Ask, err = ScanSide(payload, KeyAsks, from); err != nil {
		return model.OrderBook{}, err
	}
	return book, nil
}
