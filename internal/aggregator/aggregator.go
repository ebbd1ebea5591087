package aggregator

import (
	"cmp"
	"slices"

	"aggregator/internal/model"
	"aggregator/internal/model/enum"
	"aggregator/pkg/exception"

	"github.com/yanun0323/errors"
)

// Aggregator keeps the latest book of every source and merges them on demand.
// It is not safe for concurrent use; Build owns one per pipeline.
type Aggregator struct {
	ids   []enum.ExchangeID
	books []model.OrderBook

	candidates []candidate
}

type candidate struct {
	level  model.PriceLevel
	source enum.ExchangeID
}

// New creates an aggregator over the given sources. Source i in Update refers to ids[i].
func New(ids ...enum.ExchangeID) (*Aggregator, error) {
	if len(ids) == 0 {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "no sources")
	}
	for _, id := range ids {
		if !id.IsVenue() {
			return nil, errors.Wrapf(exception.ErrInvalidArgument, "%s cannot be a merge source", id)
		}
	}
	return &Aggregator{
		ids:        slices.Clone(ids),
		books:      make([]model.OrderBook, len(ids)),
		candidates: make([]candidate, 0, len(ids)*model.Depth),
	}, nil
}

// Len returns the number of sources.
func (a *Aggregator) Len() int {
	return len(a.ids)
}

// Update replaces the snapshot of source i.
func (a *Aggregator) Update(i int, book model.OrderBook) error {
	if i < 0 || i >= len(a.books) {
		return errors.Wrapf(exception.ErrIndexOutOfRange, "source: %d, len: %d", i, len(a.books))
	}
	a.books[i] = book
	return nil
}

// Aggregate merges the latest snapshots into the best model.Depth bids
// (highest first) and asks (lowest first). A source that has not reported
// yet takes part with its zero book. Equal prices keep source order, then
// level order.
func (a *Aggregator) Aggregate() (model.OrderBook, model.Sources) {
	var (
		book    model.OrderBook
		sources model.Sources
	)

	a.gather(func(b *model.OrderBook) *[model.Depth]model.PriceLevel { return &b.Bid })
	slices.SortStableFunc(a.candidates, func(x, y candidate) int {
		return cmp.Compare(y.level.Price, x.level.Price)
	})
	for i := range model.Depth {
		book.Bid[i] = a.candidates[i].level
		sources.Bid[i] = a.candidates[i].source
	}

	a.gather(func(b *model.OrderBook) *[model.Depth]model.PriceLevel { return &b.Ask })
	slices.SortStableFunc(a.candidates, func(x, y candidate) int {
		return cmp.Compare(x.level.Price, y.level.Price)
	})
	for i := range model.Depth {
		book.Ask[i] = a.candidates[i].level
		sources.Ask[i] = a.candidates[i].source
	}

	return book, sources
}

func (a *Aggregator) gather(side func(*model.OrderBook) *[model.Depth]model.PriceLevel) {
	a.candidates = a.candidates[:0]
	for i := range a.books {
		for _, level := range side(&a.books[i]) {
			a.candidates = append(a.candidates, candidate{level: level, source: a.ids[i]})
		}
	}
}
