package distribution

import (
	"math"
	"strconv"

	"aggregator/internal/aggregator"
	"aggregator/internal/model"
	"aggregator/pkg/scanner"
)

// Empty is the request of BookSummary.
type Empty struct{}

// Level is one merged price level with the venue that quoted it.
type Level struct {
	Exchange string `json:"exchange"`
	Price    Number `json:"price"`
	Amount   Number `json:"amount"`
}

// Summary is one streamed view of the merged book.
type Summary struct {
	Spread Number  `json:"spread"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

// NewSummary maps a merge result. Spread is best ask minus best bid.
func NewSummary(r aggregator.Result) *Summary {
	s := &Summary{
		Spread: Number(r.Book.Spread()),
		Bids:   make([]Level, model.Depth),
		Asks:   make([]Level, model.Depth),
	}
	for i := range model.Depth {
		s.Bids[i] = Level{
			Exchange: r.Sources.Bid[i].String(),
			Price:    Number(r.Book.Bid[i].Price),
			Amount:   Number(r.Book.Bid[i].Amount),
		}
		s.Asks[i] = Level{
			Exchange: r.Sources.Ask[i].String(),
			Price:    Number(r.Book.Ask[i].Price),
			Amount:   Number(r.Book.Ask[i].Amount),
		}
	}
	return s
}

// Number is a float64 that survives JSON when it is not finite. Infinities
// are written as "INF" / "-INF" and NaN as "NaN"; plain numbers stay bare.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsInf(f, 1):
		return []byte(`"INF"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-INF"`), nil
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	f, err := scanner.ParseFloat(data)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}
