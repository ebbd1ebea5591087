package distribution

import (
	"math"
	"testing"

	"aggregator/internal/model"

	"github.com/stretchr/testify/assert"
)

func posInf() float64 {
	return math.Inf(1)
}

func TestNewSummary(t *testing.T) {
	r := result(100, 100.5)
	s := NewSummary(r)

	assert.Equal(t, Number(0.5), s.Spread)
	assert.Len(t, s.Bids, model.Depth)
	assert.Len(t, s.Asks, model.Depth)
	for i := range model.Depth {
		assert.Equal(t, "binance", s.Bids[i].Exchange)
		assert.Equal(t, "bitstamp", s.Asks[i].Exchange)
		assert.Equal(t, Number(r.Book.Bid[i].Price), s.Bids[i].Price)
		assert.Equal(t, Number(r.Book.Ask[i].Amount), s.Asks[i].Amount)
	}
}

func TestNumberMarshal(t *testing.T) {
	cases := map[float64]string{
		0.075:         `0.075`,
		math.Inf(1):   `"INF"`,
		math.Inf(-1):  `"-INF"`,
		100:           `100`,
		-1.25:         `-1.25`,
		17.2414:       `17.2414`,
		1e21:          `1e+21`,
	}
	for in, want := range cases {
		got, err := Number(in).MarshalJSON()
		assert.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	var n Number
	assert.NoError(t, n.UnmarshalJSON([]byte(`"NaN"`)))
	assert.True(t, math.IsNaN(float64(n)))
}
