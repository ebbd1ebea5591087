package model

import (
	"encoding/json"
	"math"
	"testing"

	"aggregator/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func ladder(n int, start, step float64) []PriceLevel {
	levels := make([]PriceLevel, n)
	for i := range levels {
		levels[i] = PriceLevel{Price: start + float64(i)*step, Amount: float64(i + 1)}
	}
	return levels
}

func TestNewOrderBook(t *testing.T) {
	book, err := NewOrderBook(ladder(Depth+5, 100, -1), ladder(Depth, 101, 1))
	require.NoError(t, err)
	assert.Equal(t, PriceLevel{Price: 100, Amount: 1}, book.BestBid())
	assert.Equal(t, PriceLevel{Price: 91, Amount: 10}, book.Bid[Depth-1])
	assert.Equal(t, PriceLevel{Price: 101, Amount: 1}, book.BestAsk())
	assert.True(t, book.IsSorted())
	assert.Equal(t, 1.0, book.Spread())
}

func TestNewOrderBookInsufficientDepth(t *testing.T) {
	_, err := NewOrderBook(ladder(Depth-1, 100, -1), ladder(Depth, 101, 1))
	require.True(t, errors.Is(err, exception.ErrInsufficientDepth))

	_, err = NewOrderBook(ladder(Depth, 100, -1), nil)
	require.True(t, errors.Is(err, exception.ErrInsufficientDepth))
}

func TestSideBuilder(t *testing.T) {
	var b SideBuilder
	for i := 0; i < Depth; i++ {
		require.False(t, b.Full())
		require.True(t, b.Push(PriceLevel{Price: float64(i)}))
	}
	require.True(t, b.Full())
	require.False(t, b.Push(PriceLevel{Price: 99}))

	levels, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, float64(Depth-1), levels[Depth-1].Price)

	b.Reset()
	require.Equal(t, 0, b.Len())
	_, err = b.Build()
	require.True(t, errors.Is(err, exception.ErrInsufficientDepth))
}

func TestIsSorted(t *testing.T) {
	book, err := NewOrderBook(ladder(Depth, 100, -1), ladder(Depth, 101, 1))
	require.NoError(t, err)
	book.Bid[3], book.Bid[4] = book.Bid[4], book.Bid[3]
	assert.False(t, book.IsSorted())

	var zero OrderBook
	assert.True(t, zero.IsSorted())
}

func TestPriceLevelUnmarshalJSON(t *testing.T) {
	var quoted, bare PriceLevel
	require.NoError(t, json.Unmarshal([]byte(`["0.07500200","17.24140000"]`), &quoted))
	require.NoError(t, json.Unmarshal([]byte(`[0.07500200, 17.24140000, "ignored"]`), &bare))
	assert.Equal(t, PriceLevel{Price: 0.075002, Amount: 17.2414}, quoted)
	assert.Equal(t, quoted, bare)

	var inf PriceLevel
	require.NoError(t, json.Unmarshal([]byte(`["INF","1"]`), &inf))
	assert.True(t, math.IsInf(inf.Price, 1))
}

func TestPriceLevelUnmarshalJSONMalformed(t *testing.T) {
	for _, s := range []string{`["1"]`, `["x","1"]`, `{"price":1}`, `["1",true]`} {
		var l PriceLevel
		err := json.Unmarshal([]byte(s), &l)
		require.True(t, errors.Is(err, exception.ErrParse), s)
	}
}

func TestOrderBookString(t *testing.T) {
	book, err := NewOrderBook(ladder(Depth, 2, 0), ladder(Depth, 3, 0))
	require.NoError(t, err)
	s := book.String()
	assert.Contains(t, s, "bid: (2, 1)")
	assert.Contains(t, s, "ask: (3, 1)")
}
