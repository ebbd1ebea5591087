package aggregator

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"aggregator/internal/ingest"
	"aggregator/internal/model"
	"aggregator/internal/model/enum"
	"aggregator/internal/obs"
	"aggregator/pkg/exception"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

type chanStream struct {
	ch     chan model.OrderBook
	closed atomic.Bool
}

func newChanStream() *chanStream {
	return &chanStream{ch: make(chan model.OrderBook)}
}

func (s *chanStream) Next(ctx context.Context) (model.OrderBook, error) {
	select {
	case b, ok := <-s.ch:
		if !ok {
			return model.OrderBook{}, exception.ErrStreamClosed
		}
		return b, nil
	case <-ctx.Done():
		return model.OrderBook{}, ctx.Err()
	}
}

func (s *chanStream) Close() error {
	s.closed.Store(true)
	return nil
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestMergeKeepsPerSourceOrder(t *testing.T) {
	ctx := testContext(t)
	a, b := newChanStream(), newChanStream()
	events := Merge(ctx, []ingest.Exchange[model.OrderBook]{
		ingest.NewExchange[model.OrderBook](enum.ExchangeBinance, a),
		ingest.NewExchange[model.OrderBook](enum.ExchangeBitstamp, b),
	})

	go func() {
		for i := range 50 {
			a.ch <- flatBook(float64(i), 1000, 1)
		}
		close(a.ch)
	}()
	go func() {
		for i := range 50 {
			b.ch <- flatBook(float64(i), 1000, 2)
		}
		close(b.ch)
	}()

	last := map[int]float64{0: -1, 1: -1}
	total := 0
	for ev := range events {
		price := ev.Book.Bid[0].Price
		require.Greater(t, price, last[ev.Source])
		last[ev.Source] = price
		total++
	}
	assert.Equal(t, 100, total)
}

func TestMergeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := Merge(ctx, []ingest.Exchange[model.OrderBook]{
		ingest.NewExchange[model.OrderBook](enum.ExchangeBinance, newChanStream()),
	})
	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("merge did not stop")
	}
}

func TestBuildEmitsPerEvent(t *testing.T) {
	ctx := testContext(t)
	a, b := newChanStream(), newChanStream()
	metrics := obs.NewMetrics()
	ex, err := Build(ctx, []ingest.Exchange[model.OrderBook]{
		ingest.NewExchange[model.OrderBook](enum.ExchangeBinance, a),
		ingest.NewExchange[model.OrderBook](enum.ExchangeBitstamp, b),
	}, Options{Metrics: metrics})
	require.NoError(t, err)
	assert.Equal(t, enum.ExchangeAggregate, ex.ID)

	a.ch <- flatBook(100, 102, 1)
	r, err := ex.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.Book.Bid[0].Price)
	assert.Equal(t, enum.ExchangeBinance, r.Sources.Bid[0])

	b.ch <- flatBook(101, 103, 2)
	r, err = ex.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101.0, r.Book.Bid[0].Price)
	assert.Equal(t, enum.ExchangeBitstamp, r.Sources.Bid[0])
	assert.Equal(t, 102.0, r.Book.Ask[0].Price)
	assert.Equal(t, enum.ExchangeBinance, r.Sources.Ask[0])
	assert.Equal(t, 1.0, r.Book.Spread())

	require.NoError(t, ex.Close())
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	expected := `
# HELP aggregator_summaries_total Aggregated books emitted.
# TYPE aggregator_summaries_total counter
aggregator_summaries_total 2
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "aggregator_summaries_total"))
}

func TestBuildCoalesces(t *testing.T) {
	ctx := testContext(t)
	a := newChanStream()
	ex, err := Build(ctx, []ingest.Exchange[model.OrderBook]{
		ingest.NewExchange[model.OrderBook](enum.ExchangeBinance, a),
	}, Options{Coalesce: 200 * time.Millisecond})
	require.NoError(t, err)
	defer ex.Close()

	for i := range 5 {
		a.ch <- flatBook(float64(100+i), 200, 1)
	}
	r, err := ex.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 104.0, r.Book.Bid[0].Price)
}

func TestBuildEndsWhenSourcesEnd(t *testing.T) {
	ctx := testContext(t)
	a := newChanStream()
	ex, err := Build(ctx, []ingest.Exchange[model.OrderBook]{
		ingest.NewExchange[model.OrderBook](enum.ExchangeBinance, a),
	}, Options{})
	require.NoError(t, err)
	defer ex.Close()

	a.ch <- flatBook(10, 11, 1)
	close(a.ch)

	_, err = ex.Next(ctx)
	require.NoError(t, err)
	_, err = ex.Next(ctx)
	require.True(t, errors.Is(err, exception.ErrStreamClosed))
}

func TestBuildRejectsAggregateSource(t *testing.T) {
	_, err := Build(context.Background(), []ingest.Exchange[model.OrderBook]{
		ingest.NewExchange[model.OrderBook](enum.ExchangeAggregate, newChanStream()),
	}, Options{})
	require.True(t, errors.Is(err, exception.ErrInvalidArgument))
}
