package distribution

import (
	"context"
	"time"

	"aggregator/internal/aggregator"
	"aggregator/internal/ingest"
	"aggregator/internal/ingest/binance"
	"aggregator/internal/ingest/bitstamp"
	"aggregator/internal/model"
	"aggregator/internal/obs"

	"golang.org/x/sync/errgroup"
)

// Upstream connects the venue feeds for one symbol and merges them.
type Upstream struct {
	Symbol      string
	BinanceURL  string
	BitstampURL string
	Feed        ingest.FeedConfig
	Coalesce    time.Duration
	Metrics     *obs.Metrics
}

// Connect dials every venue concurrently. If any of them fails the others
// are closed and the first error is returned.
func (u Upstream) Connect(ctx context.Context) (ingest.Exchange[aggregator.Result], error) {
	var (
		g   errgroup.Group
		bin ingest.Exchange[model.OrderBook]
		bts ingest.Exchange[model.OrderBook]
	)
	g.Go(func() error {
		var err error
		bin, err = binance.Connect(ctx, u.BinanceURL, u.Symbol, u.Feed, u.Metrics)
		return err
	})
	g.Go(func() error {
		var err error
		bts, err = bitstamp.Connect(ctx, u.BitstampURL, u.Symbol, u.Feed, u.Metrics)
		return err
	})

	exchanges := []ingest.Exchange[model.OrderBook]{}
	err := g.Wait()
	for _, ex := range []ingest.Exchange[model.OrderBook]{bin, bts} {
		if ex.Stream != nil {
			exchanges = append(exchanges, ex)
		}
	}
	if err != nil {
		closeAll(exchanges)
		return ingest.Exchange[aggregator.Result]{}, err
	}

	agg, err := aggregator.Build(ctx, exchanges, aggregator.Options{
		Coalesce: u.Coalesce,
		Metrics:  u.Metrics,
	})
	if err != nil {
		closeAll(exchanges)
		return ingest.Exchange[aggregator.Result]{}, err
	}
	return agg, nil
}

func closeAll(exchanges []ingest.Exchange[model.OrderBook]) {
	for _, ex := range exchanges {
		_ = ex.Close()
	}
}
