package distribution

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"aggregator/internal/ingest"
	"aggregator/internal/model/enum"
	"aggregator/internal/obs"
	"aggregator/pkg/exception"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

// venue serves one fixture after the optional subscribe message, then idles.
func venue(t *testing.T, fixture string, expectSubscribe bool) string {
	t.Helper()
	payload, err := os.ReadFile(fixture)
	require.NoError(t, err)

	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if expectSubscribe {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(gorilla.TextMessage, payload)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestUpstreamConnect(t *testing.T) {
	u := Upstream{
		Symbol:      "ethbtc",
		BinanceURL:  venue(t, "../ingest/binance/testdata/binance_book.json", false),
		BitstampURL: venue(t, "../ingest/bitstamp/testdata/bitstamp_book.json", true),
		Feed:        ingest.DefaultFeedConfig(),
		Metrics:     obs.NewMetrics(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ex, err := u.Connect(ctx)
	require.NoError(t, err)
	defer ex.Close()
	assert.Equal(t, enum.ExchangeAggregate, ex.ID)

	// one result per source update; the second one has both books merged
	var last *Summary
	for range 2 {
		r, err := ex.Next(ctx)
		require.NoError(t, err)
		require.True(t, r.Book.IsSorted())
		last = NewSummary(r)
	}
	assert.Equal(t, Level{Exchange: "binance", Price: 0.07500200, Amount: 17.24140000}, last.Bids[0])
	assert.Equal(t, Level{Exchange: "bitstamp", Price: 0.07473221, Amount: 1.61774202}, last.Asks[0])
	assert.InDelta(t, 0.07473221-0.07500200, float64(last.Spread), 1e-12)
}

func TestUpstreamConnectAllOrNothing(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := "ws" + strings.TrimPrefix(dead.URL, "http")
	dead.Close()

	u := Upstream{
		Symbol:      "ethbtc",
		BinanceURL:  venue(t, "../ingest/binance/testdata/binance_book.json", false),
		BitstampURL: deadURL,
		Feed:        ingest.DefaultFeedConfig(),
	}
	_, err := u.Connect(context.Background())
	require.True(t, errors.Is(err, exception.ErrConnection))
}
