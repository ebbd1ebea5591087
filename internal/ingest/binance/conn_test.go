package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aggregator/internal/ingest"
	"aggregator/internal/model/enum"
	"aggregator/pkg/exception"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestConnectStreams(t *testing.T) {
	payload := loadFixture(t)
	paths := make(chan string, 1)

	upgrader := gorilla.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(gorilla.TextMessage, []byte(`{"malformed":true}`))
		_ = conn.WriteMessage(gorilla.TextMessage, payload)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ex, err := Connect(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "ETHBTC", ingest.DefaultFeedConfig(), nil)
	require.NoError(t, err)
	defer ex.Close()
	assert.Equal(t, enum.ExchangeBinance, ex.ID)
	assert.Equal(t, "/ws/ethbtc@depth20@100ms", <-paths)

	got, err := ex.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.07500200, got.Bid[0].Price)
	assert.Equal(t, 0.07500300, got.Ask[0].Price)
}

func TestConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	_, err := Connect(context.Background(), url, "ethbtc", ingest.DefaultFeedConfig(), nil)
	require.True(t, errors.Is(err, exception.ErrConnection))
}
