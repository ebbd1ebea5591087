package binance

import (
	"context"

	"aggregator/internal/ingest"
	"aggregator/internal/model"
	"aggregator/internal/model/enum"
	"aggregator/internal/obs"
	"aggregator/pkg/websocket"
)

// Connect opens the depth stream for symbol. The stream is selected by the
// URL so nothing is sent after the handshake.
func Connect(ctx context.Context, baseURL string, symbol string, cfg ingest.FeedConfig, metrics *obs.Metrics) (ingest.Exchange[model.OrderBook], error) {
	dialer := websocket.NewDialer(websocket.Option{
		URL:              StreamURL(baseURL, symbol),
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		OnPing: func(string) {
			metrics.IncPing(enum.ExchangeBinance)
		},
	})
	return ingest.Connect(ctx, ingest.FeedOptions[model.OrderBook]{
		ID:      enum.ExchangeBinance,
		Dialer:  dialer,
		Decode:  Decode,
		Config:  cfg,
		Metrics: metrics,
	})
}
