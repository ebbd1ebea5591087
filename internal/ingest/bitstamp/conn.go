package bitstamp

import (
	"context"

	"aggregator/internal/ingest"
	"aggregator/internal/model"
	"aggregator/internal/model/enum"
	"aggregator/internal/obs"
	"aggregator/pkg/websocket"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Connect opens the exchange wide endpoint and subscribes to the order book
// channel of symbol on every (re)connect. Books flow once the exchange starts
// publishing on the channel.
func Connect(ctx context.Context, url string, symbol string, cfg ingest.FeedConfig, metrics *obs.Metrics) (ingest.Exchange[model.OrderBook], error) {
	if url == "" {
		url = DefaultURL
	}
	dialer := websocket.NewDialer(websocket.Option{
		URL:              url,
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		OnPing: func(string) {
			metrics.IncPing(enum.ExchangeBitstamp)
		},
	})
	return ingest.Connect(ctx, ingest.FeedOptions[model.OrderBook]{
		ID:     enum.ExchangeBitstamp,
		Dialer: dialer,
		Decode: Parse,
		// honored only when cfg allows reconnects
		RequestsReconnect: IsReconnectRequest,
		OnConnect: func(ctx context.Context, conn websocket.Conn) error {
			msgType, payload := EncodeSubscribe(make([]byte, 0, 96), symbol)
			if err := conn.Write(ctx, msgType, payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", string(payload))
			}
			logs.Infof("bitstamp subscribed to %s", Channel(symbol))
			return nil
		},
		Config:  cfg,
		Metrics: metrics,
	})
}
