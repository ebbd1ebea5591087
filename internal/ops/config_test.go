package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"aggregator/internal/ingest"
	"aggregator/internal/ingest/binance"
	"aggregator/internal/ingest/bitstamp"
	"aggregator/pkg/exception"
	"aggregator/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "ethbtc", cfg.Symbol)
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerAddr)
	assert.Equal(t, 1, cfg.Feed.QueueSize)
	assert.Equal(t, 0, cfg.Feed.MaxRetries)
	assert.Equal(t, websocket.OverflowBlock, cfg.Feed.Overflow)
	assert.Equal(t, ingest.DecodeSkip, cfg.Feed.OnDecodeError)
	assert.Equal(t, websocket.DefaultBackoff(), cfg.Feed.Backoff)
	assert.Zero(t, cfg.Coalesce)
	assert.Equal(t, binance.DefaultURL, cfg.BinanceURL)
	assert.Equal(t, bitstamp.DefaultURL, cfg.BitstampURL)
	assert.False(t, cfg.KafkaEnabled())
	assert.False(t, cfg.Feed.Chaos.Enabled())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbol: BTCUSDT
server:
  addr: 0.0.0.0:6000
feed:
  readTimeout: 15s
  maxRetries: 5
  queueSize: 16
  overflow: dropOldest
  onDecodeError: restart
  backoff:
    min: 100ms
    max: 2s
  chaos:
    dropRate: 0.1
aggregate:
  coalesce: 50ms
kafka:
  brokers: ["127.0.0.1:9092"]
  topic: orderbook.summary
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "btcusdt", cfg.Symbol)
	assert.Equal(t, "0.0.0.0:6000", cfg.ServerAddr)
	assert.Equal(t, 15*time.Second, cfg.Feed.ReadTimeout)
	assert.Equal(t, 5, cfg.Feed.MaxRetries)
	assert.Equal(t, 16, cfg.Feed.QueueSize)
	assert.Equal(t, websocket.OverflowDropOldest, cfg.Feed.Overflow)
	assert.Equal(t, ingest.DecodeRestart, cfg.Feed.OnDecodeError)
	assert.Equal(t, 100*time.Millisecond, cfg.Feed.Backoff.Min)
	assert.Equal(t, 2*time.Second, cfg.Feed.Backoff.Max)
	assert.Equal(t, 50*time.Millisecond, cfg.Coalesce)
	assert.Equal(t, 0.1, cfg.Feed.Chaos.DropRate)
	assert.True(t, cfg.Feed.Chaos.Enabled())
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AGG_SYMBOL", "solusdt")
	t.Setenv("AGG_FEED_MAXRETRIES", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "solusdt", cfg.Symbol)
	assert.Equal(t, 3, cfg.Feed.MaxRetries)
}

func TestLoadInvalid(t *testing.T) {
	for name, env := range map[string][2]string{
		"symbol":   {"AGG_SYMBOL", "eth/btc"},
		"queue":    {"AGG_FEED_QUEUESIZE", "0"},
		"overflow": {"AGG_FEED_OVERFLOW", "lifo"},
		"decode":   {"AGG_FEED_ONDECODEERROR", "panic"},
		"retries":  {"AGG_FEED_MAXRETRIES", "-1"},
		"chaos":    {"AGG_FEED_CHAOS_DROPRATE", "1.5"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := Load("")
			require.True(t, errors.Is(err, exception.ErrInvalidArgument))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
