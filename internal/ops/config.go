package ops

import (
	"strings"
	"time"

	"aggregator/internal/chaos"
	"aggregator/internal/ingest"
	"aggregator/internal/ingest/binance"
	"aggregator/internal/ingest/bitstamp"
	"aggregator/pkg/exception"
	"aggregator/pkg/websocket"

	"github.com/spf13/viper"
	"github.com/yanun0323/errors"
)

// EnvPrefix prefixes environment overrides, e.g. AGG_FEED_QUEUESIZE.
const EnvPrefix = "AGG"

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Symbol    string          `mapstructure:"symbol"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
	Exchanges ExchangesConfig `mapstructure:"exchanges"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// FeedConfig describes the per-exchange connection lifecycle.
type FeedConfig struct {
	ReadTimeout      time.Duration `mapstructure:"readTimeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshakeTimeout"`
	MaxRetries       int           `mapstructure:"maxRetries"`
	Backoff          BackoffConfig `mapstructure:"backoff"`
	QueueSize        int           `mapstructure:"queueSize"`
	Overflow         string        `mapstructure:"overflow"`
	OnDecodeError    string        `mapstructure:"onDecodeError"`
	Chaos            ChaosConfig   `mapstructure:"chaos"`
}

// ChaosConfig injects faults into every feed connection. Soak testing only.
type ChaosConfig struct {
	Seed           uint64        `mapstructure:"seed"`
	DropRate       float64       `mapstructure:"dropRate"`
	DuplicateRate  float64       `mapstructure:"duplicateRate"`
	DisconnectRate float64       `mapstructure:"disconnectRate"`
	MaxDelay       time.Duration `mapstructure:"maxDelay"`
}

type BackoffConfig struct {
	Min    time.Duration `mapstructure:"min"`
	Max    time.Duration `mapstructure:"max"`
	Factor float64       `mapstructure:"factor"`
	Jitter float64       `mapstructure:"jitter"`
}

type AggregateConfig struct {
	Coalesce time.Duration `mapstructure:"coalesce"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ProfilingConfig struct {
	Pyroscope string `mapstructure:"pyroscope"`
}

type ExchangesConfig struct {
	Binance  EndpointConfig `mapstructure:"binance"`
	Bitstamp EndpointConfig `mapstructure:"bitstamp"`
}

type EndpointConfig struct {
	URL string `mapstructure:"url"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Symbol      string
	ServerAddr  string
	MetricsAddr string
	Feed        ingest.FeedConfig
	Coalesce    time.Duration
	Kafka       KafkaConfig
	Pyroscope   string
	BinanceURL  string
	BitstampURL string
}

// KafkaEnabled reports whether summaries should be published.
func (l Loaded) KafkaEnabled() bool {
	return len(l.Kafka.Brokers) != 0 && l.Kafka.Topic != ""
}

func setDefaults(v *viper.Viper) {
	backoff := websocket.DefaultBackoff()
	v.SetDefault("symbol", "ethbtc")
	v.SetDefault("server.addr", "127.0.0.1:50051")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("feed.readTimeout", time.Duration(0))
	v.SetDefault("feed.handshakeTimeout", websocket.DefaultHandshakeTimeout)
	v.SetDefault("feed.maxRetries", 0)
	v.SetDefault("feed.backoff.min", backoff.Min)
	v.SetDefault("feed.backoff.max", backoff.Max)
	v.SetDefault("feed.backoff.factor", backoff.Factor)
	v.SetDefault("feed.backoff.jitter", backoff.Jitter)
	v.SetDefault("feed.queueSize", 1)
	v.SetDefault("feed.overflow", websocket.OverflowBlock.String())
	v.SetDefault("feed.onDecodeError", ingest.DecodeSkip.String())
	v.SetDefault("feed.chaos.seed", uint64(0))
	v.SetDefault("feed.chaos.dropRate", 0.0)
	v.SetDefault("feed.chaos.duplicateRate", 0.0)
	v.SetDefault("feed.chaos.disconnectRate", 0.0)
	v.SetDefault("feed.chaos.maxDelay", time.Duration(0))
	v.SetDefault("aggregate.coalesce", time.Duration(0))
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "")
	v.SetDefault("profiling.pyroscope", "")
	v.SetDefault("exchanges.binance.url", binance.DefaultURL)
	v.SetDefault("exchanges.bitstamp.url", bitstamp.DefaultURL)
}

// Load reads the config file at path, if any, applies AGG_ environment
// overrides and resolves the result.
func Load(path string) (Loaded, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Loaded{}, errors.Wrap(err, "read config").With("path", path)
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "unmarshal config")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	symbol := strings.ToLower(strings.TrimSpace(cfg.Symbol))
	if err := validateSymbol(symbol); err != nil {
		return Loaded{}, err
	}
	feed, err := resolveFeed(cfg.Feed)
	if err != nil {
		return Loaded{}, err
	}
	if cfg.Aggregate.Coalesce < 0 {
		return Loaded{}, errors.Wrap(exception.ErrInvalidArgument, "aggregate.coalesce must be >= 0")
	}
	if cfg.Server.Addr == "" {
		return Loaded{}, errors.Wrap(exception.ErrInvalidArgument, "server.addr is empty")
	}
	return Loaded{
		Symbol:      symbol,
		ServerAddr:  cfg.Server.Addr,
		MetricsAddr: cfg.Metrics.Addr,
		Feed:        feed,
		Coalesce:    cfg.Aggregate.Coalesce,
		Kafka:       cfg.Kafka,
		Pyroscope:   cfg.Profiling.Pyroscope,
		BinanceURL:  cfg.Exchanges.Binance.URL,
		BitstampURL: cfg.Exchanges.Bitstamp.URL,
	}, nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return errors.Wrap(exception.ErrInvalidArgument, "symbol is empty")
	}
	for i := 0; i < len(symbol); i++ {
		c := symbol[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return errors.Wrapf(exception.ErrInvalidArgument, "symbol %q must be alphanumeric", symbol)
		}
	}
	return nil
}

func resolveFeed(cfg FeedConfig) (ingest.FeedConfig, error) {
	if cfg.QueueSize < 1 {
		return ingest.FeedConfig{}, errors.Wrap(exception.ErrInvalidArgument, "feed.queueSize must be >= 1")
	}
	if cfg.MaxRetries < 0 {
		return ingest.FeedConfig{}, errors.Wrap(exception.ErrInvalidArgument, "feed.maxRetries must be >= 0")
	}
	if cfg.ReadTimeout < 0 || cfg.HandshakeTimeout < 0 {
		return ingest.FeedConfig{}, errors.Wrap(exception.ErrInvalidArgument, "feed timeouts must be >= 0")
	}
	if cfg.Backoff.Jitter < 0 || cfg.Backoff.Jitter > 1 {
		return ingest.FeedConfig{}, errors.Wrap(exception.ErrInvalidArgument, "feed.backoff.jitter must be within [0, 1]")
	}
	overflow, err := websocket.ParseOverflowPolicy(cfg.Overflow)
	if err != nil {
		return ingest.FeedConfig{}, err
	}
	onDecodeError, err := ingest.ParseDecodePolicy(cfg.OnDecodeError)
	if err != nil {
		return ingest.FeedConfig{}, err
	}
	faults := chaos.Config(cfg.Chaos)
	if err := faults.Validate(); err != nil {
		return ingest.FeedConfig{}, err
	}
	return ingest.FeedConfig{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadTimeout:      cfg.ReadTimeout,
		MaxRetries:       cfg.MaxRetries,
		Backoff: websocket.Backoff{
			Min:    cfg.Backoff.Min,
			Max:    cfg.Backoff.Max,
			Factor: cfg.Backoff.Factor,
			Jitter: cfg.Backoff.Jitter,
		},
		QueueSize:     cfg.QueueSize,
		Overflow:      overflow,
		OnDecodeError: onDecodeError,
		Chaos:         faults,
	}, nil
}
