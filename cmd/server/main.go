package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"aggregator/internal/distribution"
	"aggregator/internal/obs"
	"aggregator/internal/ops"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"google.golang.org/grpc"
)

const statsInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logs.Errorf("server: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "config file path (optional)")
	symbolFlag := flag.String("symbol", "", "override the configured symbol")
	addrFlag := flag.String("addr", "", "override the configured gRPC listen address")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}
	if symbol := strings.ToLower(strings.TrimSpace(*symbolFlag)); symbol != "" {
		cfg.Symbol = symbol
	}
	if *addrFlag != "" {
		cfg.ServerAddr = *addrFlag
	}

	if cfg.Pyroscope != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "aggregator.server",
			ServerAddress:   cfg.Pyroscope,
			Tags:            map[string]string{"symbol": cfg.Symbol},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := obs.NewMetrics()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(metrics), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf("metrics server: %+v", err)
			}
		}()
		defer func() { _ = srv.Close() }()
		logs.Infof("metrics listening: %s", cfg.MetricsAddr)
	}

	go logStats(ctx, metrics, statsInterval)

	upstream := distribution.Upstream{
		Symbol:      cfg.Symbol,
		BinanceURL:  cfg.BinanceURL,
		BitstampURL: cfg.BitstampURL,
		Feed:        cfg.Feed,
		Coalesce:    cfg.Coalesce,
		Metrics:     metrics,
	}

	if cfg.KafkaEnabled() {
		sink := distribution.NewKafkaSink(distribution.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), cfg.Symbol)
		defer func() { _ = sink.Close() }()
		go publish(ctx, upstream, sink)
		logs.Infof("publishing summaries to kafka topic %s", cfg.Kafka.Topic)
	}

	lis, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return err
	}

	server := grpc.NewServer()
	distribution.NewServer(upstream.Connect).Register(server)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(lis)
	}()
	logs.Infof("order book aggregator for %s listening: %s", cfg.Symbol, cfg.ServerAddr)

	select {
	case <-sys.Shutdown():
		logs.Info("shutting down")
		cancel()
		server.GracefulStop()
		return nil
	case err := <-serveErr:
		return err
	}
}

func logStats(ctx context.Context, metrics *obs.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if snap := metrics.MergeLatency(); snap.Count != 0 {
				logs.Infof("merge latency: count=%d min=%s avg=%s max=%s", snap.Count, snap.Min, snap.Avg, snap.Max)
			}
		}
	}
}

func metricsMux(metrics *obs.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// publish keeps one aggregate stream feeding the sink, reconnecting after
// the stream ends until ctx is done.
func publish(ctx context.Context, upstream distribution.Upstream, sink *distribution.KafkaSink) {
	for attempt := 0; ctx.Err() == nil; attempt++ {
		ex, err := upstream.Connect(ctx)
		if err != nil {
			logs.Errorf("kafka pipeline connect, err: %+v", err)
		} else {
			attempt = 0
			if err := sink.Run(ctx, ex); err != nil && ctx.Err() == nil {
				logs.Errorf("kafka pipeline ended, err: %+v", err)
			}
			_ = ex.Close()
		}
		if !upstream.Feed.Backoff.Wait(ctx, attempt) {
			return
		}
	}
}
