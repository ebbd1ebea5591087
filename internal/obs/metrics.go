package obs

import (
	"net/http"
	"sync/atomic"
	"time"

	"aggregator/internal/model/enum"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const labelExchange = "exchange"

// Metrics collects pipeline counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	feedMessages     *prometheus.CounterVec
	feedDecodeErrors *prometheus.CounterVec
	feedQueueDrops   *prometheus.CounterVec
	feedReconnects   *prometheus.CounterVec
	feedPings        *prometheus.CounterVec
	summaries        prometheus.Counter
	mergeSeconds     prometheus.Histogram

	mergeLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// NewMetrics allocates a metrics container with its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		feedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_feed_messages_total",
			Help: "Order books decoded per exchange.",
		}, []string{labelExchange}),
		feedDecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_feed_decode_errors_total",
			Help: "Frames that failed to decode per exchange.",
		}, []string{labelExchange}),
		feedQueueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_feed_queue_drops_total",
			Help: "Order books discarded by the pending queue overflow policy.",
		}, []string{labelExchange}),
		feedReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_feed_reconnects_total",
			Help: "Reconnect attempts per exchange.",
		}, []string{labelExchange}),
		feedPings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregator_feed_pings_total",
			Help: "Ping frames answered per exchange.",
		}, []string{labelExchange}),
		summaries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aggregator_summaries_total",
			Help: "Aggregated books emitted.",
		}),
		mergeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aggregator_merge_seconds",
			Help:    "Time spent merging source books.",
			Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.feedMessages,
		m.feedDecodeErrors,
		m.feedQueueDrops,
		m.feedReconnects,
		m.feedPings,
		m.summaries,
		m.mergeSeconds,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) IncFeedMessage(id enum.ExchangeID) {
	if m == nil {
		return
	}
	m.feedMessages.WithLabelValues(id.String()).Inc()
}

func (m *Metrics) IncFeedDecodeError(id enum.ExchangeID) {
	if m == nil {
		return
	}
	m.feedDecodeErrors.WithLabelValues(id.String()).Inc()
}

// IncQueueDrop records an item discarded by a pending queue.
func (m *Metrics) IncQueueDrop(id enum.ExchangeID) {
	if m == nil {
		return
	}
	m.feedQueueDrops.WithLabelValues(id.String()).Inc()
}

func (m *Metrics) IncReconnect(id enum.ExchangeID) {
	if m == nil {
		return
	}
	m.feedReconnects.WithLabelValues(id.String()).Inc()
}

func (m *Metrics) IncPing(id enum.ExchangeID) {
	if m == nil {
		return
	}
	m.feedPings.WithLabelValues(id.String()).Inc()
}

func (m *Metrics) IncSummary() {
	if m == nil {
		return
	}
	m.summaries.Inc()
}

// ObserveMerge measures one aggregate computation.
func (m *Metrics) ObserveMerge(d time.Duration) {
	if m == nil {
		return
	}
	m.mergeSeconds.Observe(d.Seconds())
	m.mergeLatency.Observe(d)
}

// MergeLatency returns the in-process merge latency summary.
func (m *Metrics) MergeLatency() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{}
	}
	return m.mergeLatency.Snapshot()
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		lo := atomic.LoadUint64(&l.min)
		if lo != 0 && nanos >= lo {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, lo, nanos) {
			break
		}
	}

	for {
		hi := atomic.LoadUint64(&l.max)
		if nanos <= hi {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, hi, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
