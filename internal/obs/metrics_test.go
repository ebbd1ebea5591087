package obs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aggregator/internal/model/enum"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.IncFeedMessage(enum.ExchangeBinance)
	m.IncFeedDecodeError(enum.ExchangeBinance)
	m.IncQueueDrop(enum.ExchangeBinance)
	m.IncReconnect(enum.ExchangeBinance)
	m.IncPing(enum.ExchangeBinance)
	m.IncSummary()
	m.ObserveMerge(time.Microsecond)
	assert.Equal(t, LatencySnapshot{}, m.MergeLatency())
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.IncFeedMessage(enum.ExchangeBinance)
	m.IncFeedMessage(enum.ExchangeBinance)
	m.IncFeedMessage(enum.ExchangeBitstamp)
	m.IncFeedDecodeError(enum.ExchangeBitstamp)
	m.IncSummary()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.feedMessages.WithLabelValues("binance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedMessages.WithLabelValues("bitstamp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.feedDecodeErrors.WithLabelValues("bitstamp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.summaries))
}

func TestMergeLatency(t *testing.T) {
	m := NewMetrics()
	m.ObserveMerge(2 * time.Microsecond)
	m.ObserveMerge(4 * time.Microsecond)
	snap := m.MergeLatency()
	assert.Equal(t, uint64(2), snap.Count)
	assert.Equal(t, 2*time.Microsecond, snap.Min)
	assert.Equal(t, 4*time.Microsecond, snap.Max)
	assert.Equal(t, 3*time.Microsecond, snap.Avg)
	assert.Equal(t, 1, testutil.CollectAndCount(m.mergeSeconds))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.IncReconnect(enum.ExchangeBitstamp)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `aggregator_feed_reconnects_total{exchange="bitstamp"} 1`))
}
