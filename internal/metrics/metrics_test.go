package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry("composed", "")

	c1 := r.RegisterCounter("commits_total", "Commits", nil)
	c2 := r.RegisterCounter("commits_total", "Commits", nil)
	require.Same(t, c1, c2)

	c1.Inc()
	c1.Add(2)
	assert.Equal(t, uint64(3), r.Counter("commits_total").Value())
	assert.Equal(t, "composed_commits_total", c1.Name())
	assert.Nil(t, r.Counter("missing"))
}

func TestRegistrySubsystem(t *testing.T) {
	r := NewRegistry("composed", "ibus")
	g := r.RegisterGauge("engines_active", "Engines", nil)
	assert.Equal(t, "composed_ibus_engines_active", g.Name())

	g.Set(4)
	g.Add(-1)
	assert.Equal(t, int64(3), r.Gauge("engines_active").Value())
}

func TestHistogramBuckets(t *testing.T) {
	r := NewRegistry("", "")
	h := r.RegisterHistogram("latency", "Latency", nil, []float64{1, 0.1})

	h.Observe(0.05)
	h.Observe(0.1)
	h.Observe(0.5)
	h.Observe(7)
	h.ObserveDuration(20 * time.Millisecond)

	assert.Equal(t, uint64(5), h.Count())
	assert.InDelta(t, 7.67, h.Sum(), 1e-9)

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, `latency_bucket{le="0.1"} 3`)
	assert.Contains(t, out, `latency_bucket{le="1"} 4`)
	assert.Contains(t, out, `latency_bucket{le="+Inf"} 5`)
	assert.Contains(t, out, "latency_count 5")
}

func TestWritePrometheusSortedWithLabels(t *testing.T) {
	r := NewRegistry("composed", "")
	r.RegisterCounter("zeta_total", "Z", nil).Inc()
	r.RegisterCounter("alpha_total", "A", Labels{"mode": "word", "host": "tui"}).Add(2)

	var buf bytes.Buffer
	require.NoError(t, r.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE composed_alpha_total counter")
	assert.Contains(t, out, `composed_alpha_total{host="tui",mode="word"} 2`)
	assert.Less(t, strings.Index(out, "alpha_total"), strings.Index(out, "zeta_total"))
}

func TestHTTPHandlerNegotiatesJSON(t *testing.T) {
	r := NewRegistry("composed", "")
	r.RegisterCounter("updates_total", "Updates", nil).Add(9)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	r.HTTPHandler().ServeHTTP(rec, req)

	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(9), got["composed_updates_total"])

	rec = httptest.NewRecorder()
	r.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "composed_updates_total 9")
}

func TestServiceMetrics(t *testing.T) {
	r := NewRegistry("composed", "")
	m := NewServiceMetrics(r)

	m.EngineCreated()
	m.EngineCreated()
	m.EngineDestroyed()
	m.UpdateUptime()

	assert.Equal(t, uint64(2), m.EnginesCreated.Value())
	assert.Equal(t, int64(1), m.ActiveEngines.Value())
	assert.GreaterOrEqual(t, m.UptimeSeconds.Value(), int64(0))
}
