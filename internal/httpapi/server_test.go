package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/healthwatch/internal/httpapi/middleware"
	"github.com/hamed0406/healthwatch/internal/metrics"
	"github.com/hamed0406/healthwatch/internal/monitor"
	"github.com/hamed0406/healthwatch/internal/probe"
	"github.com/hamed0406/healthwatch/internal/repo/memory"
	"github.com/hamed0406/healthwatch/internal/report"
)

func TestHealthz(t *testing.T) {
	srv := NewServer(zap.NewNop(), &fakeMonitor{}, nil, nil)
	rec := httptest.NewRecorder()
	srv.Router(apimw.Keys{Public: []string{"k"}}, nil, 10, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	srv := NewServer(zap.NewNop(), &fakeMonitor{}, nil, nil)
	h := srv.Router(apimw.Keys{}, []string{"https://app.example"}, 10, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// End to end: real monitor probing a fake backend, outcomes fanned out to
// the recorder and metrics, read back through the API.
func TestServer_ReportsRealMonitor(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"unhealthy","database":"disconnected"}`))
	}))
	defer backend.Close()

	m, err := monitor.New(monitor.Options{
		Checker: probe.NewHealthChecker(probe.DefaultPath, time.Second),
		Target:  backend.URL,
	})
	require.NoError(t, err)

	store := memory.New(0)
	reg := prometheus.NewRegistry()
	coll := metrics.NewCollector(reg)
	rec := report.NewRecorder(zap.NewNop(), store, report.ModeProduction, probe.DefaultPath)
	m.Subscribe(rec.Observe)
	m.Subscribe(coll.Observe)

	require.NoError(t, m.Init(context.Background()))
	defer m.Dispose()

	require.Eventually(t, func() bool {
		recs, _ := store.Recent(context.Background(), 1)
		return len(recs) == 1
	}, 3*time.Second, 10*time.Millisecond)

	srv := NewServer(zap.NewNop(), m, store, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	ts := httptest.NewServer(srv.Router(apimw.Keys{}, nil, 10_000, 10_000))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body statusBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.IsDown)
	require.NotNil(t, body.LastError)
	assert.Equal(t, "ServerError", body.LastError.Type)
	assert.Equal(t, "Server error: Server status: unhealthy", body.LastError.Message)
	assert.Equal(t, uint(1), body.RetryCount)

	mresp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, _ := io.ReadAll(mresp.Body)
	assert.True(t, strings.Contains(string(raw), "healthwatch_monitor_down 1"), string(raw))
}
