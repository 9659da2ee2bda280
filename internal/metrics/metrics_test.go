// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/pkg/types"
)

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome(types.Outcome{
		Identifier: "10.1/abc",
		Fetch:      types.DegradedNoCredential,
		Parse:      types.DegradedSourceMissing,
		Records:    3,
	}, 2*time.Second)
	m.ObserveOutcome(types.Outcome{Identifier: "10.1/def", Records: 3}, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageTotal.WithLabelValues("fetch", "no_credential")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageTotal.WithLabelValues("fetch", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageTotal.WithLabelValues("data", "ok")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.rowsTotal))
}

func TestRunGauge(t *testing.T) {
	m := New()
	m.StartRun()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runInFlight))
	m.FinishRun(types.RunFinished)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("finished")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.StartRun()
	m.ObserveOutcome(types.Outcome{}, time.Second)
	m.FinishRun(types.RunFailed)
	m.ObserveRequest("GET", "/status", 200, time.Millisecond)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, "/runs", http.StatusAccepted, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `paper_reader_http_requests_total{method="POST",route="/runs",status="202"} 1`)
}
