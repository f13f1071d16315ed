package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EntitlementDecisions.WithLabelValues(DecisionCounted).Inc()
	m.UsageResets.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EntitlementDecisions.WithLabelValues(DecisionCounted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsageResets))
	assert.Panics(t, func() { New(reg) }, "double registration must panic")
}

func TestMiddleware_ObservesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/santiere/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/santiere/42", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	count, err := testutil.GatherAndCount(reg, "datesantiere_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "datesantiere_http_request_duration_seconds" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["route"] == "/santiere/{id}" && labels["status"] == "404" {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestServe_EmptyAddressWaitsForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "", prometheus.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
