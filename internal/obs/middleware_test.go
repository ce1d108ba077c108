package obs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/rms-pricing/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("rms", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}

	samples := testutil.CollectAndCount(metrics.ReqDur)
	if samples == 0 {
		t.Fatalf("expected histogram sample")
	}

	if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
		t.Fatalf("expected no in-flight requests, got %v", val)
	}
}

func TestHTTPMetricsReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("rms", nil, registry)
	second := obs.NewHTTPMetrics("rms", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestPricingMetricsRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := obs.NewPricingMetrics("rms", registry)
	m.MatrixRuns.WithLabelValues("net_to_bar", "ok").Inc()
	m.CellFailures.WithLabelValues("INVALID_COMMISSION").Add(2)

	require.Equal(t, float64(1), testutil.ToFloat64(m.MatrixRuns.WithLabelValues("net_to_bar", "ok")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.CellFailures.WithLabelValues("INVALID_COMMISSION")))

	again := obs.NewPricingMetrics("rms", registry)
	require.Same(t, m.MatrixRuns, again.MatrixRuns)
}

func TestTracingMiddlewareNamesSpanAfterRoute(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	r := chi.NewRouter()
	r.Use(obs.TracingMiddleware)
	r.Get("/hotels/{hotelID}/pricing/matrix.csv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, span := provider.Tracer("test").Start(context.Background(), "inbound")
	req := httptest.NewRequest(http.MethodGet, "/hotels/h-1/pricing/matrix.csv", nil).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "GET /hotels/{hotelID}/pricing/matrix.csv", ended[0].Name())
}
