package middlewarex

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"rowfence/internal/observability"
)

// Counters are package globals, so assertions are deltas rather than
// absolute values.
func TestMetricsRecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := observability.RequestsTotal.WithLabelValues(http.MethodGet, "/things/{id}", "2xx")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("requests counter delta = %v, want 1", got)
	}
}

func TestMetricsStatusClass(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/missing-thing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := observability.RequestsTotal.WithLabelValues(http.MethodGet, "/missing-thing", "4xx")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing-thing", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("4xx counter delta = %v, want 1", got)
	}
}

func TestMetricsOutsideRouterFallsBack(t *testing.T) {
	h := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	counter := observability.RequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "5xx")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anywhere", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("fallback counter delta = %v, want 1", got)
	}
}
