package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, promHandler, tracer, err := Setup(context.Background(), "citysearch-test")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer shutdown()

	r := chi.NewRouter()
	r.Use(Middleware(tracer, "citysearch-test"))
	r.Get("/api/location/{cityName}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promHandler)

	counter := requestCounter.WithLabelValues("citysearch-test", "/api/location/{cityName}", http.MethodGet, "200")
	before := testutil.ToFloat64(counter)
	for _, city := range []string{"London", "Paris", "Oslo"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/location/"+city, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", city, rec.Code)
		}
	}
	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Fatalf("counter grew by %v, want 3", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
}
