package owm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "test-key", GeoBaseURL: srv.URL, WeatherBaseURL: srv.URL})
}

func TestDirectBuildsRequest(t *testing.T) {
	var gotPath, gotQ, gotLimit, gotKey string
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQ = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		gotKey = r.URL.Query().Get("appid")
		_, _ = w.Write([]byte(`[{"name":"London","country":"GB","lat":51.51,"lon":-0.13}]`))
	})

	body, err := c.Direct(context.Background(), "San José", 5)
	if err != nil {
		t.Fatalf("Direct() error = %v", err)
	}
	if gotPath != "/geo/1.0/direct" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQ != "San José" || gotLimit != "5" || gotKey != "test-key" {
		t.Errorf("query params q=%q limit=%q appid=%q", gotQ, gotLimit, gotKey)
	}
	if !strings.Contains(string(body), "London") {
		t.Errorf("unexpected body %s", body)
	}
}

func TestDirectNon200IsUpstreamError(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})
	_, err := c.Direct(context.Background(), "Lon", 5)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestDirectNonJSONIsDecodeError(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})
	_, err := c.Direct(context.Background(), "Lon", 5)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestDirectAuthFailureFallsBackToMock(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	body, err := c.Direct(context.Background(), "Vienna", 5)
	if err != nil {
		t.Fatalf("Direct() error = %v", err)
	}
	locs, err := ParseDirect(body)
	if err != nil {
		t.Fatalf("mock body must validate: %v", err)
	}
	if len(locs) != 1 || locs[0].Name != "Vienna" {
		t.Fatalf("unexpected mock answer %v", locs)
	}
}

func TestMockDirectRespectsLimit(t *testing.T) {
	c := New(Options{})
	if !c.Mock() {
		t.Fatalf("client without key should be in mock mode")
	}
	body, err := c.Direct(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("Direct() error = %v", err)
	}
	locs, err := ParseDirect(body)
	if err != nil {
		t.Fatalf("ParseDirect() error = %v", err)
	}
	if len(locs) != 2 {
		t.Fatalf("expected 2 mock results, got %d", len(locs))
	}
}

func TestCurrentWeather(t *testing.T) {
	var gotUnits string
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotUnits = r.URL.Query().Get("units")
		_, _ = w.Write([]byte(londonWeather))
	})
	report, err := c.CurrentWeather(context.Background(), 51.51, -0.13)
	if err != nil {
		t.Fatalf("CurrentWeather() error = %v", err)
	}
	if gotUnits != "metric" {
		t.Errorf("units = %q", gotUnits)
	}
	if report.City != "London" {
		t.Errorf("city = %q", report.City)
	}
}

func TestCurrentWeatherSchemaViolation(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"London"}`))
	})
	_, err := c.CurrentWeather(context.Background(), 51.51, -0.13)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestMockWeatherNamesKnownCity(t *testing.T) {
	report, err := New(Options{}).CurrentWeather(context.Background(), 47.4979, 19.0402)
	if err != nil {
		t.Fatalf("CurrentWeather() error = %v", err)
	}
	if report.City != "Budapest" {
		t.Fatalf("city = %q", report.City)
	}
}
