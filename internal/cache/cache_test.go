package cache

import (
	"testing"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
)

func TestGetSetExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := New[models.WeatherReport](15 * time.Minute)
	c.now = func() time.Time { return now }

	if _, ok := c.Get("55.00,-7.30"); ok {
		t.Fatalf("empty cache returned a hit")
	}
	c.Set("55.00,-7.30", models.WeatherReport{City: "Londonderry"})
	got, ok := c.Get("55.00,-7.30")
	if !ok || got.City != "Londonderry" {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}

	now = now.Add(16 * time.Minute)
	if _, ok := c.Get("55.00,-7.30"); ok {
		t.Fatalf("expired entry returned a hit")
	}
	if n := c.Sweep(); n != 1 || c.Len() != 0 {
		t.Fatalf("Sweep() = %d, Len() = %d", n, c.Len())
	}
}

func TestCoordinateKey(t *testing.T) {
	cases := []struct {
		in   models.Coordinates
		want string
	}{
		{models.Coordinates{Lat: 55.0, Lon: -7.3}, "55.00,-7.30"},
		{models.Coordinates{Lat: 51.5074, Lon: -0.1278}, "51.51,-0.13"},
	}
	for _, tc := range cases {
		if got := CoordinateKey(tc.in); got != tc.want {
			t.Errorf("CoordinateKey(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
