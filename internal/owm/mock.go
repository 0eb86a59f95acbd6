package owm

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
)

type mockCity struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

var mockCities = []mockCity{
	{Name: "Budapest", Country: "HU", Lat: 47.4979, Lon: 19.0402},
	{Name: "London", Country: "GB", Lat: 51.5074, Lon: -0.1278},
	{Name: "Londonderry", Country: "GB", Lat: 54.9966, Lon: -7.3086},
	{Name: "London", Country: "CA", State: "Ontario", Lat: 42.9837, Lon: -81.2497},
	{Name: "New York", Country: "US", State: "New York", Lat: 40.7128, Lon: -74.0060},
	{Name: "Tokyo", Country: "JP", Lat: 35.6762, Lon: 139.6503},
	{Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522},
	{Name: "Berlin", Country: "DE", Lat: 52.5200, Lon: 13.4050},
	{Name: "Sydney", Country: "AU", Lat: -33.8688, Lon: 151.2093},
	{Name: "San Francisco", Country: "US", State: "California", Lat: 37.7749, Lon: -122.4194},
	{Name: "Amsterdam", Country: "NL", Lat: 52.3676, Lon: 4.9041},
	{Name: "Vienna", Country: "AT", Lat: 48.2082, Lon: 16.3738},
}

// mockDirect answers like the direct geocoding endpoint, as raw JSON.
func mockDirect(query string, limit int) []byte {
	q := strings.ToLower(strings.TrimSpace(query))
	matches := make([]mockCity, 0, limit)
	for _, city := range mockCities {
		if strings.Contains(strings.ToLower(city.Name), q) {
			matches = append(matches, city)
		}
		if limit > 0 && len(matches) >= limit {
			break
		}
	}
	b, _ := json.Marshal(matches)
	return b
}

func mockWeather(lat, lon float64) models.WeatherReport {
	name, country := "Unknown", ""
	best := math.MaxFloat64
	for _, c := range mockCities {
		d := math.Hypot(c.Lat-lat, c.Lon-lon)
		if d < best && d < 0.5 {
			best = d
			name, country = c.Name, c.Country
		}
	}
	return models.WeatherReport{
		City:       name,
		Country:    country,
		Lat:        lat,
		Lon:        lon,
		TempC:      22,
		FeelsLikeC: 21,
		HiC:        24,
		LoC:        15,
		Pressure:   1015,
		WindSpeed:  3.6,
		Conditions: []models.Condition{
			{Main: "Clear", Description: "clear sky", Icon: "01d", IconURL: IconURL("01d")},
		},
	}
}
