package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/PetoAdam/homenavi/citysearch/internal/cache"
	"github.com/PetoAdam/homenavi/citysearch/internal/geocode"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/owm"

	"github.com/go-chi/chi/v5"
)

// WeatherSource loads the weather detail for a coordinate. *owm.Client implements it.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (models.WeatherReport, error)
}

type Server struct {
	search  geocode.Searcher
	weather WeatherSource
	cache   *cache.Cache[models.WeatherReport]
}

func NewServer(search geocode.Searcher, weather WeatherSource, weatherCache *cache.Cache[models.WeatherReport]) *Server {
	return &Server{search: search, weather: weather, cache: weatherCache}
}

// RegisterRoutes mounts the location API and the weather detail endpoint.
// locationMW wraps only the location API, which is the rate limited surface.
func (s *Server) RegisterRoutes(r chi.Router, locationMW ...func(http.Handler) http.Handler) {
	r.With(locationMW...).Get("/api/location/{cityName}", s.handleLocation)
	r.Get("/weather", s.handleWeather)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "cityName")

	res, err := s.search.Search(r.Context(), name)
	if err != nil {
		reason := "upstream"
		if errors.Is(err, owm.ErrInvalidPayload) {
			reason = geocode.ReasonInvalidPayload
		}
		slog.Warn("location lookup failed", "correlation_id", CorrelationIDFrom(r.Context()), "city", name, "reason", reason, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to search locations", "reason": reason})
		return
	}
	if res.Cities == nil {
		res.Cities = []models.City{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	latStr := strings.TrimSpace(r.URL.Query().Get("lat"))
	lonStr := strings.TrimSpace(r.URL.Query().Get("lon"))
	if latStr == "" || lonStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing lat or lon"})
		return
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lon, errLon := strconv.ParseFloat(lonStr, 64)
	if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat or lon is not a number"})
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat or lon is out of range"})
		return
	}

	key := cache.CoordinateKey(models.Coordinates{Lat: lat, Lon: lon})
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	report, err := s.weather.CurrentWeather(r.Context(), lat, lon)
	if err != nil {
		slog.Warn("weather lookup failed", "correlation_id", CorrelationIDFrom(r.Context()), "lat", lat, "lon", lon, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to fetch weather"})
		return
	}

	s.cache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}
