package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/owm"

	"github.com/go-playground/validator/v10"
)

// ReasonInvalidPayload is the error reason the location API uses for schema violations.
const ReasonInvalidPayload = "invalid_payload"

var validate = validator.New(validator.WithRequiredStructEnabled())

// RemoteGateway searches through a running citysearch service's location API
// instead of calling the upstream directly.
type RemoteGateway struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteGateway(baseURL string, timeout time.Duration) *RemoteGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type remoteCountry struct {
	Code     *string `json:"countryCode" validate:"required"`
	ISO3     string  `json:"iso3"`
	Numeric  string  `json:"numeric"`
	Name     *string `json:"name" validate:"required"`
	Currency string  `json:"currency"`
}

type remoteCity struct {
	Name    *string        `json:"name" validate:"required"`
	Country *remoteCountry `json:"country" validate:"required"`
	Lat     *float64       `json:"lat" validate:"required"`
	Lon     *float64       `json:"lon" validate:"required"`
}

type remoteResult struct {
	Query  string        `json:"query"`
	Cities []*remoteCity `json:"cities" validate:"required"`
}

type remoteError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (g *RemoteGateway) Search(ctx context.Context, query string) (models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return models.SearchResult{Query: query, Cities: []models.City{}}, nil
	}

	u := g.baseURL + "/api/location/" + url.PathEscape(strings.TrimSpace(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.SearchResult{}, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("search %q: %w: %w", query, ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SearchResult{}, fmt.Errorf("search %q: %w: %w", query, ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		var re remoteError
		_ = json.Unmarshal(body, &re)
		if re.Reason == ReasonInvalidPayload {
			return models.SearchResult{}, fmt.Errorf("search %q: %w: %s", query, owm.ErrInvalidPayload, re.Error)
		}
		return models.SearchResult{}, fmt.Errorf("search %q: %w: status %d", query, ErrUpstream, resp.StatusCode)
	}

	if !json.Valid(body) {
		return models.SearchResult{}, fmt.Errorf("search %q: %w: %w", query, ErrUpstream, owm.ErrDecode)
	}
	var rr remoteResult
	if err := json.Unmarshal(body, &rr); err != nil {
		return models.SearchResult{}, fmt.Errorf("search %q: %w: %w", query, owm.ErrInvalidPayload, err)
	}
	if err := validate.Struct(&rr); err != nil {
		return models.SearchResult{}, fmt.Errorf("search %q: %w: %w", query, owm.ErrInvalidPayload, err)
	}

	out := models.SearchResult{Query: query, Cities: make([]models.City, 0, len(rr.Cities))}
	for i, c := range rr.Cities {
		if c == nil {
			return models.SearchResult{}, fmt.Errorf("search %q: %w: city %d is null", query, owm.ErrInvalidPayload, i)
		}
		if err := validate.Struct(c); err != nil {
			return models.SearchResult{}, fmt.Errorf("search %q: %w: city %d: %w", query, owm.ErrInvalidPayload, i, err)
		}
		if err := validate.Struct(c.Country); err != nil {
			return models.SearchResult{}, fmt.Errorf("search %q: %w: city %d: %w", query, owm.ErrInvalidPayload, i, err)
		}
		out.Cities = append(out.Cities, models.City{
			Name: *c.Name,
			Country: models.Country{
				Code:     *c.Country.Code,
				ISO3:     c.Country.ISO3,
				Numeric:  c.Country.Numeric,
				Name:     *c.Country.Name,
				Currency: c.Country.Currency,
			},
			Lat: *c.Lat,
			Lon: *c.Lon,
		})
	}
	return out, nil
}

// Weather loads the weather detail for a committed coordinate from the service.
func (g *RemoteGateway) Weather(ctx context.Context, at models.Coordinates) (models.WeatherReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+at.WeatherPath(), nil)
	if err != nil {
		return models.WeatherReport{}, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return models.WeatherReport{}, fmt.Errorf("weather: %w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.WeatherReport{}, fmt.Errorf("weather: %w: status %d", ErrUpstream, resp.StatusCode)
	}
	var report models.WeatherReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return models.WeatherReport{}, fmt.Errorf("weather: %w: %w", ErrUpstream, err)
	}
	return report, nil
}
