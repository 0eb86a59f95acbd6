package owm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"

	directPath  = "/geo/1.0/direct"
	weatherPath = "/data/2.5/weather"

	maxErrorBody = 512
)

var (
	// ErrUpstream marks transport failures and non-200 answers.
	ErrUpstream = errors.New("openweather upstream error")
	// ErrDecode marks a body that is not JSON at all.
	ErrDecode = errors.New("openweather body is not valid JSON")
)

type Options struct {
	APIKey         string
	GeoBaseURL     string
	WeatherBaseURL string
	Timeout        time.Duration
	// RPS throttles outbound calls; zero disables throttling.
	RPS   float64
	Burst int

	HTTPClient *http.Client
}

type Client struct {
	apiKey         string
	geoBaseURL     string
	weatherBaseURL string
	httpClient     *http.Client
	limiter        *rate.Limiter
}

type httpStatusError struct {
	status int
	body   string
}

func (e httpStatusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("API returned status %d", e.status)
	}
	return fmt.Sprintf("API returned status %d: %s", e.status, e.body)
}

func (e httpStatusError) Unwrap() error { return ErrUpstream }

func isAuthFailure(err error) bool {
	var se httpStatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.status == http.StatusUnauthorized || se.status == http.StatusForbidden
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		geoBaseURL:     baseOrDefault(opts.GeoBaseURL),
		weatherBaseURL: baseOrDefault(opts.WeatherBaseURL),
		httpClient:     hc,
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c
}

func baseOrDefault(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if u == "" {
		return DefaultBaseURL
	}
	return u
}

// Mock reports whether the client serves canned data because no API key is set.
func (c *Client) Mock() bool {
	return c.apiKey == ""
}

// Direct runs a direct geocoding query and returns the raw response body.
// The body is untrusted; callers run it through ParseDirect.
func (c *Client) Direct(ctx context.Context, query string, limit int) ([]byte, error) {
	if c.Mock() {
		return mockDirect(query, limit), nil
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("appid", c.apiKey)

	body, err := c.get(ctx, c.geoBaseURL+directPath+"?"+q.Encode())
	if err != nil {
		// An invalid or not yet activated key falls back to mock data so the
		// widget stays usable.
		if isAuthFailure(err) {
			slog.Warn("geocoding key rejected, serving mock locations", "error", err)
			return mockDirect(query, limit), nil
		}
		return nil, fmt.Errorf("geocoding %q: %w", query, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("geocoding %q: %w", query, ErrDecode)
	}
	return body, nil
}

// CurrentWeather fetches and validates current conditions for a coordinate.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (models.WeatherReport, error) {
	if c.Mock() {
		return mockWeather(lat, lon), nil
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)

	body, err := c.get(ctx, c.weatherBaseURL+weatherPath+"?"+q.Encode())
	if err != nil {
		if isAuthFailure(err) {
			slog.Warn("weather key rejected, serving mock weather", "error", err)
			return mockWeather(lat, lon), nil
		}
		return models.WeatherReport{}, fmt.Errorf("fetching current weather: %w", err)
	}
	if !json.Valid(body) {
		return models.WeatherReport{}, fmt.Errorf("fetching current weather: %w", ErrDecode)
	}
	return ParseWeather(body)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, httpStatusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrUpstream, err)
	}
	return body, nil
}

// IconURL is the OpenWeather icon image for an icon code.
func IconURL(code string) string {
	if code == "" {
		return ""
	}
	return "https://openweathermap.org/img/wn/" + code + ".png"
}
