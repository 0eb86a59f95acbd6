package owm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayload rejects a whole upstream response whose shape does not match.
var ErrInvalidPayload = errors.New("invalid upstream payload")

var validate = validator.New(validator.WithRequiredStructEnabled())

// PayloadError describes why a payload was rejected. Index is -1 when the
// problem is with the document as a whole.
type PayloadError struct {
	Index int
	Err   error
}

func (e *PayloadError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", ErrInvalidPayload, e.Err)
	}
	return fmt.Sprintf("%s: record %d: %v", ErrInvalidPayload, e.Index, e.Err)
}

func (e *PayloadError) Unwrap() []error {
	return []error{ErrInvalidPayload, e.Err}
}

// Location is one validated record of a direct geocoding answer.
type Location struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
}

// Pointer fields let the validator tell a missing or null field from a zero value.
type directRecord struct {
	Name    *string  `json:"name" validate:"required"`
	Country *string  `json:"country" validate:"required"`
	Lat     *float64 `json:"lat" validate:"required"`
	Lon     *float64 `json:"lon" validate:"required"`
}

// ParseDirect validates a direct geocoding body: a JSON array of objects each
// carrying name, country, lat and lon with the right types. Any deviation
// rejects the whole batch.
func ParseDirect(body []byte) ([]Location, error) {
	if !json.Valid(body) {
		return nil, ErrDecode
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &PayloadError{Index: -1, Err: errors.New("expected a JSON array")}
	}

	var records []*directRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &PayloadError{Index: -1, Err: err}
	}

	out := make([]Location, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			return nil, &PayloadError{Index: i, Err: errors.New("expected an object")}
		}
		if err := validate.Struct(rec); err != nil {
			return nil, &PayloadError{Index: i, Err: err}
		}
		out = append(out, Location{Name: *rec.Name, Country: *rec.Country, Lat: *rec.Lat, Lon: *rec.Lon})
	}
	return out, nil
}

type weatherCoord struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lon *float64 `json:"lon" validate:"required"`
}

type weatherCondition struct {
	ID          *int    `json:"id" validate:"required"`
	Main        *string `json:"main" validate:"required"`
	Description *string `json:"description" validate:"required"`
	Icon        *string `json:"icon" validate:"required"`
}

type weatherMain struct {
	Temp      *float64 `json:"temp" validate:"required"`
	FeelsLike *float64 `json:"feels_like" validate:"required"`
	TempMin   *float64 `json:"temp_min" validate:"required"`
	TempMax   *float64 `json:"temp_max" validate:"required"`
	Pressure  *float64 `json:"pressure" validate:"required"`
}

type weatherWind struct {
	Speed *float64 `json:"speed" validate:"required"`
}

type weatherSys struct {
	Country *string `json:"country" validate:"required"`
}

type weatherPayload struct {
	Coord   weatherCoord       `json:"coord"`
	Weather []weatherCondition `json:"weather" validate:"required,dive"`
	Main    weatherMain        `json:"main"`
	Wind    weatherWind        `json:"wind"`
	Sys     weatherSys         `json:"sys"`
	Name    *string            `json:"name" validate:"required"`
}

// ParseWeather validates a current weather body and maps it to a report.
func ParseWeather(body []byte) (models.WeatherReport, error) {
	if !json.Valid(body) {
		return models.WeatherReport{}, ErrDecode
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '{' {
		return models.WeatherReport{}, &PayloadError{Index: -1, Err: errors.New("expected a JSON object")}
	}

	var p weatherPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.WeatherReport{}, &PayloadError{Index: -1, Err: err}
	}
	if err := validate.Struct(&p); err != nil {
		return models.WeatherReport{}, &PayloadError{Index: -1, Err: err}
	}

	report := models.WeatherReport{
		City:       *p.Name,
		Country:    *p.Sys.Country,
		Lat:        *p.Coord.Lat,
		Lon:        *p.Coord.Lon,
		TempC:      *p.Main.Temp,
		FeelsLikeC: *p.Main.FeelsLike,
		HiC:        *p.Main.TempMax,
		LoC:        *p.Main.TempMin,
		Pressure:   *p.Main.Pressure,
		WindSpeed:  *p.Wind.Speed,
		Conditions: make([]models.Condition, 0, len(p.Weather)),
	}
	for _, w := range p.Weather {
		report.Conditions = append(report.Conditions, models.Condition{
			Main:        *w.Main,
			Description: *w.Description,
			Icon:        *w.Icon,
			IconURL:     IconURL(*w.Icon),
		})
	}
	return report, nil
}
