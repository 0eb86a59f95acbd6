package models

import (
	"net/url"
	"strconv"
)

type Country struct {
	Code     string `json:"countryCode"`
	ISO3     string `json:"iso3,omitempty"`
	Numeric  string `json:"numeric,omitempty"`
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
}

// City is a geocoding candidate whose country code resolved to known metadata.
type City struct {
	Name    string  `json:"name"`
	Country Country `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (c City) Coordinates() Coordinates {
	return Coordinates{Lat: c.Lat, Lon: c.Lon}
}

// Label is the dropdown text for a candidate.
func (c City) Label() string {
	return c.Name + ", " + c.Country.Code
}

type SearchResult struct {
	Query  string `json:"query"`
	Cities []City `json:"cities"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherPath is the navigation target for the weather page.
func (c Coordinates) WeatherPath() string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	return "/weather?" + q.Encode()
}

type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IconURL     string `json:"icon_url"`
}

type WeatherReport struct {
	City       string      `json:"city"`
	Country    string      `json:"country"`
	Lat        float64     `json:"lat"`
	Lon        float64     `json:"lon"`
	TempC      float64     `json:"temp_c"`
	FeelsLikeC float64     `json:"feels_like_c"`
	HiC        float64     `json:"hi_c"`
	LoC        float64     `json:"lo_c"`
	Pressure   float64     `json:"pressure"`
	WindSpeed  float64     `json:"wind_speed"`
	Conditions []Condition `json:"conditions"`
}
