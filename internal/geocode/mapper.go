package geocode

import (
	"log/slog"

	"github.com/PetoAdam/homenavi/citysearch/internal/country"
	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/observability"
	"github.com/PetoAdam/homenavi/citysearch/internal/owm"
)

// Mapper turns validated upstream records into candidates. Records whose
// country code does not resolve are left out; that is not an error.
type Mapper struct {
	countries country.Lookup
}

func NewMapper(countries country.Lookup) *Mapper {
	return &Mapper{countries: countries}
}

func (m *Mapper) Map(query string, locs []owm.Location) models.SearchResult {
	cities := make([]models.City, 0, len(locs))
	for _, loc := range locs {
		c, ok := m.countries.Resolve(loc.Country)
		if !ok {
			slog.Debug("dropping geocoding record with unknown country", "name", loc.Name, "country", loc.Country)
			observability.DroppedCities.Inc()
			continue
		}
		cities = append(cities, models.City{Name: loc.Name, Country: c, Lat: loc.Lat, Lon: loc.Lon})
	}
	return models.SearchResult{Query: query, Cities: cities}
}
