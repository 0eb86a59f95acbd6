// Package country resolves ISO 3166-1 alpha-2 codes into country metadata.
package country

import (
	"strconv"
	"strings"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Lookup is the country lookup service used by the geocoding mapper.
type Lookup interface {
	Resolve(code string) (models.Country, bool)
}

// Registry resolves codes against the CLDR region data bundled with x/text.
type Registry struct {
	namer display.Namer
}

func NewRegistry() *Registry {
	return &Registry{namer: display.English.Regions()}
}

func (r *Registry) Resolve(code string) (models.Country, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || !isAlpha(code) {
		return models.Country{}, false
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return models.Country{}, false
	}

	c := models.Country{
		Code: region.String(),
		ISO3: region.ISO3(),
		Name: r.namer.Name(region),
	}
	if m49 := region.M49(); m49 > 0 {
		c.Numeric = leftPad(strconv.Itoa(m49), 3)
	}
	if unit, ok := currency.FromRegion(region); ok {
		c.Currency = unit.String()
	}
	if c.Name == "" {
		c.Name = c.Code
	}
	return c, true
}

// Static is a fixed table, handy for tests and mock upstreams.
type Static map[string]models.Country

func (s Static) Resolve(code string) (models.Country, bool) {
	c, ok := s[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}
