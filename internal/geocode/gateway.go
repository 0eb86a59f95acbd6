// Package geocode turns a settled query into a validated candidate list.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PetoAdam/homenavi/citysearch/internal/models"
	"github.com/PetoAdam/homenavi/citysearch/internal/observability"
	"github.com/PetoAdam/homenavi/citysearch/internal/owm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultLimit caps the number of candidates asked from the upstream.
const DefaultLimit = 5

// ErrUpstream marks transport failures: unreachable upstream, non-200 answers and
// bodies that are not JSON. Schema violations are reported as owm.ErrInvalidPayload.
var ErrUpstream = errors.New("geocoding upstream unavailable")

// Searcher is what the search controller and the HTTP API need from a gateway.
type Searcher interface {
	Search(ctx context.Context, query string) (models.SearchResult, error)
}

// Directory is the upstream direct geocoding call. *owm.Client implements it.
type Directory interface {
	Direct(ctx context.Context, query string, limit int) ([]byte, error)
}

type Gateway struct {
	upstream Directory
	mapper   *Mapper
	limit    int
}

func NewGateway(upstream Directory, mapper *Mapper, limit int) *Gateway {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Gateway{upstream: upstream, mapper: mapper, limit: limit}
}

// Search issues exactly one upstream request for a non-empty query. Blank
// queries return an empty result without touching the network.
func (g *Gateway) Search(ctx context.Context, query string) (models.SearchResult, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		observability.GeocodeRequests.WithLabelValues("empty").Inc()
		return models.SearchResult{Query: query, Cities: []models.City{}}, nil
	}

	ctx, span := otel.Tracer("citysearch/geocode").Start(ctx, "geocode.search")
	defer span.End()
	span.SetAttributes(attribute.String("geocode.query", term), attribute.Int("geocode.limit", g.limit))

	body, err := g.upstream.Direct(ctx, term, g.limit)
	if err == nil {
		var locs []owm.Location
		locs, err = owm.ParseDirect(body)
		if err == nil {
			res := g.mapper.Map(query, locs)
			span.SetAttributes(attribute.Int("geocode.results", len(res.Cities)))
			observability.GeocodeRequests.WithLabelValues("ok").Inc()
			return res, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, owm.ErrInvalidPayload) {
		observability.GeocodeRequests.WithLabelValues("invalid_payload").Inc()
		slog.Warn("geocoding payload rejected", "query", term, "error", err)
		return models.SearchResult{}, fmt.Errorf("search %q: %w", term, err)
	}
	observability.GeocodeRequests.WithLabelValues("upstream").Inc()
	slog.Warn("geocoding request failed", "query", term, "error", err)
	return models.SearchResult{}, fmt.Errorf("search %q: %w: %w", term, ErrUpstream, err)
}
