package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
)

// QueryService executes searches against the catalog. Each call runs
// exactly one strategy; results are never merged and an empty ranked result
// does not fall back to prefix matching.
type QueryService struct {
	store ports.CatalogStore
}

// NewQueryService creates a new query service.
func NewQueryService(store ports.CatalogStore) *QueryService {
	return &QueryService{
		store: store,
	}
}

// Ranked runs the store's full-text search. Results keep the engine's
// relevance order.
func (s *QueryService) Ranked(ctx context.Context, q entities.SearchQuery) (*entities.SearchResponse, error) {
	q = withDefaultTop(q)

	start := timeNow()
	results, err := s.store.RankedSearch(ctx, q)
	elapsed := timeNow().Sub(start)
	if err != nil {
		return nil, fmt.Errorf("ranked search: %w", err)
	}

	return newResponse(q, entities.SourceRanked, elapsed, results), nil
}

// Prefix returns entities whose name starts with the trimmed query, ordered
// by name. Returns an entities.ErrInvalidInput error if the trimmed query is
// empty.
func (s *QueryService) Prefix(ctx context.Context, q entities.SearchQuery) (*entities.SearchResponse, error) {
	q = withDefaultTop(q)

	prefix := strings.TrimSpace(q.Query)
	if prefix == "" {
		return nil, entities.NewValidationError("query", "must not be empty")
	}

	storeQuery := q
	storeQuery.Query = prefix

	start := timeNow()
	results, err := s.store.PrefixSearch(ctx, storeQuery)
	elapsed := timeNow().Sub(start)
	if err != nil {
		return nil, fmt.Errorf("prefix search: %w", err)
	}

	for i := range results {
		results[i].Score = nil
		results[i].RankScore = nil
	}

	return newResponse(q, entities.SourcePrefix, elapsed, results), nil
}

func withDefaultTop(q entities.SearchQuery) entities.SearchQuery {
	if q.Top <= 0 {
		q.Top = entities.DefaultTop
	}
	return q
}

func newResponse(q entities.SearchQuery, source entities.SearchSource, elapsed time.Duration, results []entities.SearchResult) *entities.SearchResponse {
	if results == nil {
		results = []entities.SearchResult{}
	}
	return &entities.SearchResponse{
		Query:      q.Query,
		Type:       q.Type,
		Top:        q.Top,
		Source:     source,
		DurationMS: durationMS(elapsed),
		Results:    results,
	}
}

// durationMS converts d to milliseconds rounded to three decimals.
func durationMS(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*1000) / 1000
}

// Health checks that the catalog store can be reached.
func (s *QueryService) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("pinging catalog store: %w", err)
	}
	return nil
}

// Status returns the generation queries currently read.
func (s *QueryService) Status(ctx context.Context) (*entities.Generation, error) {
	gen, err := s.store.ActiveGeneration(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading active generation: %w", err)
	}
	return gen, nil
}
