// Package handlers contains the application-level entry points used by the
// CLI and the HTTP API.
package handlers

import (
	"context"
	"unicode/utf8"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/services"
)

// SearchRequest is a search request as received from a caller.
type SearchRequest struct {
	Query string  `json:"query"`
	Type  *string `json:"type,omitempty"`
	Top   *int    `json:"top,omitempty"`
}

// Validate checks the request bounds and returns the query to execute.
// An empty type is treated as no filter.
func (r SearchRequest) Validate() (entities.SearchQuery, error) {
	n := utf8.RuneCountInString(r.Query)
	if n < entities.MinQueryLength || n > entities.MaxQueryLength {
		return entities.SearchQuery{}, entities.NewValidationError("query",
			"length must be between %d and %d characters", entities.MinQueryLength, entities.MaxQueryLength)
	}

	var typ *string
	if r.Type != nil && *r.Type != "" {
		if utf8.RuneCountInString(*r.Type) > entities.MaxTypeLength {
			return entities.SearchQuery{}, entities.NewValidationError("type",
				"length must be at most %d characters", entities.MaxTypeLength)
		}
		t := *r.Type
		typ = &t
	}

	top := entities.DefaultTop
	if r.Top != nil {
		top = *r.Top
		if top < entities.MinTop || top > entities.MaxTop {
			return entities.SearchQuery{}, entities.NewValidationError("top",
				"must be between %d and %d", entities.MinTop, entities.MaxTop)
		}
	}

	return entities.SearchQuery{Query: r.Query, Type: typ, Top: top}, nil
}

// SearchHandler validates search requests and runs them.
type SearchHandler struct {
	queryService *services.QueryService
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(queryService *services.QueryService) *SearchHandler {
	return &SearchHandler{
		queryService: queryService,
	}
}

// HandleRanked runs a ranked full-text search.
func (h *SearchHandler) HandleRanked(ctx context.Context, req SearchRequest) (*entities.SearchResponse, error) {
	return h.run(ctx, req, h.queryService.Ranked)
}

// HandlePrefix runs a name prefix search.
func (h *SearchHandler) HandlePrefix(ctx context.Context, req SearchRequest) (*entities.SearchResponse, error) {
	return h.run(ctx, req, h.queryService.Prefix)
}

// run validates req and executes it. The response echoes the requested
// type, including an empty one.
func (h *SearchHandler) run(
	ctx context.Context,
	req SearchRequest,
	search func(context.Context, entities.SearchQuery) (*entities.SearchResponse, error),
) (*entities.SearchResponse, error) {
	q, err := req.Validate()
	if err != nil {
		return nil, err
	}
	resp, err := search(ctx, q)
	if err != nil {
		return nil, err
	}
	if req.Type != nil {
		typ := *req.Type
		resp.Type = &typ
	}
	return resp, nil
}

// HandleHealth checks the catalog store connection.
func (h *SearchHandler) HandleHealth(ctx context.Context) error {
	return h.queryService.Health(ctx)
}

// HandleStatus returns the active catalog generation.
func (h *SearchHandler) HandleStatus(ctx context.Context) (*entities.Generation, error) {
	return h.queryService.Status(ctx)
}
