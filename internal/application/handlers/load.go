package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ersonp/entity-catalog/internal/domain/ports"
	"github.com/ersonp/entity-catalog/internal/domain/services"
)

// LoadReport contains the result of a catalog reload.
type LoadReport struct {
	*services.LoadResult
	Stats *services.ConsolidationStats
}

// LoadHandler consolidates source feeds into a new catalog generation.
type LoadHandler struct {
	consolidator  *services.Consolidator
	loaderService *services.LoaderService
}

// NewLoadHandler creates a new load handler.
func NewLoadHandler(consolidator *services.Consolidator, loaderService *services.LoaderService) *LoadHandler {
	return &LoadHandler{
		consolidator:  consolidator,
		loaderService: loaderService,
	}
}

// Handle reads every feed and replaces the catalog with the result. When the
// load is aborted the returned report still carries the consolidation
// counters gathered so far.
func (h *LoadHandler) Handle(ctx context.Context, feeds []ports.SourceFeed, opts services.LoadOptions) (*LoadReport, error) {
	if len(feeds) == 0 {
		return nil, errors.New("no source feeds configured")
	}

	rows, stats := h.consolidator.Consolidate(ctx, feeds...)

	result, err := h.loaderService.Load(ctx, rows, opts)
	report := &LoadReport{LoadResult: result, Stats: stats}
	if err != nil {
		return report, fmt.Errorf("loading catalog: %w", err)
	}
	return report, nil
}
