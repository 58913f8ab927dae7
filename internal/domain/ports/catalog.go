// Package ports defines the interfaces the domain depends on.
package ports

import (
	"context"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

// GenerationOptions controls how a new catalog generation is prepared.
type GenerationOptions struct {
	// ReuseSchema loads into the active generation's tables instead of
	// building a new generation. The clear and all inserts then run in a
	// single transaction.
	ReuseSchema bool
}

// CatalogStore is the persisted, queryable catalog.
type CatalogStore interface {
	// Ping checks that the store can be reached.
	Ping(ctx context.Context) error

	// BeginGeneration prepares an empty generation to load rows into.
	// Readers keep seeing the active generation until Commit.
	BeginGeneration(ctx context.Context, opts GenerationOptions) (GenerationWriter, error)

	// ActiveGeneration returns the generation queries currently read.
	// Returns entities.ErrNoActiveGeneration if the catalog was never loaded.
	ActiveGeneration(ctx context.Context) (*entities.Generation, error)

	// RankedSearch runs the engine's full-text search and returns at most
	// q.Top results in descending relevance order.
	RankedSearch(ctx context.Context, q entities.SearchQuery) ([]entities.SearchResult, error)

	// PrefixSearch returns at most q.Top entities whose name starts with
	// q.Query, ordered by name ascending.
	PrefixSearch(ctx context.Context, q entities.SearchQuery) ([]entities.SearchResult, error)

	// Close closes the store.
	Close() error
}

// GenerationWriter receives the rows of one generation.
type GenerationWriter interface {
	// InsertBatch appends rows to the generation.
	InsertBatch(ctx context.Context, rows []entities.Row) error

	// Commit makes the generation the active one.
	Commit(ctx context.Context) (*entities.Generation, error)

	// Abort discards the generation. The active generation is untouched.
	Abort(ctx context.Context) error
}
