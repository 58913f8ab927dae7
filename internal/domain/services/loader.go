package services

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
)

// DefaultBatchSize is the number of rows sent to the store per insert.
const DefaultBatchSize = 1000

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// LoadOptions controls a catalog reload.
type LoadOptions struct {
	// BatchSize bounds the rows held in memory and sent per insert.
	BatchSize int
	// ReuseSchema keeps the active generation's tables instead of building
	// a new generation.
	ReuseSchema bool
	// ProgressEvery logs progress every N inserted rows. Zero disables it.
	ProgressEvery int
}

// LoadResult contains the result of a catalog reload.
type LoadResult struct {
	Inserted   int
	Generation *entities.Generation
	Duration   time.Duration
}

// LoaderService replaces the catalog with a new generation of rows.
type LoaderService struct {
	store  ports.CatalogStore
	logger *slog.Logger
}

// LoaderOption configures a LoaderService.
type LoaderOption func(*LoaderService)

// WithLoaderLogger sets the logger. Default is slog.Default().
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(s *LoaderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewLoaderService creates a new loader service.
func NewLoaderService(store ports.CatalogStore, opts ...LoaderOption) *LoaderService {
	s := &LoaderService{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load writes rows into a new generation and activates it on success.
//
// If a batch insert or the row sequence fails, the generation is aborted and
// a *entities.LoadAbortedError with the number of rows inserted so far is
// returned. The previously active generation stays in place; retrying means
// running the whole load again.
func (s *LoaderService) Load(ctx context.Context, rows iter.Seq2[entities.Row, error], opts LoadOptions) (*LoadResult, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	start := timeNow()

	writer, err := s.store.BeginGeneration(ctx, ports.GenerationOptions{ReuseSchema: opts.ReuseSchema})
	if err != nil {
		return nil, fmt.Errorf("preparing catalog generation: %w", err)
	}

	inserted := 0
	nextProgress := opts.ProgressEvery
	batch := make([]entities.Row, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := writer.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}
		inserted += len(batch)
		batch = batch[:0]
		if opts.ProgressEvery > 0 && inserted >= nextProgress {
			s.logger.Info("catalog load progress", "inserted", inserted)
			nextProgress += opts.ProgressEvery
		}
		return nil
	}

	for row, rowErr := range rows {
		if rowErr != nil {
			return nil, s.abort(ctx, writer, inserted, fmt.Errorf("reading source rows: %w", rowErr))
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, s.abort(ctx, writer, inserted, err)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, s.abort(ctx, writer, inserted, err)
	}

	gen, err := writer.Commit(ctx)
	if err != nil {
		return nil, s.abort(ctx, writer, inserted, fmt.Errorf("activating generation: %w", err))
	}

	result := &LoadResult{
		Inserted:   inserted,
		Generation: gen,
		Duration:   timeNow().Sub(start),
	}
	s.logger.Info("catalog loaded",
		"inserted", inserted,
		"generation", gen.ID,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *LoaderService) abort(ctx context.Context, writer ports.GenerationWriter, inserted int, cause error) error {
	if err := writer.Abort(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("discarding aborted generation", "error", err)
	}
	s.logger.Error("catalog load aborted", "inserted", inserted, "error", cause)
	return &entities.LoadAbortedError{Inserted: inserted, Err: cause}
}
