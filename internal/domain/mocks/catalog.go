// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
)

// CatalogStore is an in-memory mock of ports.CatalogStore.
type CatalogStore struct {
	mu sync.Mutex

	// Rows is the active generation.
	Rows []entities.Row
	// Ranked is returned verbatim by RankedSearch (truncated to Top).
	Ranked []entities.SearchResult

	PingErr   error
	SearchErr error
	BeginErr  error
	// FailAfterBatches makes InsertBatch fail once this many batches succeeded.
	// Zero disables the failure.
	FailAfterBatches int

	Generations  int
	Batches      [][]entities.Row
	Aborted      int
	LastOptions  ports.GenerationOptions
	LastQuery    entities.SearchQuery
	RankedCalls  int
	PrefixCalls  int
	loadedActive bool
}

// NewCatalogStore creates a mock store with an active generation of rows.
func NewCatalogStore(rows ...entities.Row) *CatalogStore {
	return &CatalogStore{Rows: rows, loadedActive: len(rows) > 0}
}

// Ping returns PingErr.
func (m *CatalogStore) Ping(_ context.Context) error {
	return m.PingErr
}

// BeginGeneration returns a writer that swaps Rows on Commit.
func (m *CatalogStore) BeginGeneration(_ context.Context, opts ports.GenerationOptions) (ports.GenerationWriter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	if opts.ReuseSchema && !m.loadedActive {
		return nil, entities.ErrNoActiveGeneration
	}
	m.LastOptions = opts
	return &generationWriter{store: m}, nil
}

// ActiveGeneration reports the mock generation counter.
func (m *CatalogStore) ActiveGeneration(_ context.Context) (*entities.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loadedActive {
		return nil, entities.ErrNoActiveGeneration
	}
	return &entities.Generation{ID: int64(m.Generations), RowCount: len(m.Rows), Active: true}, nil
}

// RankedSearch returns Ranked filtered by type and truncated to q.Top.
func (m *CatalogStore) RankedSearch(_ context.Context, q entities.SearchQuery) ([]entities.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RankedCalls++
	m.LastQuery = q
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	result := make([]entities.SearchResult, 0, q.Top)
	for _, r := range m.Ranked {
		if q.Type != nil && r.Type != *q.Type {
			continue
		}
		if len(result) == q.Top {
			break
		}
		result = append(result, r)
	}
	return result, nil
}

// PrefixSearch matches Rows by name prefix.
func (m *CatalogStore) PrefixSearch(_ context.Context, q entities.SearchQuery) ([]entities.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrefixCalls++
	m.LastQuery = q
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	var result []entities.SearchResult
	for i, row := range m.Rows {
		if !strings.HasPrefix(row.Name, q.Query) {
			continue
		}
		if q.Type != nil && string(row.Type) != *q.Type {
			continue
		}
		result = append(result, entities.SearchResult{
			ID:       int64(i + 1),
			Type:     string(row.Type),
			Name:     row.Name,
			AltNames: row.AltNames,
			Country:  row.Country,
		})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if len(result) > q.Top {
		result = result[:q.Top]
	}
	return result, nil
}

// Close does nothing.
func (m *CatalogStore) Close() error {
	return nil
}

// ErrBatchFailed is returned by InsertBatch when FailAfterBatches is reached.
var ErrBatchFailed = errors.New("mock batch insert failed")

type generationWriter struct {
	store   *CatalogStore
	pending []entities.Row
	batches int
}

func (w *generationWriter) InsertBatch(_ context.Context, rows []entities.Row) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if w.store.FailAfterBatches > 0 && w.batches >= w.store.FailAfterBatches {
		return ErrBatchFailed
	}
	batch := append([]entities.Row(nil), rows...)
	w.store.Batches = append(w.store.Batches, batch)
	w.pending = append(w.pending, batch...)
	w.batches++
	return nil
}

func (w *generationWriter) Commit(_ context.Context) (*entities.Generation, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.Rows = w.pending
	w.store.Generations++
	w.store.loadedActive = true
	return &entities.Generation{
		ID:       int64(w.store.Generations),
		RowCount: len(w.pending),
		Active:   true,
	}, nil
}

func (w *generationWriter) Abort(_ context.Context) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.Aborted++
	return nil
}
