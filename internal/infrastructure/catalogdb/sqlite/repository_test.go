package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

func ptr[T any](v T) *T { return &v }

// setupTestRepo creates an in-memory SQLite repository for testing.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(config.CatalogConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// loadRows loads rows as a new generation.
func loadRows(t *testing.T, repo *Repository, rows ...entities.Row) *entities.Generation {
	t.Helper()
	ctx := context.Background()
	w, err := repo.BeginGeneration(ctx, ports.GenerationOptions{})
	require.NoError(t, err)
	require.NoError(t, w.InsertBatch(ctx, rows))
	gen, err := w.Commit(ctx)
	require.NoError(t, err)
	return gen
}

func companies(names ...string) []entities.Row {
	rows := make([]entities.Row, 0, len(names))
	for _, n := range names {
		rows = append(rows, entities.Row{Type: entities.EntityTypeCompany, Name: n})
	}
	return rows
}

func tableExists(t *testing.T, repo *Repository, name string) bool {
	t.Helper()
	var count int
	err := repo.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestNewRepository(t *testing.T) {
	t.Run("success with memory database", func(t *testing.T) {
		repo, err := NewRepository(config.CatalogConfig{Path: ":memory:"})
		require.NoError(t, err)
		defer repo.Close()
		assert.NotNil(t, repo)
		assert.True(t, tableExists(t, repo, "catalog_generations"))
	})

	t.Run("error with empty path", func(t *testing.T) {
		_, err := NewRepository(config.CatalogConfig{Path: ""})
		require.Error(t, err)
	})
}

func TestRepository_EnsureSchema_Idempotent(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestRepository_Ping(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, repo.Ping(context.Background()))

	require.NoError(t, repo.Close())
	err := repo.Ping(context.Background())
	require.ErrorIs(t, err, entities.ErrStoreUnavailable)
}

func TestRepository_EmptyCatalog(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.ActiveGeneration(ctx)
	require.ErrorIs(t, err, entities.ErrNoActiveGeneration)

	results, err := repo.PrefixSearch(ctx, entities.SearchQuery{Query: "Acme", Top: 10})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = repo.RankedSearch(ctx, entities.SearchQuery{Query: "Acme", Top: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRepository_LoadGeneration(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	gen := loadRows(t, repo, entities.Row{
		Type:     entities.EntityTypeCompany,
		Name:     "Acme Corp",
		AltNames: ptr("anvils acme.example"),
		Country:  ptr("Germany"),
	})

	assert.True(t, gen.Active)
	assert.Equal(t, 1, gen.RowCount)
	assert.NotEmpty(t, gen.Label)
	assert.NotNil(t, gen.ActivatedAt)
	assert.True(t, tableExists(t, repo, gen.Table))
	assert.True(t, tableExists(t, repo, "idx_"+gen.Table+"_type"))
	assert.True(t, tableExists(t, repo, "idx_"+gen.Table+"_name"))
	assert.True(t, tableExists(t, repo, gen.Table+"_fts"))

	active, err := repo.ActiveGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen.ID, active.ID)

	results, err := repo.PrefixSearch(ctx, entities.SearchQuery{Query: "Acme", Top: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)
	assert.Equal(t, "company", results[0].Type)
	require.NotNil(t, results[0].Country)
	assert.Equal(t, "Germany", *results[0].Country)
	require.NotNil(t, results[0].AltNames)
	assert.Equal(t, "anvils acme.example", *results[0].AltNames)
}

func TestRepository_Reload_ReplacesGeneration(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	first := loadRows(t, repo, companies("Old A", "Old B")...)
	second := loadRows(t, repo, companies("New A")...)

	assert.Greater(t, second.ID, first.ID)
	assert.False(t, tableExists(t, repo, first.Table))
	assert.False(t, tableExists(t, repo, first.Table+"_fts"))

	count, err := repo.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	gens, err := repo.ListGenerations(ctx)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.Equal(t, second.ID, gens[0].ID)

	// ids keep increasing across generations
	results, err := repo.PrefixSearch(ctx, entities.SearchQuery{Query: "New", Top: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].ID)
}

func TestRepository_Commit_LogsFailedCleanup(t *testing.T) {
	var logs bytes.Buffer
	repo, err := NewRepository(config.CatalogConfig{Path: ":memory:"},
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	ctx := context.Background()

	first := loadRows(t, repo, companies("Old A")...)

	_, err = repo.db.ExecContext(ctx, `
		CREATE TRIGGER keep_generations BEFORE DELETE ON catalog_generations
		BEGIN SELECT RAISE(ABORT, 'generation is pinned'); END
	`)
	require.NoError(t, err)

	second := loadRows(t, repo, companies("New A", "New B")...)
	assert.True(t, second.Active)
	assert.Contains(t, logs.String(), "dropping replaced generations")
	assert.Contains(t, logs.String(), "generation is pinned")

	active, err := repo.ActiveGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.True(t, tableExists(t, repo, first.Table))

	count, err := repo.CountEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRepository_Abort_KeepsActiveGeneration(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	active := loadRows(t, repo, companies("Keep Me")...)

	w, err := repo.BeginGeneration(ctx, ports.GenerationOptions{})
	require.NoError(t, err)
	require.NoError(t, w.InsertBatch(ctx, companies("Discard Me")))
	require.NoError(t, w.Abort(ctx))

	gen, err := repo.ActiveGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, active.ID, gen.ID)

	results, err := repo.PrefixSearch(ctx, entities.SearchQuery{Query: "", Top: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Keep Me", results[0].Name)

	gens, err := repo.ListGenerations(ctx)
	require.NoError(t, err)
	assert.Len(t, gens, 1)
}

func TestRepository_InsertBatch_RejectsInvalidRow(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	w, err := repo.BeginGeneration(ctx, ports.GenerationOptions{})
	require.NoError(t, err)
	err = w.InsertBatch(ctx, []entities.Row{{Type: entities.EntityTypeFund, Name: ""}})
	require.Error(t, err)
	require.NoError(t, w.Abort(ctx))
}

func TestRepository_ReuseSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an active generation", func(t *testing.T) {
		repo := setupTestRepo(t)
		_, err := repo.BeginGeneration(ctx, ports.GenerationOptions{ReuseSchema: true})
		require.ErrorIs(t, err, entities.ErrNoActiveGeneration)
	})

	t.Run("refills active generation in place", func(t *testing.T) {
		repo := setupTestRepo(t)
		first := loadRows(t, repo, companies("Before")...)

		w, err := repo.BeginGeneration(ctx, ports.GenerationOptions{ReuseSchema: true})
		require.NoError(t, err)
		require.NoError(t, w.InsertBatch(ctx, companies("After One")))
		require.NoError(t, w.InsertBatch(ctx, companies("After Two")))
		gen, err := w.Commit(ctx)
		require.NoError(t, err)

		assert.Equal(t, first.ID, gen.ID)
		assert.Equal(t, 2, gen.RowCount)

		results, err := repo.RankedSearch(ctx, entities.SearchQuery{Query: "after", Top: 10})
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = repo.RankedSearch(ctx, entities.SearchQuery{Query: "before", Top: 10})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("abort rolls back the clear", func(t *testing.T) {
		repo := setupTestRepo(t)
		loadRows(t, repo, companies("Survivor")...)

		w, err := repo.BeginGeneration(ctx, ports.GenerationOptions{ReuseSchema: true})
		require.NoError(t, err)
		require.NoError(t, w.InsertBatch(ctx, companies("Transient")))
		require.NoError(t, w.Abort(ctx))

		count, err := repo.CountEntities(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		results, err := repo.PrefixSearch(ctx, entities.SearchQuery{Query: "Surv", Top: 10})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestRepository_ConcurrentReloadIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	repo, err := NewRepository(config.CatalogConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	batch := func(prefix string, n int) []entities.Row {
		rows := make([]entities.Row, 0, n)
		for i := range n {
			rows = append(rows, entities.Row{Type: entities.EntityTypeFund, Name: fmt.Sprintf("%s %03d", prefix, i)})
		}
		return rows
	}

	loadRows(t, repo, batch("Gen one", 100)...)

	const readers = 4
	var (
		stop     atomic.Bool
		wg       sync.WaitGroup
		observed sync.Map
	)
	readerErrs := make(chan error, readers)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !stop.Load() {
				count, err := repo.CountEntities(ctx)
				if err != nil {
					readerErrs <- err
					return
				}
				observed.Store(count, true)
			}
		}()
	}

	w, err := repo.BeginGeneration(ctx, ports.GenerationOptions{})
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, w.InsertBatch(ctx, batch(fmt.Sprintf("Gen two %d", i), 40)))
	}
	_, err = w.Commit(ctx)
	require.NoError(t, err)

	// let readers see the new generation
	for {
		count, err := repo.CountEntities(ctx)
		require.NoError(t, err)
		if count == 200 {
			break
		}
	}
	stop.Store(true)
	wg.Wait()

	close(readerErrs)
	for err := range readerErrs {
		require.NoError(t, err)
	}
	observed.Range(func(key, _ any) bool {
		count := key.(int)
		assert.True(t, count == 100 || count == 200, "observed partial catalog of %d rows", count)
		return true
	})
}

func TestRepository_StoreErrors(t *testing.T) {
	repo := setupTestRepo(t)
	loadRows(t, repo, companies("Acme")...)
	require.NoError(t, repo.Close())

	_, err := repo.PrefixSearch(context.Background(), entities.SearchQuery{Query: "Acme", Top: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrStoreUnavailable))
}
