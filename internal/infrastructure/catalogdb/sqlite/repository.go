// Package sqlite provides a SQLite implementation of the CatalogStore interface.
//
// Each load builds a new generation: a table entities_g<N> with its type and
// name indexes and an external-content FTS5 index entities_g<N>_fts. The row
// of catalog_generations with active = 1 names the generation queries read.
// Queries resolve the pointer and read the table inside one transaction, so
// they always see one complete generation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

// generateUUID returns a new UUID string.
func generateUUID() string {
	return uuid.New().String()
}

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

const memoryPath = ":memory:"

// Repository implements ports.CatalogStore using SQLite.
type Repository struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ ports.CatalogStore = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// NewRepository creates a new SQLite repository and ensures the generation
// table exists.
func NewRepository(cfg config.CatalogConfig, opts ...Option) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if cfg.Path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// dsn adds per-connection pragmas to the database path.
func dsn(cfg config.CatalogConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if cfg.Path != memoryPath {
		// WAL lets queries keep reading the old generation while a load writes
		params.Add("_pragma", "journal_mode(WAL)")
	}
	return cfg.Path + "?" + params.Encode()
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the generation table if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL UNIQUE,
		table_name TEXT NOT NULL DEFAULT '',
		row_count INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		activated_at TIMESTAMP
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_catalog_generations_active
		ON catalog_generations(active) WHERE active = 1;
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Ping checks that the database can be reached.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const generationColumns = `id, label, table_name, row_count, active, created_at, activated_at`

func scanGeneration(row interface{ Scan(...any) error }) (*entities.Generation, error) {
	var (
		gen       entities.Generation
		active    int
		activated sql.NullTime
	)
	if err := row.Scan(
		&gen.ID,
		&gen.Label,
		&gen.Table,
		&gen.RowCount,
		&active,
		&gen.CreatedAt,
		&activated,
	); err != nil {
		return nil, err
	}
	gen.Active = active == 1
	if activated.Valid {
		t := activated.Time
		gen.ActivatedAt = &t
	}
	return &gen, nil
}

// activeGeneration returns the active generation or ErrNoActiveGeneration.
func activeGeneration(ctx context.Context, q queryer) (*entities.Generation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+generationColumns+` FROM catalog_generations WHERE active = 1`)
	gen, err := scanGeneration(row)
	if err == sql.ErrNoRows {
		return nil, entities.ErrNoActiveGeneration
	}
	if err != nil {
		return nil, fmt.Errorf("scanning generation: %w", err)
	}
	return gen, nil
}

// ActiveGeneration returns the generation queries currently read.
func (r *Repository) ActiveGeneration(ctx context.Context) (*entities.Generation, error) {
	gen, err := activeGeneration(ctx, r.db)
	if err != nil && !errors.Is(err, entities.ErrNoActiveGeneration) {
		return nil, fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, err)
	}
	return gen, err
}

// ListGenerations lists all known generations, newest first.
func (r *Repository) ListGenerations(ctx context.Context) ([]entities.Generation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+generationColumns+` FROM catalog_generations ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()

	var result []entities.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		result = append(result, *gen)
	}
	return result, rows.Err()
}

// withSnapshot runs fn inside a read transaction against the active
// generation. fn is not called when the catalog was never loaded.
func (r *Repository) withSnapshot(ctx context.Context, fn func(tx *sql.Tx, gen *entities.Generation) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning read: %w", entities.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	gen, err := activeGeneration(ctx, tx)
	if errors.Is(err, entities.ErrNoActiveGeneration) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, err)
	}

	if err := fn(tx, gen); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, err)
	}
	return nil
}

// CountEntities returns the number of rows in the active generation.
func (r *Repository) CountEntities(ctx context.Context) (int, error) {
	var count int
	err := r.withSnapshot(ctx, func(tx *sql.Tx, gen *entities.Generation) error {
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+gen.Table).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("counting entities: %w", err)
	}
	return count, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func typeArg(t *string) any {
	if t == nil {
		return nil
	}
	return *t
}

func ftsTable(table string) string {
	return table + "_fts"
}
