package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
)

// BeginGeneration prepares a generation to load rows into.
//
// By default a new, empty generation is created next to the active one and
// each batch is committed on its own; the generation only becomes visible
// at Commit. With ReuseSchema the active generation's tables are cleared and
// refilled inside one transaction instead.
func (r *Repository) BeginGeneration(ctx context.Context, opts ports.GenerationOptions) (ports.GenerationWriter, error) {
	if opts.ReuseSchema {
		return r.beginReuse(ctx)
	}

	// Leftovers of aborted or interrupted loads.
	if err := r.dropInactiveGenerations(ctx); err != nil {
		return nil, err
	}

	gen, err := r.createGeneration(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, err)
	}

	return &generationWriter{repo: r, gen: gen}, nil
}

func (r *Repository) createGeneration(ctx context.Context) (*entities.Generation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := timeNow().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_generations (label, created_at) VALUES (?, ?)`,
		generateUUID(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("registering generation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading generation id: %w", err)
	}

	table := fmt.Sprintf("entities_g%d", id)
	if _, err := tx.ExecContext(ctx,
		`UPDATE catalog_generations SET table_name = ? WHERE id = ?`, table, id,
	); err != nil {
		return nil, fmt.Errorf("naming generation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, generationSchema(table)); err != nil {
		return nil, fmt.Errorf("creating generation tables: %w", err)
	}

	// Continue entity ids from the active generation.
	if prev, err := activeGeneration(ctx, tx); err == nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sqlite_sequence (name, seq)
			SELECT ?, seq FROM sqlite_sequence WHERE name = ?
		`, table, prev.Table); err != nil {
			return nil, fmt.Errorf("seeding entity ids: %w", err)
		}
	} else if !errors.Is(err, entities.ErrNoActiveGeneration) {
		return nil, err
	}

	gen, err := scanGeneration(tx.QueryRowContext(ctx,
		`SELECT `+generationColumns+` FROM catalog_generations WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reading generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing generation: %w", err)
	}
	return gen, nil
}

// generationSchema returns the DDL of one generation. The FTS index is an
// external-content table over name and alt_names keyed by entity id.
func generationSchema(table string) string {
	fts := ftsTable(table)
	return fmt.Sprintf(`
	CREATE TABLE %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL CHECK (length(type) <= 20),
		name TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 256),
		alt_names TEXT,
		country TEXT CHECK (country IS NULL OR length(country) <= 64),
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX idx_%[1]s_type ON %[1]s(type);
	CREATE INDEX idx_%[1]s_name ON %[1]s(name);
	CREATE VIRTUAL TABLE %[2]s USING fts5(
		name,
		alt_names,
		content='%[1]s',
		content_rowid='id',
		tokenize='unicode61 remove_diacritics 2',
		prefix='2 3'
	);
	`, table, fts)
}

func (r *Repository) beginReuse(ctx context.Context) (ports.GenerationWriter, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", entities.ErrStoreUnavailable, err)
	}

	gen, err := activeGeneration(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %[1]s(%[1]s) VALUES ('delete-all')`, ftsTable(gen.Table))); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("clearing search index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+gen.Table); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("clearing entities: %w", err)
	}

	return &generationWriter{repo: r, gen: gen, tx: tx}, nil
}

// dropInactiveGenerations removes every generation that is not active.
func (r *Repository) dropInactiveGenerations(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id, table_name FROM catalog_generations WHERE active = 0`)
	if err != nil {
		return fmt.Errorf("%w: listing inactive generations: %w", entities.ErrStoreUnavailable, err)
	}

	type stale struct {
		id    int64
		table string
	}
	var drop []stale
	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.id, &s.table); err != nil {
			rows.Close()
			return fmt.Errorf("scanning generation: %w", err)
		}
		drop = append(drop, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing inactive generations: %w", err)
	}

	for _, s := range drop {
		if err := r.dropGeneration(ctx, s.id, s.table); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) dropGeneration(ctx context.Context, id int64, table string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if table != "" {
		stmts := []string{
			`DROP TABLE IF EXISTS ` + ftsTable(table),
			`DROP TABLE IF EXISTS ` + table,
			`DELETE FROM sqlite_sequence WHERE name = '` + table + `'`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("dropping generation %d: %w", id, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_generations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting generation %d: %w", id, err)
	}
	return tx.Commit()
}

// generationWriter loads rows into one generation. tx is set when the
// active generation is being refilled in place.
type generationWriter struct {
	repo  *Repository
	gen   *entities.Generation
	tx    *sql.Tx
	total int
}

// InsertBatch inserts rows into the generation table and its search index.
func (w *generationWriter) InsertBatch(ctx context.Context, rows []entities.Row) error {
	if w.tx != nil {
		if err := insertRows(ctx, w.tx, w.gen.Table, rows); err != nil {
			return err
		}
		w.total += len(rows)
		return nil
	}

	tx, err := w.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", entities.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if err := insertRows(ctx, tx, w.gen.Table, rows); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	w.total += len(rows)
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, rows []entities.Row) error {
	entityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+table+` (type, name, alt_names, country, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer entityStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+ftsTable(table)+` (rowid, name, alt_names)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing search index insert: %w", err)
	}
	defer ftsStmt.Close()

	now := timeNow().UTC()
	for _, row := range rows {
		res, err := entityStmt.ExecContext(ctx,
			string(row.Type),
			row.Name,
			typeArg(row.AltNames),
			typeArg(row.Country),
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting entity %q: %w", row.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading entity id: %w", err)
		}
		if _, err := ftsStmt.ExecContext(ctx, id, row.Name, typeArg(row.AltNames)); err != nil {
			return fmt.Errorf("indexing entity %q: %w", row.Name, err)
		}
	}
	return nil
}

// Commit activates the generation and drops the one it replaces.
func (w *generationWriter) Commit(ctx context.Context) (*entities.Generation, error) {
	if w.tx != nil {
		return w.commitReuse(ctx)
	}

	tx, err := w.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning transaction: %w", entities.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	now := timeNow().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE catalog_generations SET active = 0 WHERE active = 1`); err != nil {
		return nil, fmt.Errorf("deactivating generation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE catalog_generations
		SET active = 1, row_count = ?, activated_at = ?
		WHERE id = ?
	`, w.total, now, w.gen.ID); err != nil {
		return nil, fmt.Errorf("activating generation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing swap: %w", err)
	}

	w.gen.Active = true
	w.gen.RowCount = w.total
	w.gen.ActivatedAt = &now

	// The swap is done; a failed cleanup is retried by the next load.
	if err := w.repo.dropInactiveGenerations(context.WithoutCancel(ctx)); err != nil {
		w.repo.logger.Warn("dropping replaced generations", "generation", w.gen.ID, "error", err)
	}

	return w.gen, nil
}

func (w *generationWriter) commitReuse(ctx context.Context) (*entities.Generation, error) {
	now := timeNow().UTC()
	if _, err := w.tx.ExecContext(ctx, `
		UPDATE catalog_generations SET row_count = ?, activated_at = ? WHERE id = ?
	`, w.total, now, w.gen.ID); err != nil {
		return nil, fmt.Errorf("updating generation: %w", err)
	}
	if err := w.tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reload: %w", err)
	}
	w.tx = nil

	w.gen.RowCount = w.total
	w.gen.ActivatedAt = &now
	return w.gen, nil
}

// Abort discards the generation. The active generation is untouched.
func (w *generationWriter) Abort(ctx context.Context) error {
	if w.tx != nil {
		err := w.tx.Rollback()
		w.tx = nil
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			return fmt.Errorf("rolling back reload: %w", err)
		}
		return nil
	}
	return w.repo.dropGeneration(ctx, w.gen.ID, w.gen.Table)
}
