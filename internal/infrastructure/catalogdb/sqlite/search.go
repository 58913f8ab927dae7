package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

// Column weights of the ranked score: a name hit counts ten times an
// alt_names hit.
const (
	nameWeight    = 10.0
	altNameWeight = 1.0
)

// RankedSearch matches the query words against name and alt_names with
// FTS5. The last word also matches as a prefix. Results are ordered by the
// weighted BM25 score (Score); RankScore is the unweighted BM25 score.
func (r *Repository) RankedSearch(ctx context.Context, q entities.SearchQuery) ([]entities.SearchResult, error) {
	match := matchExpression(q.Query)
	if match == "" {
		return []entities.SearchResult{}, nil
	}

	results := make([]entities.SearchResult, 0, q.Top)
	err := r.withSnapshot(ctx, func(tx *sql.Tx, gen *entities.Generation) error {
		fts := ftsTable(gen.Table)
		query := fmt.Sprintf(`
			SELECT e.id, e.type, e.name, e.alt_names, e.country,
				-bm25(%[2]s, %[3]g, %[4]g) AS score,
				-bm25(%[2]s, 1.0, 1.0) AS rank_score
			FROM %[2]s
			JOIN %[1]s AS e ON e.id = %[2]s.rowid
			WHERE %[2]s MATCH ?
				AND (? IS NULL OR e.type = ?)
			ORDER BY score DESC, e.id ASC
			LIMIT ?
		`, gen.Table, fts, nameWeight, altNameWeight)

		rows, err := tx.QueryContext(ctx, query, match, typeArg(q.Type), typeArg(q.Type), q.Top)
		if err != nil {
			return fmt.Errorf("ranked search: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				res               entities.SearchResult
				altNames, country sql.NullString
				score, rankScore  float64
			)
			if err := rows.Scan(&res.ID, &res.Type, &res.Name, &altNames, &country, &score, &rankScore); err != nil {
				return fmt.Errorf("scanning result: %w", err)
			}
			res.AltNames = nullString(altNames)
			res.Country = nullString(country)
			res.Score = &score
			res.RankScore = &rankScore
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PrefixSearch returns entities whose name starts with q.Query, ordered by
// name. Matching follows SQLite LIKE, which ignores ASCII case.
func (r *Repository) PrefixSearch(ctx context.Context, q entities.SearchQuery) ([]entities.SearchResult, error) {
	results := make([]entities.SearchResult, 0, q.Top)
	err := r.withSnapshot(ctx, func(tx *sql.Tx, gen *entities.Generation) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, type, name, alt_names, country
			FROM `+gen.Table+`
			WHERE name LIKE ? ESCAPE '\'
				AND (? IS NULL OR type = ?)
			ORDER BY name ASC, id ASC
			LIMIT ?
		`, escapeLike(q.Query)+"%", typeArg(q.Type), typeArg(q.Type), q.Top)
		if err != nil {
			return fmt.Errorf("prefix search: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				res               entities.SearchResult
				altNames, country sql.NullString
			)
			if err := rows.Scan(&res.ID, &res.Type, &res.Name, &altNames, &country); err != nil {
				return fmt.Errorf("scanning result: %w", err)
			}
			res.AltNames = nullString(altNames)
			res.Country = nullString(country)
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// matchExpression turns free text into an FTS5 query of quoted words. The
// last word matches as a prefix. Returns "" when the text has no words.
func matchExpression(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('"')
		b.WriteString(w)
		b.WriteByte('"')
		if i == len(words)-1 {
			b.WriteByte('*')
		}
	}
	return b.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
