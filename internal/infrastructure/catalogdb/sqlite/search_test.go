package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

func resultNames(results []entities.SearchResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	return names
}

func TestRepository_RankedSearch_TopAndOrder(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	rows := make([]entities.Row, 0, 12)
	for i := range 12 {
		row := entities.Row{Type: entities.EntityTypeCompany, Name: fmt.Sprintf("Acme Holding %d", i)}
		if i%3 == 0 {
			row.AltNames = ptr("acme acme subsidiary")
		}
		rows = append(rows, row)
	}
	loadRows(t, repo, rows...)

	results, err := repo.RankedSearch(ctx, entities.SearchQuery{Query: "acme", Top: 5})
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, r := range results {
		require.NotNil(t, r.Score)
		require.NotNil(t, r.RankScore)
		if i > 0 {
			assert.LessOrEqual(t, *r.Score, *results[i-1].Score, "scores must not increase")
		}
	}
}

func TestRepository_RankedSearch_NameOutweighsAltNames(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	loadRows(t, repo,
		entities.Row{Type: entities.EntityTypeCompany, Name: "Zeta Industries", AltNames: ptr("formerly orion")},
		entities.Row{Type: entities.EntityTypeCompany, Name: "Orion Labs", AltNames: ptr("research")},
	)

	results, err := repo.RankedSearch(ctx, entities.SearchQuery{Query: "orion", Top: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Orion Labs", "Zeta Industries"}, resultNames(results))
	assert.Greater(t, *results[0].Score, *results[1].Score)
}

func TestRepository_RankedSearch_Matching(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	loadRows(t, repo,
		entities.Row{Type: entities.EntityTypeCompany, Name: "Acme Corp", Country: ptr("Germany")},
		entities.Row{Type: entities.EntityTypeFund, Name: "Acme Growth Fund"},
		entities.Row{Type: entities.EntityTypeCompany, Name: "Café Nero"},
		entities.Row{Type: entities.EntityTypePerson, Name: "Ada Lovelace", AltNames: ptr("Ada Lovelace Acme Corp")},
	)

	tests := []struct {
		name  string
		query entities.SearchQuery
		want  []string
	}{
		{"last word matches as prefix", entities.SearchQuery{Query: "acm", Top: 10}, []string{"Acme Corp", "Acme Growth Fund", "Ada Lovelace"}},
		{"earlier words match whole", entities.SearchQuery{Query: "acm corp", Top: 10}, []string{}},
		{"all words are required", entities.SearchQuery{Query: "acme co", Top: 10}, []string{"Acme Corp", "Ada Lovelace"}},
		{"type filter", entities.SearchQuery{Query: "acme", Type: ptr("fund"), Top: 10}, []string{"Acme Growth Fund"}},
		{"diacritics are folded", entities.SearchQuery{Query: "cafe", Top: 10}, []string{"Café Nero"}},
		{"fts syntax is literal", entities.SearchQuery{Query: `acme" OR "nero`, Top: 10}, []string{}},
		{"operators are words", entities.SearchQuery{Query: "NEAR(acme", Top: 10}, []string{}},
		{"no words", entities.SearchQuery{Query: "!!! ???", Top: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.RankedSearch(ctx, tt.query)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, resultNames(results))
		})
	}
}

func TestRepository_PrefixSearch(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	loadRows(t, repo,
		entities.Row{Type: entities.EntityTypeCompany, Name: "acme labs"},
		entities.Row{Type: entities.EntityTypeInvestor, Name: "acme capital"},
		entities.Row{Type: entities.EntityTypeCompany, Name: "100% Organic"},
		entities.Row{Type: entities.EntityTypeCompany, Name: "1000 Organic"},
		entities.Row{Type: entities.EntityTypeCompany, Name: "a_b Systems"},
		entities.Row{Type: entities.EntityTypeCompany, Name: "axb Systems"},
	)

	tests := []struct {
		name  string
		query entities.SearchQuery
		want  []string
	}{
		{"ordered by name", entities.SearchQuery{Query: "acme", Top: 10}, []string{"acme capital", "acme labs"}},
		{"ascii case is ignored", entities.SearchQuery{Query: "ACME L", Top: 10}, []string{"acme labs"}},
		{"type filter", entities.SearchQuery{Query: "acme", Type: ptr("company"), Top: 10}, []string{"acme labs"}},
		{"top limits", entities.SearchQuery{Query: "acme", Top: 1}, []string{"acme capital"}},
		{"percent is literal", entities.SearchQuery{Query: "100%", Top: 10}, []string{"100% Organic"}},
		{"underscore is literal", entities.SearchQuery{Query: "a_", Top: 10}, []string{"a_b Systems"}},
		{"no match", entities.SearchQuery{Query: "zeta", Top: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.PrefixSearch(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultNames(results))
			for _, r := range results {
				assert.Nil(t, r.Score)
				assert.Nil(t, r.RankScore)
			}
		})
	}
}

func TestMatchExpression(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme", `"acme"*`},
		{"  acme   corp ", `"acme" "corp"*`},
		{`acme" OR "x`, `"acme" "OR" "x"*`},
		{"café-nero", `"café" "nero"*`},
		{"***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, matchExpression(tt.in))
		})
	}
}
