package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/services"
	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

// executeCmd runs the CLI with args and returns its standard output.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), err
}

// setupWorkspace writes feeds and a config pointing at them.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	companies := write("companies.csv", "name,country,industry,website\n"+
		"Acme Corp,Germany,Manufacturing,acme.example\n"+
		"Acme Labs,France,Research,\n"+
		"Best Co,Spain,Retail,best.example\n"+
		",Nowhere,,\n")
	investors := write("investors.csv", "investor_name,pbid\nAcme Ventures,p1\n")
	funds := write("funds.jsonl", `{"fund_name": "Growth Fund I", "investor_id": "p1"}`+"\n"+"not json\n")
	people := write("people.json", `[{"full_name": "Ada Lovelace", "company_name": "Acme Corp"}]`)

	cfg := fmt.Sprintf(`catalog:
  path: %s
feeds:
  companies: %s
  investors: %s
  funds: %s
  people: %s
log:
  level: error
`, filepath.Join(dir, "catalog.db"), companies, investors, funds, people)
	write("catalog.yaml", cfg)
	return dir
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")

	out, err := executeCmd(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created "+path)

	cfg, err := config.Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Addr, cfg.Server.Addr)

	_, err = executeCmd(t, "--config", path, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config already exists")
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := executeCmd(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadAndSearch(t *testing.T) {
	dir := setupWorkspace(t)
	cfgPath := filepath.Join(dir, "catalog.yaml")

	out, err := executeCmd(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No catalog loaded")

	out, err = executeCmd(t, "--config", cfgPath, "load", "--batch-size", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 6 entities")
	assert.Contains(t, out, "company  read 4, accepted 3, dropped 1, malformed 0")
	assert.Contains(t, out, "fund     read 1, accepted 1, dropped 0, malformed 1")
	assert.Contains(t, out, "total    read 7, accepted 6, dropped 1, malformed 1")

	t.Run("prefix", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "search", "prefix", "Acme", "--json")
		require.NoError(t, err)

		var resp entities.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, entities.SourcePrefix, resp.Source)
		names := make([]string, 0, len(resp.Results))
		for _, r := range resp.Results {
			names = append(names, r.Name)
			assert.Nil(t, r.Score)
		}
		assert.Equal(t, []string{"Acme Corp", "Acme Labs", "Acme Ventures"}, names)
	})

	t.Run("prefix with type", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "search", "prefix", "Acme", "--type", "investor", "--json")
		require.NoError(t, err)

		var resp entities.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Acme Ventures", resp.Results[0].Name)
	})

	t.Run("ranked", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "search", "ranked", "acme", "--top", "2")
		require.NoError(t, err)
		assert.Contains(t, out, "Found 2 entities (ranked")
		assert.Contains(t, out, "(score ")
	})

	t.Run("ranked matches alt names", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "search", "ranked", "lovelace acme", "--json")
		require.NoError(t, err)

		var resp entities.SearchResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Ada Lovelace", resp.Results[0].Name)
		assert.Equal(t, "person", resp.Results[0].Type)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := executeCmd(t, "--config", cfgPath, "search", "prefix", "Acme", "--type", "planet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown entity type "planet"`)
	})

	t.Run("top out of range", func(t *testing.T) {
		_, err := executeCmd(t, "--config", cfgPath, "search", "ranked", "acme", "--top", "99")
		require.Error(t, err)
		assert.ErrorIs(t, err, entities.ErrInvalidInput)
	})

	t.Run("status", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Entities:   6")
		assert.Contains(t, out, "Generations:")
		assert.Regexp(t, `\d+\s+active\s+6 rows`, out)
	})

	t.Run("forced feed format", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "load", "--funds-format", "ndjson")
		require.NoError(t, err)
		assert.Contains(t, out, "Loaded 6 entities")

		_, err = executeCmd(t, "--config", cfgPath, "load", "--funds-format", "parquet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown feed format")
	})

	t.Run("reload with reuse schema", func(t *testing.T) {
		out, err := executeCmd(t, "--config", cfgPath, "load", "--reuse-schema", "--people", filepath.Join(dir, "people.json"))
		require.NoError(t, err)
		assert.Contains(t, out, "Loaded 6 entities")
	})
}

func TestLoad_AbortKeepsCatalog(t *testing.T) {
	dir := setupWorkspace(t)
	cfgPath := filepath.Join(dir, "catalog.yaml")

	_, err := executeCmd(t, "--config", cfgPath, "load")
	require.NoError(t, err)

	out, err := executeCmd(t, "--config", cfgPath, "load", "--companies", filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrLoadAborted)
	assert.Contains(t, out, "previous catalog is still active")

	out, err = executeCmd(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Entities:   6")
}

func TestRepair(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	output := filepath.Join(dir, "clean.tsv")
	require.NoError(t, os.WriteFile(input, []byte("de,1999,c1,mfg,li,berlin,Acme,51-200,acme.example\n"), 0o644))

	out, err := executeCmd(t, "--config", filepath.Join(dir, "absent.yaml"), "repair", input, output)
	require.Error(t, err, "an explicit config path must exist")

	globalArgs := []string{"repair", input, output}
	t.Chdir(dir)
	out, err = executeCmd(t, globalArgs...)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 rows")
	assert.Contains(t, out, "1 regions inserted")

	_, err = executeCmd(t, globalArgs...)
	require.Error(t, err)
}

func TestMergeFeeds(t *testing.T) {
	base := config.FeedsConfig{Companies: "a.csv", Funds: "f.csv", FundsFormat: "csv"}
	merged := mergeFeeds(base, config.FeedsConfig{Funds: "g.txt", FundsFormat: "tsv", People: "p.jsonl"})
	assert.Equal(t, config.FeedsConfig{
		Companies:   "a.csv",
		Funds:       "g.txt",
		FundsFormat: "tsv",
		People:      "p.jsonl",
	}, merged)
}

func TestPrintStats(t *testing.T) {
	stats := &services.ConsolidationStats{ByType: map[entities.EntityType]*services.FeedStats{
		entities.EntityTypeCompany:  {Read: 2, Accepted: 2},
		entities.EntityTypeInvestor: {},
		entities.EntityTypeFund:     {Malformed: 3},
	}}

	var buf bytes.Buffer
	printStats(&buf, stats)
	out := buf.String()

	assert.Contains(t, out, "company  read 2, accepted 2, dropped 0, malformed 0")
	assert.Contains(t, out, "fund     read 0, accepted 0, dropped 0, malformed 3")
	assert.Contains(t, out, "total    read 2, accepted 2, dropped 0, malformed 3")
	assert.NotContains(t, out, "investor")
}
