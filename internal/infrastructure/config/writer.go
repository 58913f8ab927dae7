package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Entity catalog configuration

catalog:
  path: catalog.db
  busy_timeout: 5s

server:
  addr: ":8000"
  read_timeout: 10s
  write_timeout: 30s
  request_timeout: 15s

loader:
  batch_size: 1000
  progress_every: 500000

# Feed locations: local paths or s3://bucket/key. .gz and .zst are decompressed.
feeds:
  companies: data/free_company_dataset_clean.tsv
  investors: data/investors.csv
  funds: data/funds.csv
  people: data/people.jsonl
  # companies_format: company-dataset (csv, tsv, jsonl, json, company-dataset)

storage:
  endpoint: localhost:9000
  use_ssl: false
  # access_key: your-access-key (or set STORAGE_ACCESS_KEY env var)
  # secret_key: your-secret-key (or set STORAGE_SECRET_KEY env var)

log:
  level: info
  format: text
`

// WriteDefault writes a default config file to path.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Exists checks if a config file exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
