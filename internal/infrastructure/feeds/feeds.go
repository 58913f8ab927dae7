// Package feeds reads the source feeds of the catalog.
//
// A feed is a location (local path or s3://bucket/key, optionally .gz or
// .zst compressed) holding the records of one entity type as CSV, TSV,
// JSON lines or a JSON array. Columns are matched by name, ignoring case
// and punctuation, so CompanyName and company_name both work.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"
	"strings"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
	"github.com/ersonp/entity-catalog/internal/infrastructure/config"
)

// Format is the encoding of a feed.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
	// FormatCompanyDataset is the headerless TSV written by Repair.
	FormatCompanyDataset Format = "company-dataset"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatTSV, FormatJSONL, FormatJSON, FormatCompanyDataset:
		return f, nil
	case "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown feed format %q", s)
	}
}

// DetectFormat returns the format of location from its extension, after
// removing any compression extension.
func DetectFormat(location string) (Format, error) {
	name := location
	if ext := compression(name); ext != "" {
		name = strings.TrimSuffix(name, name[len(name)-len(ext):])
	}

	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot detect feed format of %s", location)
	}
}

// Feed is a source feed of one entity type. It implements ports.SourceFeed.
type Feed struct {
	kind     entities.EntityType
	location string
	format   Format
	opener   *Opener
}

var _ ports.SourceFeed = (*Feed)(nil)

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithFormat overrides format detection.
func WithFormat(format Format) FeedOption {
	return func(f *Feed) {
		f.format = format
	}
}

// NewFeed creates a feed of kind read from location.
func NewFeed(kind entities.EntityType, location string, opener *Opener, opts ...FeedOption) *Feed {
	if opener == nil {
		opener = NewOpener(config.StorageConfig{})
	}
	f := &Feed{
		kind:     kind,
		location: location,
		opener:   opener,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FromConfig creates the feeds named in cfg. Empty locations are skipped.
func FromConfig(cfg config.FeedsConfig, opener *Opener) ([]ports.SourceFeed, error) {
	locations := []struct {
		kind     entities.EntityType
		location string
		format   string
	}{
		{entities.EntityTypeCompany, cfg.Companies, cfg.CompaniesFormat},
		{entities.EntityTypeInvestor, cfg.Investors, cfg.InvestorsFormat},
		{entities.EntityTypeFund, cfg.Funds, cfg.FundsFormat},
		{entities.EntityTypePerson, cfg.People, cfg.PeopleFormat},
	}

	var feeds []ports.SourceFeed
	for _, l := range locations {
		if strings.TrimSpace(l.location) == "" {
			continue
		}
		var opts []FeedOption
		if strings.TrimSpace(l.format) != "" {
			format, err := ParseFormat(l.format)
			if err != nil {
				return nil, fmt.Errorf("%s feed: %w", l.kind, err)
			}
			opts = append(opts, WithFormat(format))
		}
		feeds = append(feeds, NewFeed(l.kind, l.location, opener, opts...))
	}
	return feeds, nil
}

// Kind implements ports.SourceFeed.
func (f *Feed) Kind() entities.EntityType {
	return f.kind
}

// Records implements ports.SourceFeed. Every call reopens the location.
func (f *Feed) Records(ctx context.Context) iter.Seq2[entities.SourceRecord, error] {
	return func(yield func(entities.SourceRecord, error) bool) {
		rc, err := f.opener.Open(ctx, f.location)
		if err != nil {
			yield(nil, fmt.Errorf("%s feed: %w", f.kind, err))
			return
		}
		defer rc.Close()

		rr, err := f.reader(rc)
		if err != nil {
			yield(nil, fmt.Errorf("%s feed: %w", f.kind, err))
			return
		}

		for {
			rec, err := rr.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if !yield(nil, err) || !errors.Is(err, entities.ErrMalformedRecord) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (f *Feed) reader(src io.Reader) (recordReader, error) {
	format := f.format
	if format == "" {
		detected, err := DetectFormat(f.location)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	switch format {
	case FormatCSV:
		return newCSVReader(f.kind, f.location, src)
	case FormatTSV:
		return newTSVReader(f.kind, f.location, src, false)
	case FormatCompanyDataset:
		return newTSVReader(f.kind, f.location, src, true)
	case FormatJSONL:
		return newJSONLinesReader(f.kind, f.location, src), nil
	case FormatJSON:
		return newJSONArrayReader(f.kind, f.location, src)
	default:
		return nil, fmt.Errorf("unknown feed format %q", format)
	}
}
