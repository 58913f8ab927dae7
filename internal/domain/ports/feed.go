package ports

import (
	"context"
	"iter"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

// SourceFeed yields the raw records of one source.
type SourceFeed interface {
	// Kind returns the entity type the feed produces.
	Kind() entities.EntityType

	// Records opens the feed and yields its records in order. Each call
	// starts from the beginning. An error wrapping
	// entities.ErrMalformedRecord marks a single unusable row; any other
	// error ends the sequence.
	Records(ctx context.Context) iter.Seq2[entities.SourceRecord, error]
}
