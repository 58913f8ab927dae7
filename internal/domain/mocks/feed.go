package mocks

import (
	"context"
	"iter"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

// SourceFeed is a mock of ports.SourceFeed backed by a slice.
type SourceFeed struct {
	Type  entities.EntityType
	Items []entities.SourceRecord
	// Errs maps item positions to errors yielded in place of the record.
	Errs  map[int]error
	Opens int
}

// Kind returns Type.
func (m *SourceFeed) Kind() entities.EntityType {
	return m.Type
}

// Records yields Items in order.
func (m *SourceFeed) Records(_ context.Context) iter.Seq2[entities.SourceRecord, error] {
	m.Opens++
	return func(yield func(entities.SourceRecord, error) bool) {
		for i, item := range m.Items {
			if err, ok := m.Errs[i]; ok {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
