package services

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
	"github.com/ersonp/entity-catalog/internal/domain/ports"
)

// FeedStats counts what happened to the records of one feed.
type FeedStats struct {
	Read      int `json:"read"`
	Accepted  int `json:"accepted"`
	Dropped   int `json:"dropped"`
	Malformed int `json:"malformed"`
}

// ConsolidationStats holds per-type counters for one consolidation run. It
// is filled in while the row sequence is consumed.
type ConsolidationStats struct {
	ByType map[entities.EntityType]*FeedStats `json:"by_type"`
}

func newConsolidationStats() *ConsolidationStats {
	stats := &ConsolidationStats{ByType: make(map[entities.EntityType]*FeedStats)}
	for _, et := range entities.EntityTypes() {
		stats.ByType[et] = &FeedStats{}
	}
	return stats
}

// Total sums the counters of all types.
func (s *ConsolidationStats) Total() FeedStats {
	var total FeedStats
	for _, fs := range s.ByType {
		total.Read += fs.Read
		total.Accepted += fs.Accepted
		total.Dropped += fs.Dropped
		total.Malformed += fs.Malformed
	}
	return total
}

func (s *ConsolidationStats) feed(et entities.EntityType) *FeedStats {
	fs, ok := s.ByType[et]
	if !ok {
		fs = &FeedStats{}
		s.ByType[et] = fs
	}
	return fs
}

// Consolidator maps raw source records to catalog rows.
type Consolidator struct{}

// NewConsolidator creates a new Consolidator.
func NewConsolidator() *Consolidator {
	return &Consolidator{}
}

// Consolidate returns a lazy sequence of rows built from feeds. Feeds are
// read in type order (company, investor, fund, person) whatever the argument
// order, each in its own record order. Records without a usable name and
// malformed records are skipped and counted in the returned stats. A feed
// error other than a malformed record ends the sequence.
//
// No deduplication is done: every accepted record becomes one row.
func (c *Consolidator) Consolidate(ctx context.Context, feeds ...ports.SourceFeed) (iter.Seq2[entities.Row, error], *ConsolidationStats) {
	ordered := slices.Clone(feeds)
	slices.SortStableFunc(ordered, func(a, b ports.SourceFeed) int {
		return feedOrder(a) - feedOrder(b)
	})

	stats := newConsolidationStats()

	seq := func(yield func(entities.Row, error) bool) {
		for _, feed := range ordered {
			fs := stats.feed(feed.Kind())
			for rec, err := range feed.Records(ctx) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(entities.Row{}, ctxErr)
					return
				}
				if err != nil {
					if errors.Is(err, entities.ErrMalformedRecord) {
						fs.Malformed++
						continue
					}
					yield(entities.Row{}, err)
					return
				}

				fs.Read++
				row, ok := c.consolidateRecord(feed.Kind(), rec)
				if !ok {
					if rec == nil || rec.Kind() != feed.Kind() {
						fs.Malformed++
					} else {
						fs.Dropped++
					}
					continue
				}
				fs.Accepted++
				if !yield(row, nil) {
					return
				}
			}
		}
	}

	return seq, stats
}

// consolidateRecord maps one record. Records whose variant does not match
// the feed are rejected.
func (c *Consolidator) consolidateRecord(kind entities.EntityType, rec entities.SourceRecord) (entities.Row, bool) {
	if rec == nil || rec.Kind() != kind {
		return entities.Row{}, false
	}
	return rec.Consolidate()
}

// feedOrder places feeds of unknown type after the known ones.
func feedOrder(f ports.SourceFeed) int {
	if o := f.Kind().Order(); o >= 0 {
		return o
	}
	return len(entities.EntityTypes())
}
