// Package entities contains core domain data structures.
package entities

import "time"

// Field limits for persisted entities.
const (
	MaxNameLength    = 256
	MaxCountryLength = 64
)

// Row is a consolidated entity before it is persisted. AltNames and Country
// are nil when absent, never empty strings.
type Row struct {
	Type     EntityType `json:"type"`
	Name     string     `json:"name"`
	AltNames *string    `json:"alt_names,omitempty"`
	Country  *string    `json:"country,omitempty"`
}

// Generation is one complete load of the catalog. Only one generation is
// active at a time; a reload builds a new one and swaps it in.
type Generation struct {
	ID          int64      `json:"id"`
	Label       string     `json:"label"`
	Table       string     `json:"table"`
	RowCount    int        `json:"row_count"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}
