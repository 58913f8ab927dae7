package feeds

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DatasetWidth is the column count of the company dataset.
const DatasetWidth = 10

// DefaultRepairProgress is how often Repair logs progress, in rows.
const DefaultRepairProgress = 500000

// RepairAction is what RepairRow did to a row.
type RepairAction string

const (
	RepairNone         RepairAction = "none"
	RepairInsertRegion RepairAction = "insert_region"
	RepairPad          RepairAction = "pad"
	RepairTruncate     RepairAction = "truncate"
)

// RepairStats summarizes a repair run.
type RepairStats struct {
	Rows            int `json:"rows"`
	RegionsInserted int `json:"regions_inserted"`
	Padded          int `json:"padded"`
	Truncated       int `json:"truncated"`
}

// RepairRow brings a raw company dataset row to DatasetWidth columns.
// Rows one column short are missing the region column, which is inserted
// empty before the last two columns. Other widths are padded with empty
// values or truncated. Tabs and line breaks in values become spaces and
// values are trimmed.
func RepairRow(row []string) ([]string, RepairAction) {
	action := RepairNone
	out := make([]string, 0, DatasetWidth)

	switch {
	case len(row) == DatasetWidth-1:
		action = RepairInsertRegion
		at := len(row) - 2
		out = append(out, row[:at]...)
		out = append(out, "")
		out = append(out, row[at:]...)
	case len(row) < DatasetWidth:
		action = RepairPad
		out = append(out, row...)
		for len(out) < DatasetWidth {
			out = append(out, "")
		}
	case len(row) > DatasetWidth:
		action = RepairTruncate
		out = append(out, row[:DatasetWidth]...)
	default:
		out = append(out, row...)
	}

	for i, v := range out {
		out[i] = scrubValue(v)
	}
	return out, action
}

var scrubber = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func scrubValue(v string) string {
	return strings.TrimSpace(scrubber.Replace(v))
}

// RepairOptions configures Repair.
type RepairOptions struct {
	Logger        *slog.Logger
	ProgressEvery int
}

// Repair reads the raw comma separated company dataset from in and writes
// the repaired rows to out as tab separated lines without quoting.
func Repair(ctx context.Context, in io.Reader, out io.Writer, opts RepairOptions) (RepairStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := opts.ProgressEvery
	if progress <= 0 {
		progress = DefaultRepairProgress
	}

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	w := bufio.NewWriter(out)
	var stats RepairStats

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading row %d: %w", stats.Rows+1, err)
		}

		repaired, action := RepairRow(row)
		switch action {
		case RepairInsertRegion:
			stats.RegionsInserted++
		case RepairPad:
			stats.Padded++
		case RepairTruncate:
			stats.Truncated++
		}
		if action != RepairNone {
			line, _ := r.FieldPos(0)
			logger.Debug("repaired row", "line", line, "columns", len(row), "action", string(action))
		}

		if _, err := w.WriteString(strings.Join(repaired, "\t") + "\n"); err != nil {
			return stats, fmt.Errorf("writing row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if stats.Rows%progress == 0 {
			logger.Info("repair progress", "rows", stats.Rows)
		}
	}

	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flushing output: %w", err)
	}
	return stats, nil
}

// ErrOutputExists is returned when the repair output already exists.
var ErrOutputExists = errors.New("output already exists")

// RepairFile repairs the dataset at location into a new file at output.
// It refuses to overwrite output.
func RepairFile(ctx context.Context, opener *Opener, location, output string, opts RepairOptions) (RepairStats, error) {
	if _, err := os.Stat(output); err == nil {
		return RepairStats{}, fmt.Errorf("%w: %s", ErrOutputExists, output)
	}

	in, err := opener.Open(ctx, location)
	if err != nil {
		return RepairStats{}, err
	}
	defer in.Close()

	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return RepairStats{}, fmt.Errorf("%w: %s", ErrOutputExists, output)
		}
		return RepairStats{}, fmt.Errorf("creating output: %w", err)
	}

	stats, err := Repair(ctx, in, f, opts)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing output: %w", closeErr)
	}
	if err != nil {
		return stats, err
	}
	return stats, nil
}
