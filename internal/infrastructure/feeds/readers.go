package feeds

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ersonp/entity-catalog/internal/domain/entities"
)

// recordReader decodes one feed stream. next returns io.EOF at the end and
// an error wrapping entities.ErrMalformedRecord for a row it cannot map.
type recordReader interface {
	next() (entities.SourceRecord, error)
}

func malformed(location string, line int, format string, args ...any) error {
	return fmt.Errorf("%w: %s line %d: %s", entities.ErrMalformedRecord, location, line, fmt.Sprintf(format, args...))
}

// csvReader reads comma separated rows with a header.
type csvReader struct {
	kind     entities.EntityType
	location string
	r        *csv.Reader
	cols     columnMap
	width    int
}

func newCSVReader(kind entities.EntityType, location string, src io.Reader) (*csvReader, error) {
	r := csv.NewReader(src)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	cr := &csvReader{kind: kind, location: location, r: r}

	header, err := r.Read()
	if err == io.EOF {
		return cr, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols, ok := mapHeader(kind, header)
	if !ok {
		return nil, missingNameError(location, kind)
	}
	cr.cols = cols
	cr.width = len(header)
	return cr, nil
}

func (c *csvReader) next() (entities.SourceRecord, error) {
	if c.cols == nil {
		return nil, io.EOF
	}

	row, err := c.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return nil, malformed(c.location, parseErr.StartLine, "%v", parseErr.Err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.location, err)
	}
	if len(row) != c.width {
		line, _ := c.r.FieldPos(0)
		return nil, malformed(c.location, line, "expected %d columns, got %d", c.width, len(row))
	}
	return record(c.kind, c.cols.pick(row)), nil
}

// tsvReader reads tab separated rows. Values are never quoted. A company
// feed without a header row is read as the repaired company dataset.
type tsvReader struct {
	kind     entities.EntityType
	location string
	r        *bufio.Reader
	cols     columnMap
	width    int
	line     int
	pending  []string
	done     bool
}

func newTSVReader(kind entities.EntityType, location string, src io.Reader, headerless bool) (*tsvReader, error) {
	tr := &tsvReader{kind: kind, location: location, r: bufio.NewReaderSize(src, 64*1024)}

	if headerless {
		if kind != entities.EntityTypeCompany {
			return nil, fmt.Errorf("%s: the company dataset layout only applies to company feeds", location)
		}
		tr.useCompanyDataset()
		return tr, nil
	}

	first, err := tr.readLine()
	if err == io.EOF {
		tr.done = true
		return tr, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading TSV header: %w", err)
	}

	if cols, ok := mapHeader(kind, first); ok {
		tr.cols = cols
		tr.width = len(first)
		return tr, nil
	}
	if kind == entities.EntityTypeCompany && len(first) == len(companyDatasetColumns) {
		tr.useCompanyDataset()
		tr.pending = first
		return tr, nil
	}
	return nil, missingNameError(location, kind)
}

func (t *tsvReader) useCompanyDataset() {
	t.cols = companyDatasetMap()
	t.width = len(companyDatasetColumns)
}

// readLine returns the next non-empty line split on tabs.
func (t *tsvReader) readLine() ([]string, error) {
	for {
		line, err := t.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if line == "" && err == io.EOF {
			return nil, io.EOF
		}
		t.line++

		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			return strings.Split(line, "\t"), nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

func (t *tsvReader) next() (entities.SourceRecord, error) {
	if t.done {
		return nil, io.EOF
	}

	row := t.pending
	t.pending = nil
	if row == nil {
		var err error
		row, err = t.readLine()
		if err == io.EOF {
			t.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", t.location, err)
		}
	}

	if len(row) != t.width {
		return nil, malformed(t.location, t.line, "expected %d columns, got %d", t.width, len(row))
	}
	return record(t.kind, t.cols.pick(row)), nil
}

// jsonLinesReader reads one JSON object per line.
type jsonLinesReader struct {
	kind     entities.EntityType
	location string
	r        *bufio.Reader
	line     int
}

func newJSONLinesReader(kind entities.EntityType, location string, src io.Reader) *jsonLinesReader {
	return &jsonLinesReader{kind: kind, location: location, r: bufio.NewReaderSize(src, 64*1024)}
}

func (j *jsonLinesReader) next() (entities.SourceRecord, error) {
	for {
		line, err := j.r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading %s: %w", j.location, err)
		}
		if len(line) == 0 && err == io.EOF {
			return nil, io.EOF
		}
		j.line++

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}

		obj, decodeErr := decodeObject(line)
		if decodeErr != nil {
			return nil, malformed(j.location, j.line, "%v", decodeErr)
		}
		return record(j.kind, objectValues(j.kind, obj)), nil
	}
}

// jsonArrayReader streams the elements of a top-level JSON array.
type jsonArrayReader struct {
	kind     entities.EntityType
	location string
	dec      *json.Decoder
	index    int
	done     bool
}

func newJSONArrayReader(kind entities.EntityType, location string, src io.Reader) (*jsonArrayReader, error) {
	jr := &jsonArrayReader{kind: kind, location: location, dec: json.NewDecoder(src)}

	tok, err := jr.dec.Token()
	if err == io.EOF {
		jr.done = true
		return jr, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%s: expected a JSON array", location)
	}
	return jr, nil
}

func (j *jsonArrayReader) next() (entities.SourceRecord, error) {
	if j.done || !j.dec.More() {
		j.done = true
		return nil, io.EOF
	}

	var raw json.RawMessage
	if err := j.dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	j.index++

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, malformed(j.location, j.index, "%v", err)
	}
	return record(j.kind, objectValues(j.kind, obj)), nil
}

// decodeObject decodes a JSON object and renders its scalar values as
// strings. Nested values are ignored.
func decodeObject(data []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("expected a JSON object")
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	return out, nil
}
