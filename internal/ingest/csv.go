package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when a required header is absent
var ErrMissingColumn = errors.New("missing column")

// CSVReader reads a header-addressed CSV export
type CSVReader struct {
	r    *csv.Reader
	idx  map[string]int
	line int
}

// NewCSVReader reads the header row and checks that every required column exists.
// Header names are matched case-insensitively after trimming (and a UTF-8 BOM is ignored).
func NewCSVReader(r io.Reader, required ...string) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[normalizeHeader(h)] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := idx[normalizeHeader(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return &CSVReader{r: cr, idx: idx, line: 1}, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Has reports whether the export carries a column
func (c *CSVReader) Has(col string) bool {
	_, ok := c.idx[normalizeHeader(col)]
	return ok
}

// Next returns the next data row, or io.EOF
func (c *CSVReader) Next() (Row, error) {
	rec, err := c.r.Read()
	if err != nil {
		return Row{}, err
	}
	c.line++
	return Row{fields: rec, idx: c.idx, Line: c.line}, nil
}

// Row is one data row of a CSVReader
type Row struct {
	fields []string
	idx    map[string]int
	Line   int
}

// Get returns a trimmed field by column name, "" when absent
func (r Row) Get(col string) string {
	i, ok := r.idx[normalizeHeader(col)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}
