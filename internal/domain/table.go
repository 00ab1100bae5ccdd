package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ReadLines reads a data file into lines. Files that are not valid UTF-8
// are decoded as latin-1.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Errorf(KindParse, "failed reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, Errorf(KindParse, "failed reading %s: %w", path, err)
		}
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

// Table is the tabular body of a file: an ordered schema and its rows.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable builds a table over columns. Rows must have one cell per column.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// ReadTable parses the data lines that follow the column header. Rows with
// fewer cells are padded; extra non-empty cells are a parse error.
func ReadTable(lines []string, columns []string) (*Table, error) {
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Errorf(KindParse, "failed reading data rows: %w", err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) > len(columns) {
			for _, extra := range rec[len(columns):] {
				if strings.TrimSpace(extra) != "" {
					line, _ := r.FieldPos(0)
					return nil, Errorf(KindParse, "failed reading data rows: line %d has %d fields, header has %d", line, len(rec), len(columns))
				}
			}
			rec = rec[:len(columns)]
		}
		for len(rec) < len(columns) {
			rec = append(rec, "")
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	return NewTable(columns, rows), nil
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Get returns a cell, false when the column is absent.
func (t *Table) Get(row int, column string) (string, bool) {
	i, ok := t.index[column]
	if !ok {
		return "", false
	}
	return t.Rows[row][i], true
}

// Set overwrites a cell, adding the column when needed.
func (t *Table) Set(row int, column, value string) {
	if !t.Has(column) {
		t.AddColumn(column, "")
	}
	t.Rows[row][t.index[column]] = value
}

// Column returns a copy of every value in a column.
func (t *Table) Column(column string) []string {
	i, ok := t.index[column]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// AddColumn appends a column filled with value.
func (t *Table) AddColumn(column, value string) {
	if t.Has(column) {
		return
	}
	t.Columns = append(t.Columns, column)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], value)
	}
	t.reindex()
}

// Drop removes columns. Unknown names are ignored.
func (t *Table) Drop(columns ...string) {
	drop := map[int]bool{}
	for _, c := range columns {
		if i, ok := t.index[c]; ok {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := func(cells []string) []string {
		out := make([]string, 0, len(cells)-len(drop))
		for i, c := range cells {
			if !drop[i] {
				out = append(out, c)
			}
		}
		return out
	}
	for r := range t.Rows {
		t.Rows[r] = keep(t.Rows[r])
	}
	t.Columns = keep(t.Columns)
	t.reindex()
}

// Record returns one row keyed by column name.
func (t *Table) Record(row int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		rec[c] = t.Rows[row][i]
	}
	return rec
}

// Floats parses a numeric column. Missing cells become NaN.
func (t *Table) Floats(column string) ([]float64, error) {
	vals := t.Column(column)
	if vals == nil && !t.Has(column) {
		return nil, fmt.Errorf("no column %q", column)
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		if IsMissing(v) {
			out[i] = nan
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, Errorf(KindParse, "column %s row %d: %q is not numeric", column, i, v)
		}
		out[i] = f
	}
	return out, nil
}

// SetFloats writes a numeric column, NaN as empty.
func (t *Table) SetFloats(column string, vals []float64) {
	for i, v := range vals {
		t.Set(i, column, formatFloat(v))
	}
}
