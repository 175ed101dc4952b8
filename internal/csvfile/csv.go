// Package csvfile reads issue rows from CSV (and XLSX) files.
//
// The CSV dialect is deliberately small: double quotes toggle a quoted
// section, commas outside quotes split fields, and every field is trimmed.
// Escaped quotes ("") and fields spanning several lines are not supported.
// Lines whose field count differs from the header are dropped silently.
package csvfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Recognized column names.
const (
	ColumnTitle       = "Title"
	ColumnDescription = "Description"
	ColumnPriority    = "Priority"
	ColumnType        = "Type"
	ColumnLabels      = "Labels"
	ColumnDifficulty  = "Difficulty"
	ColumnComponent   = "Component"
)

// Spreadsheet exports often prefix a UTF-8 byte order mark.
const byteOrderMark = "\uFEFF"

// Row maps a header name to the field value of one data line.
type Row map[string]string

// Get returns the value for column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Parse splits text into lines, uses the first line as the header and
// returns one Row per data line whose field count matches the header.
func Parse(text string) []Row {
	text = strings.TrimPrefix(strings.TrimSpace(text), byteOrderMark)
	lines := strings.Split(strings.TrimSpace(text), "\n")
	headers := ParseLine(lines[0])

	records := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		records = append(records, ParseLine(line))
	}

	return fromRecords(headers, records)
}

// ParseLine splits a single line into trimmed fields, treating commas
// inside double quotes as part of the field.
func ParseLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}

// FromRecords converts already-split records into rows. The first record is
// the header; the same field-count rule as Parse applies.
func FromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return []Row{}
	}
	return fromRecords(records[0], records[1:])
}

func fromRecords(headers []string, records [][]string) []Row {
	rows := make([]Row, 0, len(records))
	for _, values := range records {
		if len(values) != len(headers) {
			continue
		}
		row := make(Row, len(headers))
		for i, header := range headers {
			row[header] = values[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// ReadFile reads path and parses it. Files ending in .xlsx are read as
// spreadsheets; everything else as CSV text. A missing file yields an error
// that matches os.ErrNotExist.
func ReadFile(path string) ([]Row, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file %s: %w", path, err)
	}

	return Parse(string(data)), nil
}
