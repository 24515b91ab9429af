// Package rowstream converts wide, matrix-shaped tabular data into a
// stream of long-format records. Upstream tools ship per-study matrices
// (rows × columns of numbers, first column holding the row key); this
// engine always works on long rows, so the reshaping is done once, here,
// in a streaming fashion that never materializes the whole matrix.
package rowstream

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one cell of a wide matrix in long form.
type Record struct {
	RowKey string
	ColKey string
	Value  float64
}

// missing cell markers tolerated in input matrices.
var missing = map[string]bool{
	"": true, "na": true, "nan": true, "null": true,
}

// Stream parses a delimited wide matrix from r and calls fn once per
// populated cell. The first line is the header: its first field labels
// the row-key column and is otherwise ignored, the remaining fields are
// the column keys. Missing cells (empty, NA, NaN, null) are skipped.
// Returning an error from fn stops the stream.
func Stream(r io.Reader, delim rune, fn func(Record) error) error {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return fmt.Errorf("empty matrix: no header row")
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 {
		return fmt.Errorf("header has %d fields, want at least 2", len(header))
	}
	colKeys := header[1:]

	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading line %d: %w", line+1, err)
		}
		line++

		if len(row) != len(header) {
			return fmt.Errorf(
				"line %d has %d fields, header has %d",
				line, len(row), len(header),
			)
		}

		rowKey := strings.TrimSpace(row[0])
		if rowKey == "" {
			return fmt.Errorf("line %d: empty row key", line)
		}

		for i, cell := range row[1:] {
			cell = strings.TrimSpace(cell)
			if missing[strings.ToLower(cell)] {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf(
					"line %d, column %q: %q is not a number",
					line, colKeys[i], cell,
				)
			}
			rec := Record{RowKey: rowKey, ColKey: colKeys[i], Value: v}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
}
