// Package csv reads tabular metric data from CSV files.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	stdio "io"
	"os"
	"strconv"
)

// Reader reads feature vectors from a CSV file. It can drain the whole file
// as a baseline (Read) or serve rows one per tick (Next).
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	hasHeader bool
	headers   []string
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates whether the CSV has a header row. Default true.
func WithHeader(has bool) Option {
	return func(r *Reader) { r.hasHeader = has }
}

// NewReader opens filename for reading.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		file:      file,
		reader:    csv.NewReader(file),
		hasHeader: true,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			return nil, err
		}
		r.headers = headers
	}

	return r, nil
}

// Headers returns the column headers, nil without a header row.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read drains the remaining rows into a 2D float slice. Rows that fail to
// parse are skipped.
func (r *Reader) Read() ([][]float64, error) {
	var data [][]float64
	for {
		record, err := r.reader.Read()
		if err == stdio.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row, err := parseRow(record)
		if err != nil {
			continue
		}
		data = append(data, row)
	}
	return data, nil
}

// Next returns the next parseable row, or io.EOF when the file is
// exhausted.
func (r *Reader) Next(ctx context.Context) ([]float64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.reader.Read()
		if err != nil {
			return nil, err
		}

		row, err := parseRow(record)
		if err != nil {
			continue
		}
		return row, nil
	}
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

func parseRow(record []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, errors.New("empty row")
	}

	row := make([]float64, len(record))
	for i, val := range record {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, err
		}
		row[i] = f
	}
	return row, nil
}
