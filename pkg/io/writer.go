package io

import (
	"encoding/csv"
	stdio "io"
	"strconv"
	"time"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

// CSVWriter writes one classified observation per line:
// timestamp,status followed by the feature columns.
type CSVWriter struct {
	w       *csv.Writer
	columns []string
	wroteHd bool
}

// NewCSVWriter creates a writer emitting the given feature column names in
// the header row.
func NewCSVWriter(out stdio.Writer, columns []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(out), columns: columns}
}

// Write outputs a single result, emitting the header first if needed.
func (c *CSVWriter) Write(result detectors.Result) error {
	if !c.wroteHd {
		header := append([]string{"timestamp", "status"}, c.columns...)
		if err := c.w.Write(header); err != nil {
			return err
		}
		c.wroteHd = true
	}

	record := make([]string, 0, 2+len(result.Features))
	record = append(record, result.Time.Format(time.RFC3339), result.Verdict.String())
	for _, f := range result.Features {
		record = append(record, strconv.FormatFloat(f, 'f', 2, 64))
	}
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes buffered output.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	return c.w.Error()
}
