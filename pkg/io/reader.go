// Package io provides data ingestion and result output for the detection
// pipeline.
package io

import (
	"context"
	stdio "io"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

// Source is the pull interface the tick loop consumes: one feature vector
// per call. Implementations return io.EOF when exhausted; live sources
// never are.
type Source interface {
	Next(ctx context.Context) ([]float64, error)
}

// Reader is the interface for reading a complete baseline dataset.
type Reader interface {
	// Read returns the complete dataset.
	Read() ([][]float64, error)

	// Close releases resources.
	Close() error
}

// Writer is the interface for writing detection results.
type Writer interface {
	// Write outputs a single result.
	Write(result detectors.Result) error

	// Close releases resources.
	Close() error
}

// SliceSource serves a fixed sequence of observations in order, then io.EOF.
// It backs tests and offline replays.
type SliceSource struct {
	rows [][]float64
	pos  int
}

// NewSliceSource creates a Source over rows.
func NewSliceSource(rows [][]float64) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next returns the next row or io.EOF.
func (s *SliceSource) Next(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.rows) {
		return nil, stdio.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
