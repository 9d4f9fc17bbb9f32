package io

import (
	"bytes"
	"context"
	stdio "io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([][]float64{{1}, {2}, {3}})
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		row, err := src.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, []float64{float64(want)}, row)
	}

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, stdio.EOF)
}

func TestSliceSourceCancellation(t *testing.T) {
	src := NewSliceSource([][]float64{{1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf, []string{"cpu", "jitter"})

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(detectors.Result{
		Time:     ts,
		Verdict:  detectors.Normal,
		Features: []float64{15.25, 5.04},
	}))
	require.NoError(t, w.Write(detectors.Result{
		Time:     ts.Add(time.Second),
		Verdict:  detectors.Anomalous,
		Features: []float64{91.5, 130.0},
	}))
	require.NoError(t, w.Close())

	want := "timestamp,status,cpu,jitter\n" +
		"2025-06-01T12:00:00Z,NORMAL,15.25,5.04\n" +
		"2025-06-01T12:00:01Z,ANOMALY,91.50,130.00\n"
	assert.Equal(t, want, buf.String())
}
