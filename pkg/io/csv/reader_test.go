package csv

import (
	"context"
	stdio "io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	path := writeCSV(t, "cpu,jitter,memory\n15.1,5.0,20.2\n15.3,4.9,19.8\nbad,row,here\n14.9,5.1,20.0\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"cpu", "jitter", "memory"}, r.Headers())

	data, err := r.Read()
	require.NoError(t, err)

	// The malformed row is skipped.
	require.Len(t, data, 3)
	assert.Equal(t, []float64{15.1, 5.0, 20.2}, data[0])
	assert.Equal(t, []float64{14.9, 5.1, 20.0}, data[2])
}

func TestReadWithoutHeader(t *testing.T) {
	path := writeCSV(t, "1,2\n3,4\n")

	r, err := NewReader(path, WithHeader(false))
	require.NoError(t, err)
	defer r.Close()

	assert.Nil(t, r.Headers())

	data, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, data)
}

func TestNext(t *testing.T) {
	path := writeCSV(t, "a,b\n1,2\nnope,2\n3,4\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()

	row, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, row)

	// The malformed row is skipped, not surfaced.
	row, err = r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, row)

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, stdio.EOF)
}

func TestNextHonorsCancellation(t *testing.T) {
	path := writeCSV(t, "a\n1\n")

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
