package iforest

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantNTrees int
	}{
		{
			name:       "default configuration",
			opts:       nil,
			wantNTrees: 100,
		},
		{
			name:       "custom trees",
			opts:       []Option{WithTrees(50)},
			wantNTrees: 50,
		},
		{
			name:       "multiple options",
			opts:       []Option{WithTrees(200), WithContamination(0.05), WithSeed(123)},
			wantNTrees: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.opts...)
			assert.Equal(t, tt.wantNTrees, f.nTrees)
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		data    [][]float64
		wantErr bool
	}{
		{
			name:    "empty baseline",
			data:    [][]float64{},
			wantErr: true,
		},
		{
			name:    "ragged rows",
			data:    [][]float64{{1, 2, 3}, {1, 2}},
			wantErr: true,
		},
		{
			name:    "single sample",
			data:    [][]float64{{1.0, 2.0, 3.0}},
			wantErr: false,
		},
		{
			name:    "normal baseline",
			data:    gaussian(100, 5),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithTrees(10), WithSeed(42))
			err := f.Fit(tt.data)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.True(t, f.fitted)
				assert.Len(t, f.trees, f.nTrees)
			}
		})
	}
}

func TestScore(t *testing.T) {
	baseline := gaussian(500, 5)
	f := New(WithTrees(50), WithSampleSize(100), WithSeed(42))
	require.NoError(t, f.Fit(baseline))

	t.Run("scores stay in unit interval", func(t *testing.T) {
		scores, err := f.Score(gaussian(100, 5))

		require.NoError(t, err)
		assert.Len(t, scores, 100)
		for _, s := range scores {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	})

	t.Run("outliers score higher than baseline", func(t *testing.T) {
		outliers := [][]float64{
			{1000, 1000, 1000, 1000, 1000},
			{-500, -500, -500, -500, -500},
		}
		scores, err := f.Score(outliers)

		require.NoError(t, err)
		for _, s := range scores {
			assert.Greater(t, s, 0.4, "outliers should score high")
		}
	})

	t.Run("score before fit", func(t *testing.T) {
		unfitted := New()
		_, err := unfitted.Score(baseline)
		assert.ErrorIs(t, err, detectors.ErrNotFitted)
	})

	t.Run("arity mismatch", func(t *testing.T) {
		_, err := f.Score([][]float64{{1, 2}})

		var arity *detectors.ArityError
		require.ErrorAs(t, err, &arity)
		assert.Equal(t, 5, arity.Want)
		assert.Equal(t, 2, arity.Got)
	})
}

func TestScoreOne(t *testing.T) {
	f := New(WithTrees(20), WithSeed(42))
	require.NoError(t, f.Fit(gaussian(200, 3)))

	score, err := f.ScoreOne([]float64{0.5, 0.5, 0.5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)

	_, err = f.ScoreOne([]float64{0.5})
	var arity *detectors.ArityError
	assert.True(t, errors.As(err, &arity))
}

func TestFitDeterminism(t *testing.T) {
	baseline := gaussian(300, 4)
	held := gaussian(50, 4)

	a := New(WithTrees(25), WithSeed(7), WithContamination(0.1))
	b := New(WithTrees(25), WithSeed(7), WithContamination(0.1))
	require.NoError(t, a.Fit(baseline))
	require.NoError(t, b.Fit(baseline))

	scoresA, err := a.Score(held)
	require.NoError(t, err)
	scoresB, err := b.Score(held)
	require.NoError(t, err)

	assert.Equal(t, scoresA, scoresB)
	assert.Equal(t, a.Threshold(), b.Threshold())
}

func TestContaminationThreshold(t *testing.T) {
	baseline := gaussian(400, 3)

	auto := New(WithTrees(25), WithSeed(42))
	require.NoError(t, auto.Fit(baseline))
	assert.Equal(t, 0.5, auto.Threshold(), "auto keeps the native boundary")

	fitted := New(WithTrees(25), WithSeed(42), WithContamination(0.05))
	require.NoError(t, fitted.Fit(baseline))
	assert.NotEqual(t, 0.5, fitted.Threshold())

	// Roughly the contamination fraction of the baseline falls above the
	// derived boundary.
	scores, err := fitted.Score(baseline)
	require.NoError(t, err)
	flagged := 0
	for _, s := range scores {
		if s > fitted.Threshold() {
			flagged++
		}
	}
	assert.LessOrEqual(t, flagged, len(baseline)/10)
}

func TestSaveLoad(t *testing.T) {
	baseline := gaussian(200, 4)
	original := New(WithTrees(30), WithContamination(0.15), WithSeed(42))
	require.NoError(t, original.Fit(baseline))

	held := gaussian(50, 4)
	originalScores, err := original.Score(held)
	require.NoError(t, err)

	blob, err := original.Save()
	require.NoError(t, err)
	assert.NotEmpty(t, blob)

	loaded := New()
	require.NoError(t, loaded.Load(blob))

	loadedScores, err := loaded.Score(held)
	require.NoError(t, err)
	assert.Equal(t, originalScores, loadedScores)
	assert.Equal(t, original.Threshold(), loaded.Threshold())
}

func TestLoadGarbage(t *testing.T) {
	f := New()
	assert.Error(t, f.Load([]byte("not a model")))
	assert.False(t, f.fitted)
}

func TestSaveBeforeFit(t *testing.T) {
	_, err := New().Save()
	assert.ErrorIs(t, err, detectors.ErrNotFitted)
}

func TestThreshold(t *testing.T) {
	f := New()
	assert.Equal(t, 0.5, f.Threshold())

	f.SetThreshold(0.7)
	assert.Equal(t, 0.7, f.Threshold())
}

func BenchmarkFit(b *testing.B) {
	data := gaussian(10000, 10)
	f := New(WithTrees(100), WithSampleSize(256))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Fit(data)
	}
}

func BenchmarkScore(b *testing.B) {
	baseline := gaussian(5000, 10)
	held := gaussian(1000, 10)

	f := New(WithTrees(100), WithSampleSize(256))
	f.Fit(baseline)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Score(held)
	}
}

func gaussian(n, features int) [][]float64 {
	rng := rand.New(rand.NewSource(1))
	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = make([]float64, features)
		for j := 0; j < features; j++ {
			data[i][j] = rng.NormFloat64()
		}
	}
	return data
}
