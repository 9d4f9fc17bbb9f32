package recon

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

func TestFitValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		data [][]float64
	}{
		{
			name: "empty baseline",
			data: [][]float64{},
		},
		{
			name: "baseline shorter than window",
			opts: []Option{WithWindowSize(10)},
			data: sine(5, 2),
		},
		{
			name: "ragged rows",
			opts: []Option{WithWindowSize(2)},
			data: [][]float64{{1, 2}, {1, 2}, {1}},
		},
		{
			name: "non-positive window",
			opts: []Option{WithWindowSize(0)},
			data: sine(10, 2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.opts...)
			assert.Error(t, a.Fit(tt.data))
		})
	}
}

func TestScoreShape(t *testing.T) {
	a := New(WithWindowSize(8), WithEpochs(5), WithSeed(42))
	require.NoError(t, a.Fit(sine(120, 3)))

	t.Run("one score per window", func(t *testing.T) {
		scores, err := a.Score(sine(40, 3))
		require.NoError(t, err)
		assert.Len(t, scores, 40-8+1)
		for _, s := range scores {
			assert.GreaterOrEqual(t, s, 0.0)
		}
	})

	t.Run("input shorter than window yields no scores", func(t *testing.T) {
		scores, err := a.Score(sine(5, 3))
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("arity mismatch", func(t *testing.T) {
		_, err := a.Score(sine(20, 2))
		var arity *detectors.ArityError
		require.ErrorAs(t, err, &arity)
		assert.Equal(t, 3, arity.Want)
	})

	t.Run("score before fit", func(t *testing.T) {
		_, err := New().Score(sine(60, 3))
		assert.ErrorIs(t, err, detectors.ErrNotFitted)
	})
}

func TestReconstructionSeparation(t *testing.T) {
	a := New(WithWindowSize(10), WithHiddenUnits(8), WithEpochs(30), WithSeed(42))
	require.NoError(t, a.Fit(sine(300, 2)))

	normalScores, err := a.Score(sine(60, 2))
	require.NoError(t, err)

	// Disrupt the learned pattern with large random spikes.
	disrupted := sine(60, 2)
	rng := rand.New(rand.NewSource(9))
	for i := 30; i < 45; i++ {
		disrupted[i][0] = 40 + rng.Float64()*20
		disrupted[i][1] = -40 - rng.Float64()*20
	}
	disruptedScores, err := a.Score(disrupted)
	require.NoError(t, err)

	assert.Greater(t, maxScore(disruptedScores), maxScore(normalScores),
		"disrupted windows should reconstruct worse than baseline-like input")
}

func TestFitDeterminism(t *testing.T) {
	baseline := sine(150, 2)
	held := sine(50, 2)

	a := New(WithWindowSize(10), WithEpochs(8), WithSeed(3))
	b := New(WithWindowSize(10), WithEpochs(8), WithSeed(3))
	require.NoError(t, a.Fit(baseline))
	require.NoError(t, b.Fit(baseline))

	scoresA, err := a.Score(held)
	require.NoError(t, err)
	scoresB, err := b.Score(held)
	require.NoError(t, err)
	assert.Equal(t, scoresA, scoresB)
}

func TestThresholdUnsetByDefault(t *testing.T) {
	a := New()
	assert.True(t, math.IsInf(a.Threshold(), 1), "no default boundary")

	a.SetThreshold(0.25)
	assert.Equal(t, 0.25, a.Threshold())
}

func TestSaveLoadConfigOnly(t *testing.T) {
	a := New(WithWindowSize(12), WithHiddenUnits(4), WithEpochs(3), WithSeed(5))
	a.SetThreshold(0.8)
	require.NoError(t, a.Fit(sine(100, 2)))

	blob, err := a.Save()
	require.NoError(t, err)

	loaded := New()
	require.NoError(t, loaded.Load(blob))

	assert.Equal(t, 12, loaded.WindowSize())
	assert.Equal(t, 0.8, loaded.Threshold())

	// Weights are not persisted: the loaded model must be refitted.
	_, err = loaded.Score(sine(30, 2))
	assert.ErrorIs(t, err, detectors.ErrNotFitted)
}

func TestLoadGarbage(t *testing.T) {
	a := New(WithWindowSize(7))
	assert.Error(t, a.Load([]byte("junk")))
	assert.Equal(t, 7, a.WindowSize(), "failed load keeps previous state")
}

func maxScore(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

// sine generates a smooth periodic multivariate sequence with mild noise.
func sine(n, features int) [][]float64 {
	rng := rand.New(rand.NewSource(1))
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, features)
		for j := range data[i] {
			phase := float64(i) / 10 * (float64(j) + 1)
			data[i][j] = math.Sin(phase) + rng.NormFloat64()*0.05
		}
	}
	return data
}
