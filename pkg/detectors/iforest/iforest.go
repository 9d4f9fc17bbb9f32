// Package iforest implements an Isolation Forest scoring backend.
//
// Scores are continuous in [0, 1], larger meaning more anomalous. The
// decision boundary defaults to 0.5; fitting with a contamination fraction
// re-derives it from the baseline score distribution.
package iforest

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

// Forest is an ensemble of isolation trees fitted over a baseline sample
// set. The zero value is not usable; call New.
type Forest struct {
	mu sync.RWMutex

	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	maxDepth      int
	rng           *rand.Rand

	trees     []*tree
	nFeatures int
	fitted    bool

	// normalization constant c(sampleSize) from the training pass
	refPathLength float64
}

type tree struct {
	Root *node
}

type node struct {
	SplitFeature int
	SplitValue   float64
	Left         *node
	Right        *node
	Size         int
}

func (n *node) leaf() bool { return n.Left == nil && n.Right == nil }

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the ensemble size.
func WithTrees(n int) Option {
	return func(f *Forest) { f.nTrees = n }
}

// WithSampleSize sets the per-tree subsample size.
func WithSampleSize(n int) Option {
	return func(f *Forest) { f.sampleSize = n }
}

// WithContamination sets the expected outlier fraction of the baseline.
// Zero leaves the native 0.5 decision boundary in place.
func WithContamination(c float64) Option {
	return func(f *Forest) { f.contamination = c }
}

// WithSeed seeds the ensemble's random source for reproducible fits.
func WithSeed(seed int64) Option {
	return func(f *Forest) { f.rng = rand.New(rand.NewSource(seed)) }
}

// New creates a Forest with the given options.
func New(opts ...Option) *Forest {
	f := &Forest{
		nTrees:     100,
		sampleSize: 256,
		threshold:  0.5,
		rng:        rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))

	return f
}

// Fit grows the ensemble from baseline data. Every row must have the same
// feature count; the arity of the first row becomes the fitted arity.
// Refitting replaces the previous ensemble.
func (f *Forest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return errors.New("iforest: empty baseline")
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return &detectors.ArityError{Want: nFeatures, Got: len(row)}
		}
	}

	sampleSize := f.sampleSize
	if sampleSize > len(data) {
		sampleSize = len(data)
	}

	trees := make([]*tree, f.nTrees)
	for i := range trees {
		indices := f.rng.Perm(len(data))[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}
		trees[i] = &tree{Root: f.grow(sample, nFeatures, 0)}
	}

	f.trees = trees
	f.nFeatures = nFeatures
	f.refPathLength = expectedPathLength(float64(sampleSize))
	f.fitted = true

	// With a known contamination fraction, place the boundary at the
	// matching percentile of baseline scores.
	if f.contamination > 0 {
		scores := f.scoreAll(data)
		f.threshold = percentile(scores, 100*(1-f.contamination))
	}

	return nil
}

func (f *Forest) grow(data [][]float64, nFeatures, depth int) *node {
	n := len(data)
	if depth >= f.maxDepth || n <= 1 {
		return &node{Size: n}
	}

	feature := f.rng.Intn(nFeatures)

	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}
	if minVal == maxVal {
		return &node{Size: n}
	}

	split := minVal + f.rng.Float64()*(maxVal-minVal)

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &node{
		SplitFeature: feature,
		SplitValue:   split,
		Left:         f.grow(left, nFeatures, depth+1),
		Right:        f.grow(right, nFeatures, depth+1),
	}
}

// Score returns one anomaly score in [0, 1] per sample.
func (f *Forest) Score(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.fitted {
		return nil, detectors.ErrNotFitted
	}
	for _, row := range data {
		if len(row) != f.nFeatures {
			return nil, &detectors.ArityError{Want: f.nFeatures, Got: len(row)}
		}
	}

	return f.scoreAll(data), nil
}

func (f *Forest) scoreAll(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = f.scoreOne(sample)
	}
	return scores
}

// ScoreOne returns the anomaly score for a single sample.
func (f *Forest) ScoreOne(sample []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.fitted {
		return 0, detectors.ErrNotFitted
	}
	if len(sample) != f.nFeatures {
		return 0, &detectors.ArityError{Want: f.nFeatures, Got: len(sample)}
	}

	return f.scoreOne(sample), nil
}

func (f *Forest) scoreOne(sample []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(sample, t.Root, 0)
	}
	avg := total / float64(len(f.trees))

	// s(x) = 2^(-E[h(x)] / c(n))
	return math.Pow(2, -avg/f.refPathLength)
}

func pathLength(sample []float64, n *node, depth int) float64 {
	if n.leaf() {
		// add the expected depth of the isolation that did not happen
		return float64(depth) + expectedPathLength(float64(n.Size))
	}
	if sample[n.SplitFeature] < n.SplitValue {
		return pathLength(sample, n.Left, depth+1)
	}
	return pathLength(sample, n.Right, depth+1)
}

// expectedPathLength is c(n), the average unsuccessful-search path length
// in a BST of n nodes: 2*H(n-1) - 2*(n-1)/n with H(k) ~ ln(k) + gamma.
func expectedPathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// Threshold returns the current decision boundary.
func (f *Forest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// SetThreshold overrides the decision boundary.
func (f *Forest) SetThreshold(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = t
}

// forestState is the gob wire form of a fitted Forest.
type forestState struct {
	NTrees        int
	SampleSize    int
	Contamination float64
	Threshold     float64
	NFeatures     int
	RefPathLength float64
	Trees         []*tree
}

// Save serializes the fitted ensemble.
func (f *Forest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.fitted {
		return nil, detectors.ErrNotFitted
	}

	var buf bytes.Buffer
	state := forestState{
		NTrees:        f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		Threshold:     f.threshold,
		NFeatures:     f.nFeatures,
		RefPathLength: f.refPathLength,
		Trees:         f.trees,
	}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores a fitted ensemble. On decode failure the Forest keeps its
// previous state.
func (f *Forest) Load(data []byte) error {
	var state forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nTrees = state.NTrees
	f.sampleSize = state.SampleSize
	f.contamination = state.Contamination
	f.threshold = state.Threshold
	f.nFeatures = state.NFeatures
	f.refPathLength = state.RefPathLength
	f.trees = state.Trees
	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))
	f.fitted = true

	return nil
}

// percentile returns the p-th percentile of data (nearest-rank on a sorted
// copy).
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}
