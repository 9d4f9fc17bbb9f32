// Package recon implements a sequence-reconstruction scoring backend.
//
// The backend learns to reconstruct overlapping windows of the baseline
// through a narrow hidden layer; at score time each window's mean squared
// reconstruction error becomes its anomaly score. Scores are continuous in
// [0, +inf), larger meaning more anomalous, and are not symmetric around
// zero. There is no universal default decision boundary: callers supply one
// via SetThreshold.
package recon

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/resonance-hq/resonance/pkg/detectors"
	"github.com/resonance-hq/resonance/pkg/detectors/window"
)

// Autoencoder reconstructs fixed-length windows of feature vectors through
// a compressed hidden representation.
type Autoencoder struct {
	mu sync.RWMutex

	windowSize int
	hidden     int
	epochs     int
	learnRate  float64
	seed       int64
	threshold  float64

	// fitted state
	nFeatures int
	inDim     int
	w1        [][]float64 // hidden x inDim
	b1        []float64
	w2        [][]float64 // inDim x hidden
	b2        []float64
	mean      []float64 // per-feature standardization from the baseline
	scale     []float64
	fitted    bool
}

// Option configures an Autoencoder.
type Option func(*Autoencoder)

// WithWindowSize sets the sequence length reconstructed per score.
func WithWindowSize(n int) Option {
	return func(a *Autoencoder) { a.windowSize = n }
}

// WithHiddenUnits sets the width of the compression layer.
func WithHiddenUnits(n int) Option {
	return func(a *Autoencoder) { a.hidden = n }
}

// WithEpochs sets the number of training passes over the baseline windows.
func WithEpochs(n int) Option {
	return func(a *Autoencoder) { a.epochs = n }
}

// WithLearnRate sets the gradient step size.
func WithLearnRate(lr float64) Option {
	return func(a *Autoencoder) { a.learnRate = lr }
}

// WithSeed seeds weight initialization and shuffling for reproducible fits.
func WithSeed(seed int64) Option {
	return func(a *Autoencoder) { a.seed = seed }
}

// New creates an Autoencoder with the given options.
func New(opts ...Option) *Autoencoder {
	a := &Autoencoder{
		windowSize: 50,
		hidden:     16,
		epochs:     10,
		learnRate:  0.01,
		seed:       42,
		threshold:  math.Inf(1),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WindowSize returns the configured sequence length.
func (a *Autoencoder) WindowSize() int { return a.windowSize }

// Fit trains the reconstruction model on windows built from baseline data.
// The baseline must contain at least windowSize samples of equal arity.
// Refitting replaces the previous weights.
func (a *Autoencoder) Fit(data [][]float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(data) == 0 {
		return errors.New("recon: empty baseline")
	}
	if a.windowSize <= 0 {
		return &detectors.ConfigError{Field: "window_size", Reason: "must be positive"}
	}
	if len(data) < a.windowSize {
		return fmt.Errorf("recon: baseline has %d samples, need at least window_size=%d",
			len(data), a.windowSize)
	}

	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return &detectors.ArityError{Want: nFeatures, Got: len(row)}
		}
	}

	a.nFeatures = nFeatures
	a.inDim = a.windowSize * nFeatures
	a.fitStandardizer(data)

	rng := rand.New(rand.NewSource(a.seed))
	a.initWeights(rng)

	windows := window.Slide(data, a.windowSize)
	flat := make([][]float64, len(windows))
	for i, w := range windows {
		flat[i] = a.flatten(w)
	}

	for epoch := 0; epoch < a.epochs; epoch++ {
		for _, idx := range rng.Perm(len(flat)) {
			a.step(flat[idx])
		}
	}

	a.fitted = true
	return nil
}

// Score builds windows from data and returns one mean squared reconstruction
// error per window, in window order. The result is shorter than the input by
// windowSize-1; inputs shorter than windowSize yield an empty result.
func (a *Autoencoder) Score(data [][]float64) ([]float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.fitted {
		return nil, detectors.ErrNotFitted
	}
	for _, row := range data {
		if len(row) != a.nFeatures {
			return nil, &detectors.ArityError{Want: a.nFeatures, Got: len(row)}
		}
	}

	windows := window.Slide(data, a.windowSize)
	scores := make([]float64, len(windows))
	for i, w := range windows {
		x := a.flatten(w)
		_, y := a.forward(x)

		var mse float64
		for j := range x {
			d := y[j] - x[j]
			mse += d * d
		}
		scores[i] = mse / float64(len(x))
	}
	return scores, nil
}

// Threshold returns the caller-supplied decision boundary, +Inf when unset.
func (a *Autoencoder) Threshold() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.threshold
}

// SetThreshold sets the reconstruction-error decision boundary.
func (a *Autoencoder) SetThreshold(t float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = t
}

// reconConfig is the reduced-fidelity persisted form: configuration only,
// never weights. A loaded Autoencoder must be refitted before scoring.
type reconConfig struct {
	WindowSize int
	Hidden     int
	Epochs     int
	LearnRate  float64
	Seed       int64
	Threshold  float64
}

// Save serializes configuration only. Trained weights are not part of the
// persistence contract for this backend; post-load scoring requires Fit.
func (a *Autoencoder) Save() ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var buf bytes.Buffer
	cfg := reconConfig{
		WindowSize: a.windowSize,
		Hidden:     a.hidden,
		Epochs:     a.epochs,
		LearnRate:  a.learnRate,
		Seed:       a.seed,
		Threshold:  a.threshold,
	}
	if err := gob.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load restores configuration and leaves the Autoencoder unfitted. On
// decode failure the previous state is kept.
func (a *Autoencoder) Load(data []byte) error {
	var cfg reconConfig
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.windowSize = cfg.WindowSize
	a.hidden = cfg.Hidden
	a.epochs = cfg.Epochs
	a.learnRate = cfg.LearnRate
	a.seed = cfg.Seed
	a.threshold = cfg.Threshold
	a.fitted = false

	return nil
}

func (a *Autoencoder) fitStandardizer(data [][]float64) {
	a.mean = make([]float64, a.nFeatures)
	a.scale = make([]float64, a.nFeatures)

	for _, row := range data {
		for j, v := range row {
			a.mean[j] += v
		}
	}
	for j := range a.mean {
		a.mean[j] /= float64(len(data))
	}

	for _, row := range data {
		for j, v := range row {
			d := v - a.mean[j]
			a.scale[j] += d * d
		}
	}
	for j := range a.scale {
		a.scale[j] = math.Sqrt(a.scale[j] / float64(len(data)))
		if a.scale[j] == 0 {
			a.scale[j] = 1
		}
	}
}

func (a *Autoencoder) flatten(w [][]float64) []float64 {
	x := make([]float64, 0, a.inDim)
	for _, row := range w {
		for j, v := range row {
			x = append(x, (v-a.mean[j])/a.scale[j])
		}
	}
	return x
}

func (a *Autoencoder) initWeights(rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(a.inDim+a.hidden))

	a.w1 = make([][]float64, a.hidden)
	a.b1 = make([]float64, a.hidden)
	for i := range a.w1 {
		a.w1[i] = make([]float64, a.inDim)
		for j := range a.w1[i] {
			a.w1[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}

	a.w2 = make([][]float64, a.inDim)
	a.b2 = make([]float64, a.inDim)
	for i := range a.w2 {
		a.w2[i] = make([]float64, a.hidden)
		for j := range a.w2[i] {
			a.w2[i][j] = (rng.Float64()*2 - 1) * limit
		}
	}
}

// forward computes h = tanh(w1*x + b1) and y = w2*h + b2.
func (a *Autoencoder) forward(x []float64) (h, y []float64) {
	h = make([]float64, a.hidden)
	for i := range h {
		s := a.b1[i]
		for j, v := range x {
			s += a.w1[i][j] * v
		}
		h[i] = math.Tanh(s)
	}

	y = make([]float64, a.inDim)
	for i := range y {
		s := a.b2[i]
		for j, v := range h {
			s += a.w2[i][j] * v
		}
		y[i] = s
	}
	return h, y
}

// step performs one stochastic gradient update toward reconstructing x.
func (a *Autoencoder) step(x []float64) {
	h, y := a.forward(x)

	// output layer gradient: d(mse)/dy
	dy := make([]float64, a.inDim)
	for i := range dy {
		dy[i] = 2 * (y[i] - x[i]) / float64(a.inDim)
	}

	// hidden gradient through tanh
	dh := make([]float64, a.hidden)
	for j := range dh {
		var s float64
		for i := range dy {
			s += a.w2[i][j] * dy[i]
		}
		dh[j] = s * (1 - h[j]*h[j])
	}

	for i := range a.w2 {
		for j := range a.w2[i] {
			a.w2[i][j] -= a.learnRate * dy[i] * h[j]
		}
		a.b2[i] -= a.learnRate * dy[i]
	}

	for i := range a.w1 {
		for j := range a.w1[i] {
			a.w1[i][j] -= a.learnRate * dh[i] * x[j]
		}
		a.b1[i] -= a.learnRate * dh[i]
	}
}
