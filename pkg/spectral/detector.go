// Package spectral orchestrates the anomaly detection pipeline: backend
// selection, input shape handling, fit/score lifecycle and persistence.
package spectral

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/resonance-hq/resonance/pkg/detectors"
	"github.com/resonance-hq/resonance/pkg/detectors/iforest"
	"github.com/resonance-hq/resonance/pkg/detectors/recon"
)

// Mode selects the scoring backend variant. It is fixed at construction.
type Mode string

const (
	// ModeStatistical scores with an Isolation Forest ensemble. Normalized
	// scores are discrete: -1 anomalous, +1 normal.
	ModeStatistical Mode = "statistical"
	// ModeTemporal scores windows by sequence reconstruction error.
	// Normalized scores are continuous in [0, +inf), one per window; output
	// is shorter than input by window_size-1.
	ModeTemporal Mode = "temporal"
)

// thresholder is satisfied by both backends.
type thresholder interface {
	Threshold() float64
	SetThreshold(float64)
}

// Detector owns one scoring backend and drives its fit/score lifecycle.
//
// A Detector is not safe for concurrent fit and score on the same instance;
// each monitored stream owns its Detector exclusively.
type Detector struct {
	mode          Mode
	windowSize    int
	contamination float64 // 0 means "auto": the backend keeps its native boundary
	seed          int64
	log           *zap.Logger

	backend detectors.Backend
	arity   int
	fitted  bool

	// most recent observations, temporal streaming only
	tail [][]float64
}

// Option configures a Detector.
type Option func(*Detector)

// WithWindowSize sets the temporal sequence length.
func WithWindowSize(n int) Option {
	return func(d *Detector) { d.windowSize = n }
}

// WithContamination sets the expected outlier fraction of the baseline.
// Zero selects "auto".
func WithContamination(c float64) Option {
	return func(d *Detector) { d.contamination = c }
}

// WithSeed seeds backend randomness for reproducible fits.
func WithSeed(seed int64) Option {
	return func(d *Detector) { d.seed = seed }
}

// WithLogger sets the logger used for persistence warnings. Defaults to a
// no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Detector) { d.log = log }
}

// New creates an unfitted Detector for the given mode. Unknown modes and
// out-of-range parameters are configuration errors.
func New(mode Mode, opts ...Option) (*Detector, error) {
	d := &Detector{
		mode:       mode,
		windowSize: 50,
		seed:       42,
		log:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if mode != ModeStatistical && mode != ModeTemporal {
		return nil, &detectors.ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	if d.windowSize <= 0 {
		return nil, &detectors.ConfigError{Field: "window_size", Reason: "must be positive"}
	}
	if d.contamination < 0 || d.contamination >= 1 {
		return nil, &detectors.ConfigError{Field: "contamination", Reason: "must be a fraction in (0,1) or 0 for auto"}
	}

	return d, nil
}

// Mode returns the backend variant this detector was constructed with.
func (d *Detector) Mode() Mode { return d.mode }

// WindowSize returns the temporal sequence length.
func (d *Detector) WindowSize() int { return d.windowSize }

// Fitted reports whether the detector holds a fitted backend.
func (d *Detector) Fitted() bool { return d.fitted }

// Arity returns the feature count inferred at fit time, 0 before fitting.
func (d *Detector) Arity() int { return d.arity }

// Fit learns the baseline from data. The arity of the first row becomes the
// fitted arity; every row must match it. Refitting replaces the backend.
func (d *Detector) Fit(data [][]float64) error {
	if len(data) == 0 {
		return &detectors.ConfigError{Field: "baseline", Reason: "empty baseline"}
	}

	arity := len(data[0])
	for _, row := range data {
		if len(row) != arity {
			return &detectors.ArityError{Want: arity, Got: len(row)}
		}
	}

	backend := d.newBackend()
	if err := backend.Fit(data); err != nil {
		return fmt.Errorf("fit %s backend: %w", d.mode, err)
	}

	d.backend = backend
	d.arity = arity
	d.fitted = true
	d.tail = nil

	return nil
}

// FitSeries fits on a single-feature series, coercing it to an Nx1 matrix.
func (d *Detector) FitSeries(series []float64) error {
	return d.Fit(columnize(series))
}

func (d *Detector) newBackend() detectors.Backend {
	switch d.mode {
	case ModeTemporal:
		return recon.New(
			recon.WithWindowSize(d.windowSize),
			recon.WithSeed(d.seed),
		)
	default:
		return iforest.New(
			iforest.WithContamination(d.contamination),
			iforest.WithSeed(d.seed),
		)
	}
}

// Score returns normalized scores for data: discrete -1/+1 per sample in
// statistical mode, raw reconstruction error per window in temporal mode.
func (d *Detector) Score(data [][]float64) ([]float64, error) {
	if !d.fitted {
		return nil, detectors.ErrNotFitted
	}
	for _, row := range data {
		if len(row) != d.arity {
			return nil, &detectors.ArityError{Want: d.arity, Got: len(row)}
		}
	}

	raw, err := d.backend.Score(data)
	if err != nil {
		return nil, err
	}

	if d.mode == ModeStatistical {
		boundary := d.Threshold()
		for i, s := range raw {
			if s > boundary {
				raw[i] = float64(detectors.Anomalous)
			} else {
				raw[i] = float64(detectors.Normal)
			}
		}
	}
	return raw, nil
}

// ScoreSeries scores a single-feature series, coercing it as FitSeries does.
func (d *Detector) ScoreSeries(series []float64) ([]float64, error) {
	return d.Score(columnize(series))
}

// ScoreOne scores a single observation for streaming use. In temporal mode
// the observation is buffered until a full window is available; ok is false
// while warming up.
func (d *Detector) ScoreOne(sample []float64) (score float64, ok bool, err error) {
	if !d.fitted {
		return 0, false, detectors.ErrNotFitted
	}
	if len(sample) != d.arity {
		return 0, false, &detectors.ArityError{Want: d.arity, Got: len(sample)}
	}

	if d.mode == ModeStatistical {
		scores, err := d.Score([][]float64{sample})
		if err != nil {
			return 0, false, err
		}
		return scores[0], true, nil
	}

	d.tail = append(d.tail, sample)
	if len(d.tail) > d.windowSize {
		d.tail = d.tail[len(d.tail)-d.windowSize:]
	}
	if len(d.tail) < d.windowSize {
		return 0, false, nil
	}

	scores, err := d.backend.Score(d.tail)
	if err != nil {
		return 0, false, err
	}
	return scores[0], true, nil
}

// Anomalous reports whether a normalized score counts as anomalous: a -1
// verdict in statistical mode, a reconstruction error above the configured
// threshold in temporal mode. With no temporal threshold set, nothing is
// anomalous; callers must supply one via SetThreshold.
func (d *Detector) Anomalous(score float64) bool {
	if d.mode == ModeStatistical {
		return score < 0
	}
	if th, ok := d.backend.(thresholder); ok {
		return score > th.Threshold()
	}
	return false
}

// Verdict maps a normalized score to its discrete classification.
func (d *Detector) Verdict(score float64) detectors.Verdict {
	if d.Anomalous(score) {
		return detectors.Anomalous
	}
	return detectors.Normal
}

// Threshold returns the backend decision boundary: the iforest score
// boundary in statistical mode, the caller-supplied reconstruction-error
// boundary in temporal mode (+Inf when unset).
func (d *Detector) Threshold() float64 {
	if th, ok := d.backend.(thresholder); ok {
		return th.Threshold()
	}
	return 0
}

// SetThreshold overrides the backend decision boundary. It requires a
// fitted backend.
func (d *Detector) SetThreshold(t float64) error {
	if d.backend == nil {
		return detectors.ErrNotFitted
	}
	if th, ok := d.backend.(thresholder); ok {
		th.SetThreshold(t)
		return nil
	}
	return fmt.Errorf("%s backend has no adjustable threshold", d.mode)
}

// columnize coerces a 1-D series into an Nx1 feature matrix.
func columnize(series []float64) [][]float64 {
	data := make([][]float64, len(series))
	for i, v := range series {
		data[i] = []float64{v}
	}
	return data
}
