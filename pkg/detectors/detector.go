// Package detectors defines the contracts shared by all anomaly scoring
// backends and the error taxonomy of the detection pipeline.
package detectors

import "time"

// Backend is the capability contract every scoring backend satisfies.
// A backend learns a baseline from a sample set and scores new samples
// against it; score semantics are backend-dependent and are normalized
// at the detector boundary (see package spectral).
type Backend interface {
	// Fit trains the backend on baseline data.
	// data is a 2D slice where each row is a sample and each column is a feature.
	Fit(data [][]float64) error

	// Score returns anomaly scores for the given samples.
	// One score per sample, except for temporal backends which return one
	// score per derived window.
	Score(data [][]float64) ([]float64, error)

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// Verdict is the discrete classification derived from a score.
type Verdict int

const (
	// Anomalous marks a sample that deviates from the learned baseline.
	Anomalous Verdict = -1
	// Normal marks a sample consistent with the learned baseline.
	Normal Verdict = 1
)

// String returns the verdict label used in stream output and events.
func (v Verdict) String() string {
	if v == Anomalous {
		return "ANOMALY"
	}
	return "NORMAL"
}

// Result is one classified observation in a score stream.
type Result struct {
	// Time is when the observation was scored.
	Time time.Time
	// Score is the raw backend score for the observation.
	Score float64
	// Verdict is the discrete classification.
	Verdict Verdict
	// Features contains the original input features.
	Features []float64
}

