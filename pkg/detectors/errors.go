package detectors

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned when Score is called before a successful Fit.
// The caller must fit first; scoring never auto-fits.
var ErrNotFitted = errors.New("detector is not fitted")

// ErrCorruptState is returned when a persisted model blob is unrecognized
// or malformed. The detector is left in its pre-load state.
var ErrCorruptState = errors.New("corrupt model state")

// ConfigError reports an invalid configuration value. It is raised at
// construction or fit time and is never silently corrected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ArityError reports a feature-count mismatch between fit-time and
// score-time input. Input is surfaced, never coerced.
type ArityError struct {
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("feature arity mismatch: fitted with %d features, got %d", e.Want, e.Got)
}
