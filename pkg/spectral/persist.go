package spectral

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

// envelope is the on-disk form of a detector: the mode tag plus the
// backend's own serialized state.
type envelope struct {
	Mode          string
	WindowSize    int
	Contamination float64
	Arity         int
	Backend       []byte
}

// Save persists the fitted detector to path. Statistical models round-trip
// exactly; temporal models persist configuration only (a reduced-fidelity
// artifact, logged as a warning) and must be refitted after Load.
func (d *Detector) Save(path string) error {
	if !d.fitted {
		return detectors.ErrNotFitted
	}

	if d.mode == ModeTemporal {
		d.log.Warn("temporal model weights are not persisted; saving configuration only",
			zap.String("path", path))
	}

	blob, err := d.backend.Save()
	if err != nil {
		return fmt.Errorf("serialize %s backend: %w", d.mode, err)
	}

	var buf bytes.Buffer
	env := envelope{
		Mode:          string(d.mode),
		WindowSize:    d.windowSize,
		Contamination: d.contamination,
		Arity:         d.arity,
		Backend:       blob,
	}
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encode model envelope: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load restores a detector from path. On any failure the detector keeps its
// pre-load state. Loading a temporal artifact restores configuration and
// threshold but leaves the detector unfitted.
func (d *Detector) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return fmt.Errorf("%w: %v", detectors.ErrCorruptState, err)
	}

	mode := Mode(env.Mode)
	if mode != ModeStatistical && mode != ModeTemporal {
		return fmt.Errorf("%w: unknown mode tag %q", detectors.ErrCorruptState, env.Mode)
	}

	// Rebuild into a scratch detector first so a malformed backend blob
	// cannot leave this one partially mutated.
	scratch := &Detector{
		mode:          mode,
		windowSize:    env.WindowSize,
		contamination: env.Contamination,
		seed:          d.seed,
		log:           d.log,
	}
	backend := scratch.newBackend()
	if err := backend.Load(env.Backend); err != nil {
		return fmt.Errorf("%w: %s backend: %v", detectors.ErrCorruptState, mode, err)
	}

	d.mode = mode
	d.windowSize = env.WindowSize
	d.contamination = env.Contamination
	d.backend = backend
	d.arity = env.Arity
	d.tail = nil
	d.fitted = mode == ModeStatistical

	if mode == ModeTemporal {
		d.log.Warn("loaded temporal artifact holds configuration only; fit before scoring",
			zap.String("path", path))
	}

	return nil
}
