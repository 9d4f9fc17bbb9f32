package alarm

import (
	"context"
	"errors"
	"fmt"
	stdio "io"
	"time"

	"github.com/resonance-hq/resonance/pkg/detectors"
	"github.com/resonance-hq/resonance/pkg/io"
)

// ErrHalted is returned by Monitor.Run after a halt-on-alert machine fires.
var ErrHalted = errors.New("alarm: monitoring halted on alert")

// Classifier turns one observation into a normalized score and a verdict.
// *spectral.Detector satisfies it.
type Classifier interface {
	// ScoreOne scores a single observation; ok is false while a temporal
	// classifier is still warming up its window.
	ScoreOne(sample []float64) (score float64, ok bool, err error)

	// Verdict maps a normalized score to its discrete classification.
	Verdict(score float64) detectors.Verdict
}

// Observer receives emitted events. Implementations must not block for
// long: notification happens inline in the tick loop.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Notify calls f(e).
func (f ObserverFunc) Notify(e Event) { f(e) }

// Monitor drives the tick loop for one stream: pull an observation, score
// it, feed the verdict through the state machine, notify the observer.
// Each tick completes fully before the next observation is read.
type Monitor struct {
	source     io.Source
	classifier Classifier
	machine    *Machine
	observer   Observer
	interval   time.Duration
	now        func() time.Time
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the fixed delay between ticks. Default 500ms.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

// WithObserver sets the event sink. Default discards events.
func WithObserver(o Observer) MonitorOption {
	return func(m *Monitor) { m.observer = o }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a Monitor over source using classifier and machine.
func NewMonitor(source io.Source, classifier Classifier, machine *Machine, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		source:     source,
		classifier: classifier,
		machine:    machine,
		observer:   ObserverFunc(func(Event) {}),
		interval:   500 * time.Millisecond,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run processes observations until the source is exhausted, the context is
// cancelled, or a halt-on-alert machine fires (ErrHalted). The inter-tick
// delay is the only suspension point; each tick itself is synchronous.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		obs, err := m.source.Next(ctx)
		if errors.Is(err, stdio.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read observation: %w", err)
		}

		score, ready, err := m.classifier.ScoreOne(obs)
		if err != nil {
			return fmt.Errorf("score observation: %w", err)
		}

		if ready {
			verdict := m.classifier.Verdict(score)
			for _, event := range m.machine.Tick(m.now(), verdict, score, obs) {
				m.observer.Notify(event)
			}
			if m.machine.Halted() {
				return ErrHalted
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.interval):
		}
	}
}
