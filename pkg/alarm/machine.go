// Package alarm converts a stream of discrete verdicts into edge-triggered
// alert and recovery events.
package alarm

import (
	"time"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

// State is the alarm condition of a monitored stream.
type State uint8

const (
	// Quiet is the initial state: no active alarm.
	Quiet State = iota
	// Alarmed means an anomaly was seen and no recovery since.
	Alarmed
)

func (s State) String() string {
	if s == Alarmed {
		return "ALARMED"
	}
	return "QUIET"
}

// EventType identifies an emitted event.
type EventType uint8

const (
	// EventNone is the zero value; it is never emitted.
	EventNone EventType = iota
	// EventAlert is emitted on the rising edge, Quiet to Alarmed.
	EventAlert
	// EventRecover is emitted on the falling edge, Alarmed to Quiet.
	EventRecover
	// EventFatal is emitted after an alert when halt-on-alert is configured.
	EventFatal
)

func (t EventType) String() string {
	switch t {
	case EventAlert:
		return "ALERT"
	case EventRecover:
		return "RECOVER"
	case EventFatal:
		return "FATAL"
	default:
		return "NONE"
	}
}

// Event is one discrete alert-pipeline output.
type Event struct {
	Type EventType
	Time time.Time
	// Score is the normalized score that produced the verdict.
	Score float64
	// Metrics are the triggering observation's features, alerts only.
	Metrics []float64
	// Reason is set on fatal events.
	Reason string
}

// transition is the pure transition rule: edges emit, everything else is a
// no-op. It has no knowledge of time spent in a state.
func transition(s State, v detectors.Verdict) (State, EventType) {
	switch {
	case s == Quiet && v == detectors.Anomalous:
		return Alarmed, EventAlert
	case s == Alarmed && v == detectors.Normal:
		return Quiet, EventRecover
	default:
		return s, EventNone
	}
}

// Machine is the hysteresis state machine for one monitored stream. It owns
// the only mutable alarm state in the pipeline and mutates it exclusively
// through its transition rule. Repeated anomalous verdicts while already
// alarmed emit nothing.
//
// A Machine is owned by a single stream and is not safe for concurrent use.
type Machine struct {
	state          State
	haltOnAlert    bool
	halted         bool
	lastTransition time.Time
}

// Option configures a Machine at construction.
type Option func(*Machine)

// WithHaltOnAlert makes the rising edge emit a fatal event and terminate
// the machine: no further ticks are processed.
func WithHaltOnAlert() Option {
	return func(m *Machine) { m.haltOnAlert = true }
}

// NewMachine creates a Machine in the Quiet state.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{state: Quiet}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tick feeds one timestamped verdict through the machine and returns the
// events it emits: nothing for a no-op, an alert or recovery on an edge,
// and an additional fatal event when halt-on-alert fires. A halted machine
// ignores ticks. Tick never fails on well-formed verdicts.
func (m *Machine) Tick(ts time.Time, v detectors.Verdict, score float64, metrics []float64) []Event {
	if m.halted {
		return nil
	}

	next, emit := transition(m.state, v)
	if next != m.state {
		m.state = next
		m.lastTransition = ts
	}

	switch emit {
	case EventAlert:
		events := []Event{{Type: EventAlert, Time: ts, Score: score, Metrics: metrics}}
		if m.haltOnAlert {
			m.halted = true
			events = append(events, Event{
				Type:   EventFatal,
				Time:   ts,
				Reason: "halt on alert configured",
			})
		}
		return events
	case EventRecover:
		return []Event{{Type: EventRecover, Time: ts, Score: score}}
	default:
		return nil
	}
}

// State returns the current alarm condition.
func (m *Machine) State() State { return m.state }

// Halted reports whether the machine has terminated.
func (m *Machine) Halted() bool { return m.halted }

// LastTransition returns the timestamp of the most recent state change,
// zero if none has occurred.
func (m *Machine) LastTransition() time.Time { return m.lastTransition }
