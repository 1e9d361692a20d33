// Package metrics records and queries operational metrics for conversations and model calls.
package metrics

import (
	"time"
)

// Exercise lifecycle events.
const (
	ExerciseStarted   = "started"
	ExerciseCompleted = "completed"
	ExerciseCancelled = "cancelled"
)

// Recorder defines the interface for recording conversation and model metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed model request.
	ObserveRequest(
		model, state string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveTurn records how long a full conversation turn took and the state it ended in.
	ObserveTurn(state string, duration time.Duration)

	// IncTransition counts accepted state changes.
	IncTransition(from, to string)

	// IncInvalidTransition counts model proposals rejected by the transition table.
	IncInvalidTransition(from, to string)

	// IncCrisis counts detections by severity.
	IncCrisis(severity string)

	// IncGateBlocked counts exercise searches refused by the gate.
	IncGateBlocked()

	// IncExerciseEvent counts exercise lifecycle events.
	IncExerciseEvent(event string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _, _ int, _ bool, _ string, _ time.Duration) {}

// ObserveTurn does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveTurn(_ string, _ time.Duration) {}

// IncTransition does nothing in the no-op recorder.
func (n *NoopRecorder) IncTransition(_, _ string) {}

// IncInvalidTransition does nothing in the no-op recorder.
func (n *NoopRecorder) IncInvalidTransition(_, _ string) {}

// IncCrisis does nothing in the no-op recorder.
func (n *NoopRecorder) IncCrisis(_ string) {}

// IncGateBlocked does nothing in the no-op recorder.
func (n *NoopRecorder) IncGateBlocked() {}

// IncExerciseEvent does nothing in the no-op recorder.
func (n *NoopRecorder) IncExerciseEvent(_ string) {}
