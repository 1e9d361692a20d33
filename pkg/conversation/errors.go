package conversation

import "errors"

var (
	// ErrNotFound is returned when a conversation, exercise or framework does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveExercise is returned by phase and completion operations when nothing is running.
	ErrNoActiveExercise = errors.New("no active exercise")

	// ErrInvalidTransition is returned when a transition is not in the table.
	ErrInvalidTransition = errors.New("invalid state transition")
)
