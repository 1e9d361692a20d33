// Package exercise drives a conversation through the ordered phases of a guided exercise.
package exercise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
	"solace/pkg/logx"
	"solace/pkg/metrics"
)

// ErrNoPhases is returned when an exercise's framework defines no phases.
var ErrNoPhases = errors.New("framework has no phases")

// Store is the persistence the facilitator needs.
type Store interface {
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
	SaveConversation(ctx context.Context, c *conversation.Conversation) error
	GetExercise(ctx context.Context, id string) (*catalog.Exercise, error)
	GetFramework(ctx context.Context, id string) (*catalog.Framework, error)
	CreateCompletion(ctx context.Context, comp *conversation.ExerciseCompletion) error
}

// Context is the running exercise of a conversation.
type Context struct {
	Exercise     *catalog.Exercise
	Framework    *catalog.Framework
	CurrentPhase int
	TotalPhases  int
}

// Phase returns the current phase, or nil when the index is out of range.
func (c *Context) Phase() *catalog.Phase {
	if c.CurrentPhase < 0 || c.CurrentPhase >= len(c.Framework.Phases) {
		return nil
	}
	return &c.Framework.Phases[c.CurrentPhase]
}

// IsFinalPhase reports whether the user is on the last phase.
func (c *Context) IsFinalPhase() bool {
	return c.CurrentPhase == c.TotalPhases-1
}

// Option configures a Facilitator.
type Option func(*Facilitator)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Facilitator) { f.now = now }
}

// WithRecorder reports exercise lifecycle events.
func WithRecorder(r metrics.Recorder) Option {
	return func(f *Facilitator) {
		if r != nil {
			f.recorder = r
		}
	}
}

// Facilitator starts, advances, completes and cancels exercises.
type Facilitator struct {
	store    Store
	recorder metrics.Recorder
	now      func() time.Time
	logger   *logx.Logger
}

// NewFacilitator creates a facilitator backed by store.
func NewFacilitator(store Store, opts ...Option) *Facilitator {
	f := &Facilitator{
		store:    store,
		recorder: metrics.Nop(),
		now:      time.Now,
		logger:   logx.NewLogger("exercise"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facilitator) load(ctx context.Context, exerciseID string) (*catalog.Exercise, *catalog.Framework, error) {
	ex, err := f.store.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, nil, err
	}
	fw, err := f.store.GetFramework(ctx, ex.FrameworkID)
	if err != nil {
		return nil, nil, err
	}
	return ex, fw, nil
}

// Start begins exerciseID at its first phase and moves the conversation to EXERCISE_FACILITATION.
func (f *Facilitator) Start(ctx context.Context, conversationID, exerciseID string) (*Context, error) {
	c, err := f.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("start exercise: %w", err)
	}
	ex, fw, err := f.load(ctx, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("start exercise %s: %w", exerciseID, err)
	}
	if len(fw.Phases) == 0 {
		return nil, fmt.Errorf("start exercise %s: %w", exerciseID, ErrNoPhases)
	}

	now := f.now()
	c.ActiveExerciseID = ex.ID
	c.ActiveFrameworkID = fw.ID
	c.CurrentPhaseIndex = 0
	c.ExerciseStartedAt = &now
	c.PendingSuggestions = nil
	c.State = conversation.StateExerciseFacilitation
	c.UpdatedAt = now
	if err := f.store.SaveConversation(ctx, c); err != nil {
		return nil, fmt.Errorf("start exercise: %w", err)
	}

	f.recorder.IncExerciseEvent(metrics.ExerciseStarted)
	f.logger.Info("conversation %s started exercise %s (%d phases)", conversationID, ex.ID, len(fw.Phases))
	return &Context{Exercise: ex, Framework: fw, CurrentPhase: 0, TotalPhases: len(fw.Phases)}, nil
}

// GetActive returns the running exercise, or nil when there is none.
// A reference to an exercise or framework that no longer exists is cleared.
func (f *Facilitator) GetActive(ctx context.Context, conversationID string) (*Context, error) {
	c, err := f.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get active exercise: %w", err)
	}
	if !c.HasActiveExercise() {
		return nil, nil
	}

	ex, fw, err := f.load(ctx, c.ActiveExerciseID)
	if errors.Is(err, conversation.ErrNotFound) {
		f.logger.Warn("conversation %s references missing exercise %s; clearing", conversationID, c.ActiveExerciseID)
		if err := f.cancel(ctx, c); err != nil {
			return nil, fmt.Errorf("clear stale exercise: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active exercise: %w", err)
	}

	return &Context{
		Exercise:     ex,
		Framework:    fw,
		CurrentPhase: c.CurrentPhaseIndex,
		TotalPhases:  len(fw.Phases),
	}, nil
}

// AdvancePhase moves to the next phase and returns its index.
func (f *Facilitator) AdvancePhase(ctx context.Context, conversationID string) (int, error) {
	c, err := f.store.GetConversation(ctx, conversationID)
	if err != nil {
		return 0, fmt.Errorf("advance phase: %w", err)
	}
	if !c.HasActiveExercise() {
		return 0, fmt.Errorf("advance phase: %w", conversation.ErrNoActiveExercise)
	}

	c.CurrentPhaseIndex++
	c.UpdatedAt = f.now()
	if err := f.store.SaveConversation(ctx, c); err != nil {
		return 0, fmt.Errorf("advance phase: %w", err)
	}
	logx.Debug(ctx, "exercise", "%s advanced to phase %d", c.ActiveExerciseID, c.CurrentPhaseIndex)
	return c.CurrentPhaseIndex, nil
}

// Complete records the user's reflection and moves to POST_EXERCISE_INTEGRATION.
func (f *Facilitator) Complete(ctx context.Context, conversationID, reflection string) error {
	c, err := f.store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("complete exercise: %w", err)
	}
	if !c.HasActiveExercise() {
		return fmt.Errorf("complete exercise: %w", conversation.ErrNoActiveExercise)
	}

	now := f.now()
	started := now
	if c.ExerciseStartedAt != nil {
		started = *c.ExerciseStartedAt
	}
	comp := &conversation.ExerciseCompletion{
		ID:             uuid.NewString(),
		ConversationID: c.ID,
		ExerciseID:     c.ActiveExerciseID,
		Reflection:     reflection,
		StartedAt:      started,
		CompletedAt:    now,
	}
	if err := f.store.CreateCompletion(ctx, comp); err != nil {
		return fmt.Errorf("complete exercise: %w", err)
	}

	c.ExercisesCompleted++
	c.ClearExercise()
	c.State = conversation.StatePostExerciseIntegration
	c.UpdatedAt = now
	if err := f.store.SaveConversation(ctx, c); err != nil {
		return fmt.Errorf("complete exercise: %w", err)
	}

	f.recorder.IncExerciseEvent(metrics.ExerciseCompleted)
	f.logger.Info("conversation %s completed exercise %s in %s", conversationID, comp.ExerciseID,
		now.Sub(started).Round(time.Second))
	return nil
}

// Cancel stops the running exercise and moves to SUPPORTIVE_PROCESSING.
// Cancelling when nothing is running is a no-op.
func (f *Facilitator) Cancel(ctx context.Context, conversationID string) error {
	c, err := f.store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("cancel exercise: %w", err)
	}
	if !c.HasActiveExercise() {
		return nil
	}
	if err := f.cancel(ctx, c); err != nil {
		return fmt.Errorf("cancel exercise: %w", err)
	}
	return nil
}

func (f *Facilitator) cancel(ctx context.Context, c *conversation.Conversation) error {
	exerciseID := c.ActiveExerciseID
	c.ClearExercise()
	c.State = conversation.StateSupportiveProcessing
	c.UpdatedAt = f.now()
	if err := f.store.SaveConversation(ctx, c); err != nil {
		return err
	}
	f.recorder.IncExerciseEvent(metrics.ExerciseCancelled)
	f.logger.Info("conversation %s cancelled exercise %s", c.ID, exerciseID)
	return nil
}
