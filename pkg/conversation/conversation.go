// Package conversation holds the conversation aggregate, its states and the transition table.
package conversation

import (
	"time"
)

// GateConditions are the five preconditions for suggesting an exercise, in fixed order.
type GateConditions struct {
	ChallengeArticulated bool `json:"challenge_articulated"`
	ReflectionShown      bool `json:"reflection_shown"`
	EmotionallyRegulated bool `json:"emotionally_regulated"`
	StructureExplained   bool `json:"structure_explained"`
	NoRecentDecline      bool `json:"no_recent_decline"`
}

// NewGateConditions returns the starting gate: nothing observed, no decline yet.
func NewGateConditions() GateConditions {
	return GateConditions{NoRecentDecline: true}
}

// AllMet reports whether every condition holds.
func (g GateConditions) AllMet() bool {
	return g.ChallengeArticulated && g.ReflectionShown && g.EmotionallyRegulated &&
		g.StructureExplained && g.NoRecentDecline
}

// GateUpdate is a partial update; nil fields are left untouched.
type GateUpdate struct {
	ChallengeArticulated *bool
	ReflectionShown      *bool
	EmotionallyRegulated *bool
	StructureExplained   *bool
	NoRecentDecline      *bool
}

// Empty reports whether the update changes nothing.
func (u GateUpdate) Empty() bool {
	return u.ChallengeArticulated == nil && u.ReflectionShown == nil && u.EmotionallyRegulated == nil &&
		u.StructureExplained == nil && u.NoRecentDecline == nil
}

// Apply merges the non-nil fields of u into g.
func (g *GateConditions) Apply(u GateUpdate) {
	if u.ChallengeArticulated != nil {
		g.ChallengeArticulated = *u.ChallengeArticulated
	}
	if u.ReflectionShown != nil {
		g.ReflectionShown = *u.ReflectionShown
	}
	if u.EmotionallyRegulated != nil {
		g.EmotionallyRegulated = *u.EmotionallyRegulated
	}
	if u.StructureExplained != nil {
		g.StructureExplained = *u.StructureExplained
	}
	if u.NoRecentDecline != nil {
		g.NoRecentDecline = *u.NoRecentDecline
	}
}

// Conversation is one therapeutic chat thread and everything the core tracks about it.
type Conversation struct {
	CreatedAt          time.Time
	UpdatedAt          time.Time
	LastDeclinedAt     *time.Time
	ExerciseStartedAt  *time.Time
	ID                 string
	UserID             string
	State              State
	ActiveExerciseID   string
	ActiveFrameworkID  string
	PendingSuggestions []string
	CurrentPhaseIndex  int
	ExercisesCompleted int
	Gate               GateConditions
}

// New returns a conversation in INIT with a closed gate.
func New(id, userID string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		UserID:    userID,
		State:     StateInit,
		Gate:      NewGateConditions(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasActiveExercise reports whether an exercise is in progress.
func (c *Conversation) HasActiveExercise() bool {
	return c.ActiveExerciseID != ""
}

// ClearExercise drops the active exercise reference and its progress.
func (c *Conversation) ClearExercise() {
	c.ActiveExerciseID = ""
	c.ActiveFrameworkID = ""
	c.CurrentPhaseIndex = 0
	c.ExerciseStartedAt = nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	if c.LastDeclinedAt != nil {
		t := *c.LastDeclinedAt
		cp.LastDeclinedAt = &t
	}
	if c.ExerciseStartedAt != nil {
		t := *c.ExerciseStartedAt
		cp.ExerciseStartedAt = &t
	}
	cp.PendingSuggestions = append([]string(nil), c.PendingSuggestions...)
	return &cp
}

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one persisted turn of the conversation.
type Message struct {
	CreatedAt      time.Time
	ConversationID string
	Role           Role
	Content        string
	State          State
	ID             int64
	Crisis         bool
}

// UserProfile is optional context about the person, rendered into the system prompt.
type UserProfile struct {
	UserID      string
	DisplayName string
	Goals       string
	Notes       string
}

// Bool returns a pointer to b, for building GateUpdates.
func Bool(b bool) *bool {
	return &b
}

// ExerciseCompletion records a finished exercise and the user's closing reflection.
type ExerciseCompletion struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	ID             string
	ConversationID string
	ExerciseID     string
	Reflection     string
}
