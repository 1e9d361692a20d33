// Package gate decides when the conversation may suggest a structured exercise.
package gate

import (
	"context"
	"fmt"
	"time"

	"solace/pkg/conversation"
	"solace/pkg/logx"
)

// DefaultDeclineCooldown is how long a decline keeps the gate closed.
const DefaultDeclineCooldown = 24 * time.Hour

// Human-readable failure reasons, reported in condition order.
const (
	ReasonNoChallenge      = "User has not articulated a concrete challenge"
	ReasonNoReflection     = "AI has not yet reflected the user's experience"
	ReasonNotRegulated     = "User does not appear emotionally regulated"
	ReasonNoStructure      = "AI has not explained how a structured exercise could help"
	ReasonRecentlyDeclined = "User declined an exercise recently"
)

// ConversationStore loads and saves conversations.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
	SaveConversation(ctx context.Context, c *conversation.Conversation) error
}

// Status is the derived gate state of one conversation.
type Status struct {
	FailedConditions []string                    `json:"failed_conditions"`
	Conditions       conversation.GateConditions `json:"conditions"`
	AllConditionsMet bool                        `json:"all_conditions_met"`
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithCooldown overrides DefaultDeclineCooldown.
func WithCooldown(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.cooldown = d
		}
	}
}

// Validator tracks the five gate conditions stored on each conversation.
type Validator struct {
	store    ConversationStore
	now      func() time.Time
	logger   *logx.Logger
	cooldown time.Duration
}

// NewValidator creates a validator backed by store.
func NewValidator(store ConversationStore, opts ...Option) *Validator {
	v := &Validator{
		store:    store,
		now:      time.Now,
		cooldown: DefaultDeclineCooldown,
		logger:   logx.NewLogger("gate"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Evaluate derives a Status from a set of conditions.
func Evaluate(g conversation.GateConditions) Status {
	failed := make([]string, 0, 5)
	if !g.ChallengeArticulated {
		failed = append(failed, ReasonNoChallenge)
	}
	if !g.ReflectionShown {
		failed = append(failed, ReasonNoReflection)
	}
	if !g.EmotionallyRegulated {
		failed = append(failed, ReasonNotRegulated)
	}
	if !g.StructureExplained {
		failed = append(failed, ReasonNoStructure)
	}
	if !g.NoRecentDecline {
		failed = append(failed, ReasonRecentlyDeclined)
	}
	return Status{
		Conditions:       g,
		AllConditionsMet: len(failed) == 0,
		FailedConditions: failed,
	}
}

// Validate reports the gate status of a conversation.
func (v *Validator) Validate(ctx context.Context, conversationID string) (Status, error) {
	c, err := v.store.GetConversation(ctx, conversationID)
	if err != nil {
		return Status{}, fmt.Errorf("validate gate: %w", err)
	}
	return Evaluate(c.Gate), nil
}

// UpdateConditions applies a partial update. Nil fields are left untouched.
func (v *Validator) UpdateConditions(ctx context.Context, conversationID string, update conversation.GateUpdate) error {
	if update.Empty() {
		return nil
	}
	c, err := v.store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("update gate conditions: %w", err)
	}
	c.Gate.Apply(update)
	c.UpdatedAt = v.now()
	if err := v.store.SaveConversation(ctx, c); err != nil {
		return fmt.Errorf("update gate conditions: %w", err)
	}
	logx.Debug(ctx, "gate", "conditions now %+v", c.Gate)
	return nil
}

// RecordDecline closes condition 5 and starts the cooldown.
func (v *Validator) RecordDecline(ctx context.Context, conversationID string) error {
	c, err := v.store.GetConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("record decline: %w", err)
	}
	now := v.now()
	c.Gate.NoRecentDecline = false
	c.LastDeclinedAt = &now
	c.UpdatedAt = now
	if err := v.store.SaveConversation(ctx, c); err != nil {
		return fmt.Errorf("record decline: %w", err)
	}
	v.logger.Info("decline recorded for %s; gate closed for %s", conversationID, v.cooldown)
	return nil
}

// MaybeResetDecline reopens condition 5 once the cooldown has elapsed.
// It reports whether a reset happened.
func (v *Validator) MaybeResetDecline(ctx context.Context, conversationID string) (bool, error) {
	c, err := v.store.GetConversation(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("reset decline: %w", err)
	}
	if c.Gate.NoRecentDecline || c.LastDeclinedAt == nil {
		return false, nil
	}
	now := v.now()
	if now.Sub(*c.LastDeclinedAt) < v.cooldown {
		return false, nil
	}
	c.Gate.NoRecentDecline = true
	c.UpdatedAt = now
	if err := v.store.SaveConversation(ctx, c); err != nil {
		return false, fmt.Errorf("reset decline: %w", err)
	}
	v.logger.Info("decline cooldown elapsed for %s", conversationID)
	return true, nil
}
