// Package controller runs one conversation turn: crisis override, exercise flow, gate tracking,
// prompt construction, the model call and the state transition that follows.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"solace/pkg/catalog"
	"solace/pkg/config"
	"solace/pkg/conversation"
	"solace/pkg/crisis"
	"solace/pkg/exercise"
	"solace/pkg/gate"
	"solace/pkg/llm"
	"solace/pkg/llm/llmerrors"
	"solace/pkg/logx"
	"solace/pkg/metrics"
	"solace/pkg/persistence"
	"solace/pkg/templates"
	"solace/pkg/tools"
	"solace/pkg/utils"
)

// ErrEmptyMessage is returned when the user message has no content.
var ErrEmptyMessage = errors.New("message is empty")

// Response is what a turn returns to the caller.
type Response struct {
	Metadata           map[string]any     `json:"metadata,omitempty"`
	Content            string             `json:"content"`
	NewState           conversation.State `json:"new_state"`
	SuggestedExercises []catalog.Exercise `json:"suggested_exercises,omitempty"`
	CrisisDetected     bool               `json:"crisis_detected"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithConversationConfig overrides the history, timeout and reflection settings.
func WithConversationConfig(cfg config.ConversationConfig) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithModelConfig sets the completion limits sent with every request.
func WithModelConfig(cfg config.ModelConfig) Option {
	return func(c *Controller) {
		if cfg.MaxTokens > 0 {
			c.maxTokens = cfg.MaxTokens
		}
		if cfg.Temperature > 0 {
			c.temperature = float32(cfg.Temperature)
		}
	}
}

// WithRecorder reports turn, transition and crisis metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithClock injects the time source used by the controller, gate and facilitator.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithDeclineCooldown overrides how long a declined suggestion keeps the gate closed.
func WithDeclineCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

// Controller orchestrates conversation turns. Turns for one conversation are serialized;
// different conversations proceed independently.
type Controller struct {
	store       persistence.Store
	llm         llm.LLMClient
	recorder    metrics.Recorder
	detector    *crisis.Detector
	gate        *gate.Validator
	facilitator *exercise.Facilitator
	locks       *keyedLock
	logger      *logx.Logger
	now         func() time.Time
	transitions conversation.TransitionTable
	reflection  exercise.ReflectionThresholds
	cfg         config.ConversationConfig
	cooldown    time.Duration
	maxTokens   int
	temperature float32
}

// New creates a controller over store and client.
func New(store persistence.Store, client llm.LLMClient, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		llm:         client,
		recorder:    metrics.Nop(),
		detector:    crisis.NewDetector(),
		locks:       newKeyedLock(),
		logger:      logx.NewLogger("controller"),
		now:         time.Now,
		transitions: conversation.ValidTransitions,
		cfg:         config.Default().Conversation,
		cooldown:    gate.DefaultDeclineCooldown,
		maxTokens:   llm.DefaultMaxTokens,
		temperature: llm.TemperatureConversational,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.reflection = exercise.ReflectionThresholds{MinChars: c.cfg.ReflectionMinChars, MinWords: c.cfg.ReflectionMinWords}
	if c.reflection.MinChars <= 0 || c.reflection.MinWords <= 0 {
		c.reflection = exercise.DefaultReflectionThresholds()
	}
	c.gate = gate.NewValidator(store, gate.WithClock(c.now), gate.WithCooldown(c.cooldown))
	c.facilitator = exercise.NewFacilitator(store, exercise.WithClock(c.now), exercise.WithRecorder(c.recorder))
	return c
}

// StartConversation creates a conversation in INIT for userID.
func (c *Controller) StartConversation(ctx context.Context, userID string) (*conversation.Conversation, error) {
	conv := conversation.New(uuid.NewString(), userID, c.now())
	if err := c.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	c.logger.Info("started conversation %s", conv.ID)
	return conv, nil
}

// GateStatus reports the exercise gate of a conversation.
func (c *Controller) GateStatus(ctx context.Context, conversationID string) (gate.Status, error) {
	return c.gate.Validate(ctx, conversationID)
}

// turn carries the state of one GenerateResponse call.
type turn struct {
	start   time.Time
	id      string
	message string
	from    conversation.State
	meta    map[string]any
}

// GenerateResponse processes one user message and returns the reply.
// Model failures never surface as errors; they produce a fixed fallback reply.
func (c *Controller) GenerateResponse(ctx context.Context, conversationID, userMessage string) (*Response, error) {
	message := strings.TrimSpace(userMessage)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	ctx = logx.WithConversationID(ctx, conversationID)
	if c.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.TurnTimeout.Std())
		defer cancel()
	}

	unlock, err := c.locks.Lock(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("wait for conversation %s: %w", conversationID, err)
	}
	defer unlock()

	conv, err := c.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	t := &turn{
		start:   c.now(),
		id:      conversationID,
		message: message,
		from:    conv.State,
		meta:    map[string]any{"previous_state": string(conv.State)},
	}

	resp, err := c.runTurn(ctx, t)
	if err != nil {
		return nil, err
	}
	c.recorder.ObserveTurn(string(resp.NewState), c.now().Sub(t.start))
	return resp, nil
}

func (c *Controller) runTurn(ctx context.Context, t *turn) (*Response, error) {
	if err := c.appendMessage(ctx, t.id, conversation.RoleUser, t.message, t.from, false); err != nil {
		return nil, err
	}

	if _, err := c.gate.MaybeResetDecline(ctx, t.id); err != nil {
		return nil, err
	}

	result := c.detector.Detect(t.message)
	if result.Severity != crisis.SeverityNone {
		t.meta["crisis_severity"] = string(result.Severity)
		c.recorder.IncCrisis(string(result.Severity))
	}
	if result.IsCrisis {
		return c.crisisTurn(ctx, t, result)
	}

	active, err := c.facilitator.GetActive(ctx, t.id)
	if err != nil {
		return nil, err
	}
	if active != nil && exercise.DetectExit(t.message) {
		if err := c.facilitator.Cancel(ctx, t.id); err != nil {
			return nil, err
		}
		return c.fixedReply(ctx, t, exitMessage, conversation.StateSupportiveProcessing)
	}

	conv, err := c.store.GetConversation(ctx, t.id)
	if err != nil {
		return nil, err
	}

	// While suggestions are pending, an acceptance outweighs a stray "no" ("sure, no problem").
	accepting := conv.State == conversation.StateExerciseSuggestion && exercise.DetectAcceptance(t.message)
	declined := !accepting && gate.DetectDeclineInMessage(t.message)
	if declined {
		if err := c.gate.RecordDecline(ctx, t.id); err != nil {
			return nil, err
		}
		t.meta["declined"] = true
	}

	if accepting {
		if started := c.acceptExercise(ctx, t, conv); started != nil {
			return c.exerciseTurn(ctx, t, started)
		}
	}

	if active != nil {
		if c.reflection.Matches(t.message) {
			if active.IsFinalPhase() {
				if err := c.facilitator.Complete(ctx, t.id, t.message); err != nil {
					return nil, err
				}
				t.meta["completed_exercise"] = active.Exercise.ID
				return c.fixedReply(ctx, t, closingMessage, conversation.StatePostExerciseIntegration)
			}
			idx, err := c.facilitator.AdvancePhase(ctx, t.id)
			if err != nil {
				return nil, err
			}
			active.CurrentPhase = idx
		}
		return c.exerciseTurn(ctx, t, active)
	}

	return c.supportTurn(ctx, t, result, declined)
}

// crisisTurn stops everything else and answers with the fixed crisis text. The model is never called.
func (c *Controller) crisisTurn(ctx context.Context, t *turn, result crisis.Result) (*Response, error) {
	c.logger.Warn("crisis detected in %s: severity=%s triggers=%v", t.id, result.Severity, result.Triggers)

	if err := c.facilitator.Cancel(ctx, t.id); err != nil {
		return nil, err
	}
	if err := c.gate.UpdateConditions(ctx, t.id, conversation.GateUpdate{
		EmotionallyRegulated: conversation.Bool(false),
	}); err != nil {
		return nil, err
	}

	t.meta["crisis_triggers"] = result.Triggers
	t.meta["recommended_action"] = string(result.RecommendedAction)
	resp, err := c.finish(ctx, t, crisis.ResponseFor(result.Severity), conversation.StateCrisisMode, nil, true)
	if err != nil {
		return nil, err
	}
	resp.CrisisDetected = true
	return resp, nil
}

// acceptExercise starts the suggestion the user accepted. Failures are logged and yield nil.
func (c *Controller) acceptExercise(ctx context.Context, t *turn, conv *conversation.Conversation) *exercise.Context {
	exerciseID := resolveAccepted(ctx, c.store, t.message, conv.PendingSuggestions)
	if exerciseID == "" {
		c.logger.Warn("acceptance in %s with no pending suggestions", t.id)
		return nil
	}
	started, err := c.facilitator.Start(ctx, t.id, exerciseID)
	if err != nil {
		c.logger.Warn("could not start exercise %s for %s: %v", exerciseID, t.id, err)
		return nil
	}
	t.meta["started_exercise"] = exerciseID
	return started
}

// exerciseTurn asks the model to facilitate the current phase. No tools are offered.
func (c *Controller) exerciseTurn(ctx context.Context, t *turn, active *exercise.Context) (*Response, error) {
	t.meta["exercise_id"] = active.Exercise.ID
	t.meta["phase"] = active.CurrentPhase
	t.meta["total_phases"] = active.TotalPhases

	conv, err := c.store.GetConversation(ctx, t.id)
	if err != nil {
		return nil, err
	}
	messages, err := c.buildMessages(ctx, conv, instructionFor(conversation.StateExerciseFacilitation, crisis.ActionContinue)+
		"\n\n"+exercise.BuildPrompt(active))
	if err != nil {
		return nil, err
	}

	gen, err := c.generate(ctx, conversation.StateExerciseFacilitation, messages, nil)
	if err != nil {
		return c.fallback(ctx, t, err)
	}
	return c.finish(ctx, t, gen.Content, conversation.StateExerciseFacilitation, nil, false)
}

// supportTurn is the ordinary conversational turn with gate tracking and the exercise search tool.
func (c *Controller) supportTurn(ctx context.Context, t *turn, result crisis.Result, declined bool) (*Response, error) {
	signals := turnSignals{
		challenge:    gate.DetectConcreteChallenge(t.message),
		dysregulated: !gate.DetectEmotionalRegulation(t.message),
		declined:     declined,
	}
	update := conversation.GateUpdate{EmotionallyRegulated: conversation.Bool(!signals.dysregulated)}
	if signals.challenge {
		update.ChallengeArticulated = conversation.Bool(true)
	}
	if err := c.gate.UpdateConditions(ctx, t.id, update); err != nil {
		return nil, err
	}

	conv, err := c.store.GetConversation(ctx, t.id)
	if err != nil {
		return nil, err
	}
	state := conv.State

	var registry *tools.Registry
	if searchAllowed(state) {
		registry = tools.NewRegistry(tools.NewSearchExercisesTool(t.id, c.gate, c.store))
	}
	messages, err := c.buildMessages(ctx, conv, instructionFor(state, result.RecommendedAction))
	if err != nil {
		return nil, err
	}

	gen, err := c.generate(ctx, state, messages, registry)
	if err != nil {
		return c.fallback(ctx, t, err)
	}
	t.meta["tool_calls"] = gen.ToolCalls
	if gen.Blocked {
		t.meta["search_blocked"] = true
	}

	aiUpdate := conversation.GateUpdate{}
	if gate.DetectReflectiveLanguage(gen.Content) {
		aiUpdate.ReflectionShown = conversation.Bool(true)
	}
	if gate.DetectStructureExplanation(gen.Content) {
		aiUpdate.StructureExplained = conversation.Bool(true)
	}
	if err := c.gate.UpdateConditions(ctx, t.id, aiUpdate); err != nil {
		return nil, err
	}

	if suggested := dedupe(gen.Exercises); len(suggested) > 0 {
		return c.finish(ctx, t, gen.Content, conversation.StateExerciseSuggestion, suggested, false)
	}
	return c.finish(ctx, t, gen.Content, proposeState(state, signals), nil, false)
}

// fixedReply answers with a canned message after a facilitator event already set the state.
func (c *Controller) fixedReply(ctx context.Context, t *turn, content string, state conversation.State) (*Response, error) {
	return c.finish(ctx, t, content, state, nil, false)
}

// fallback answers with the neutral fallback and leaves the state as it is.
func (c *Controller) fallback(ctx context.Context, t *turn, cause error) (*Response, error) {
	classified := llmerrors.Classify(cause)
	c.logger.Error("model call failed for %s (%s): %v", t.id, classified.Type, cause)
	t.meta["model_error"] = classified.Type.String()

	conv, err := c.store.GetConversation(ctx, t.id)
	if err != nil {
		return nil, err
	}
	return c.finish(ctx, t, fallbackMessage, conv.State, nil, false)
}

// finish validates the proposed state, persists the reply and the conversation, and builds the Response.
// Proposals outside the transition table are dropped and the current state kept.
func (c *Controller) finish(ctx context.Context, t *turn, content string, proposed conversation.State,
	suggested []catalog.Exercise, crisisReply bool,
) (*Response, error) {
	conv, err := c.store.GetConversation(ctx, t.id)
	if err != nil {
		return nil, err
	}

	current := conv.State
	next, ok := c.transitions.Resolve(current, proposed)
	if !ok {
		c.logger.Warn("discarding invalid transition %s -> %s for %s", current, proposed, t.id)
		c.recorder.IncInvalidTransition(string(current), string(proposed))
		t.meta["rejected_state"] = string(proposed)
		suggested = nil
	}

	conv.State = next
	if len(suggested) > 0 {
		conv.PendingSuggestions = make([]string, 0, len(suggested))
		for i := range suggested {
			conv.PendingSuggestions = append(conv.PendingSuggestions, suggested[i].ID)
		}
	} else if next != conversation.StateExerciseSuggestion {
		conv.PendingSuggestions = nil
	}
	conv.UpdatedAt = c.now()
	if err := c.store.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	if t.from != next {
		c.recorder.IncTransition(string(t.from), string(next))
		logx.DebugState(ctx, "controller", "transition", string(next), "from="+string(t.from))
	}

	if err := c.appendMessage(ctx, t.id, conversation.RoleAssistant, content, next, crisisReply); err != nil {
		return nil, err
	}

	return &Response{
		Content:            content,
		NewState:           next,
		SuggestedExercises: suggested,
		CrisisDetected:     crisisReply,
		Metadata:           t.meta,
	}, nil
}

func (c *Controller) appendMessage(ctx context.Context, conversationID string, role conversation.Role, content string,
	state conversation.State, crisisFlag bool,
) error {
	err := c.store.AppendMessage(ctx, &conversation.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		State:          state,
		Crisis:         crisisFlag,
		CreatedAt:      c.now(),
	})
	if err != nil {
		return fmt.Errorf("append %s message: %w", role, err)
	}
	return nil
}

// buildMessages assembles the system prompt and the recent history, trimmed to the token budget.
func (c *Controller) buildMessages(ctx context.Context, conv *conversation.Conversation, instruction string) ([]llm.CompletionMessage, error) {
	var (
		history []conversation.Message
		profile *conversation.UserProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = c.store.RecentMessages(gctx, conv.ID, c.cfg.HistoryMessages)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := c.store.GetUserProfile(gctx, conv.UserID)
		switch {
		case errors.Is(err, conversation.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("load profile: %w", err)
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	history = utils.TrimToBudget(history, c.cfg.HistoryTokenBudget, func(m conversation.Message) string { return m.Content })

	messages := make([]llm.CompletionMessage, 0, len(history)+1)
	messages = append(messages, llm.NewSystemMessage(c.systemPrompt(conv, profile)+"\n\n## Guidance for this reply\n"+instruction))
	for i := range history {
		switch history[i].Role {
		case conversation.RoleUser:
			messages = append(messages, llm.NewUserMessage(history[i].Content))
		case conversation.RoleAssistant:
			messages = append(messages, llm.NewAssistantMessage(history[i].Content))
		}
	}
	return messages, nil
}

func (c *Controller) systemPrompt(conv *conversation.Conversation, profile *conversation.UserProfile) string {
	data := &templates.TemplateData{ExercisesCompleted: conv.ExercisesCompleted}
	if profile != nil {
		data.DisplayName = profile.DisplayName
		data.Goals = profile.Goals
		data.Notes = profile.Notes
	}
	prompt, err := templates.Render(templates.SystemTemplate, data)
	if err != nil {
		c.logger.Error("render system prompt: %v", err)
		return "You are a warm, supportive companion. Listen carefully and reflect what you hear."
	}
	return prompt
}

// dedupe drops repeated exercises, keeping the first occurrence.
func dedupe(exercises []catalog.Exercise) []catalog.Exercise {
	if len(exercises) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(exercises))
	out := make([]catalog.Exercise, 0, len(exercises))
	for i := range exercises {
		if _, ok := seen[exercises[i].ID]; ok {
			continue
		}
		seen[exercises[i].ID] = struct{}{}
		out = append(out, exercises[i])
	}
	return out
}
