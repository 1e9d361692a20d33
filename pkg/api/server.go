// Package api exposes the conversation core over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solace/pkg/catalog"
	"solace/pkg/controller"
	"solace/pkg/conversation"
	"solace/pkg/gate"
	"solace/pkg/logx"
	"solace/pkg/metrics"
	"solace/pkg/version"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// ConversationService runs turns and creates conversations.
type ConversationService interface {
	StartConversation(ctx context.Context, userID string) (*conversation.Conversation, error)
	GenerateResponse(ctx context.Context, conversationID, userMessage string) (*controller.Response, error)
	GateStatus(ctx context.Context, conversationID string) (gate.Status, error)
}

// Store is the read side the handlers need.
type Store interface {
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
	ListCompletions(ctx context.Context, conversationID string) ([]conversation.ExerciseCompletion, error)
	SearchExercises(ctx context.Context, q catalog.Query) ([]catalog.Exercise, error)
}

// UsageQuerier reports aggregated model usage.
type UsageQuerier interface {
	GetUsageSummary(ctx context.Context) (*metrics.UsageSummary, error)
	GetUsageByModel(ctx context.Context) (map[string]*metrics.UsageSummary, error)
}

// Server holds the HTTP handlers.
type Server struct {
	svc      ConversationService
	store    Store
	gatherer prometheus.Gatherer
	usage    UsageQuerier
	logger   *logx.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithUsage serves /api/metrics/usage from q.
func WithUsage(q UsageQuerier) Option {
	return func(s *Server) { s.usage = q }
}

// NewServer creates the HTTP layer.
func NewServer(svc ConversationService, store Store, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		store:  store,
		logger: logx.NewLogger("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversations", s.handleCreateConversation)
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetConversation)
			r.Post("/messages", s.handlePostMessage)
			r.Get("/gate", s.handleGate)
		})
		r.Get("/exercises", s.handleExercises)
		if s.usage != nil {
			r.Get("/metrics/usage", s.handleUsage)
		}
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("%s %s -> %d (%d bytes) in %s", r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(start).Round(time.Millisecond))
	})
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeErr maps domain errors to status codes. Internal details never reach the client.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		Error(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, controller.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message is required")
	case errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusServiceUnavailable, "the conversation is busy, please try again")
	default:
		s.logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		Error(w, http.StatusInternalServerError, "something went wrong")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"status": "ok", "build": version.Get()})
}

type createConversationRequest struct {
	UserID string `json:"user_id"`
}

type createConversationResponse struct {
	ID    string             `json:"id"`
	State conversation.State `json:"state"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		Error(w, http.StatusBadRequest, "user_id is required")
		return
	}

	conv, err := s.svc.StartConversation(r.Context(), req.UserID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, createConversationResponse{ID: conv.ID, State: conv.State})
}

// conversationView is the public snapshot of a conversation.
type conversationView struct {
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
	ID                 string                      `json:"id"`
	UserID             string                      `json:"user_id"`
	State              conversation.State          `json:"state"`
	ActiveExerciseID   string                      `json:"active_exercise_id,omitempty"`
	PendingSuggestions []string                    `json:"pending_suggestions,omitempty"`
	Completions        []completionView            `json:"completions,omitempty"`
	Gate               conversation.GateConditions `json:"gate"`
	CurrentPhase       int                         `json:"current_phase"`
	ExercisesCompleted int                         `json:"exercises_completed"`
}

type completionView struct {
	CompletedAt time.Time `json:"completed_at"`
	ExerciseID  string    `json:"exercise_id"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conv, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	comps, err := s.store.ListCompletions(r.Context(), id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	view := conversationView{
		ID:                 conv.ID,
		UserID:             conv.UserID,
		State:              conv.State,
		Gate:               conv.Gate,
		ActiveExerciseID:   conv.ActiveExerciseID,
		CurrentPhase:       conv.CurrentPhaseIndex,
		PendingSuggestions: conv.PendingSuggestions,
		ExercisesCompleted: conv.ExercisesCompleted,
		CreatedAt:          conv.CreatedAt,
		UpdatedAt:          conv.UpdatedAt,
	}
	for i := range comps {
		view.Completions = append(view.Completions, completionView{
			ExerciseID:  comps[i].ExerciseID,
			CompletedAt: comps[i].CompletedAt,
		})
	}
	JSON(w, http.StatusOK, view)
}

type postMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	resp, err := s.svc.GenerateResponse(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.GateStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, status)
}

// handleExercises browses the catalog. It is not gated: the gate only governs what the model suggests.
func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := catalog.Query{
		Keywords:  strings.Fields(q.Get("q")),
		Topic:     q.Get("topic"),
		Framework: q.Get("framework"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		query.Limit = n
	}

	found, err := s.store.SearchExercises(r.Context(), query)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if found == nil {
		found = []catalog.Exercise{}
	}
	JSON(w, http.StatusOK, map[string]any{"exercises": found, "count": len(found)})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("by") == "model" {
		byModel, err := s.usage.GetUsageByModel(r.Context())
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		JSON(w, http.StatusOK, byModel)
		return
	}
	summary, err := s.usage.GetUsageSummary(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	JSON(w, http.StatusOK, summary)
}
