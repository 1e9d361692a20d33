package persistence

import (
	"context"
	"fmt"
	"sync"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
)

// MemoryStore is a Store held entirely in process memory.
// Records are copied on the way in and out.
type MemoryStore struct {
	conversations map[string]*conversation.Conversation
	messages      map[string][]conversation.Message
	exercises     map[string]catalog.Exercise
	frameworks    map[string]catalog.Framework
	completions   map[string][]conversation.ExerciseCompletion
	profiles      map[string]conversation.UserProfile
	exerciseOrder []string
	nextMessageID int64
	mu            sync.RWMutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]conversation.Message),
		exercises:     make(map[string]catalog.Exercise),
		frameworks:    make(map[string]catalog.Framework),
		completions:   make(map[string][]conversation.ExerciseCompletion),
		profiles:      make(map[string]conversation.UserProfile),
	}
}

func (s *MemoryStore) CreateConversation(_ context.Context, c *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[c.ID]; exists {
		return fmt.Errorf("conversation %s already exists", c.ID)
	}
	s.conversations[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, conversation.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *MemoryStore) SaveConversation(_ context.Context, c *conversation.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[c.ID]; !ok {
		return fmt.Errorf("conversation %s: %w", c.ID, conversation.ErrNotFound)
	}
	s.conversations[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, m *conversation.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[m.ConversationID]; !ok {
		return fmt.Errorf("conversation %s: %w", m.ConversationID, conversation.ErrNotFound)
	}
	s.nextMessageID++
	m.ID = s.nextMessageID
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], *m)
	return nil
}

func (s *MemoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.messages[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]conversation.Message(nil), all...), nil
}

func (s *MemoryStore) GetExercise(_ context.Context, id string) (*catalog.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exercises[id]
	if !ok {
		return nil, fmt.Errorf("exercise %s: %w", id, conversation.ErrNotFound)
	}
	return &e, nil
}

func (s *MemoryStore) GetFramework(_ context.Context, id string) (*catalog.Framework, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.frameworks[id]
	if !ok {
		return nil, fmt.Errorf("framework %s: %w", id, conversation.ErrNotFound)
	}
	f.Phases = append([]catalog.Phase(nil), f.Phases...)
	return &f, nil
}

func (s *MemoryStore) SearchExercises(_ context.Context, q catalog.Query) ([]catalog.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make([]catalog.Exercise, 0, len(s.exerciseOrder))
	for _, id := range s.exerciseOrder {
		e := s.exercises[id]
		if q.Matches(&e, s.frameworks[e.FrameworkID].Name) {
			candidates = append(candidates, e)
		}
	}
	return catalog.Rank(candidates, q.Keywords, q.Limit), nil
}

func (s *MemoryStore) SeedCatalog(_ context.Context, c *catalog.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range c.Frameworks {
		s.frameworks[c.Frameworks[i].ID] = c.Frameworks[i]
	}
	for i := range c.Exercises {
		e := c.Exercises[i]
		if _, exists := s.exercises[e.ID]; !exists {
			s.exerciseOrder = append(s.exerciseOrder, e.ID)
		}
		s.exercises[e.ID] = e
	}
	return nil
}

// DeleteExercise removes a catalog entry. Used to simulate retired exercises.
func (s *MemoryStore) DeleteExercise(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.exercises, id)
	for i, existing := range s.exerciseOrder {
		if existing == id {
			s.exerciseOrder = append(s.exerciseOrder[:i], s.exerciseOrder[i+1:]...)
			break
		}
	}
}

func (s *MemoryStore) CreateCompletion(_ context.Context, comp *conversation.ExerciseCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completions[comp.ConversationID] = append(s.completions[comp.ConversationID], *comp)
	return nil
}

func (s *MemoryStore) ListCompletions(_ context.Context, conversationID string) ([]conversation.ExerciseCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]conversation.ExerciseCompletion(nil), s.completions[conversationID]...), nil
}

func (s *MemoryStore) GetUserProfile(_ context.Context, userID string) (*conversation.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, conversation.ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) SaveUserProfile(_ context.Context, p *conversation.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[p.UserID] = *p
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
