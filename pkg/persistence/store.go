// Package persistence stores conversations, messages, the exercise catalog and completions.
package persistence

import (
	"context"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
)

// Store is everything the orchestration core reads and writes.
// Lookups of missing records return an error wrapping conversation.ErrNotFound.
type Store interface {
	CreateConversation(ctx context.Context, c *conversation.Conversation) error
	GetConversation(ctx context.Context, id string) (*conversation.Conversation, error)
	SaveConversation(ctx context.Context, c *conversation.Conversation) error

	AppendMessage(ctx context.Context, m *conversation.Message) error
	// RecentMessages returns up to limit messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error)

	GetExercise(ctx context.Context, id string) (*catalog.Exercise, error)
	GetFramework(ctx context.Context, id string) (*catalog.Framework, error)
	SearchExercises(ctx context.Context, q catalog.Query) ([]catalog.Exercise, error)
	SeedCatalog(ctx context.Context, c *catalog.Catalog) error

	CreateCompletion(ctx context.Context, comp *conversation.ExerciseCompletion) error
	ListCompletions(ctx context.Context, conversationID string) ([]conversation.ExerciseCompletion, error)

	GetUserProfile(ctx context.Context, userID string) (*conversation.UserProfile, error)
	SaveUserProfile(ctx context.Context, p *conversation.UserProfile) error

	Close() error
}
