package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solace/pkg/catalog"
	"solace/pkg/conversation"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "solace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func seeded(t *testing.T, s Store) {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	require.NoError(t, s.SeedCatalog(context.Background(), c))
}

func TestConversationRoundTrip(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

			c := conversation.New("conv-1", "user-1", now)
			require.NoError(t, s.CreateConversation(ctx, c))

			got, err := s.GetConversation(ctx, "conv-1")
			require.NoError(t, err)
			assert.Equal(t, conversation.StateInit, got.State)
			assert.True(t, got.Gate.NoRecentDecline)
			assert.False(t, got.Gate.ChallengeArticulated)
			assert.Nil(t, got.LastDeclinedAt)

			declined := now.Add(time.Minute)
			got.State = conversation.StateExerciseFacilitation
			got.Gate.ChallengeArticulated = true
			got.Gate.NoRecentDecline = false
			got.LastDeclinedAt = &declined
			got.ActiveExerciseID = "grounding-anxious-moment"
			got.ActiveFrameworkID = "grounding-54321"
			got.CurrentPhaseIndex = 2
			got.ExerciseStartedAt = &declined
			got.PendingSuggestions = []string{"a", "b"}
			got.ExercisesCompleted = 3
			require.NoError(t, s.SaveConversation(ctx, got))

			again, err := s.GetConversation(ctx, "conv-1")
			require.NoError(t, err)
			assert.Equal(t, conversation.StateExerciseFacilitation, again.State)
			assert.True(t, again.Gate.ChallengeArticulated)
			assert.False(t, again.Gate.NoRecentDecline)
			require.NotNil(t, again.LastDeclinedAt)
			assert.True(t, declined.Equal(*again.LastDeclinedAt))
			assert.Equal(t, 2, again.CurrentPhaseIndex)
			assert.Equal(t, []string{"a", "b"}, again.PendingSuggestions)
			assert.Equal(t, 3, again.ExercisesCompleted)
		})
	}
}

func TestMissingRecordsAreNotFound(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetConversation(ctx, "nope")
			assert.True(t, errors.Is(err, conversation.ErrNotFound))

			err = s.SaveConversation(ctx, conversation.New("nope", "", time.Now()))
			assert.True(t, errors.Is(err, conversation.ErrNotFound))

			_, err = s.GetExercise(ctx, "nope")
			assert.True(t, errors.Is(err, conversation.ErrNotFound))

			_, err = s.GetFramework(ctx, "nope")
			assert.True(t, errors.Is(err, conversation.ErrNotFound))

			_, err = s.GetUserProfile(ctx, "nope")
			assert.True(t, errors.Is(err, conversation.ErrNotFound))
		})
	}
}

func TestRecentMessagesOldestFirst(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			require.NoError(t, s.CreateConversation(ctx, conversation.New("c", "u", now)))

			for i, text := range []string{"one", "two", "three"} {
				require.NoError(t, s.AppendMessage(ctx, &conversation.Message{
					ConversationID: "c",
					Role:           conversation.RoleUser,
					Content:        text,
					State:          conversation.StateInit,
					CreatedAt:      now.Add(time.Duration(i) * time.Second),
				}))
			}

			msgs, err := s.RecentMessages(ctx, "c", 2)
			require.NoError(t, err)
			require.Len(t, msgs, 2)
			assert.Equal(t, "two", msgs[0].Content)
			assert.Equal(t, "three", msgs[1].Content)

			all, err := s.RecentMessages(ctx, "c", 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestCatalogSearch(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seeded(t, s)

			found, err := s.SearchExercises(ctx, catalog.Query{Keywords: []string{"anxiety", "racing thoughts"}, Limit: 3})
			require.NoError(t, err)
			require.NotEmpty(t, found)
			assert.Equal(t, "grounding-anxious-moment", found[0].ID)
			assert.LessOrEqual(t, len(found), 3)

			byFramework, err := s.SearchExercises(ctx, catalog.Query{Framework: "Values Clarification"})
			require.NoError(t, err)
			require.Len(t, byFramework, 1)
			assert.Equal(t, "values-relationships", byFramework[0].ID)

			byTopic, err := s.SearchExercises(ctx, catalog.Query{Topic: "sleep", Keywords: []string{"work"}})
			require.NoError(t, err)
			assert.Empty(t, byTopic)

			f, err := s.GetFramework(ctx, "cbt-thought-record")
			require.NoError(t, err)
			assert.Len(t, f.Phases, 4)

			e, err := s.GetExercise(ctx, "grounding-sleep")
			require.NoError(t, err)
			assert.Contains(t, e.Keywords, "insomnia")
		})
	}
}

func TestCompletionsAndProfiles(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()
			require.NoError(t, s.CreateConversation(ctx, conversation.New("c", "u", now)))

			require.NoError(t, s.CreateCompletion(ctx, &conversation.ExerciseCompletion{
				ID:             "comp-1",
				ConversationID: "c",
				ExerciseID:     "grounding-sleep",
				Reflection:     "I noticed my shoulders drop",
				StartedAt:      now.Add(-5 * time.Minute),
				CompletedAt:    now,
			}))
			comps, err := s.ListCompletions(ctx, "c")
			require.NoError(t, err)
			require.Len(t, comps, 1)
			assert.Equal(t, "I noticed my shoulders drop", comps[0].Reflection)

			require.NoError(t, s.SaveUserProfile(ctx, &conversation.UserProfile{UserID: "u", DisplayName: "Sam", Goals: "sleep better"}))
			p, err := s.GetUserProfile(ctx, "u")
			require.NoError(t, err)
			assert.Equal(t, "Sam", p.DisplayName)
			assert.Equal(t, "sleep better", p.Goals)
		})
	}
}

func TestSchemaReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solace.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	version, err := GetSchemaVersion(s.DB())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}
