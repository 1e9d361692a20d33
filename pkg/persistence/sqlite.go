package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"solace/pkg/catalog"
	"solace/pkg/conversation"
	"solace/pkg/logx"
)

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *logx.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it to the current schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logx.NewLogger("persistence")}
	s.logger.Info("📦 Database initialized: %s", path)
	return s, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", raw, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil //nolint:nilnil // absent timestamp
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const conversationColumns = `id, user_id, state,
	challenge_articulated, reflection_shown, emotionally_regulated, structure_explained, no_recent_decline,
	last_declined_at, active_exercise_id, active_framework_id, current_phase_index, exercise_started_at,
	exercises_completed, pending_suggestions, created_at, updated_at`

func conversationArgs(c *conversation.Conversation) ([]any, error) {
	pending, err := json.Marshal(c.PendingSuggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pending suggestions: %w", err)
	}
	if c.PendingSuggestions == nil {
		pending = []byte("[]")
	}
	return []any{
		c.ID, c.UserID, string(c.State),
		boolToInt(c.Gate.ChallengeArticulated), boolToInt(c.Gate.ReflectionShown),
		boolToInt(c.Gate.EmotionallyRegulated), boolToInt(c.Gate.StructureExplained),
		boolToInt(c.Gate.NoRecentDecline),
		formatNullTime(c.LastDeclinedAt), c.ActiveExerciseID, c.ActiveFrameworkID, c.CurrentPhaseIndex,
		formatNullTime(c.ExerciseStartedAt), c.ExercisesCompleted, string(pending),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	}, nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, c *conversation.Conversation) error {
	args, err := conversationArgs(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to create conversation %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	var (
		c                                    conversation.Conversation
		state, pending, createdAt, updatedAt string
		challenge, reflection, regulated     int
		structure, noDecline                 int
		lastDeclined, exerciseStarted        sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id).Scan(
		&c.ID, &c.UserID, &state,
		&challenge, &reflection, &regulated, &structure, &noDecline,
		&lastDeclined, &c.ActiveExerciseID, &c.ActiveFrameworkID, &c.CurrentPhaseIndex, &exerciseStarted,
		&c.ExercisesCompleted, &pending, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, conversation.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	if c.State, err = conversation.ParseState(state); err != nil {
		return nil, err
	}
	c.Gate = conversation.GateConditions{
		ChallengeArticulated: challenge == 1,
		ReflectionShown:      reflection == 1,
		EmotionallyRegulated: regulated == 1,
		StructureExplained:   structure == 1,
		NoRecentDecline:      noDecline == 1,
	}
	if c.LastDeclinedAt, err = parseNullTime(lastDeclined); err != nil {
		return nil, err
	}
	if c.ExerciseStartedAt, err = parseNullTime(exerciseStarted); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(pending), &c.PendingSuggestions); err != nil {
		return nil, fmt.Errorf("failed to decode pending suggestions: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) SaveConversation(ctx context.Context, c *conversation.Conversation) error {
	args, err := conversationArgs(c)
	if err != nil {
		return err
	}
	// Drop id from the front and re-append it for the WHERE clause.
	args = append(args[1:], c.ID)
	res, err := s.db.ExecContext(ctx, `UPDATE conversations SET
		user_id = ?, state = ?,
		challenge_articulated = ?, reflection_shown = ?, emotionally_regulated = ?, structure_explained = ?, no_recent_decline = ?,
		last_declined_at = ?, active_exercise_id = ?, active_framework_id = ?, current_phase_index = ?, exercise_started_at = ?,
		exercises_completed = ?, pending_suggestions = ?, created_at = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", c.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %s: %w", c.ID, conversation.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, m *conversation.Message) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, state, crisis, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ConversationID, string(m.Role), m.Content, string(m.State), boolToInt(m.Crisis), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read message id: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, role, content, state, crisis, created_at
		FROM (SELECT * FROM messages WHERE conversation_id = ? ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []conversation.Message
	for rows.Next() {
		var (
			m                      conversation.Message
			role, state, createdAt string
			crisis                 int
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &state, &crisis, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = conversation.Role(role)
		m.State = conversation.State(state)
		m.Crisis = crisis == 1
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return out, nil
}

type exerciseScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row exerciseScanner, extra ...any) (*catalog.Exercise, error) {
	var (
		e        catalog.Exercise
		keywords string
	)
	dest := append([]any{&e.ID, &e.Title, &e.Prompt, &e.FrameworkID, &e.Topic, &keywords, &e.EstimatedMinutes}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords for %s: %w", e.ID, err)
	}
	return &e, nil
}

func (s *SQLiteStore) GetExercise(ctx context.Context, id string) (*catalog.Exercise, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, prompt, framework_id, topic, keywords, estimated_minutes
		FROM exercises WHERE id = ?`, id)
	e, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exercise %s: %w", id, conversation.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load exercise %s: %w", id, err)
	}
	return e, nil
}

func (s *SQLiteStore) GetFramework(ctx context.Context, id string) (*catalog.Framework, error) {
	var (
		f      catalog.Framework
		phases string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, description, core_mechanism, phases FROM frameworks WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.Description, &f.CoreMechanism, &phases)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("framework %s: %w", id, conversation.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load framework %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(phases), &f.Phases); err != nil {
		return nil, fmt.Errorf("failed to decode phases for %s: %w", id, err)
	}
	return &f, nil
}

func (s *SQLiteStore) SearchExercises(ctx context.Context, q catalog.Query) ([]catalog.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT e.id, e.title, e.prompt, e.framework_id, e.topic, e.keywords, e.estimated_minutes, f.name
		FROM exercises e JOIN frameworks f ON f.id = e.framework_id
		ORDER BY e.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to search exercises: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []catalog.Exercise
	for rows.Next() {
		var frameworkName string
		e, err := scanExercise(rows, &frameworkName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		if q.Matches(e, frameworkName) {
			candidates = append(candidates, *e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exercises: %w", err)
	}
	return catalog.Rank(candidates, q.Keywords, q.Limit), nil
}

func (s *SQLiteStore) SeedCatalog(ctx context.Context, c *catalog.Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range c.Frameworks {
		f := &c.Frameworks[i]
		phases, err := json.Marshal(f.Phases)
		if err != nil {
			return fmt.Errorf("failed to encode phases for %s: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO frameworks (id, name, description, core_mechanism, phases)
			VALUES (?, ?, ?, ?, ?)`, f.ID, f.Name, f.Description, f.CoreMechanism, string(phases)); err != nil {
			return fmt.Errorf("failed to upsert framework %s: %w", f.ID, err)
		}
	}
	for i := range c.Exercises {
		e := &c.Exercises[i]
		keywords, err := json.Marshal(e.Keywords)
		if err != nil {
			return fmt.Errorf("failed to encode keywords for %s: %w", e.ID, err)
		}
		if e.Keywords == nil {
			keywords = []byte("[]")
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO exercises (id, title, prompt, framework_id, topic, keywords, estimated_minutes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, e.ID, e.Title, e.Prompt, e.FrameworkID, e.Topic, string(keywords), e.EstimatedMinutes); err != nil {
			return fmt.Errorf("failed to upsert exercise %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	s.logger.Info("seeded catalog: %d frameworks, %d exercises", len(c.Frameworks), len(c.Exercises))
	return nil
}

func (s *SQLiteStore) CreateCompletion(ctx context.Context, comp *conversation.ExerciseCompletion) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO exercise_completions
		(id, conversation_id, exercise_id, reflection, started_at, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		comp.ID, comp.ConversationID, comp.ExerciseID, comp.Reflection, formatTime(comp.StartedAt), formatTime(comp.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create completion: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCompletions(ctx context.Context, conversationID string) ([]conversation.ExerciseCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, exercise_id, reflection, started_at, completed_at
		FROM exercise_completions WHERE conversation_id = ? ORDER BY completed_at`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []conversation.ExerciseCompletion
	for rows.Next() {
		var (
			comp               conversation.ExerciseCompletion
			started, completed string
		)
		if err := rows.Scan(&comp.ID, &comp.ConversationID, &comp.ExerciseID, &comp.Reflection, &started, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		if comp.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if comp.CompletedAt, err = parseTime(completed); err != nil {
			return nil, err
		}
		out = append(out, comp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) GetUserProfile(ctx context.Context, userID string) (*conversation.UserProfile, error) {
	p := conversation.UserProfile{UserID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT display_name, goals, notes FROM user_profiles WHERE user_id = ?`, userID).
		Scan(&p.DisplayName, &p.Goals, &p.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %s: %w", userID, conversation.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) SaveUserProfile(ctx context.Context, p *conversation.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO user_profiles (user_id, display_name, goals, notes)
		VALUES (?, ?, ?, ?)`, p.UserID, p.DisplayName, p.Goals, p.Notes)
	if err != nil {
		return fmt.Errorf("failed to save profile %s: %w", p.UserID, err)
	}
	return nil
}
