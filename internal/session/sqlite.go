// ABOUTME: SQLite implementation of the session Store using modernc.org/sqlite
// ABOUTME: One row per conversation, history stored as a JSON array

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/groq-relay/internal/dialog"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db           *sql.DB
	defaultModel string
	logger       *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path. New sessions are
// created with defaultModel. Parent directories are created if needed.
func NewSQLiteStore(path, defaultModel string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps concurrent readers from blocking on writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:           db,
		defaultModel: defaultModel,
		logger:       logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("session store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			conversation_id TEXT PRIMARY KEY,
			history         TEXT NOT NULL DEFAULT '[]',
			model           TEXT NOT NULL,
			system_prompt   TEXT,
			dialog_state    TEXT NOT NULL DEFAULT 'idle',
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL,

			CHECK (dialog_state IN ('idle', 'awaiting_prompt'))
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing session store")
	return s.db.Close()
}

// GetOrCreate loads the session for conversationID, creating it on first use.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, conversationID string) (*Session, error) {
	sess, err := s.get(ctx, conversationID)
	if err == nil {
		return sess, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	now := time.Now()
	sess = &Session{
		ConversationID: conversationID,
		Model:          s.defaultModel,
		DialogState:    dialog.StateIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("created session", "conversation_id", conversationID, "model", sess.Model)
	return sess, nil
}

func (s *SQLiteStore) get(ctx context.Context, conversationID string) (*Session, error) {
	query := `
		SELECT conversation_id, history, model, system_prompt, dialog_state, created_at, updated_at
		FROM sessions
		WHERE conversation_id = ?
	`

	var sess Session
	var historyJSON, createdAtStr, updatedAtStr, state string
	var systemPrompt sql.NullString

	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(
		&sess.ConversationID,
		&historyJSON,
		&sess.Model,
		&systemPrompt,
		&state,
		&createdAtStr,
		&updatedAtStr,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if err := json.Unmarshal([]byte(historyJSON), &sess.Turns); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	sess.SystemPrompt = systemPrompt.String
	sess.DialogState = dialog.State(state)

	sess.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	sess.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &sess, nil
}

// Save upserts the full session row.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	historyJSON, err := json.Marshal(sess.Turns)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if sess.Turns == nil {
		historyJSON = []byte("[]")
	}

	var systemPrompt sql.NullString
	if sess.SystemPrompt != "" {
		systemPrompt = sql.NullString{String: sess.SystemPrompt, Valid: true}
	}

	state := sess.DialogState
	if state == "" {
		state = dialog.StateIdle
	}

	sess.UpdatedAt = time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}

	query := `
		INSERT INTO sessions (conversation_id, history, model, system_prompt, dialog_state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			history = excluded.history,
			model = excluded.model,
			system_prompt = excluded.system_prompt,
			dialog_state = excluded.dialog_state,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		sess.ConversationID,
		string(historyJSON),
		sess.Model,
		systemPrompt,
		string(state),
		sess.CreatedAt.UTC().Format(time.RFC3339),
		sess.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	s.logger.Debug("session saved",
		"conversation_id", sess.ConversationID,
		"turns", len(sess.Turns),
		"dialog_state", state)
	return nil
}
