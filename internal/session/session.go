// ABOUTME: Session types and the Store interface for per-conversation state
// ABOUTME: A session holds chat history, selected model, system prompt and dialog state

package session

import (
	"context"
	"errors"
	"time"

	"github.com/2389/groq-relay/internal/dialog"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("session not found")

// Role identifies who authored a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation history. Order is meaningful:
// the history is the prompt context sent to the model.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the persisted per-conversation record.
type Session struct {
	ConversationID string
	Turns          []Turn
	Model          string
	SystemPrompt   string // "" means no system prompt is set
	DialogState    dialog.State
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reset starts a new chat: history becomes empty, or a single system turn
// when a system prompt is set.
func (s *Session) Reset() {
	if s.SystemPrompt != "" {
		s.Turns = []Turn{{Role: RoleSystem, Content: s.SystemPrompt}}
		return
	}
	s.Turns = nil
}

// Append adds a turn to the history.
func (s *Session) Append(role Role, content string) {
	s.Turns = append(s.Turns, Turn{Role: role, Content: content})
}

// Store persists sessions keyed by conversation ID.
type Store interface {
	// GetOrCreate returns the session for the conversation, creating a
	// fresh one (with the store's default model) on first contact.
	GetOrCreate(ctx context.Context, conversationID string) (*Session, error)

	// Save writes the session back. The whole record is replaced.
	Save(ctx context.Context, s *Session) error

	// Close releases any resources held by the store.
	Close() error
}
