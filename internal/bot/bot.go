// ABOUTME: Conversation orchestrator wiring sessions, streaming and the transport
// ABOUTME: One inbound event = one unit of work, serialized per conversation

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/groq-relay/internal/dialog"
	"github.com/2389/groq-relay/internal/llm"
	"github.com/2389/groq-relay/internal/markdown"
	"github.com/2389/groq-relay/internal/session"
	"github.com/2389/groq-relay/internal/stream"
)

// MessageRef identifies a delivered message so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Button is one inline keyboard button.
type Button struct {
	Label string
	Data  string
}

// Transport is what the orchestrator needs from the chat platform.
type Transport interface {
	// Send delivers plain text and returns a handle for later edits.
	Send(ctx context.Context, chatID int64, text string) (MessageRef, error)
	// SendHTML delivers text in Telegram's HTML parse mode.
	SendHTML(ctx context.Context, chatID int64, html string) (MessageRef, error)
	// EditHTML replaces the content of a previously sent message.
	EditHTML(ctx context.Context, ref MessageRef, html string) error
	// SendButtons delivers text with an inline keyboard.
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]Button) (MessageRef, error)
	// Typing shows a typing indicator.
	Typing(ctx context.Context, chatID int64) error
}

const (
	placeholderText = "Generating response..."
	storeBusyText   = "The bot could not reach its storage. Please try again."
	apologyText     = "Sorry, something went wrong while generating a response. Please try again."
	emptyReplyText  = "(no response)"
)

// Bot routes inbound chat events to sessions, the stream aggregator and the
// transport. All collaborators are injected; Bot holds no globals.
type Bot struct {
	sessions  session.Store
	locks     *session.KeyedLock
	transport Transport
	agg       *stream.Aggregator
	models    *llm.Models
	logger    *slog.Logger
}

// New creates a Bot.
func New(sessions session.Store, transport Transport, agg *stream.Aggregator, models *llm.Models, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sessions:  sessions,
		locks:     session.NewKeyedLock(),
		transport: transport,
		agg:       agg,
		models:    models,
		logger:    logger.With("component", "bot"),
	}
}

// conversationKey maps a chat to its session record.
func conversationKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// HandleText processes a plain message: either the system prompt dialog
// consumes it, or it becomes a user turn and triggers generation.
// Whitespace-only input is a silent no-op.
func (b *Bot) HandleText(ctx context.Context, chatID, userID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	unlock := b.locks.Lock(conversationKey(chatID))
	defer unlock()

	sess, err := b.sessions.GetOrCreate(ctx, conversationKey(chatID))
	if err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	if sess.DialogState == dialog.StateAwaitingPrompt {
		res := dialog.Step(sess.DialogState, dialog.Event{Kind: dialog.EventText, Text: text})
		return b.applyDialog(ctx, chatID, sess, res)
	}

	return b.generate(ctx, chatID, sess, text)
}

// generate appends the user turn, streams the completion into a placeholder
// message and records the assembled answer.
func (b *Bot) generate(ctx context.Context, chatID int64, sess *session.Session, userText string) error {
	requestID := uuid.New().String()
	logger := b.logger.With(
		"conversation_id", sess.ConversationID,
		"request_id", requestID,
		"model", sess.Model)

	sess.Append(session.RoleUser, userText)

	placeholder, err := b.transport.Send(ctx, chatID, placeholderText)
	if err != nil {
		return fmt.Errorf("sending placeholder: %w", err)
	}
	if err := b.transport.Typing(ctx, chatID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	snaps, err := b.agg.Stream(ctx, sess.Turns, sess.Model)
	if err != nil {
		logger.Error("starting generation failed", "error", err)
		b.edit(ctx, placeholder, markdown.Escape(apologyText), logger)
		return nil
	}

	// Edits must stay ordered: a single consumer performs one blocking
	// delivery per snapshot before taking the next.
	var delivered, final string
	var genErr error
	for snap := range snaps {
		if snap.Err != nil {
			genErr = snap.Err
			final = snap.Text
			break
		}
		if snap.Final {
			final = snap.Text
		}
		if snap.Text == "" || snap.Text == delivered {
			continue
		}
		b.edit(ctx, placeholder, markdown.Render(snap.Text), logger)
		delivered = snap.Text
	}

	if genErr != nil {
		logger.Error("generation failed", "error", genErr, "partial_len", len(final))
		if final != "" {
			// Keep the partial answer both on screen and in history.
			if final != delivered {
				b.edit(ctx, placeholder, markdown.Render(final), logger)
			}
			sess.Append(session.RoleAssistant, final)
		} else {
			b.edit(ctx, placeholder, markdown.Escape(apologyText), logger)
		}
		if err := b.sessions.Save(ctx, sess); err != nil {
			b.reportStoreFailure(ctx, chatID, err)
			return nil
		}
		if final != "" {
			if _, err := b.transport.Send(ctx, chatID, apologyText); err != nil {
				logger.Warn("apology delivery failed", "error", err)
			}
		}
		return nil
	}

	if final == "" {
		logger.Warn("model produced no text")
		b.edit(ctx, placeholder, markdown.Escape(emptyReplyText), logger)
		if err := b.sessions.Save(ctx, sess); err != nil {
			b.reportStoreFailure(ctx, chatID, err)
		}
		return nil
	}

	sess.Append(session.RoleAssistant, final)
	if err := b.sessions.Save(ctx, sess); err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	logger.Info("response delivered", "length", len(final), "turns", len(sess.Turns))
	return nil
}

// edit performs one blocking content replacement. Failures are logged and
// swallowed; the stream keeps going and the final text wins.
func (b *Bot) edit(ctx context.Context, ref MessageRef, html string, logger *slog.Logger) {
	if err := b.transport.EditHTML(ctx, ref, html); err != nil {
		logger.Warn("message edit failed", "message_id", ref.MessageID, "error", err)
	}
}

// applyDialog persists a dialog transition and delivers its reply.
// The session is saved before the user sees the outcome.
func (b *Bot) applyDialog(ctx context.Context, chatID int64, sess *session.Session, res dialog.Result) error {
	switch res.Action {
	case dialog.ActionSetPrompt:
		sess.SystemPrompt = res.Prompt
	case dialog.ActionClearPrompt:
		sess.SystemPrompt = ""
	}
	sess.DialogState = res.State
	if res.ResetChat {
		sess.Reset()
	}

	if err := b.sessions.Save(ctx, sess); err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	if res.Reply != "" {
		if _, err := b.transport.Send(ctx, chatID, res.Reply); err != nil {
			return fmt.Errorf("sending dialog reply: %w", err)
		}
	}
	return nil
}

// reportStoreFailure logs a storage error and tells the user to retry.
// The current operation is aborted; previously persisted state is untouched.
func (b *Bot) reportStoreFailure(ctx context.Context, chatID int64, err error) {
	b.logger.Error("session store unavailable", "chat_id", chatID, "error", err)
	if _, sendErr := b.transport.Send(ctx, chatID, storeBusyText); sendErr != nil {
		b.logger.Warn("failure notice undeliverable", "chat_id", chatID, "error", sendErr)
	}
}
