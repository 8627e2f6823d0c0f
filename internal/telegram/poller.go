// ABOUTME: Long-poll loop pulling updates and dispatching them to the bot
// ABOUTME: Handles offset tracking, dedupe, authorization and panic isolation

package telegram

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/2389/groq-relay/internal/dedupe"
)

// DefaultPollTimeout is the server-side hold for getUpdates.
const DefaultPollTimeout = 30 * time.Second

const failureNoticeText = "Sorry, something went wrong handling that. Please try again."

// Handler consumes classified inbound events. *bot.Bot satisfies this.
type Handler interface {
	HandleCommand(ctx context.Context, chatID, userID int64, name, args string) error
	HandleText(ctx context.Context, chatID, userID int64, text string) error
	HandleCallback(ctx context.Context, chatID, userID, messageID int64, data string) error
}

// Poller runs the getUpdates loop. Each update is dispatched on its own
// goroutine; ordering within a conversation is the bot's job, not ours.
type Poller struct {
	client       *Client
	handler      Handler
	allowedUsers map[int64]bool
	seen         *dedupe.Cache
	pollTimeout  time.Duration
	logger       *slog.Logger
}

// NewPoller creates a poller. An empty allowedUsers list means the bot is
// open to everyone.
func NewPoller(client *Client, handler Handler, allowedUsers []int64, pollTimeout time.Duration, logger *slog.Logger) *Poller {
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[int64]bool, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = true
	}

	return &Poller{
		client:       client,
		handler:      handler,
		allowedUsers: allowed,
		seen:         dedupe.New(10*time.Minute, 10_000),
		pollTimeout:  pollTimeout,
		logger:       logger.With("component", "poller"),
	}
}

// Run polls until the context is cancelled. Transient getUpdates failures
// are logged and retried after a short pause.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("polling for updates", "timeout", p.pollTimeout)

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.client.GetUpdates(ctx, offset, int(p.pollTimeout.Seconds()))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("getUpdates failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if p.seen.Seen(strconv.FormatInt(update.UpdateID, 10)) {
				p.logger.Debug("skipping duplicate update", "update_id", update.UpdateID)
				continue
			}
			go p.dispatch(ctx, update)
		}
	}
}

// dispatch classifies one update and hands it to the bot. A panic in a
// handler must not take down the poller or other conversations.
func (p *Poller) dispatch(ctx context.Context, update Update) {
	var chatID int64
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panicked",
				"update_id", update.UpdateID,
				"panic", r,
				"stack", string(debug.Stack()))
			p.notifyFailure(ctx, chatID)
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if ackErr := p.client.AnswerCallbackQuery(ctx, cb.ID); ackErr != nil {
			p.logger.Debug("callback ack failed", "error", ackErr)
		}
		if cb.Message == nil {
			return
		}
		chatID = cb.Message.Chat.ID
		if !p.allowed(cb.From.ID) {
			p.logger.Warn("rejected callback from unauthorized user", "user_id", cb.From.ID)
			return
		}
		err = p.handler.HandleCallback(ctx, chatID, cb.From.ID, cb.Message.MessageID, cb.Data)

	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		if msg.From == nil {
			return
		}
		chatID = msg.Chat.ID
		if !p.allowed(msg.From.ID) {
			p.logger.Warn("rejected message from unauthorized user", "user_id", msg.From.ID)
			return
		}
		if strings.HasPrefix(msg.Text, "/") {
			name, args := parseCommand(msg.Text)
			err = p.handler.HandleCommand(ctx, chatID, msg.From.ID, name, args)
		} else {
			err = p.handler.HandleText(ctx, chatID, msg.From.ID, msg.Text)
		}

	default:
		p.logger.Debug("ignoring update with no usable payload", "update_id", update.UpdateID)
		return
	}

	if err != nil {
		p.logger.Error("handling update failed", "update_id", update.UpdateID, "chat_id", chatID, "error", err)
		p.notifyFailure(ctx, chatID)
	}
}

// allowed reports whether a user may talk to the bot.
func (p *Poller) allowed(userID int64) bool {
	return len(p.allowedUsers) == 0 || p.allowedUsers[userID]
}

func (p *Poller) notifyFailure(ctx context.Context, chatID int64) {
	if chatID == 0 {
		return
	}
	if _, err := p.client.Send(ctx, chatID, failureNoticeText); err != nil {
		p.logger.Warn("failure notice undeliverable", "chat_id", chatID, "error", err)
	}
}

// parseCommand splits "/model@my_bot llama" into ("model", "llama").
// The @botname suffix Telegram adds in groups is stripped, and command
// names are case-insensitive.
func parseCommand(text string) (name, args string) {
	text = strings.TrimPrefix(text, "/")
	name, args, _ = strings.Cut(text, " ")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}
