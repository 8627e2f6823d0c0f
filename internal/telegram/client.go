// ABOUTME: Minimal Telegram Bot API client over net/http
// ABOUTME: Implements the orchestrator's Transport plus getUpdates long-polling

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/2389/groq-relay/internal/bot"
)

// DefaultAPIBase is the public Bot API host.
const DefaultAPIBase = "https://api.telegram.org"

// BaseURL builds the per-bot API base from a token.
func BaseURL(token string) string {
	return DefaultAPIBase + "/bot" + token
}

// Telegram rejects messages above 4096 chars; stay under with some slack
// for HTML tags added by rendering.
const maxMessageLen = 4000

// Client talks to the Telegram Bot API. All methods are safe for concurrent
// use; the zero timeout on the HTTP client is deliberate because getUpdates
// long-polls - per-call deadlines come from the context.
type Client struct {
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given API base
// (e.g. "https://api.telegram.org/bot<token>").
func NewClient(apiBase string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiBase:    apiBase,
		httpClient: &http.Client{},
		logger:     logger.With("component", "telegram"),
	}
}

// apiResponse is the generic Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// User is a Telegram user.
type User struct {
	ID int64 `json:"id"`
}

// Chat is a Telegram chat (user, group or channel).
type Chat struct {
	ID int64 `json:"id"`
}

// Message is the subset of Telegram's message object the relay needs.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is an inline keyboard button press.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// Update is one inbound event from getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

// call POSTs a JSON payload to a Bot API method and decodes the result.
func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("parsing %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram %s: %s", method, envelope.Description)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("parsing %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for new updates. timeoutSec is Telegram's server
// side hold; the request context gets a slightly longer deadline.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "callback_query"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// AnswerCallbackQuery acknowledges a button press so the client stops
// showing its progress spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

// Send delivers plain text.
func (c *Client) Send(ctx context.Context, chatID int64, text string) (bot.MessageRef, error) {
	return c.send(ctx, chatID, text, "")
}

// SendHTML delivers text in HTML parse mode.
func (c *Client) SendHTML(ctx context.Context, chatID int64, html string) (bot.MessageRef, error) {
	return c.send(ctx, chatID, html, "HTML")
}

func (c *Client) send(ctx context.Context, chatID int64, text, parseMode string) (bot.MessageRef, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    truncate(text, maxMessageLen),
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
		payload["disable_web_page_preview"] = true
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return bot.MessageRef{}, err
	}
	return bot.MessageRef{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// EditHTML replaces a message's content. Telegram rejects edits that would
// not change anything; that rejection is not an error for our purposes.
func (c *Client) EditHTML(ctx context.Context, ref bot.MessageRef, html string) error {
	payload := map[string]any{
		"chat_id":                  ref.ChatID,
		"message_id":               ref.MessageID,
		"text":                     truncate(html, maxMessageLen),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	err := c.call(ctx, "editMessageText", payload, nil)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// SendButtons delivers text with an inline keyboard.
func (c *Client) SendButtons(ctx context.Context, chatID int64, text string, rows [][]bot.Button) (bot.MessageRef, error) {
	keyboard := make([][]inlineKeyboardButton, len(rows))
	for i, row := range rows {
		keyboard[i] = make([]inlineKeyboardButton, len(row))
		for j, btn := range row {
			keyboard[i][j] = inlineKeyboardButton{Text: btn.Label, CallbackData: btn.Data}
		}
	}

	payload := map[string]any{
		"chat_id":      chatID,
		"text":         truncate(text, maxMessageLen),
		"reply_markup": replyMarkup{InlineKeyboard: keyboard},
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return bot.MessageRef{}, err
	}
	return bot.MessageRef{ChatID: chatID, MessageID: msg.MessageID}, nil
}

// Typing shows the "typing..." indicator for a few seconds.
func (c *Client) Typing(ctx context.Context, chatID int64) error {
	return c.call(ctx, "sendChatAction", map[string]any{"chat_id": chatID, "action": "typing"}, nil)
}

// truncate shortens a string to maxLen runes, appending an ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
