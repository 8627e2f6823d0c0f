// ABOUTME: Command and callback handling for the relay bot
// ABOUTME: Covers /start /help /new /model /system_prompt /cancel /info and model buttons

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/groq-relay/internal/dialog"
	"github.com/2389/groq-relay/internal/llm"
	"github.com/2389/groq-relay/internal/markdown"
	"github.com/2389/groq-relay/internal/session"
)

// modelCallbackPrefix tags inline keyboard selections from /model.
const modelCallbackPrefix = "change_model_"

const startText = "Hi!\n\n" +
	"Start sending messages with me to generate a response.\n\n" +
	"Send /new to start a new chat session."

const helpText = `Basic commands:
/start - Start the bot
/help - Get help. Shows this message

Chat commands:
/new - Start a new chat session (model will forget previously generated messages)
/model - Change the model used to generate responses.
/system_prompt - Change the system prompt used for new chat sessions.
/info - Get info about the current chat session.

Send a message to the bot to generate a response.`

// HandleCommand processes a /command. While the system prompt dialog is
// active, /system_prompt re-prompts, /cancel cancels, and anything else
// cancels the dialog first and then runs normally.
func (b *Bot) HandleCommand(ctx context.Context, chatID, userID int64, name, args string) error {
	unlock := b.locks.Lock(conversationKey(chatID))
	defer unlock()

	sess, err := b.sessions.GetOrCreate(ctx, conversationKey(chatID))
	if err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	if sess.DialogState == dialog.StateAwaitingPrompt {
		ev := dialog.Event{Kind: dialog.EventCommand}
		switch name {
		case "system_prompt":
			ev.Kind = dialog.EventBegin
		case "cancel":
			ev.Kind = dialog.EventCancel
		}
		res := dialog.Step(sess.DialogState, ev)
		if err := b.applyDialog(ctx, chatID, sess, res); err != nil {
			return err
		}
		if name == "system_prompt" || name == "cancel" {
			return nil
		}
		// The unrelated command still runs, against the unwound state.
	}

	switch name {
	case "start":
		_, err := b.transport.Send(ctx, chatID, startText)
		return err

	case "help":
		_, err := b.transport.Send(ctx, chatID, helpText)
		return err

	case "new":
		return b.newChat(ctx, chatID, sess)

	case "model":
		return b.sendModelKeyboard(ctx, chatID)

	case "info":
		return b.sendInfo(ctx, chatID, sess)

	case "system_prompt":
		res := dialog.Step(sess.DialogState, dialog.Event{Kind: dialog.EventBegin})
		return b.applyDialog(ctx, chatID, sess, res)

	case "cancel":
		// Nothing in flight; stay quiet like the rest of the commands do
		// when they have nothing to say.
		return nil

	default:
		b.logger.Debug("ignoring unknown command", "command", name, "chat_id", chatID)
		return nil
	}
}

// HandleCallback processes an inline keyboard press. Only model selection
// callbacks exist today.
func (b *Bot) HandleCallback(ctx context.Context, chatID, userID, messageID int64, data string) error {
	if !strings.HasPrefix(data, modelCallbackPrefix) {
		b.logger.Debug("ignoring unknown callback", "data", data, "chat_id", chatID)
		return nil
	}
	modelID := strings.TrimPrefix(data, modelCallbackPrefix)

	unlock := b.locks.Lock(conversationKey(chatID))
	defer unlock()

	sess, err := b.sessions.GetOrCreate(ctx, conversationKey(chatID))
	if err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	keyboardMsg := MessageRef{ChatID: chatID, MessageID: messageID}

	if err := b.models.Validate(modelID); err != nil {
		if errors.Is(err, llm.ErrUnknownModel) {
			b.logger.Warn("rejected model selection", "model", modelID, "chat_id", chatID)
			b.edit(ctx, keyboardMsg, markdown.Escape(fmt.Sprintf("Unknown model %q.", modelID)), b.logger)
			return nil
		}
		return err
	}

	sess.Model = modelID
	if err := b.sessions.Save(ctx, sess); err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	confirmation := fmt.Sprintf("Model changed to <code>%s</code>.\n\nSend /new to start a new chat session.", modelID)
	b.edit(ctx, keyboardMsg, confirmation, b.logger)

	b.logger.Info("model changed", "conversation_id", sess.ConversationID, "model", modelID)
	return nil
}

// newChat resets the history, seeded from the system prompt when one is set.
func (b *Bot) newChat(ctx context.Context, chatID int64, sess *session.Session) error {
	sess.Reset()
	if err := b.sessions.Save(ctx, sess); err != nil {
		b.reportStoreFailure(ctx, chatID, err)
		return nil
	}

	_, err := b.transport.Send(ctx, chatID, "New chat session started.\n\nSwitch models with /model.")
	return err
}

// sendModelKeyboard offers the allow-list as inline buttons, one per row.
func (b *Bot) sendModelKeyboard(ctx context.Context, chatID int64) error {
	models := b.models.List()
	rows := make([][]Button, 0, len(models))
	for _, id := range models {
		rows = append(rows, []Button{{Label: id, Data: modelCallbackPrefix + id}})
	}

	_, err := b.transport.SendButtons(ctx, chatID, "Select a model:", rows)
	return err
}

// sendInfo reports the current model and whether a system prompt is set.
// Pure read, no mutation.
func (b *Bot) sendInfo(ctx context.Context, chatID int64, sess *session.Session) error {
	var sb strings.Builder
	sb.WriteString("<b>Conversation info:</b>\n")
	sb.WriteString(fmt.Sprintf("Model: <code>%s</code>\n", markdown.Escape(sess.Model)))
	if sess.SystemPrompt != "" {
		sb.WriteString(fmt.Sprintf("System prompt: <code>%s</code>\n", markdown.Escape(sess.SystemPrompt)))
	} else {
		sb.WriteString("System prompt: not set\n")
	}

	_, err := b.transport.SendHTML(ctx, chatID, sb.String())
	return err
}
