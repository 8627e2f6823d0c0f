// Package telegram is the Bot API edge of the relay.
//
// Client is a thin JSON-over-HTTP wrapper around the handful of Bot API
// methods the relay uses (sendMessage, editMessageText, sendChatAction,
// answerCallbackQuery, getUpdates). It implements the orchestrator's
// Transport interface.
//
// Poller owns the getUpdates long-poll loop: it tracks the update offset,
// drops duplicates, enforces the allowed-users list, classifies each update
// as a command, plain text or callback, and dispatches it to the Handler on
// its own goroutine. Panics in handlers are contained per update.
package telegram
