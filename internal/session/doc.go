// Package session persists per-conversation chat state.
//
// # Overview
//
// Each Telegram chat gets one Session: the ordered message history that is
// sent to the model as prompt context, the selected model, an optional
// system prompt, and the dialog state of the system prompt change flow.
//
// Sessions are created lazily on first contact and never deleted; a "new
// chat" only resets the history (re-seeding it from the system prompt when
// one is set).
//
// # Storage
//
// SQLiteStore keeps one row per conversation with the history as a JSON
// array. Save replaces the whole row, so a failed write leaves the previous
// state intact.
//
// # Concurrency
//
// The store itself does not serialize callers. KeyedLock provides the
// per-conversation mutual exclusion the orchestrator needs: units of work
// for the same conversation take the key's mutex for their full duration,
// while different conversations proceed independently.
package session
