// Package bot is the conversation orchestrator.
//
// # Overview
//
// The Bot receives classified inbound events (commands, plain text, button
// presses), loads or creates the conversation's session, and routes each
// event to exactly one of three paths:
//
//  1. The system prompt dialog, when its state machine is mid-flow
//  2. A command implementation (/start, /help, /new, /model, /info, ...)
//  3. Generation: append the user turn, stream the completion, and edit a
//     single placeholder message as snapshots arrive
//
// # Concurrency
//
// Every handler takes the conversation's keyed lock for its full duration,
// so two events for the same chat never interleave - a model change cannot
// race a message send. Events for different chats run concurrently; the
// poller dispatches each update on its own goroutine.
//
// # Failure handling
//
// Known failures are surfaced in-chat at the point they occur: storage
// trouble as a "try again" notice, generation failures as an apology (with
// any partial answer kept on screen and in history), invalid model picks as
// a validation message. Unexpected errors propagate to the poller, which
// logs them with context and posts a generic failure notice.
package bot
