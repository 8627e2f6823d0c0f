// Package dedupe tracks recently processed Telegram update IDs so a poll
// offset reset never replays a message into the orchestrator twice.
package dedupe
