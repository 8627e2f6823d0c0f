// ABOUTME: State machine for the multi-step system prompt change flow
// ABOUTME: Pure transition function - the orchestrator applies the resulting effects

package dialog

import "strings"

// State identifies where a conversation is in the system prompt flow.
// It is persisted as a plain string in the session record.
type State string

const (
	// StateIdle is the default; the conversation is not inside the flow.
	StateIdle State = "idle"
	// StateAwaitingPrompt means the next plain message is consumed as the
	// new system prompt instead of being sent to the model.
	StateAwaitingPrompt State = "awaiting_prompt"
)

// EventKind classifies an inbound event for the state machine.
type EventKind int

const (
	// EventBegin is the /system_prompt command.
	EventBegin EventKind = iota
	// EventText is a plain message from the user.
	EventText
	// EventCancel is the /cancel command.
	EventCancel
	// EventCommand is any other command received mid-flow.
	EventCommand
)

// Event is a single input to the state machine.
type Event struct {
	Kind EventKind
	Text string // message body for EventText
}

// Action tells the orchestrator what to do with the session's system prompt.
type Action int

const (
	// ActionNone leaves the session untouched.
	ActionNone Action = iota
	// ActionSetPrompt stores Result.Prompt as the new system prompt.
	ActionSetPrompt
	// ActionClearPrompt removes the system prompt.
	ActionClearPrompt
)

// Result is the outcome of a transition: the next state plus the effects
// the orchestrator must apply. Reply is user-visible text ("" = say nothing);
// ResetChat asks for a new-chat reset seeded from the (possibly new) prompt.
type Result struct {
	State     State
	Action    Action
	Prompt    string
	Reply     string
	ResetChat bool
}

// clearSentinel removes the stored prompt when sent as the reply text.
const clearSentinel = "clear"

const promptInstructions = "Send me a new system prompt. " +
	"Send \"clear\" to remove the current one, or /cancel to keep it."

// Step computes the transition for one event. It never mutates anything;
// callers persist the returned state and apply the effects themselves.
// Unknown event kinds while idle fall through unchanged so stray /cancel
// commands outside the flow stay harmless.
func Step(state State, ev Event) Result {
	switch state {
	case StateAwaitingPrompt:
		return stepAwaiting(ev)
	default:
		return stepIdle(ev)
	}
}

func stepIdle(ev Event) Result {
	if ev.Kind == EventBegin {
		return Result{State: StateAwaitingPrompt, Reply: promptInstructions}
	}
	return Result{State: StateIdle}
}

func stepAwaiting(ev Event) Result {
	switch ev.Kind {
	case EventText:
		if strings.EqualFold(strings.TrimSpace(ev.Text), clearSentinel) {
			return Result{
				State:     StateIdle,
				Action:    ActionClearPrompt,
				Reply:     "System prompt cleared.",
				ResetChat: true,
			}
		}
		return Result{
			State:     StateIdle,
			Action:    ActionSetPrompt,
			Prompt:    ev.Text,
			Reply:     "System prompt changed.",
			ResetChat: true,
		}

	case EventBegin:
		// Re-entry is a re-prompt, never a stacked state.
		return Result{State: StateAwaitingPrompt, Reply: promptInstructions}

	default:
		// EventCancel, or any unrelated command mid-flow. Either way the
		// flow ends without touching the session.
		return Result{State: StateIdle, Reply: "System prompt change cancelled."}
	}
}
