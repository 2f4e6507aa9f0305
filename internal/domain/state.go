package domain

// LoopState is the interaction loop's current phase.
type LoopState string

const (
	StateIdle                 LoopState = "IDLE"
	StateAwaitingAI           LoopState = "AWAITING_AI"
	StateInterpreting         LoopState = "INTERPRETING"
	StateAwaitingConfirmation LoopState = "AWAITING_CONFIRMATION"
	StateExecuting            LoopState = "EXECUTING"
	StateAborted              LoopState = "ABORTED"
)

// Busy reports whether the state is waiting on something cancellable.
func (s LoopState) Busy() bool {
	return s == StateAwaitingAI || s == StateExecuting
}

// MessageLevel tags messages shown to the user.
type MessageLevel string

const (
	MessageInfo    MessageLevel = "info"
	MessageWarn    MessageLevel = "warn"
	MessageError   MessageLevel = "error"
	MessageSuccess MessageLevel = "success"
)
