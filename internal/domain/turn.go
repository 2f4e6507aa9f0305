package domain

import (
	"strings"
	"time"
)

// Mode selects how the agent treats a request.
type Mode string

const (
	// ModeWork lets the agent propose and run commands.
	ModeWork Mode = "WORK"
	// ModeAsk answers questions; commands are shown but never run.
	ModeAsk Mode = "ASK"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeAsk {
		return ModeWork
	}
	return ModeAsk
}

// ParseMode accepts "work"/"ask" in any case and falls back to ModeWork.
func ParseMode(value string) Mode {
	if strings.EqualFold(strings.TrimSpace(value), string(ModeAsk)) {
		return ModeAsk
	}
	return ModeWork
}

// Intent is what the AI says a reply is for.
type Intent string

const (
	IntentTask   Intent = "task"
	IntentQuery  Intent = "query"
	IntentIssue  Intent = "issue"
	IntentAnswer Intent = "answer"
	IntentDirect Intent = "direct"
)

// ParseIntent maps a reply type onto an Intent. Unknown values yield "".
func ParseIntent(value string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(value))) {
	case IntentTask:
		return IntentTask
	case IntentQuery:
		return IntentQuery
	case IntentIssue:
		return IntentIssue
	case IntentAnswer:
		return IntentAnswer
	case IntentDirect:
		return IntentDirect
	}
	return ""
}

// TurnStatus is the lifecycle state of a Turn.
type TurnStatus string

const (
	TurnPending   TurnStatus = "PENDING"
	TurnCompleted TurnStatus = "COMPLETED"
	TurnFailed    TurnStatus = "FAILED"
	TurnAborted   TurnStatus = "ABORTED"
)

// Terminal reports whether the status ends a Turn.
func (s TurnStatus) Terminal() bool {
	return s == TurnCompleted || s == TurnFailed || s == TurnAborted
}

// Turn is one user input and everything that followed from it.
type Turn struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	UserInput   string          `json:"user_input"`
	Mode        Mode            `json:"mode"`
	ProviderID  string          `json:"provider"`
	ModelID     string          `json:"model"`
	AIText      string          `json:"ai_text,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
	Intent      Intent          `json:"intent,omitempty"`
	Commands    []CommandRecord `json:"commands"`
	Status      TurnStatus      `json:"status"`
	Depth       int             `json:"depth"`
	Summary     string          `json:"summary,omitempty"`
	Answer      string          `json:"answer,omitempty"`
	Error       string          `json:"error,omitempty"`
}

var turnTransitions = map[TurnStatus][]TurnStatus{
	TurnPending: {TurnCompleted, TurnFailed, TurnAborted},
	TurnFailed:  {TurnPending},
}

// CanTransitionTo checks if a status transition is valid. COMPLETED and
// ABORTED are final; FAILED may return to PENDING for a fix attempt.
func (t *Turn) CanTransitionTo(next TurnStatus) bool {
	for _, status := range turnTransitions[t.Status] {
		if status == next {
			return true
		}
	}
	return false
}

// TransitionStatus updates the status if the transition is valid.
func (t *Turn) TransitionStatus(next TurnStatus) bool {
	if !t.CanTransitionTo(next) {
		return false
	}
	t.Status = next
	return true
}

// Selection returns the provider/model pair the Turn was sent to.
func (t Turn) Selection() Selection {
	return Selection{ProviderID: t.ProviderID, ModelID: t.ModelID}
}

// Executed returns the records of commands that actually ran.
func (t Turn) Executed() []CommandRecord {
	var ran []CommandRecord
	for _, record := range t.Commands {
		if record.Ran() {
			ran = append(ran, record)
		}
	}
	return ran
}

// CommandRecord captures one proposed command and its outcome.
type CommandRecord struct {
	Command        string         `json:"command"`
	Classification Classification `json:"classification"`
	Reasons        []string       `json:"reasons,omitempty"`
	Confirmed      bool           `json:"confirmed"`
	ExitCode       *int           `json:"exit_code,omitempty"`
	Stdout         string         `json:"stdout,omitempty"`
	Stderr         string         `json:"stderr,omitempty"`
	Truncated      bool           `json:"truncated,omitempty"`
	Attempt        int            `json:"attempt"`
	DurationMS     int64          `json:"duration_ms,omitempty"`
}

// Ran reports whether the command was executed.
func (r CommandRecord) Ran() bool {
	return r.ExitCode != nil
}

// Failed reports whether the command ran and exited non-zero.
func (r CommandRecord) Failed() bool {
	return r.ExitCode != nil && *r.ExitCode != 0
}

// ExecutionResult wraps details from the command executor.
type ExecutionResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	Truncated  bool
	DurationMS int64
}

// RecentTurns returns at most n Turns from the end of turns. n <= 0 keeps all.
func RecentTurns(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
