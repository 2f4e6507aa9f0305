// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). Following the Ports and Adapters (Hexagonal) pattern,
// these interfaces allow the application to remain independent of specific
// implementations like HTTP clients, the terminal, or storage backends.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., ProviderClient, SessionHistory)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/cligent-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.cligent/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ConfigStore persists configuration changes such as the active selection.
type ConfigStore interface {
	ConfigProvider
	Save(context.Context, domain.Config) error
	Path() string
}

// ContextCollector gathers system information (OS, kernel, distro, user) to enrich AI prompts.
type ContextCollector interface {
	Collect(context.Context) (domain.ContextSnapshot, error)
}

// ProviderClient sends one prompt to the selected provider/model and returns the raw reply.
// Errors are *domain.ProviderError, or ctx.Err() once ctx is cancelled; a reply
// arriving after that is discarded.
type ProviderClient interface {
	Send(context.Context, ProviderRequest) (string, error)
}

// ProviderRequest contains all data needed for one AI call.
type ProviderRequest struct {
	Prompt    string
	System    string
	Selection domain.Selection
	MaxTokens int
}

// ModelLister fetches the model ids a provider offers.
type ModelLister interface {
	ListModels(ctx context.Context, providerID string) ([]string, error)
}

// ResponseInterpreter turns raw AI text into an explanation and proposed commands.
type ResponseInterpreter interface {
	Interpret(raw string, mode domain.Mode) (domain.Interpretation, error)
}

// SafetyClassifier labels a command SAFE or DANGEROUS. It must be deterministic
// and free of side effects.
type SafetyClassifier interface {
	Classify(command string) domain.Assessment
}

// CommandExecutor runs shell commands in the configured shell environment.
type CommandExecutor interface {
	Run(ctx context.Context, command string, opts ExecOptions) (domain.ExecutionResult, error)
}

// ExecOptions tunes a single command run.
type ExecOptions struct {
	Dir            string
	Timeout        time.Duration
	MaxOutputBytes int
}

// SessionHistory is the durable, ordered log of Turns.
type SessionHistory interface {
	Append(ctx context.Context, turn domain.Turn) error
	// List returns Turns most-recent-last.
	List(ctx context.Context) ([]domain.Turn, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Display renders loop progress and collects confirmations.
type Display interface {
	SetState(domain.LoopState)
	// Tick advances the progress indicator while the loop is busy.
	Tick()
	ShowPlan(explanation string, records []domain.CommandRecord)
	ShowResult(domain.CommandRecord)
	ShowTurn(domain.Turn)
	ShowMessage(level domain.MessageLevel, text string)
	// Confirm asks about one dangerous command. It returns domain.ErrCancelled
	// when the user interrupts instead of answering.
	Confirm(ctx context.Context, record domain.CommandRecord) (bool, error)
	// Interrupts delivers one value per user interrupt.
	Interrupts() <-chan struct{}
	// BrowseHistory opens the history table; deletions go straight to history.
	BrowseHistory(ctx context.Context, history SessionHistory) error
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (files, no-op).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
