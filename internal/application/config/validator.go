package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/cligent-go/internal/domain"
)

// Validate ensures config structure is consistent. Every problem found is
// reported as a *domain.ConfigError joined into the returned error.
func Validate(cfg domain.Config) error {
	var problems []error

	if len(cfg.Providers) == 0 {
		problems = append(problems, &domain.ConfigError{Field: "providers", Reason: "at least one provider must be configured"})
	}
	for i, provider := range cfg.Providers {
		problems = append(problems, validateProvider(i, provider)...)
	}
	if err := cfg.ValidateConsistency(); err != nil {
		problems = append(problems, &domain.ConfigError{Field: "selection", Reason: err.Error()})
	}
	if err := validateMode(cfg.Mode); err != nil {
		problems = append(problems, err)
	}
	problems = append(problems, validateSession(cfg.Session)...)
	if err := validateHistory(cfg.History); err != nil {
		problems = append(problems, err)
	}
	problems = append(problems, validateExecution(cfg.Execution)...)

	return errors.Join(problems...)
}

// RequireUsableProvider enforces the start-up invariant: at least one enabled
// provider with a resolvable key and an enabled model.
func RequireUsableProvider(cfg domain.Config) error {
	if len(cfg.EnabledSelections()) == 0 {
		return domain.ErrNoProvider
	}
	return nil
}

func validateProvider(index int, provider domain.ProviderConfig) []error {
	field := fmt.Sprintf("providers[%d]", index)
	if provider.ID != "" {
		field = "providers." + provider.ID
	}

	var problems []error
	if strings.TrimSpace(provider.ID) == "" {
		problems = append(problems, &domain.ConfigError{Field: field + ".id", Reason: "must be set"})
	}
	if !provider.Kind.Valid() {
		problems = append(problems, &domain.ConfigError{
			Field:  field + ".kind",
			Reason: fmt.Sprintf("must be anthropic|openai|http, got %q", provider.Kind),
		})
	}
	if provider.Kind == domain.ProviderKindHTTP && strings.TrimSpace(provider.Endpoint) == "" {
		problems = append(problems, &domain.ConfigError{Field: field + ".endpoint", Reason: "required for http providers"})
	}
	if len(provider.Models) == 0 {
		problems = append(problems, &domain.ConfigError{Field: field + ".models", Reason: "at least one model must be configured"})
	}
	seen := make(map[string]bool, len(provider.Models))
	for _, model := range provider.Models {
		if strings.TrimSpace(model.ID) == "" {
			problems = append(problems, &domain.ConfigError{Field: field + ".models", Reason: "model id must be set"})
			continue
		}
		if seen[model.ID] {
			problems = append(problems, &domain.ConfigError{Field: field + ".models." + model.ID, Reason: "declared more than once"})
		}
		seen[model.ID] = true
		if model.MaxTokens <= 0 {
			problems = append(problems, &domain.ConfigError{Field: field + ".models." + model.ID + ".max_tokens", Reason: "must be > 0"})
		}
	}
	return problems
}

func validateMode(mode domain.Mode) error {
	switch strings.ToUpper(string(mode)) {
	case "", string(domain.ModeWork), string(domain.ModeAsk):
		return nil
	}
	return &domain.ConfigError{Field: "mode", Reason: fmt.Sprintf("must be WORK|ASK, got %s", mode)}
}

func validateSession(session domain.SessionSettings) []error {
	var problems []error
	if session.MaxRecursion < 0 {
		problems = append(problems, &domain.ConfigError{Field: "session.max_recursion", Reason: "must be > 0"})
	}
	if session.ContextTurns < 0 {
		problems = append(problems, &domain.ConfigError{Field: "session.context_turns", Reason: "must be >= 0"})
	}
	return problems
}

func validateHistory(history domain.HistorySettings) error {
	switch strings.ToLower(history.Backend) {
	case "", domain.HistoryBackendJSONL, domain.HistoryBackendSQLite:
		return nil
	}
	return &domain.ConfigError{Field: "history.backend", Reason: fmt.Sprintf("must be jsonl|sqlite, got %s", history.Backend)}
}

func validateExecution(execution domain.ExecutionSettings) []error {
	var problems []error
	if execution.TimeoutSeconds < 0 {
		problems = append(problems, &domain.ConfigError{Field: "execution.timeout", Reason: "must be >= 0"})
	}
	if execution.MaxOutputBytes < 0 {
		problems = append(problems, &domain.ConfigError{Field: "execution.max_output_bytes", Reason: "must be >= 0"})
	}
	return problems
}
