package domain

import (
	"context"
	"errors"
	"fmt"
)

// ConfigError reports a missing or invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ErrNoProvider means no enabled provider has a usable key.
var ErrNoProvider = &ConfigError{Reason: "no enabled provider with an API key"}

// ProviderErrorKind classifies provider failures.
type ProviderErrorKind string

const (
	ProviderAuth      ProviderErrorKind = "AuthError"
	ProviderRateLimit ProviderErrorKind = "RateLimited"
	ProviderNetwork   ProviderErrorKind = "NetworkError"
	ProviderMalformed ProviderErrorKind = "MalformedResponse"
)

// ProviderError is returned by every provider client.
type ProviderError struct {
	Kind       ProviderErrorKind
	ProviderID string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ProviderID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.ProviderID, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError wrapping err.
func NewProviderError(kind ProviderErrorKind, providerID string, err error) *ProviderError {
	return &ProviderError{Kind: kind, ProviderID: providerID, Err: err}
}

// InterpretationError means the AI text contained nothing usable.
type InterpretationError struct {
	Reason string
}

func (e *InterpretationError) Error() string {
	return "interpretation: " + e.Reason
}

// ExecutionFailure describes a command that could not be started or exited non-zero.
type ExecutionFailure struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ExecutionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
}

func (e *ExecutionFailure) Unwrap() error {
	return e.Err
}

// ErrCancelled is reported when the user interrupts a Turn.
var ErrCancelled = errors.New("cancelled by user")

// IsCancellation reports whether err stems from a user interrupt or a
// cancelled context.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// ErrTurnNotFound is returned when a history entry does not exist.
var ErrTurnNotFound = errors.New("turn not found")
