package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the permission for the cligent data directory (rwx------)
	DirectoryPermissions = 0o700
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Timeout and duration constants
const (
	// DefaultCommandTimeout is the default timeout for command execution
	DefaultCommandTimeout = 120 * time.Second
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 120 * time.Second
	// DefaultProbeTimeout bounds the small commands run while collecting system info
	DefaultProbeTimeout = 2 * time.Second
	// SpinnerInterval is the delay between progress frames
	SpinnerInterval = 80 * time.Millisecond
)

// Limit constants
const (
	// DefaultMaxRecursion bounds automatic fix attempts within one Turn
	DefaultMaxRecursion = 10
	// DefaultContextTurns is how many previous Turns are included in a prompt
	DefaultContextTurns = 50
	// MaxPreviousAttempts is how many failed attempts are replayed in a fix prompt
	MaxPreviousAttempts = 20
	// DefaultMaxOutputBytes caps each captured output stream
	DefaultMaxOutputBytes = 64 * 1024
	// MaxSummaryWords caps generated Turn summaries
	MaxSummaryWords = 15
)

// Model configuration constants
const (
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 4096
	// SummaryMaxTokens is the token budget for summary and answer calls
	SummaryMaxTokens = 256
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
