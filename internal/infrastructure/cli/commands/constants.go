package commands

// CLI-specific constants
const (
	// DefaultEditorCommand is the default editor command
	DefaultEditorCommand = "vi"
	// DefaultHistoryLimit is how many Turns `history list` shows
	DefaultHistoryLimit = 20
	// TopCommandsLimit bounds the command ranking in `history stats`
	TopCommandsLimit = 5
	// ListTimestampFormat is used in history listings
	ListTimestampFormat = "2006-01-02 15:04:05"
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrProvidersUnavailable     = "provider clients unavailable"
	ErrGuardrailUnavailable     = "guardrail unavailable"
	ErrKeyRequired              = "--key is required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgInitCancelled            = "Init cancelled."
)
