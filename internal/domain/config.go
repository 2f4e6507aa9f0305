package domain

// Config mirrors ~/.cligent/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Selection           Selection         `yaml:"selection"`
	Mode                Mode              `yaml:"mode"`
	Providers           []ProviderConfig  `yaml:"providers"`
	Session             SessionSettings   `yaml:"session"`
	History             HistorySettings   `yaml:"history"`
	Security            SecuritySettings  `yaml:"security"`
	Execution           ExecutionSettings `yaml:"execution"`
}

// SessionSettings controls the interaction loop.
type SessionSettings struct {
	MaxRecursion int  `yaml:"max_recursion"`
	ContextTurns int  `yaml:"context_turns"`
	Summarize    bool `yaml:"summarize"`
}

// HistorySettings selects the session history backend.
type HistorySettings struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// SecuritySettings locates the guardrail rules. Classification cannot be
// switched off.
type SecuritySettings struct {
	RulesFile string `yaml:"rules_file,omitempty"`
}

// ExecutionSettings controls how commands run.
type ExecutionSettings struct {
	Shell          string `yaml:"shell"`
	TimeoutSeconds int    `yaml:"timeout"`
	MaxOutputBytes int    `yaml:"max_output_bytes"`
}

// History backend names.
const (
	HistoryBackendJSONL  = "jsonl"
	HistoryBackendSQLite = "sqlite"
)
