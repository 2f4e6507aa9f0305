// Package domain defines core business entities and value objects for cligent.
//
// This file contains AI provider and model definitions used throughout the application.
// The domain layer is independent of infrastructure concerns and represents pure
// business logic and data structures.
package domain

// ProviderKind selects the client implementation used for a provider.
type ProviderKind string

const (
	ProviderKindAnthropic ProviderKind = "anthropic"
	ProviderKindOpenAI    ProviderKind = "openai"
	ProviderKindHTTP      ProviderKind = "http"
)

// Valid reports whether the kind is one the factory can build.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderKindAnthropic, ProviderKindOpenAI, ProviderKindHTTP:
		return true
	}
	return false
}

// ProviderConfig describes an AI backend declared in the config file.
// The API key is a secret: either a literal APIKey or the name of an
// environment variable in APIKeyEnv.
type ProviderConfig struct {
	ID        string        `yaml:"id"`
	Kind      ProviderKind  `yaml:"kind"`
	Enabled   bool          `yaml:"enabled"`
	APIKey    string        `yaml:"api_key,omitempty"`
	APIKeyEnv string        `yaml:"api_key_env,omitempty"`
	Endpoint  string        `yaml:"endpoint,omitempty"`
	Models    []ModelConfig `yaml:"models"`
	APIFormat APIFormat     `yaml:"api_format,omitempty"`
}

// ModelConfig is one model offered by a provider.
type ModelConfig struct {
	ID        string `yaml:"id"`
	Enabled   bool   `yaml:"enabled"`
	MaxTokens int    `yaml:"max_tokens"`
}

// APIFormat tunes the generic HTTP provider for chat endpoints that are not
// served by a vendor SDK. All fields are optional with OpenAI-compatible defaults.
type APIFormat struct {
	// AuthHeaderName specifies the HTTP header name for authentication.
	// Default: "Authorization"
	AuthHeaderName string `yaml:"auth_header_name,omitempty"`

	// AuthHeaderPrefix is prepended to the API key value.
	// Default: "Bearer " (with trailing space)
	AuthHeaderPrefix string `yaml:"auth_header_prefix,omitempty"`

	// ResponseJSONPath specifies where to extract the generated text from the response.
	// Default: "choices[0].message.content"
	ResponseJSONPath string `yaml:"response_json_path,omitempty"`

	// ExtraHeaders contains additional HTTP headers to send with each request.
	ExtraHeaders map[string]string `yaml:"extra_headers,omitempty"`
}

// API format defaults.
const (
	DefaultAuthHeaderName   = "Authorization"
	DefaultAuthHeaderPrefix = "Bearer "
	DefaultResponseJSONPath = "choices[0].message.content"
)

// WithDefaults returns a copy of the format with empty fields filled.
func (f APIFormat) WithDefaults() APIFormat {
	if f.AuthHeaderName == "" {
		f.AuthHeaderName = DefaultAuthHeaderName
		if f.AuthHeaderPrefix == "" {
			f.AuthHeaderPrefix = DefaultAuthHeaderPrefix
		}
	}
	if f.ResponseJSONPath == "" {
		f.ResponseJSONPath = DefaultResponseJSONPath
	}
	return f
}

// Selection names the provider/model pair used for a request. It is passed
// explicitly into every provider call.
type Selection struct {
	ProviderID string `yaml:"provider"`
	ModelID    string `yaml:"model"`
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.ProviderID == "" && s.ModelID == ""
}

func (s Selection) String() string {
	if s.IsZero() {
		return "(none)"
	}
	return s.ProviderID + "/" + s.ModelID
}

// knownMaxTokens holds output limits for models commonly returned by
// model listing endpoints.
var knownMaxTokens = map[string]int{
	"deepseek-chat":              8192,
	"deepseek-reasoner":          8192,
	"gpt-4o":                     16384,
	"gpt-4o-mini":                16384,
	"gpt-4-turbo":                4096,
	"gpt-3.5-turbo":              4096,
	"claude-3-5-sonnet-20241022": 8192,
	"claude-3-5-haiku-20241022":  8192,
	"claude-3-opus-20240229":     4096,
	"claude-sonnet-4-20250514":   8192,
}

// MaxTokensFor returns the known output limit for a model id, or
// DefaultMaxTokens when the model is not known.
func MaxTokensFor(modelID string) int {
	if n, ok := knownMaxTokens[modelID]; ok {
		return n
	}
	return DefaultMaxTokens
}
