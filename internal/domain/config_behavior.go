package domain

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ResolveAPIKey returns the literal key, or the value of APIKeyEnv when no
// literal is configured.
func (p ProviderConfig) ResolveAPIKey() string {
	if key := strings.TrimSpace(p.APIKey); key != "" {
		return key
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

// Usable reports whether the provider is enabled and has a resolvable key.
func (p ProviderConfig) Usable() bool {
	return p.Enabled && p.ResolveAPIKey() != ""
}

// FindModel searches the provider's models by id.
func (p ProviderConfig) FindModel(id string) (ModelConfig, bool) {
	for _, model := range p.Models {
		if model.ID == id {
			return model, true
		}
	}
	return ModelConfig{}, false
}

// EnabledModels returns the models that may be selected.
func (p ProviderConfig) EnabledModels() []ModelConfig {
	var models []ModelConfig
	for _, model := range p.Models {
		if model.Enabled {
			models = append(models, model)
		}
	}
	return models
}

// FindProvider searches for a provider by its id
// Returns the provider and true if found, empty provider and false otherwise
func (c *Config) FindProvider(id string) (ProviderConfig, bool) {
	for _, provider := range c.Providers {
		if provider.ID == id {
			return provider, true
		}
	}
	return ProviderConfig{}, false
}

// HasUsableProvider checks if at least one enabled provider has an API key.
func (c *Config) HasUsableProvider() bool {
	for _, provider := range c.Providers {
		if provider.Usable() {
			return true
		}
	}
	return false
}

// EnabledSelections lists every selectable provider/model pair in config order.
func (c *Config) EnabledSelections() []Selection {
	var pairs []Selection
	for _, provider := range c.Providers {
		if !provider.Usable() {
			continue
		}
		for _, model := range provider.EnabledModels() {
			pairs = append(pairs, Selection{ProviderID: provider.ID, ModelID: model.ID})
		}
	}
	return pairs
}

// IsSelectable checks that the pair names a usable provider and an enabled model.
func (c *Config) IsSelectable(sel Selection) bool {
	provider, ok := c.FindProvider(sel.ProviderID)
	if !ok || !provider.Usable() {
		return false
	}
	model, ok := provider.FindModel(sel.ModelID)
	return ok && model.Enabled
}

// ActiveSelection returns the persisted selection when it is still
// selectable, otherwise the first selectable pair.
// Returns ErrNoProvider when nothing can be selected.
func (c *Config) ActiveSelection() (Selection, error) {
	if c.IsSelectable(c.Selection) {
		return c.Selection, nil
	}
	pairs := c.EnabledSelections()
	if len(pairs) == 0 {
		return Selection{}, ErrNoProvider
	}
	return pairs[0], nil
}

// NextSelection returns the pair following current, wrapping around.
// The current pair is returned unchanged when it is the only one.
func (c *Config) NextSelection(current Selection) (Selection, error) {
	pairs := c.EnabledSelections()
	if len(pairs) == 0 {
		return Selection{}, ErrNoProvider
	}
	for i, pair := range pairs {
		if pair == current {
			return pairs[(i+1)%len(pairs)], nil
		}
	}
	return pairs[0], nil
}

// SetSelection changes the persisted selection.
// Returns an error if the pair cannot be selected
func (c *Config) SetSelection(sel Selection) error {
	if !c.IsSelectable(sel) {
		return fmt.Errorf("cannot select %s: provider not usable or model disabled", sel)
	}
	c.Selection = sel
	return nil
}

// MaxTokens returns the configured output limit for the selection.
func (c *Config) MaxTokens(sel Selection) int {
	provider, ok := c.FindProvider(sel.ProviderID)
	if !ok {
		return DefaultMaxTokens
	}
	model, ok := provider.FindModel(sel.ModelID)
	if !ok || model.MaxTokens <= 0 {
		return MaxTokensFor(sel.ModelID)
	}
	return model.MaxTokens
}

// MergeModels adds model ids the provider does not know yet, enabled and
// with their known (or default) max_tokens. It returns how many were added.
func (c *Config) MergeModels(providerID string, ids []string) (int, error) {
	for i := range c.Providers {
		if c.Providers[i].ID != providerID {
			continue
		}
		added := 0
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, exists := c.Providers[i].FindModel(id); exists {
				continue
			}
			c.Providers[i].Models = append(c.Providers[i].Models, ModelConfig{
				ID:        id,
				Enabled:   true,
				MaxTokens: MaxTokensFor(id),
			})
			added++
		}
		return added, nil
	}
	return 0, fmt.Errorf("provider %s not found", providerID)
}

// GetMaxRecursion returns the bound on automatic fix attempts.
func (c *Config) GetMaxRecursion() int {
	if c.Session.MaxRecursion <= 0 {
		return DefaultMaxRecursion
	}
	return c.Session.MaxRecursion
}

// GetContextTurns returns how many earlier Turns go into a prompt.
func (c *Config) GetContextTurns() int {
	if c.Session.ContextTurns <= 0 {
		return DefaultContextTurns
	}
	return c.Session.ContextTurns
}

// GetCommandTimeout returns the per-command execution timeout.
func (c *Config) GetCommandTimeout() time.Duration {
	if c.Execution.TimeoutSeconds <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(c.Execution.TimeoutSeconds) * time.Second
}

// GetMaxOutputBytes returns the per-stream output cap.
func (c *Config) GetMaxOutputBytes() int {
	if c.Execution.MaxOutputBytes <= 0 {
		return DefaultMaxOutputBytes
	}
	return c.Execution.MaxOutputBytes
}

// GetExecutionShell returns the configured shell for command execution
// Returns "" when the platform default should be used
func (c *Config) GetExecutionShell() string {
	shell := strings.TrimSpace(c.Execution.Shell)
	if shell == "auto" {
		return ""
	}
	return shell
}

// GetMode returns the persisted mode, WORK when unset.
func (c *Config) GetMode() Mode {
	return ParseMode(string(c.Mode))
}

// ValidateConsistency checks the internal consistency of the configuration
// Returns an error if there are inconsistencies (e.g., duplicate provider ids)
func (c *Config) ValidateConsistency() error {
	seen := make(map[string]bool, len(c.Providers))
	for _, provider := range c.Providers {
		if seen[provider.ID] {
			return fmt.Errorf("provider %s is declared more than once", provider.ID)
		}
		seen[provider.ID] = true
	}

	if !c.Selection.IsZero() {
		provider, ok := c.FindProvider(c.Selection.ProviderID)
		if !ok {
			return fmt.Errorf("selected provider %s does not exist in providers list", c.Selection.ProviderID)
		}
		if _, ok := provider.FindModel(c.Selection.ModelID); !ok {
			return fmt.Errorf("selected model %s does not exist for provider %s", c.Selection.ModelID, provider.ID)
		}
	}

	return nil
}
