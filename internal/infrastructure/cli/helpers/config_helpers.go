package helpers

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/cligent-go/internal/app"
	configapp "github.com/doeshing/cligent-go/internal/application/config"
	"github.com/doeshing/cligent-go/internal/domain"
	configinfra "github.com/doeshing/cligent-go/internal/infrastructure/config"
)

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*configinfra.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, fmt.Errorf("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// LoadConfig reads the current configuration.
func LoadConfig(ctx context.Context, container *app.Container) (domain.Config, error) {
	if container.ConfigProvider == nil {
		return domain.Config{}, fmt.Errorf("config loader unavailable")
	}
	cfg, err := container.ConfigProvider.Load(ctx)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfigWithValidation validates and saves configuration with automatic
// backup. It returns the backup path, or "" when there was no file to back up.
func SaveConfigWithValidation(ctx context.Context, container *app.Container, cfg domain.Config) (string, error) {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return "", err
	}

	if err := configapp.Validate(cfg); err != nil {
		return "", fmt.Errorf("configuration validation failed: %w", err)
	}

	backup, err := createBackupIfExists(loader)
	if err != nil {
		return "", err
	}

	if err := loader.Save(ctx, cfg); err != nil {
		return "", fmt.Errorf("failed to save configuration: %w", err)
	}

	return backup, nil
}

// createBackupIfExists creates a backup of the config file if it exists
func createBackupIfExists(loader *configinfra.FileLoader) (string, error) {
	if _, err := os.Stat(loader.Path()); err != nil {
		return "", nil
	}
	backup, err := loader.Backup()
	if err != nil {
		return "", fmt.Errorf("failed to create configuration backup: %w", err)
	}
	return backup, nil
}

// ConfigToMap converts the configuration to a generic YAML map, keyed by
// the names used in config.yaml.
func ConfigToMap(cfg domain.Config) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	var cfgMap map[string]interface{}
	if err := yaml.Unmarshal(raw, &cfgMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to map: %w", err)
	}
	return cfgMap, nil
}

// MapToConfig converts a generic map back into a configuration.
func MapToConfig(cfgMap map[string]interface{}) (domain.Config, error) {
	raw, err := yaml.Marshal(cfgMap)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to marshal updated map: %w", err)
	}
	cfg, err := configinfra.Parse(raw)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to parse updated config: %w", err)
	}
	return cfg, nil
}

// ParseYAMLValue parses a string value as YAML, falling back to literal string
func ParseYAMLValue(input string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(input), &parsed); err != nil {
		return input
	}
	return parsed
}

// SetNestedMapValue sets a value in a nested map using a key path
// Returns true if successful, false otherwise
func SetNestedMapValue(root map[string]interface{}, keyPath []string, value interface{}) bool {
	if len(keyPath) == 0 {
		return false
	}

	current := root
	for i := 0; i < len(keyPath)-1; i++ {
		key := keyPath[i]
		next, exists := current[key]

		if !exists {
			newChild := map[string]interface{}{}
			current[key] = newChild
			current = newChild
			continue
		}

		child, isMap := next.(map[string]interface{})
		if !isMap {
			return false
		}
		current = child
	}

	current[keyPath[len(keyPath)-1]] = value
	return true
}

// TraverseNestedMap retrieves a value from a nested map using a key path
// Returns the value and true if found, nil and false otherwise
func TraverseNestedMap(data interface{}, keyPath []string) (interface{}, bool) {
	if len(keyPath) == 0 {
		return data, true
	}

	switch node := data.(type) {
	case map[string]interface{}:
		next, exists := node[keyPath[0]]
		if !exists {
			return nil, false
		}
		return TraverseNestedMap(next, keyPath[1:])
	default:
		return nil, false
	}
}
