// Package config loads and persists ~/.cligent/config.yaml.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/cligent-go/assets"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/pkg/filesystem"
	"github.com/doeshing/cligent-go/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "CLIGENT_CONFIG"

// FileLoader loads YAML configuration from ~/.cligent/config.yaml (overridable via CLIGENT_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := filesystem.WriteFileAtomic(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
		data = assets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, &domain.ConfigError{Field: path, Reason: err.Error()}
	}
	return cfg, nil
}

// Save implements ports.ConfigStore. The file is replaced atomically with
// owner-only permissions.
func (l *FileLoader) Save(_ context.Context, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := filesystem.WriteFileAtomic(l.Path(), raw, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.DataDir(), "config.yaml")
}

// Backup copies the current config file to a timestamped backup.
func (l *FileLoader) Backup() (string, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
	if err := filesystem.WriteFileAtomic(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

// Parse decodes YAML and fills unset values with defaults.
func Parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("invalid YAML: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() domain.Config {
	cfg, err := Parse(assets.DefaultConfigYAML)
	if err != nil {
		// Only reachable if the embedded file is broken; tests guard it.
		return hydrateDefaults(domain.Config{})
	}
	return cfg
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	cfg.Mode = cfg.GetMode()
	if cfg.Session.MaxRecursion <= 0 {
		cfg.Session.MaxRecursion = domain.DefaultMaxRecursion
	}
	if cfg.Session.ContextTurns <= 0 {
		cfg.Session.ContextTurns = domain.DefaultContextTurns
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = domain.HistoryBackendJSONL
	}
	for i := range cfg.Providers {
		for j := range cfg.Providers[i].Models {
			if cfg.Providers[i].Models[j].MaxTokens <= 0 {
				cfg.Providers[i].Models[j].MaxTokens = domain.MaxTokensFor(cfg.Providers[i].Models[j].ID)
			}
		}
	}
	return cfg
}

var _ ports.ConfigStore = (*FileLoader)(nil)
