// Package history implements SessionHistory backends: a human-readable
// JSONL file (default) and a SQLite database.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/pkg/filesystem"
	"github.com/doeshing/cligent-go/internal/ports"
)

// Store is a SessionHistory that knows where it lives.
type Store interface {
	ports.SessionHistory
	Path() string
}

// Open builds the backend named in settings. Paths default to ~/.cligent.
func Open(settings domain.HistorySettings) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(settings.Backend))
	switch backend {
	case "", domain.HistoryBackendJSONL:
		return NewFileStore(resolvePath(settings.Path, "history.jsonl")), nil
	case domain.HistoryBackendSQLite:
		store, err := NewSQLiteStore(resolvePath(settings.Path, "history.db"))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, &domain.ConfigError{Field: "history.backend", Reason: fmt.Sprintf("unknown backend %q", settings.Backend)}
	}
}

func resolvePath(path, name string) string {
	if path == "" {
		return filepath.Join(filesystem.DataDir(), name)
	}
	return filesystem.ExpandPath(path)
}

// Find returns the Turn with id.
func Find(ctx context.Context, store ports.SessionHistory, id string) (domain.Turn, error) {
	turns, err := store.List(ctx)
	if err != nil {
		return domain.Turn{}, err
	}
	for _, turn := range turns {
		if turn.ID == id || (len(id) >= 8 && strings.HasPrefix(turn.ID, id)) {
			return turn, nil
		}
	}
	return domain.Turn{}, fmt.Errorf("%w: %s", domain.ErrTurnNotFound, id)
}

// Export writes every Turn to dest as JSONL.
func Export(ctx context.Context, store ports.SessionHistory, dest string) (int, error) {
	turns, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, turn := range turns {
		if err := encoder.Encode(turn); err != nil {
			return 0, fmt.Errorf("encode turn: %w", err)
		}
	}
	if err := filesystem.WriteFileAtomic(filesystem.ExpandPath(dest), buf.Bytes(), domain.SecureFilePermissions); err != nil {
		return 0, fmt.Errorf("export history: %w", err)
	}
	return len(turns), nil
}
