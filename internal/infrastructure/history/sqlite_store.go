package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// SQLiteStore persists Turns in a SQLite database. The searchable columns
// are denormalised; the full Turn is stored as JSON in data.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer at a time; the loop is sequential anyway.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS turns (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		user_input TEXT,
		mode TEXT,
		provider TEXT,
		model TEXT,
		status TEXT,
		summary TEXT,
		data TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Append implements ports.SessionHistory.
func (s *SQLiteStore) Append(ctx context.Context, turn domain.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO turns
		(id, timestamp, user_input, mode, provider, model, status, summary, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID,
		turn.Timestamp.UTC().Format(time.RFC3339Nano),
		turn.UserInput,
		string(turn.Mode),
		turn.ProviderID,
		turn.ModelID,
		string(turn.Status),
		turn.Summary,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// List implements ports.SessionHistory.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM turns ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		var turn domain.Turn
		if err := json.Unmarshal([]byte(data), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Delete implements ports.SessionHistory.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete turn: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTurnNotFound, id)
	}
	return nil
}

// Clear implements ports.SessionHistory.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM turns"); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.SessionHistory = (*SQLiteStore)(nil)
