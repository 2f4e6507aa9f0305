package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/pkg/filesystem"
	"github.com/doeshing/cligent-go/internal/ports"
)

// FileStore keeps Turns in a JSONL file, one Turn per line.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Append implements ports.SessionHistory. The line is fsynced before returning.
func (f *FileStore) Append(_ context.Context, turn domain.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, domain.SecureFilePermissions)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	torn, err := endsMidLine(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("inspect history: %w", err)
	}
	if torn {
		// Terminate a line left by an interrupted write so it stays on its own.
		data = append([]byte{'\n'}, data...)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("append turn: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync history: %w", err)
	}
	return file.Close()
}

// endsMidLine reports whether a non-empty file lacks a trailing newline.
func endsMidLine(file *os.File) (bool, error) {
	info, err := file.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

// List implements ports.SessionHistory. Lines that do not decode are skipped.
func (f *FileStore) List(context.Context) ([]domain.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// Delete implements ports.SessionHistory by rewriting the file without the Turn.
func (f *FileStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	turns, err := f.read()
	if err != nil {
		return err
	}
	kept := turns[:0]
	found := false
	for _, turn := range turns {
		if turn.ID == id {
			found = true
			continue
		}
		kept = append(kept, turn)
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrTurnNotFound, id)
	}
	return f.rewrite(kept)
}

// Clear implements ports.SessionHistory.
func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (f *FileStore) read() ([]domain.Turn, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var turns []domain.Turn
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var turn domain.Turn
		if err := json.Unmarshal(line, &turn); err == nil {
			turns = append(turns, turn)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return turns, nil
}

func (f *FileStore) rewrite(turns []domain.Turn) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, turn := range turns {
		if err := encoder.Encode(turn); err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
	}
	if err := filesystem.WriteFileAtomic(f.path, buf.Bytes(), domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("rewrite history: %w", err)
	}
	return nil
}

var _ ports.SessionHistory = (*FileStore)(nil)
