package disabled

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultFileName is the name of the disabled-id file inside the config directory
const DefaultFileName = "disabled_plugins.txt"

// FileStore keeps disabled ids in a newline-delimited text file. Blank lines
// and lines starting with '#' are ignored.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on first append.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store
func (s *FileStore) Load(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (map[string]bool, error) {
	ids := make(map[string]bool)

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ids, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open disabled plugins file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read disabled plugins file: %w", err)
	}

	return ids, nil
}

// Append implements Store
func (s *FileStore) Append(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || existing[id] {
			continue
		}
		existing[id] = true
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open disabled plugins file: %w", err)
	}
	lead, err := needsNewline(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read disabled plugins file: %w", err)
	}
	if _, err := f.WriteString(lead + b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write disabled plugins file: %w", err)
	}
	return f.Close()
}

// needsNewline returns "\n" when f is non-empty and its last line is
// unterminated, so appended ids start on a line of their own
func needsNewline(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return "", err
	}
	if last[0] == '\n' {
		return "", nil
	}
	return "\n", nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}
