// Package memory implements the long-term/history file store and the
// background consolidation protocol that keeps it in sync with a session's
// conversation log.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	longTermFile = "MEMORY.md"
	historyFile  = "HISTORY.md"
)

// Store is a thin wrapper over the workspace's memory/ directory. MEMORY.md
// is the long-term memory (full-overwrite); HISTORY.md is an append-only log
// of consolidation summaries.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at <workspace>/memory, creating the
// directory if it does not already exist.
func NewStore(workspace string) (*Store, error) {
	dir := filepath.Join(workspace, "memory")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating memory directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) longTermPath() string {
	return filepath.Join(s.dir, longTermFile)
}

func (s *Store) historyPath() string {
	return filepath.Join(s.dir, historyFile)
}

// ReadLongTerm returns the contents of MEMORY.md, or "" if it does not exist.
func (s *Store) ReadLongTerm() (string, error) {
	b, err := os.ReadFile(s.longTermPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading MEMORY.md: %w", err)
	}
	return string(b), nil
}

// WriteLongTerm fully overwrites MEMORY.md with content.
func (s *Store) WriteLongTerm(content string) error {
	if err := os.WriteFile(s.longTermPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing MEMORY.md: %w", err)
	}
	return nil
}

// AppendHistory appends entry as a paragraph followed by a blank line to
// HISTORY.md, creating the file if necessary.
func (s *Store) AppendHistory(entry string) error {
	f, err := os.OpenFile(s.historyPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening HISTORY.md: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(entry + "\n\n"); err != nil {
		return fmt.Errorf("appending to HISTORY.md: %w", err)
	}
	return nil
}

// GetMemoryContext returns the long-term memory wrapped for splicing into
// the system prompt, or "" if there is nothing stored yet.
func (s *Store) GetMemoryContext() (string, error) {
	content, err := s.ReadLongTerm()
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", nil
	}
	return "## Long-term Memory\n" + content, nil
}
