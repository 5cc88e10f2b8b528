package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FreqStore counts how often each menu path was picked, persisted as a JSON
// object {path: count}.
type FreqStore struct {
	path string

	mu     sync.Mutex
	counts map[string]int
}

// DefaultFreqPath returns $XDG_STATE_HOME/wmglue/rofi-freq.json, falling
// back to ~/.local/state.
func DefaultFreqPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "wmglue", "rofi-freq.json")
}

// OpenFreqStore loads the store at path. A missing file is an empty store.
func OpenFreqStore(path string) (*FreqStore, error) {
	s := &FreqStore{path: path, counts: make(map[string]int)}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("freq store: %w", err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.counts); err != nil {
		return nil, fmt.Errorf("freq store %s: %w", path, err)
	}
	return s, nil
}

// Counts returns a copy of the counts.
func (s *FreqStore) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Record increments path and writes the store back atomically.
func (s *FreqStore) Record(path string) error {
	s.mu.Lock()
	s.counts[path]++
	b, err := json.MarshalIndent(s.counts, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("freq store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("freq store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rofi-freq-*")
	if err != nil {
		return fmt.Errorf("freq store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("freq store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("freq store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("freq store: %w", err)
	}
	return nil
}
