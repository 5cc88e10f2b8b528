// Package clip reads and writes the local X11 selections that the clipboard
// relay bridges:
//
//	system.go    CLIPBOARD via golang.design/x/clipboard
//	xclip.go     any named selection (PRIMARY, CLIPBOARD) via xclip
//	headless.go  no-op backend when no display is available
//
// Multi combines them the way the relay client needs: read one selection,
// write the remote value back to several.
package clip

import (
	"errors"
	"fmt"
)

// Backend is a single text selection.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current selection text. An empty selection is "", nil.
	Read() (string, error)

	// Write replaces the selection text.
	Write(text string) error

	// Close releases any resources held by the backend.
	Close()
}

// Multi reads from Source and writes to every backend in Sinks.
type Multi struct {
	Source Backend
	Sinks  []Backend
}

// NewMulti returns a Multi. A nil source reads nothing.
func NewMulti(source Backend, sinks ...Backend) *Multi {
	return &Multi{Source: source, Sinks: sinks}
}

func (m *Multi) Name() string {
	name := "none"
	if m.Source != nil {
		name = m.Source.Name()
	}
	for _, s := range m.Sinks {
		name += " → " + s.Name()
	}
	return name
}

func (m *Multi) Read() (string, error) {
	if m.Source == nil {
		return "", nil
	}
	return m.Source.Read()
}

// Write writes text to every sink, continuing past failures and returning
// them joined.
func (m *Multi) Write(text string) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.Write(text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() {
	seen := make(map[Backend]bool)
	for _, b := range append([]Backend{m.Source}, m.Sinks...) {
		if b == nil || seen[b] {
			continue
		}
		seen[b] = true
		b.Close()
	}
}
