// Package layout serves the window snapshot and input actions used by the
// touchpad web UI and MCP clients.
package layout

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.klb.dev/wmglue/internal/wm"
)

// ErrBadWID is returned by Focus for window IDs that are not hex or decimal.
var ErrBadWID = errors.New("invalid window id")

// Snapshot is the {size, content} envelope returned for window lists.
type Snapshot struct {
	Size    int         `json:"size" yaml:"size"`
	Content []wm.Window `json:"content" yaml:"content"`
}

func snapshot(ws []wm.Window) Snapshot {
	if ws == nil {
		ws = []wm.Window{}
	}
	return Snapshot{Size: len(ws), Content: ws}
}

// Service owns the cached window list.
type Service struct {
	lister wm.Lister
	ctl    *wm.Controller

	mu    sync.Mutex
	cache []wm.Window
}

// NewService returns a Service listing with lister and acting with ctl.
func NewService(lister wm.Lister, ctl *wm.Controller) *Service {
	return &Service{lister: lister, ctl: ctl}
}

// Refresh re-enumerates windows and replaces the cache.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	ws, err := s.lister.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	s.cache = slices.Clone(ws)
	s.mu.Unlock()
	return snapshot(ws), nil
}

// Cached returns the last enumerated windows without touching the display.
func (s *Service) Cached() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(slices.Clone(s.cache))
}

// Focus activates wid and marks it as the only focused cached window.
func (s *Service) Focus(ctx context.Context, wid string) (Snapshot, error) {
	id, err := wm.ParseWID(wid)
	if err != nil {
		return Snapshot{}, errors.Join(ErrBadWID, err)
	}
	if err := s.ctl.Focus(ctx, wid); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cache {
		cached, err := wm.ParseWID(s.cache[i].WID)
		s.cache[i].Focused = err == nil && cached == id
	}
	return snapshot(slices.Clone(s.cache)), nil
}

// Hotkey sends a key chord.
func (s *Service) Hotkey(ctx context.Context, keys string) error {
	return s.ctl.Hotkey(ctx, keys)
}

// Command runs a shell command line.
func (s *Service) Command(ctx context.Context, command string) error {
	return s.ctl.Command(ctx, command)
}
