// Package wm enumerates windows and drives the window manager through the
// dwm IPC client, wmctrl and xdotool.
package wm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.klb.dev/wmglue/internal/shell"
)

// Window is one tiled window as reported to layout clients.
type Window struct {
	X       int    `json:"x" yaml:"x"`
	Y       int    `json:"y" yaml:"y"`
	W       int    `json:"w" yaml:"w"`
	H       int    `json:"h" yaml:"h"`
	Name    string `json:"name" yaml:"name"`
	WID     string `json:"wid" yaml:"wid"`
	Focused bool   `json:"focused" yaml:"focused"`
	Class   string `json:"class" yaml:"class"`
}

// Lister enumerates the current windows.
type Lister interface {
	List(ctx context.Context) ([]Window, error)
}

// FormatWID renders an X window ID the way xdotool and wmctrl accept it.
func FormatWID(id uint32) string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}

// ParseWID parses a hex ("0x1c00003") or decimal window ID.
func ParseWID(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		s, base = rest, 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("window id %q: %w", s, err)
	}
	return uint32(v), nil
}

// Controller performs input actions on behalf of layout clients.
type Controller struct {
	Runner shell.Runner
	// Settle is how long Focus waits after activating a window.
	Settle time.Duration
}

// NewController returns a Controller with a 200ms focus settle time.
func NewController(r shell.Runner) *Controller {
	return &Controller{Runner: r, Settle: 200 * time.Millisecond}
}

// Focus activates the window and waits for the window manager to settle.
func (c *Controller) Focus(ctx context.Context, wid string) error {
	if _, err := ParseWID(wid); err != nil {
		return err
	}
	if err := c.Runner.Run(ctx, "xdotool", "windowactivate", wid); err != nil {
		return fmt.Errorf("focus %s: %w", wid, err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.Settle):
	}
	return nil
}

// Hotkey sends a key chord such as "super+j" or "ctrl+shift+t". Several
// space-separated chords are sent in order.
func (c *Controller) Hotkey(ctx context.Context, keys string) error {
	args := append([]string{"key"}, strings.Fields(keys)...)
	if len(args) == 1 {
		return fmt.Errorf("hotkey: no keys given")
	}
	if err := c.Runner.Run(ctx, "xdotool", args...); err != nil {
		return fmt.Errorf("hotkey %q: %w", keys, err)
	}
	return nil
}

// Command runs a shell command line and waits for it.
func (c *Controller) Command(ctx context.Context, command string) error {
	if err := c.Runner.Shell(ctx, command); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
