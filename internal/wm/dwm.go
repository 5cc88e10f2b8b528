package wm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.klb.dev/wmglue/internal/shell"
)

// Client is one record of `dwm-msg get_dwm_clients`. The patched dwm spells
// its focus statistics key "stastic"; times are Unix microseconds.
type Client struct {
	Name     string `json:"name"`
	Class    string `json:"class"`
	PID      int    `json:"pid"`
	WindowID uint32 `json:"window_id"`
	Geometry struct {
		Current Rect `json:"current"`
	} `json:"geometry"`
	States struct {
		IsFocused  bool `json:"is_focused"`
		IsFloating bool `json:"is_floating"`
	} `json:"states"`
	Stats struct {
		LastFocusTime   int64 `json:"lastfocustime"`
		LastUnfocusTime int64 `json:"lastunfocustime"`
	} `json:"stastic"`
}

// Rect is a window geometry in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Window converts the client to its layout record.
func (c Client) Window() Window {
	g := c.Geometry.Current
	return Window{
		X:       g.X,
		Y:       g.Y,
		W:       g.Width,
		H:       g.Height,
		Name:    c.Name,
		WID:     FormatWID(c.WindowID),
		Focused: c.States.IsFocused,
		Class:   c.Class,
	}
}

// Dwm queries dwm over its IPC socket with dwm-msg.
type Dwm struct {
	Runner shell.Runner
}

// NewDwm returns a Dwm using r.
func NewDwm(r shell.Runner) *Dwm { return &Dwm{Runner: r} }

// Clients returns every managed client, floating ones included.
func (d *Dwm) Clients(ctx context.Context) ([]Client, error) {
	out, err := d.Runner.Output(ctx, "dwm-msg", "get_dwm_clients")
	if err != nil {
		return nil, fmt.Errorf("dwm clients: %w", err)
	}
	var cs []Client
	if err := json.Unmarshal(out, &cs); err != nil {
		return nil, fmt.Errorf("dwm clients: decode: %w", err)
	}
	return cs, nil
}

// List returns the tiled windows; floating clients are skipped.
func (d *Dwm) List(ctx context.Context) ([]Window, error) {
	cs, err := d.Clients(ctx)
	if err != nil {
		return nil, err
	}
	ws := make([]Window, 0, len(cs))
	for _, c := range cs {
		if c.States.IsFloating {
			continue
		}
		ws = append(ws, c.Window())
	}
	return ws, nil
}
