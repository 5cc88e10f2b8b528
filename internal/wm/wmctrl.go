package wm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.klb.dev/wmglue/internal/shell"
)

// Wmctrl lists windows with `wmctrl -l -G -x` for window managers without
// dwm's IPC patch.
type Wmctrl struct {
	Runner shell.Runner
	// Scale divides the x/y reported by wmctrl. On HiDPI setups wmctrl
	// reports positions doubled relative to xdotool.
	Scale int
}

// NewWmctrl returns a Wmctrl lister with the given position scale.
// A scale below 1 is treated as 1.
func NewWmctrl(r shell.Runner, scale int) *Wmctrl {
	if scale < 1 {
		scale = 1
	}
	return &Wmctrl{Runner: r, Scale: scale}
}

func (w *Wmctrl) List(ctx context.Context) ([]Window, error) {
	out, err := w.Runner.Output(ctx, "wmctrl", "-l", "-G", "-x")
	if err != nil {
		return nil, fmt.Errorf("wmctrl: %w", err)
	}
	focusOut, err := w.Runner.Output(ctx, "xdotool", "getwindowfocus")
	if err != nil {
		return nil, fmt.Errorf("focused window: %w", err)
	}
	focus, err := strconv.ParseUint(strings.TrimSpace(string(focusOut)), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("focused window: %w", err)
	}

	var ws []Window
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		win, err := w.parseLine(line)
		if err != nil {
			return nil, err
		}
		if id, err := ParseWID(win.WID); err == nil && uint64(id) == focus {
			win.Focused = true
		}
		ws = append(ws, win)
	}
	return ws, sc.Err()
}

// parseLine parses "wid desktop x y w h class host name...". Runs of spaces
// collapse to one, so names keep single spaces only.
func (w *Wmctrl) parseLine(line string) (Window, error) {
	f := strings.Fields(line)
	if len(f) < 8 {
		return Window{}, fmt.Errorf("wmctrl: short line %q", line)
	}
	nums := make([]int, 4)
	for i := range nums {
		v, err := strconv.Atoi(f[2+i])
		if err != nil {
			return Window{}, fmt.Errorf("wmctrl: line %q: %w", line, err)
		}
		nums[i] = v
	}
	return Window{
		WID:   f[0],
		X:     nums[0] / w.Scale,
		Y:     nums[1] / w.Scale,
		W:     nums[2],
		H:     nums[3],
		Class: f[6],
		Name:  strings.Join(f[8:], " "),
	}, nil
}
