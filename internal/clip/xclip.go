package clip

import (
	"context"
	"fmt"
	"time"

	"go.klb.dev/wmglue/internal/shell"
)

const xclipTimeout = 2 * time.Second

// Selection names accepted by xclip.
const (
	Primary   = "primary"
	Clipboard = "clipboard"
)

type xclipBackend struct {
	selection string
	runner    shell.Runner
}

// NewXclip returns a backend for the named X11 selection ("primary",
// "secondary" or "clipboard") that shells out to xclip.
func NewXclip(selection string, runner shell.Runner) Backend {
	return &xclipBackend{selection: selection, runner: runner}
}

func (b *xclipBackend) Name() string { return "xclip " + b.selection }

func (b *xclipBackend) Read() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), xclipTimeout)
	defer cancel()
	out, err := b.runner.Output(ctx, "xclip", "-o", "-selection", b.selection)
	if err != nil {
		// xclip exits non-zero when nobody owns the selection.
		return "", nil //nolint:nilerr
	}
	return string(out), nil
}

func (b *xclipBackend) Write(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), xclipTimeout)
	defer cancel()
	if err := b.runner.RunWithInput(ctx, []byte(text), "xclip", "-i", "-selection", b.selection); err != nil {
		return fmt.Errorf("xclip write %s: %w", b.selection, err)
	}
	return nil
}

func (b *xclipBackend) Close() {}
