package clip

import (
	"log/slog"

	"golang.design/x/clipboard"
)

type systemBackend struct{}

// NewSystem returns the CLIPBOARD backend, or a headless no-op backend if
// the display is unavailable. clipboard.Init is called here rather than in
// init() so subcommands that never touch the clipboard don't log warnings
// on headless systems.
func NewSystem() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return Headless()
	}
	return systemBackend{}
}

func (systemBackend) Name() string { return "system clipboard" }

func (systemBackend) Read() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (systemBackend) Write(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (systemBackend) Close() {}
