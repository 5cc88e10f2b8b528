package clip

// headlessBackend is a no-op backend for environments without a display
// server. Reads are always empty and writes are discarded.
type headlessBackend struct{}

// Headless returns the no-op backend.
func Headless() Backend { return headlessBackend{} }

func (headlessBackend) Name() string { return "headless (no-op)" }

func (headlessBackend) Read() (string, error) { return "", nil }

func (headlessBackend) Write(_ string) error { return nil }

func (headlessBackend) Close() {}
