// Package tagger marks terminal windows that are running a foreground
// command, publishes that command as a window property, and closes
// terminals left idle.
package tagger

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sys/unix"

	"go.klb.dev/wmglue/internal/shell"
	"go.klb.dev/wmglue/internal/wm"
	"go.klb.dev/wmglue/internal/xprop"
)

// Mark prefixes the title of a running terminal.
const Mark = "●"

const (
	terminalClass = "St"
	shellMarker   = "st---zsh-"

	propNetWMName = "_NET_WM_NAME"
	propWMName    = "WM_NAME"
	propNote      = "_NET_MY_NOTE"
)

// Defaults for Tagger.
const (
	DefaultInterval    = time.Second
	DefaultIdleTimeout = time.Hour
)

var foregroundPID = regexp.MustCompile(`st\(\d+\)---zsh\(\d+\)---.*?\((\d+)\)`)

// ClientSource lists dwm clients.
type ClientSource interface {
	Clients(ctx context.Context) ([]wm.Client, error)
}

// Killer signals a process.
type Killer interface {
	Kill(pid int, sig syscall.Signal) error
}

// UnixKiller signals with kill(2).
type UnixKiller struct{}

func (UnixKiller) Kill(pid int, sig syscall.Signal) error { return unix.Kill(pid, sig) }

// Tagger runs one tagging pass per tick.
type Tagger struct {
	Clients ClientSource
	Runner  shell.Runner
	Props   xprop.Setter
	Killer  Killer

	Interval    time.Duration
	IdleTimeout time.Duration
	// Reap enables closing idle terminals.
	Reap bool

	now     func() time.Time
	renames prometheus.Counter
	kills   prometheus.Counter
}

// New returns a Tagger with default interval and idle timeout, reaping
// enabled. reg may be nil.
func New(clients ClientSource, runner shell.Runner, props xprop.Setter, reg prometheus.Registerer) *Tagger {
	t := &Tagger{
		Clients:     clients,
		Runner:      runner,
		Props:       props,
		Killer:      UnixKiller{},
		Interval:    DefaultInterval,
		IdleTimeout: DefaultIdleTimeout,
		Reap:        true,
		now:         time.Now,
	}
	if reg != nil {
		f := promauto.With(reg)
		t.renames = f.NewCounter(prometheus.CounterOpts{
			Name: "wmglue_tagger_renames_total",
			Help: "Window titles changed by the tagger",
		})
		t.kills = f.NewCounter(prometheus.CounterOpts{
			Name: "wmglue_tagger_reaped_total",
			Help: "Idle terminals sent SIGTERM",
		})
	}
	return t
}

// Run ticks until ctx is cancelled. Tick errors are logged.
func (t *Tagger) Run(ctx context.Context) {
	slog.Info("tagger started", "interval", t.Interval, "reap", t.Reap, "idle_timeout", t.IdleTimeout)
	tick := time.NewTicker(t.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("tagger stopped")
			return
		case <-tick.C:
			if err := t.Tick(ctx); err != nil {
				slog.Warn("tagger tick failed", "err", err)
			}
		}
	}
}

// Tick retitles every client and reaps idle terminals.
func (t *Tagger) Tick(ctx context.Context) error {
	cs, err := t.Clients.Clients(ctx)
	if err != nil {
		return err
	}
	running := make([]bool, len(cs))
	for i, c := range cs {
		running[i] = t.isRunning(ctx, c)
		if err := t.retitle(ctx, c, running[i]); err != nil {
			slog.Warn("retitle failed", "wid", wm.FormatWID(c.WindowID), "err", err)
		}
	}
	if !t.Reap {
		return nil
	}
	for i, c := range cs {
		if t.idle(c) && !running[i] {
			t.reap(c)
		}
	}
	return nil
}

func (t *Tagger) retitle(ctx context.Context, c wm.Client, running bool) error {
	stripped := c.Name
	for strings.HasPrefix(stripped, Mark) {
		stripped = strings.TrimPrefix(stripped, Mark)
	}
	name := stripped
	note := ""
	if running {
		name = Mark + stripped
	}
	if name == c.Name {
		return nil
	}
	if running {
		note = t.RunningCommand(ctx, c.PID)
	}

	for _, p := range []string{propNetWMName, propWMName} {
		if err := t.Props.SetUTF8(c.WindowID, p, name); err != nil {
			return err
		}
	}
	// An unresolved command leaves the previous note in place.
	if !running || note != "" {
		if err := t.Props.SetUTF8(c.WindowID, propNote, note); err != nil {
			return err
		}
	}
	if t.renames != nil {
		t.renames.Inc()
	}
	slog.Debug("window retitled", "wid", wm.FormatWID(c.WindowID), "name", name, "note", note)
	return nil
}

// isRunning reports whether a terminal's shell has a foreground child.
func (t *Tagger) isRunning(ctx context.Context, c wm.Client) bool {
	if c.Class != terminalClass {
		return false
	}
	out, err := t.Runner.Output(ctx, "pstree", strconv.Itoa(c.PID))
	if err != nil {
		return false
	}
	return strings.Contains(string(out), shellMarker)
}

// RunningCommand returns a short form of the command line running under
// the terminal with pid, or "" if none is found.
func (t *Tagger) RunningCommand(ctx context.Context, pid int) string {
	out, err := t.Runner.Output(ctx, "pstree", "-p", strconv.Itoa(pid))
	if err != nil {
		return ""
	}
	m := foregroundPID.FindStringSubmatch(string(out))
	if m == nil {
		return ""
	}
	args, err := t.Runner.Output(ctx, "ps", "-p", m[1], "-o", "args=")
	if err != nil {
		return ""
	}
	return ShortenCommand(string(args))
}

var leadingAbsPath = regexp.MustCompile(`^/.*/(\w+) `)

// ShortenCommand drops bash wrappers and interpreter paths from a ps args
// line: "/usr/bin/python3 x.py" becomes "py x.py".
func ShortenCommand(args string) string {
	cmd := strings.TrimSpace(strings.ReplaceAll(args, "/bin/bash", ""))
	cmd = leadingAbsPath.ReplaceAllString(cmd, "$1 ")
	cmd = strings.ReplaceAll(cmd, "python3 ", "py ")
	return cmd
}

func (t *Tagger) idle(c wm.Client) bool {
	if c.Class != terminalClass || c.States.IsFocused {
		return false
	}
	cutoff := t.now().Add(-t.IdleTimeout).UnixMicro()
	return c.Stats.LastFocusTime < cutoff
}

func (t *Tagger) reap(c wm.Client) {
	if c.PID <= 0 {
		return
	}
	if err := t.Killer.Kill(c.PID, syscall.SIGTERM); err != nil {
		slog.Warn("reap failed", "pid", c.PID, "err", err)
		return
	}
	if t.kills != nil {
		t.kills.Inc()
	}
	slog.Info("idle terminal closed", "pid", c.PID, "wid", wm.FormatWID(c.WindowID),
		"idle_for", t.now().Sub(time.UnixMicro(c.Stats.LastFocusTime)).Round(time.Minute))
}
