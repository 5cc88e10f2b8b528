package menu

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Values of ROFI_RETV handled by Script.
const (
	RetvInitial  = 0
	RetvSelected = 1
)

// forceTopPriority lifts the submenu the user is currently in.
const forceTopPriority = 9999

// Env is the environment rofi passes to script-mode programs.
type Env struct {
	Retv int    `envconfig:"RETV" required:"true"`
	Data string `envconfig:"DATA"`
	Info string `envconfig:"INFO"`
}

// LoadEnv reads ROFI_RETV, ROFI_DATA and ROFI_INFO.
func LoadEnv() (Env, error) {
	var e Env
	if err := envconfig.Process("rofi", &e); err != nil {
		return Env{}, fmt.Errorf("rofi env: %w", err)
	}
	return e, nil
}

// DefaultExclude lists paths whose entries keep their configured order.
var DefaultExclude = []string{SEP + "context"}

// Script answers one rofi script-mode invocation.
type Script struct {
	Root    *Node
	Freq    *FreqStore
	Exclude []string
}

// Handle prints the menu rofi should show next and runs the selected
// action. args holds the selected entry when env.Retv is RetvSelected.
func (s *Script) Handle(ctx context.Context, env Env, args []string, w io.Writer) error {
	var counts map[string]int
	if s.Freq != nil {
		counts = s.Freq.Counts()
	}
	if n, ok := Lookup(s.Root, strings.ReplaceAll(env.Data, "/", SEP)); ok {
		n.ForceTop = forceTopPriority
	}
	SortByFreq(s.Root, counts, s.Exclude)

	out := bufio.NewWriter(w)
	defer out.Flush()

	switch env.Retv {
	case RetvInitial:
		printEntries(out, s.Root)
		fmt.Fprint(out, "\x00data\x1f\n")
		return nil

	case RetvSelected:
		if len(args) == 0 {
			return fmt.Errorf("rofi: no entry selected")
		}
		arg := args[0]
		path := env.Data + SEP + arg
		fmt.Fprintf(out, "\x00data\x1f%s\n", path)

		n, ok := Lookup(s.Root, path)
		if !ok {
			slog.Debug("rofi: unknown entry", "path", path)
			return nil
		}
		if n.HasChildren() {
			printEntries(out, n)
		} else if n.Action != nil {
			if err := out.Flush(); err != nil {
				return err
			}
			if err := n.Action(ctx, Call{Arg: arg, Path: path, Root: s.Root}); err != nil {
				return fmt.Errorf("rofi: %s: %w", arg, err)
			}
		}
		if s.Freq != nil {
			if err := s.Freq.Record(path); err != nil {
				slog.Warn("rofi: frequency not recorded", "err", err)
			}
		}
		return nil

	default:
		// Custom keybindings (10..28) and cancelled input are ignored.
		return nil
	}
}

func printEntries(w io.Writer, n *Node) {
	for _, k := range n.keys {
		fmt.Fprintln(w, k)
	}
}
