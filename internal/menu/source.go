package menu

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"go.klb.dev/wmglue/internal/shell"
)

// DefaultClipboardMenu is the clipboard history picker launched by the
// built-in "clipboard" entry.
const DefaultClipboardMenu = "clipcat-menu"

// clipboardMenuDelay lets rofi release the keyboard grab before the
// history picker opens its own window.
const clipboardMenuDelay = 100 * time.Millisecond

// Entry is one item of a menu file.
type Entry struct {
	Path    []string `yaml:"path"`
	Command string   `yaml:"command,omitempty"`
	Copy    string   `yaml:"copy,omitempty"`
	// NoFreq keeps a submenu in file order.
	NoFreq bool `yaml:"no_freq,omitempty"`
}

// File is the YAML menu file layout.
type File struct {
	Entries []Entry `yaml:"entries"`
}

// LoadFile reads a YAML menu file. A missing file yields no entries.
func LoadFile(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("menu file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("menu file %s: %w", path, err)
	}
	for i, e := range f.Entries {
		if len(e.Path) == 0 {
			return nil, fmt.Errorf("menu file %s: entry %d has no path", path, i)
		}
		if e.Command != "" && e.Copy != "" {
			return nil, fmt.Errorf("menu file %s: entry %d sets both command and copy", path, i)
		}
	}
	return f.Entries, nil
}

// Builder assembles the menu tree from the built-in entries and a menu file.
type Builder struct {
	Runner        shell.Runner
	ClipboardMenu string
}

// Build returns a fresh tree.
func (b *Builder) Build(entries []Entry) *Node {
	root := NewNode()
	b.addClipboard(root)
	for _, e := range entries {
		b.addEntry(root, e)
	}
	return root
}

func (b *Builder) addClipboard(root *Node) {
	menu := b.ClipboardMenu
	if menu == "" {
		menu = DefaultClipboardMenu
	}
	Add(root, []string{"clipboard"}, func(_ context.Context, _ Call) error {
		cmd := fmt.Sprintf("sleep %g && %s", clipboardMenuDelay.Seconds(), menu)
		return b.Runner.Start("sh", "-c", cmd)
	})
}

func (b *Builder) addEntry(root *Node, e Entry) {
	switch {
	case e.Command != "":
		command := e.Command
		Add(root, e.Path, func(_ context.Context, _ Call) error {
			return b.Runner.Start("sh", "-c", command)
		})
	case e.Copy != "":
		text := e.Copy
		Add(root, e.Path, func(ctx context.Context, _ Call) error {
			return b.Runner.RunWithInput(ctx, []byte(text), "xclip", "-selection", "clipboard")
		})
	default:
		// A bare path declares a submenu.
		if _, ok := Lookup(root, JoinPath(e.Path...)); !ok {
			parent := root
			for _, seg := range e.Path {
				next, ok := parent.Child(seg)
				if !ok {
					next = NewNode()
					parent.Set(seg, next)
				}
				parent = next
			}
		}
	}
	if e.NoFreq {
		if n, ok := Lookup(root, JoinPath(e.Path...)); ok {
			n.UseFreq = false
		}
	}
}
