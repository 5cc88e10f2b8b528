package menu

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/wmglue/internal/shell"
)

const menuYAML = `
entries:
  - path: [apps, term]
    command: st -e zsh
  - path: [snippets, email]
    copy: me@example.com
  - path: [context]
    no_freq: true
`

func TestLoadFileAndBuild(t *testing.T) {
	p := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(p, []byte(menuYAML), 0o644))

	entries, err := LoadFile(p)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	f := shell.NewFake()
	root := (&Builder{Runner: f}).Build(entries)
	assert.Equal(t, []string{"clipboard", "apps", "snippets", "context"}, root.Keys())

	ctxNode, ok := Lookup(root, JoinPath("context"))
	require.True(t, ok)
	assert.False(t, ctxNode.UseFreq)

	ctx := context.Background()
	term, _ := Lookup(root, JoinPath("apps", "term"))
	require.NoError(t, term.Action(ctx, Call{}))
	email, _ := Lookup(root, JoinPath("snippets", "email"))
	require.NoError(t, email.Action(ctx, Call{}))
	clip, _ := Lookup(root, JoinPath("clipboard"))
	require.NoError(t, clip.Action(ctx, Call{}))

	calls := f.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "sh -c st -e zsh", calls[0].Line())
	assert.True(t, calls[0].Detached)
	assert.Equal(t, "xclip -selection clipboard", calls[1].Line())
	assert.Equal(t, []byte("me@example.com"), calls[1].Input)
	assert.Equal(t, "sh -c sleep 0.1 && clipcat-menu", calls[2].Line())
}

func TestLoadFileMissingAndInvalid(t *testing.T) {
	entries, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("entries:\n  - command: x\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "no path")

	both := filepath.Join(dir, "both.yaml")
	require.NoError(t, os.WriteFile(both, []byte("entries:\n  - path: [a]\n    command: x\n    copy: y\n"), 0o644))
	_, err = LoadFile(both)
	assert.ErrorContains(t, err, "both")
}

func TestFreqStorePersists(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "freq.json")
	s, err := OpenFreqStore(p)
	require.NoError(t, err)
	require.NoError(t, s.Record(JoinPath("apps")))
	require.NoError(t, s.Record(JoinPath("apps")))

	again, err := OpenFreqStore(p)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{JoinPath("apps"): 2}, again.Counts())

	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	_, err = OpenFreqStore(p)
	assert.Error(t, err)
}

func TestDefaultFreqPath(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	assert.Equal(t, "/tmp/state/wmglue/rofi-freq.json", DefaultFreqPath())
}
