package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/wmglue/internal/relay"
)

// run executes the root command with args in an isolated HOME so no real
// config file is picked up.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "wmglue dev\n", out)
}

func TestRelayPutThenGet(t *testing.T) {
	srv := httptest.NewServer(relay.NewRouter(relay.NewStore(nil), "", nil))
	defer srv.Close()

	out, err := run(t, "", "relay", "put", "--server", srv.URL, "hello", "world")
	require.NoError(t, err)
	assert.Contains(t, out, "stored at")

	out, err = run(t, "", "relay", "get", "--server", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestRelayPutFromStdinEncrypted(t *testing.T) {
	store := relay.NewStore(nil)
	srv := httptest.NewServer(relay.NewRouter(store, "s3cret", nil))
	defer srv.Close()

	_, err := run(t, "piped", "relay", "put", "--server", srv.URL, "--token", "s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "piped", store.Get().Content)

	out, err := run(t, "", "relay", "get", "--server", srv.URL, "--token", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "piped", out)

	out, err = run(t, "", "relay", "get", "--server", srv.URL, "--token", "s3cret", "--no-encrypt")
	require.NoError(t, err)
	assert.Equal(t, store.Get().Content, out)
}

func TestRelayGetFollowNeedsGRPC(t *testing.T) {
	_, err := run(t, "", "relay", "get", "--server", "127.0.0.1:1", "--follow")
	assert.ErrorContains(t, err, "--grpc")
}

func TestRelayClientRejectsUnknownSelection(t *testing.T) {
	_, err := run(t, "", "relay", "client", "--selection", "bogus", "--log-format", "json")
	assert.ErrorContains(t, err, "bogus")
}

func TestLayoutRejectsUnknownLister(t *testing.T) {
	_, err := run(t, "", "layout", "list", "--lister", "nope")
	assert.ErrorContains(t, err, "nope")
}

func TestPlaceResort(t *testing.T) {
	out, err := run(t, "", "place", "resort", "--launchparents", "-1,0,0")
	require.NoError(t, err)
	ids := strings.Split(strings.TrimSpace(out), ",")
	assert.ElementsMatch(t, []string{"0", "1", "2"}, ids)
	assert.Equal(t, "0", ids[0])

	out, err = run(t, "", "place", "resort")
	require.NoError(t, err)
	assert.Equal(t, "\n", out)

	_, err = run(t, "", "place", "resort", "--launchparents", "x")
	assert.Error(t, err)
}

func TestRofiInitialMenu(t *testing.T) {
	dir := t.TempDir()
	menuFile := filepath.Join(dir, "menu.yaml")
	require.NoError(t, os.WriteFile(menuFile, []byte(`entries:
  - path: [apps, term]
    command: st
`), 0o600))
	t.Setenv("ROFI_RETV", "0")
	t.Setenv("ROFI_DATA", "")

	out, err := run(t, "", "rofi",
		"--menu-file", menuFile,
		"--freq-file", filepath.Join(dir, "freq.json"),
	)
	require.NoError(t, err)
	assert.Equal(t, "clipboard\napps\n\x00data\x1f\n", out)
}

func TestRofiNeedsEnv(t *testing.T) {
	os.Unsetenv("ROFI_RETV")
	_, err := run(t, "", "rofi", "--menu-file", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "rofi env")
}
