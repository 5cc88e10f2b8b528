package clip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/wmglue/internal/shell"
)

type memBackend struct {
	name   string
	text   string
	err    error
	closed int
}

func (m *memBackend) Name() string          { return m.name }
func (m *memBackend) Read() (string, error) { return m.text, nil }
func (m *memBackend) Write(text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}
func (m *memBackend) Close() { m.closed++ }

func TestXclipReadAndWrite(t *testing.T) {
	f := shell.NewFake()
	f.SetOutput("xclip -o -selection primary", "hello")
	b := NewXclip(Primary, f)

	got, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	require.NoError(t, b.Write("world"))
	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "xclip -i -selection primary", calls[1].Line())
	assert.Equal(t, []byte("world"), calls[1].Input)
}

func TestXclipReadUnownedSelectionIsEmpty(t *testing.T) {
	f := shell.NewFake()
	f.SetError("xclip -o -selection clipboard", errors.New("exit status 1"))
	got, err := NewXclip(Clipboard, f).Read()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestXclipWriteError(t *testing.T) {
	f := shell.NewFake()
	f.SetError("xclip -i -selection clipboard", errors.New("boom"))
	err := NewXclip(Clipboard, f).Write("x")
	assert.ErrorContains(t, err, "xclip write clipboard")
}

func TestMultiWritesAllSinksAndJoinsErrors(t *testing.T) {
	src := &memBackend{name: "src", text: "from source"}
	ok := &memBackend{name: "ok"}
	bad := &memBackend{name: "bad", err: errors.New("nope")}
	m := NewMulti(src, src, ok, bad)

	got, err := m.Read()
	require.NoError(t, err)
	assert.Equal(t, "from source", got)

	err = m.Write("remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: nope")
	assert.Equal(t, "remote", src.text)
	assert.Equal(t, "remote", ok.text)

	m.Close()
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, ok.closed)
	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, "src → src → ok → bad", m.Name())
}

func TestMultiNilSource(t *testing.T) {
	m := NewMulti(nil, Headless())
	got, err := m.Read()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, m.Write("x"))
	m.Close()
}
