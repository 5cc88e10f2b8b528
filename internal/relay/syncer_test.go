package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/wmglue/internal/crypto"
)

// storeRemote adapts a Store to Remote in-process.
type storeRemote struct {
	store *Store
	err   error
	puts  []string
}

func (r *storeRemote) Get(context.Context) (State, error) {
	if r.err != nil {
		return State{}, r.err
	}
	return r.store.Get(), nil
}

func (r *storeRemote) Put(_ context.Context, content string, t float64) (PutResult, error) {
	if r.err != nil {
		return PutResult{}, r.err
	}
	r.puts = append(r.puts, content)
	return r.store.Put(content, t), nil
}

type selection struct {
	text   string
	writes []string
}

func (s *selection) Name() string          { return "test" }
func (s *selection) Read() (string, error) { return s.text, nil }
func (s *selection) Write(text string) error {
	s.text = text
	s.writes = append(s.writes, text)
	return nil
}
func (s *selection) Close() {}

func newTestSyncer(remote Remote, local *selection, key *crypto.Key, at *time.Time) *Syncer {
	s := NewSyncer(remote, local, key)
	s.now = func() time.Time { return *at }
	return s
}

func TestSyncerPushesNewLocalSelection(t *testing.T) {
	now := time.Unix(1700000000, 0)
	remote := &storeRemote{store: NewStore(nil)}
	local := &selection{text: "copied"}
	s := newTestSyncer(remote, local, nil, &now)

	s.Step(context.Background())
	assert.Equal(t, []string{"copied"}, remote.puts)
	assert.Equal(t, "copied", remote.store.Get().Content)
	assert.Empty(t, local.writes, "own write must not bounce back")

	s.Step(context.Background())
	assert.Len(t, remote.puts, 1, "unchanged selection is not re-sent")
}

func TestSyncerPullsNewerRemote(t *testing.T) {
	now := time.Unix(1700000000, 0)
	remote := &storeRemote{store: NewStore(nil)}
	local := &selection{}
	s := newTestSyncer(remote, local, nil, &now)

	remote.store.Put("from elsewhere", 1)
	s.Step(context.Background())
	assert.Equal(t, []string{"from elsewhere"}, local.writes)

	// The pulled value is now the local value, so it is not pushed back.
	s.Step(context.Background())
	assert.Empty(t, remote.puts)
	assert.Len(t, local.writes, 1)
}

func TestSyncerSkipsOversizedSelection(t *testing.T) {
	now := time.Unix(1700000000, 0)
	remote := &storeRemote{store: NewStore(nil)}
	local := &selection{text: strings.Repeat("x", MaxContentSize+1)}
	s := newTestSyncer(remote, local, nil, &now)

	s.Step(context.Background())
	assert.Empty(t, remote.puts)
}

func TestSyncerSurvivesRemoteErrors(t *testing.T) {
	now := time.Unix(1700000000, 0)
	remote := &storeRemote{store: NewStore(nil), err: errors.New("connection refused")}
	local := &selection{text: "x"}
	s := newTestSyncer(remote, local, nil, &now)

	assert.NotPanics(t, func() { s.Step(context.Background()) })
	assert.Empty(t, local.writes)
}

func TestSyncerEncryptsEndToEnd(t *testing.T) {
	key, err := crypto.DeriveKey("shared")
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	store := NewStore(nil)

	a := &selection{text: "secret text"}
	sa := newTestSyncer(&storeRemote{store: store}, a, key, &now)
	sa.Step(context.Background())
	assert.NotContains(t, store.Get().Content, "secret")

	b := &selection{}
	sb := newTestSyncer(&storeRemote{store: store}, b, key, &now)
	sb.Step(context.Background())
	assert.Equal(t, []string{"secret text"}, b.writes)

	wrong, err := crypto.DeriveKey("other")
	require.NoError(t, err)
	c := &selection{}
	sc := newTestSyncer(&storeRemote{store: store}, c, wrong, &now)
	sc.Step(context.Background())
	assert.Empty(t, c.writes)
}

func TestSyncerRunStopsOnCancel(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := newTestSyncer(&storeRemote{store: NewStore(nil)}, &selection{}, nil, &now)
	s.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
