package relay

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startBufServer(t *testing.T, store *Store, token string) *bufconn.Listener {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	NewService(store, token).Register(gs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)
	return lis
}

func dialBuf(t *testing.T, lis *bufconn.Listener, token string) *GRPCClient {
	t.Helper()
	c, err := DialGRPC("passthrough:///bufnet", token,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCPutGet(t *testing.T) {
	store := NewStore(nil)
	c := dialBuf(t, startBufServer(t, store, ""), "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.Put(ctx, "grpc value", 1)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, "grpc value", res.Content)

	st, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Get(), st)

	res, err = c.Put(ctx, "stale", 0)
	require.NoError(t, err)
	assert.Equal(t, PutResult{Status: 0}, res)
}

func TestGRPCAuth(t *testing.T) {
	lis := startBufServer(t, NewStore(nil), "tok")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := dialBuf(t, lis, "").Get(ctx)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = dialBuf(t, lis, "nope").Get(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = dialBuf(t, lis, "tok").Get(ctx)
	assert.NoError(t, err)
}

func TestGRPCWatchSendsCurrentThenUpdates(t *testing.T) {
	store := NewStore(nil)
	store.Put("initial", 1)
	c := dialBuf(t, startBufServer(t, store, ""), "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch := c.Watch(ctx)

	first := recvState(t, ch)
	assert.Equal(t, "initial", first.Content)

	// The stream is live once the initial value arrives.
	require.Eventually(t, func() bool { return store.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	store.Put("next", first.Time)
	assert.Equal(t, "next", recvState(t, ch).Content)

	cancel()
	for range ch {
	}
}

func TestServeMultiplexesHTTPAndGRPC(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer("", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	addr := ln.Addr().String()
	reqCtx, reqCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer reqCancel()

	res, err := NewClient(addr, "").Put(reqCtx, "over http", 1)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	gc, err := DialGRPC(addr, "")
	require.NoError(t, err)
	defer gc.Close()
	st, err := gc.Get(reqCtx)
	require.NoError(t, err)
	assert.Equal(t, "over http", st.Content)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func recvState(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case st, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return st
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return State{}
	}
}
