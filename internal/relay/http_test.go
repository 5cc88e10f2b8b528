package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/wmglue/internal/metrics"
)

func post(t *testing.T, h http.Handler, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPPutThenGet(t *testing.T) {
	store := NewStore(nil)
	r := NewRouter(store, "", nil)

	rec := post(t, r, "/get", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"content":"","time":0}`, rec.Body.String())

	rec = post(t, r, "/put", `{"content":"hi","time":1}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":1`)
	assert.Contains(t, rec.Body.String(), `"content":"hi"`)

	rec = post(t, r, "/get", "", "")
	assert.Contains(t, rec.Body.String(), `"content":"hi"`)
}

func TestHTTPPutStaleReturnsStatusZeroOnly(t *testing.T) {
	store := NewStore(nil)
	store.Put("kept", 1)
	r := NewRouter(store, "", nil)

	rec := post(t, r, "/put", `{"content":"old","time":0}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":0}`, rec.Body.String())
	assert.Equal(t, "kept", store.Get().Content)
}

func TestHTTPPutBadRequest(t *testing.T) {
	r := NewRouter(NewStore(nil), "", nil)

	for _, body := range []string{`not json`, `{"content":"x"}`, `{"time":1}`} {
		rec := post(t, r, "/put", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"error"`, body)
	}
}

func TestHTTPAuth(t *testing.T) {
	reg := metrics.NewRegistry()
	r := NewRouter(NewStore(reg), "tok", reg)

	assert.Equal(t, http.StatusUnauthorized, post(t, r, "/get", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(t, r, "/get", "", "bad").Code)
	assert.Equal(t, http.StatusOK, post(t, r, "/get", "", "tok").Code)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wmglue_relay_http_requests_total")
}

func TestClientAgainstRouter(t *testing.T) {
	store := NewStore(nil)
	ts := httptest.NewServer(NewRouter(store, "tok", nil))
	defer ts.Close()

	c := NewClient(ts.URL, "tok")
	ctx := context.Background()

	res, err := c.Put(ctx, "from client", 1)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, "from client", res.Content)

	st, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from client", st.Content)
	assert.Equal(t, res.Time, st.Time)

	res, err = c.Put(ctx, "stale", 0)
	require.NoError(t, err)
	assert.False(t, res.Accepted())
}

func TestClientUnauthorized(t *testing.T) {
	ts := httptest.NewServer(NewRouter(NewStore(nil), "tok", nil))
	defer ts.Close()

	_, err := NewClient(strings.TrimPrefix(ts.URL, "http://"), "wrong").Get(context.Background())
	assert.ErrorContains(t, err, "401")
}

func TestClientRetriesServerErrors(t *testing.T) {
	store := NewStore(nil)
	store.Put("after retry", 1)
	router := NewRouter(store, "", nil)
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		router.ServeHTTP(w, r)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "", WithRetries(2, time.Millisecond, 5*time.Millisecond))
	st, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "after retry", st.Content)
	assert.Equal(t, int32(2), hits.Load())

	hits.Store(0)
	res, err := c.Put(context.Background(), "put after retry", 1e12)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.Equal(t, "put after retry", store.Get().Content)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, "", WithRetries(1, time.Millisecond, time.Millisecond)).Get(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := NewClient(ts.URL, "", WithTimeout(50*time.Millisecond), WithRetries(0, time.Millisecond, time.Millisecond))
	start := time.Now()
	_, err := c.Get(context.Background())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
