// Package relay holds the shared clipboard value behind the HTTP and gRPC
// relay endpoints, and the clients that sync a local selection with it.
package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// State is the single shared clipboard value. Time is Unix seconds.
type State struct {
	Content string  `json:"content"`
	Time    float64 `json:"time"`
}

// PutResult reports the outcome of a Put. Status is 1 when the write was
// accepted and 0 when it was rejected as stale; Content and Time are only
// set on acceptance.
type PutResult struct {
	Status  int     `json:"status"`
	Content string  `json:"content,omitempty"`
	Time    float64 `json:"time,omitempty"`
}

// Accepted reports whether the put was stored.
func (r PutResult) Accepted() bool { return r.Status == 1 }

// minStep keeps accepted timestamps strictly increasing when the server
// clock does not advance between two writes.
const minStep = 1e-6

// Store holds one State and fans accepted writes out to subscribers.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int

	now      func() time.Time
	accepted prometheus.Counter
	rejected prometheus.Counter
}

// NewStore returns an empty Store. reg may be nil to skip metrics.
func NewStore(reg prometheus.Registerer) *Store {
	s := &Store{
		subs: make(map[int]chan State),
		now:  time.Now,
	}
	if reg != nil {
		f := promauto.With(reg)
		s.accepted = f.NewCounter(prometheus.CounterOpts{
			Name: "wmglue_relay_puts_accepted_total",
			Help: "Clipboard writes stored by the relay",
		})
		s.rejected = f.NewCounter(prometheus.CounterOpts{
			Name: "wmglue_relay_puts_rejected_total",
			Help: "Clipboard writes rejected as older than the stored value",
		})
	}
	return s
}

// Get returns the current value.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Put stores content unless the stored value is newer than clientTime.
// Accepted values are stamped with the server clock.
func (s *Store) Put(content string, clientTime float64) PutResult {
	s.mu.Lock()
	if s.state.Time > clientTime {
		stored := s.state.Time
		s.mu.Unlock()
		if s.rejected != nil {
			s.rejected.Inc()
		}
		slog.Debug("relay put rejected", "stored_time", stored, "client_time", clientTime)
		return PutResult{Status: 0}
	}

	t := unixSeconds(s.now())
	if t <= s.state.Time {
		t = s.state.Time + minStep
	}
	s.state = State{Content: content, Time: t}
	st := s.state
	for id, ch := range s.subs {
		select {
		case ch <- st:
		default:
			slog.Warn("relay subscriber channel full, dropping", "subscriber", id)
		}
	}
	s.mu.Unlock()

	if s.accepted != nil {
		s.accepted.Inc()
	}
	slog.Debug("relay put accepted", "bytes", len(content), "time", t)
	return PutResult{Status: 1, Content: st.Content, Time: st.Time}
}

// Subscribe returns a channel that receives every accepted write, and a
// cancel func that must be called to release it.
func (s *Store) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 16)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
