package relay

import (
	"context"
	"log/slog"
	"time"

	"go.klb.dev/wmglue/internal/clip"
	"go.klb.dev/wmglue/internal/crypto"
)

// MaxContentSize is the largest selection the syncer pushes. Local
// selections are read without INCR support, so larger values are unreliable.
const MaxContentSize = 50000

// DefaultInterval is the polling period of Syncer.Run.
const DefaultInterval = time.Second

// Syncer keeps a local selection and the relay in step by polling.
type Syncer struct {
	Remote   Remote
	Local    clip.Backend
	Interval time.Duration
	// Key seals content before it leaves the host. Nil sends plaintext.
	Key *crypto.Key

	lastLocal string
	lastTime  float64
	now       func() time.Time
}

// NewSyncer returns a Syncer polling every DefaultInterval.
func NewSyncer(remote Remote, local clip.Backend, key *crypto.Key) *Syncer {
	return &Syncer{
		Remote:   remote,
		Local:    local,
		Interval: DefaultInterval,
		Key:      key,
		now:      time.Now,
	}
}

// Run syncs until ctx is cancelled. Per-iteration errors are logged.
func (s *Syncer) Run(ctx context.Context) {
	slog.Info("relay sync started", "local", s.Local.Name(), "interval", s.Interval, "encrypted", s.Key != nil)
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		s.Step(ctx)
		select {
		case <-ctx.Done():
			slog.Info("relay sync stopped")
			return
		case <-t.C:
		}
	}
}

// Step runs one push/pull round.
func (s *Syncer) Step(ctx context.Context) {
	s.push(ctx)
	if ctx.Err() != nil {
		return
	}
	s.pull(ctx)
}

func (s *Syncer) push(ctx context.Context) {
	text, err := s.Local.Read()
	if err != nil {
		slog.Warn("local selection read failed", "err", err)
		return
	}
	if text == "" || text == s.lastLocal {
		return
	}
	s.lastLocal = text
	if len(text) > MaxContentSize {
		slog.Warn("selection too large, not sent", "bytes", len(text), "max", MaxContentSize)
		return
	}
	s.lastTime = unixSeconds(s.now())

	payload := text
	if s.Key != nil {
		if payload, err = s.Key.SealString(text); err != nil {
			slog.Error("seal failed", "err", err)
			return
		}
	}
	res, err := s.Remote.Put(ctx, payload, s.lastTime)
	if err != nil {
		slog.Warn("relay put failed", "err", err)
		return
	}
	if res.Accepted() {
		// Accepted writes carry the relay's clock, not ours.
		s.lastTime = res.Time
		slog.Debug("selection pushed", "bytes", len(text))
	} else {
		slog.Debug("relay holds a newer value, push rejected")
	}
}

func (s *Syncer) pull(ctx context.Context) {
	st, err := s.Remote.Get(ctx)
	if err != nil {
		slog.Warn("relay get failed", "err", err)
		return
	}
	if st.Time <= s.lastTime {
		return
	}
	s.lastTime = st.Time

	text := st.Content
	if s.Key != nil {
		if text, err = s.Key.OpenString(st.Content); err != nil {
			slog.Warn("remote value could not be decrypted, skipped", "err", err)
			return
		}
	}
	s.lastLocal = text
	if err := s.Local.Write(text); err != nil {
		slog.Error("local selection write failed", "err", err)
		return
	}
	slog.Debug("selection pulled", "bytes", len(text))
}
