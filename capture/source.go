package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Constraints are passed to the platform when requesting a capture source.
type Constraints struct {
	MaxWidth   int
	MaxHeight  int
	ShowCursor bool
}

// Track is a live platform video track that frames can be pulled from.
type Track interface {
	// GrabFrame pulls one still frame from the track.
	GrabFrame(ctx context.Context) (image.Image, error)
	// Stop ends the track and releases platform resources. Idempotent.
	Stop()
	// Ended is closed when the platform ends the track out of band,
	// e.g. the user stops sharing.
	Ended() <-chan struct{}
}

// SourceProvider requests capture sources from the platform. RequestSource
// is a user-consent operation: it may block on a prompt and may fail with
// ErrPermissionDenied or ErrUserCancelled.
type SourceProvider interface {
	RequestSource(ctx context.Context, c Constraints) (Track, error)
}

// Source is an acquired capture handle.
type Source struct {
	id         uint64
	track      Track
	acquiredAt time.Time
	active     atomic.Bool
	stopOnce   sync.Once
	done       chan struct{}
}

func newSource(id uint64, track Track) *Source {
	s := &Source{id: id, track: track, acquiredAt: time.Now(), done: make(chan struct{})}
	s.active.Store(true)
	return s
}

// ID identifies the source for logging and tests.
func (s *Source) ID() uint64 { return s.id }

// Active reports whether frames may still be grabbed. A track the platform
// has ended is inactive at once, before the observer releases it.
func (s *Source) Active() bool {
	if s == nil || !s.active.Load() {
		return false
	}
	select {
	case <-s.track.Ended():
		s.active.Store(false)
		return false
	default:
		return true
	}
}

// AcquiredAt is when consent was granted.
func (s *Source) AcquiredAt() time.Time { return s.acquiredAt }

func (s *Source) stop() {
	s.stopOnce.Do(func() {
		s.active.Store(false)
		close(s.done)
		s.track.Stop()
	})
}

// Manager owns the lifecycle of the reusable capture source: acquire once,
// reuse across captures, tear down on revocation. At most one reusable source
// is active at a time.
type Manager struct {
	provider       SourceProvider
	constraints    Constraints
	consentTimeout time.Duration
	logger         *zap.Logger

	acquireMu sync.Mutex // one acquisition in flight
	mu        sync.Mutex // guards current, serializes grab and release
	current   *Source
	nextID    atomic.Uint64
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Constraints Constraints
	// ConsentTimeout bounds how long a consent prompt may block. Zero waits
	// until the caller's context ends.
	ConsentTimeout time.Duration
}

// NewManager creates a source manager over provider.
func NewManager(provider SourceProvider, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider:       provider,
		constraints:    cfg.Constraints,
		consentTimeout: cfg.ConsentTimeout,
		logger:         logger.With(zap.String("component", "capture_source")),
	}
}

// Acquire returns the active reusable source, requesting one from the
// platform if none is active. Repeated calls without an intervening Release
// return the same handle and do not prompt again.
func (m *Manager) Acquire(ctx context.Context) (*Source, error) {
	m.acquireMu.Lock()
	defer m.acquireMu.Unlock()

	if src := m.Current(); src != nil {
		return src, nil
	}

	src, err := m.request(ctx, m.constraints)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.current = src
	m.mu.Unlock()

	go m.observe(src)

	m.logger.Info("persistent capture initialized", zap.Uint64("source_id", src.id))
	return src, nil
}

// AcquireOnce requests a fresh one-shot source that is never reused. The
// caller must Release it.
func (m *Manager) AcquireOnce(ctx context.Context) (*Source, error) {
	m.acquireMu.Lock()
	defer m.acquireMu.Unlock()

	return m.request(ctx, Constraints{ShowCursor: m.constraints.ShowCursor})
}

func (m *Manager) request(ctx context.Context, c Constraints) (*Source, error) {
	if m.consentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.consentTimeout)
		defer cancel()
	}

	track, err := m.provider.RequestSource(ctx, c)
	if err != nil {
		kind := classifyRequestError(ctx, err)
		m.logger.Warn("capture source request failed",
			zap.String("kind", kindName(kind)),
			zap.Error(err))
		return nil, newError("acquire", kind, err)
	}
	if track == nil {
		return nil, newError("acquire", ErrGrabFailed, errors.New("provider returned no track"))
	}
	return newSource(m.nextID.Add(1), track), nil
}

func classifyRequestError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrUserCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		ctx.Err() != nil:
		return ErrUserCancelled
	case errors.Is(err, ErrGrabFailed):
		return ErrGrabFailed
	default:
		return ErrPermissionDenied
	}
}

// observe releases src when the platform ends its track.
func (m *Manager) observe(src *Source) {
	select {
	case <-src.track.Ended():
		src.active.Store(false)
		m.logger.Info("screen sharing ended by user", zap.Uint64("source_id", src.id))
		m.Release(src)
	case <-src.done:
	}
}

// Current returns the active reusable source, or nil.
func (m *Manager) Current() *Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && !m.current.Active() {
		return nil
	}
	return m.current
}

// GrabFrame pulls one frame from src. It fails with ErrSourceInactive when
// src was released or revoked, including revocation during the grab, so a
// stale frame is never returned.
func (m *Manager) GrabFrame(ctx context.Context, src *Source) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !src.Active() {
		return nil, newError("grab", ErrSourceInactive, nil)
	}

	img, err := src.track.GrabFrame(ctx)
	if !src.Active() {
		return nil, newError("grab", ErrSourceInactive, err)
	}
	if err != nil {
		if errors.Is(err, ErrSourceInactive) {
			return nil, newError("grab", ErrSourceInactive, err)
		}
		return nil, newError("grab", ErrGrabFailed, err)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, newError("grab", ErrGrabFailed, errors.New("empty frame"))
	}
	return img, nil
}

// Release stops src and forgets it. Safe on nil or already-released sources.
func (m *Manager) Release(src *Source) {
	if src == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src.stop()
	if m.current == src {
		m.current = nil
		m.logger.Info("capture source released", zap.Uint64("source_id", src.id))
	}
}
