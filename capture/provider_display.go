package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// DisplayProvider captures a local display. Granting is implicit: a source is
// available whenever the display exists.
type DisplayProvider struct {
	display      int
	pollInterval time.Duration
	logger       *zap.Logger

	// overridable for tests
	numDisplays func() int
	bounds      func(int) image.Rectangle
	grab        func(image.Rectangle) (*image.RGBA, error)
}

// NewDisplayProvider captures display index (0 is the primary display).
// The display is polled every pollInterval to detect disconnection.
func NewDisplayProvider(display int, pollInterval time.Duration, logger *zap.Logger) *DisplayProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &DisplayProvider{
		display:      display,
		pollInterval: pollInterval,
		logger:       logger.With(zap.String("component", "display_provider")),
		numDisplays:  screenshot.NumActiveDisplays,
		bounds:       screenshot.GetDisplayBounds,
		grab:         screenshot.CaptureRect,
	}
}

// RequestSource opens a track on the configured display.
func (p *DisplayProvider) RequestSource(ctx context.Context, _ Constraints) (Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUserCancelled, err)
	}
	n := p.numDisplays()
	if n == 0 {
		return nil, fmt.Errorf("%w: no active display", ErrPermissionDenied)
	}
	if p.display < 0 || p.display >= n {
		return nil, fmt.Errorf("%w: display %d not found (%d active)", ErrPermissionDenied, p.display, n)
	}

	t := &displayTrack{
		provider: p,
		ended:    make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go t.watch()

	p.logger.Info("display source opened",
		zap.Int("display", p.display),
		zap.String("bounds", p.bounds(p.display).String()))
	return t, nil
}

type displayTrack struct {
	provider  *DisplayProvider
	ended     chan struct{}
	stopped   chan struct{}
	endOnce   sync.Once
	closeOnce sync.Once
}

func (t *displayTrack) GrabFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-t.ended:
		return nil, ErrSourceInactive
	default:
	}
	p := t.provider
	if p.display >= p.numDisplays() {
		t.end()
		return nil, ErrSourceInactive
	}
	img, err := p.grab(p.bounds(p.display))
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", p.display, err)
	}
	return img, nil
}

func (t *displayTrack) Stop() {
	t.closeOnce.Do(func() { close(t.stopped) })
}

func (t *displayTrack) Ended() <-chan struct{} { return t.ended }

func (t *displayTrack) end() {
	t.endOnce.Do(func() { close(t.ended) })
}

// watch ends the track when the display disappears.
func (t *displayTrack) watch() {
	ticker := time.NewTicker(t.provider.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopped:
			return
		case <-ticker.C:
			if t.provider.display >= t.provider.numDisplays() {
				t.provider.logger.Warn("display disconnected", zap.Int("display", t.provider.display))
				t.end()
				return
			}
		}
	}
}
