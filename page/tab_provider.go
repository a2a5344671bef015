package page

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceweb/capture"
)

// Screenshotter captures the current viewport as PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
	Done() <-chan struct{}
}

// TabProvider exposes the browser tab as a capture source. Consent is
// implicit; the track ends when the browser exits or the tab detaches.
type TabProvider struct {
	driver Screenshotter
	logger *zap.Logger
}

// NewTabProvider creates a tab capture source over driver.
func NewTabProvider(driver Screenshotter, logger *zap.Logger) *TabProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TabProvider{driver: driver, logger: logger.With(zap.String("component", "tab_provider"))}
}

// RequestSource implements capture.SourceProvider.
func (p *TabProvider) RequestSource(ctx context.Context, _ capture.Constraints) (capture.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrUserCancelled, err)
	}
	select {
	case <-p.driver.Done():
		return nil, fmt.Errorf("%w: browser tab is gone", capture.ErrPermissionDenied)
	default:
	}
	return newTabTrack(p.driver, p.logger), nil
}

type tabTrack struct {
	driver   Screenshotter
	logger   *zap.Logger
	ended    chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newTabTrack(driver Screenshotter, logger *zap.Logger) *tabTrack {
	t := &tabTrack{
		driver:  driver,
		logger:  logger,
		ended:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go t.watch()
	return t
}

func (t *tabTrack) watch() {
	select {
	case <-t.driver.Done():
		t.logger.Info("browser tab closed, ending capture track")
		close(t.ended)
	case <-t.stopped:
	}
}

func (t *tabTrack) GrabFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-t.ended:
		return nil, capture.ErrSourceInactive
	default:
	}
	data, err := t.driver.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tab screenshot: %w", err)
	}
	return img, nil
}

func (t *tabTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *tabTrack) Ended() <-chan struct{} { return t.ended }
