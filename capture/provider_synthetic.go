package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// SyntheticProvider serves generated frames. It backs headless runs and
// exercises the pipeline without a display or browser.
type SyntheticProvider struct {
	width  int
	height int
	noise  bool

	requests atomic.Int32

	mu       sync.Mutex
	denials  []error
	last     *SyntheticTrack
	grabErrs []error
}

// NewSyntheticProvider serves width x height frames. With noise the frames
// are high-entropy and compress poorly.
func NewSyntheticProvider(width, height int, noise bool) *SyntheticProvider {
	return &SyntheticProvider{width: width, height: height, noise: noise}
}

// DenyNext makes the next requests fail with the given errors, in order.
func (p *SyntheticProvider) DenyNext(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denials = append(p.denials, errs...)
}

// FailNextGrab makes the next frame grabs on any track fail.
func (p *SyntheticProvider) FailNextGrab(errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grabErrs = append(p.grabErrs, errs...)
}

// Requests counts consent prompts issued so far.
func (p *SyntheticProvider) Requests() int { return int(p.requests.Load()) }

// Last returns the most recently issued track.
func (p *SyntheticProvider) Last() *SyntheticTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// RequestSource implements SourceProvider.
func (p *SyntheticProvider) RequestSource(ctx context.Context, c Constraints) (Track, error) {
	p.requests.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.denials) > 0 {
		err := p.denials[0]
		p.denials = p.denials[1:]
		return nil, err
	}

	t := &SyntheticTrack{
		provider:    p,
		constraints: c,
		ended:       make(chan struct{}),
		seed:        uint64(p.requests.Load()),
	}
	p.last = t
	return t, nil
}

func (p *SyntheticProvider) nextGrabErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.grabErrs) == 0 {
		return nil
	}
	err := p.grabErrs[0]
	p.grabErrs = p.grabErrs[1:]
	return err
}

// SyntheticTrack is a generated video track.
type SyntheticTrack struct {
	provider    *SyntheticProvider
	constraints Constraints
	seed        uint64

	grabs   atomic.Int32
	stopped atomic.Bool
	ended   chan struct{}
	endOnce sync.Once
}

// Constraints returns what the track was requested with.
func (t *SyntheticTrack) Constraints() Constraints { return t.constraints }

// Grabs counts frames served.
func (t *SyntheticTrack) Grabs() int { return int(t.grabs.Load()) }

// Stopped reports whether Stop was called.
func (t *SyntheticTrack) Stopped() bool { return t.stopped.Load() }

// Revoke simulates the user ending the share out of band.
func (t *SyntheticTrack) Revoke() {
	t.endOnce.Do(func() { close(t.ended) })
}

func (t *SyntheticTrack) GrabFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.stopped.Load() {
		return nil, errors.New("track stopped")
	}
	select {
	case <-t.ended:
		return nil, ErrSourceInactive
	default:
	}
	if err := t.provider.nextGrabErr(); err != nil {
		return nil, fmt.Errorf("synthetic grab: %w", err)
	}
	t.grabs.Add(1)
	return Gradient(t.provider.width, t.provider.height, t.provider.noise, t.seed), nil
}

func (t *SyntheticTrack) Stop() { t.stopped.Store(true) }

func (t *SyntheticTrack) Ended() <-chan struct{} { return t.ended }

// Gradient renders a diagonal gradient. With noise, per-pixel jitter from a
// generator seeded by seed is added.
func Gradient(width, height int, noise bool, seed uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8(x * 255 / max(width-1, 1))
			g := uint8(y * 255 / max(height-1, 1))
			b := uint8((x + y) % 256)
			if noise {
				r ^= uint8(rng.IntN(256))
				g ^= uint8(rng.IntN(256))
				b ^= uint8(rng.IntN(256))
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}
