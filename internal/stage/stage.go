// Package stage drives per-frame handlers against an owned render target.
package stage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"mode7-renderer/internal/config"
	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/raster"

	"github.com/gogpu/gg"
)

var (
	// ErrNotConfigured is returned by Start and TickOnce before Configure.
	ErrNotConfigured = errors.New("stage: not configured")
	// ErrRunning is returned by Start while a loop is already running.
	ErrRunning = errors.New("stage: already running")
)

// Handler draws into the target once per tick.
type Handler interface {
	Tick(fb *raster.FrameBuffer) error
}

// HandlerFunc adapts a function to Handler. Functions cannot be compared,
// so every HandlerFunc registration counts as a new handler.
type HandlerFunc func(fb *raster.FrameBuffer) error

func (f HandlerFunc) Tick(fb *raster.FrameBuffer) error { return f(fb) }

// Stage owns a frame buffer and runs its handlers in registration order,
// one tick at a time.
type Stage struct {
	pacer Pacer

	mu         sync.Mutex // guards the fields below
	target     *raster.FrameBuffer
	background gg.RGBA
	handlers   []Handler
	cancel     context.CancelFunc // non-nil while Start runs

	tickMu sync.Mutex // serializes ticks
	ticks  atomic.Uint64
}

// New returns an unconfigured stage paced by p. A nil pacer never waits.
func New(p Pacer) *Stage {
	if p == nil {
		p = Immediate()
	}
	return &Stage{pacer: p}
}

// Configure sets the target size and background colour. Calling it again
// with the same size keeps the existing target.
func (s *Stage) Configure(width, height int, background string) error {
	if err := errors.Join(
		config.Positive("stage_width", width),
		config.Positive("stage_height", height),
	); err != nil {
		return err
	}
	bg, err := gg.ParseHex(background)
	if err != nil {
		return &config.ConfigurationError{Field: "background", Value: background, Reason: "must be a hex colour"}
	}

	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == nil || s.target.Width != width || s.target.Height != height {
		s.target = raster.NewFrameBuffer(width, height)
	}
	s.background = bg
	return nil
}

// OnTick registers h. Registering a handler that is already present is a
// no-op.
func (s *Stage) OnTick(h Handler) {
	if h == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.handlers {
		if sameHandler(existing, h) {
			return
		}
	}
	s.handlers = append(s.handlers, h)
}

// sameHandler reports whether a and b are the same registration. A comparable
// type may still hold a func in an interface field, where == panics; such
// values are never equal.
func sameHandler(a, b Handler) (same bool) {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Target returns the frame buffer handlers draw into, or nil before
// Configure.
func (s *Stage) Target() *raster.FrameBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Background returns the configured background colour.
func (s *Stage) Background() gg.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// Ticks returns how many ticks have completed.
func (s *Stage) Ticks() uint64 { return s.ticks.Load() }

// Running reports whether Start is looping.
func (s *Stage) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// TickOnce runs exactly one tick: clear the target to the background, then
// call every handler once in order. A failing or panicking handler does not
// stop the others; their errors are joined into the result.
func (s *Stage) TickOnce() error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	fb := s.target
	bg := s.background
	handlers := append([]Handler(nil), s.handlers...)
	s.mu.Unlock()

	if fb == nil {
		return ErrNotConfigured
	}

	fb.Clear(bg)

	var errs []error
	for i, h := range handlers {
		if err := invoke(h, fb); err != nil {
			logging.Logger().Warn("tick handler failed", "handler", i, "err", err)
			errs = append(errs, fmt.Errorf("handler %d: %w", i, err))
		}
	}
	s.ticks.Add(1)

	return errors.Join(errs...)
}

func invoke(h Handler, fb *raster.FrameBuffer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Tick(fb)
}

// Start ticks until Stop is called or ctx ends, waiting on the pacer between
// ticks. It returns nil after Stop and ctx.Err() after cancellation.
func (s *Stage) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.target == nil:
		s.mu.Unlock()
		return ErrNotConfigured
	case s.cancel != nil:
		s.mu.Unlock()
		return ErrRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	log := logging.Logger()
	log.Debug("stage started")
	for runCtx.Err() == nil {
		// Handler failures are logged by TickOnce.
		_ = s.TickOnce()
		if err := s.pacer.Wait(runCtx); err != nil {
			break
		}
	}
	log.Debug("stage stopped", "ticks", s.Ticks())

	return ctx.Err()
}

// Stop asks a running loop to finish. The tick in progress completes and no
// further tick starts. Stop without a running loop does nothing.
func (s *Stage) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
