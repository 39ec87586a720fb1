package raster

import (
	"math"
	"sync/atomic"
	"time"

	"mode7-renderer/internal/logging"
)

// Clock returns the current scene time in seconds.
type Clock func() float64

// WallClock returns seconds elapsed since start, at millisecond resolution.
func WallClock(start time.Time) Clock {
	return func() float64 {
		return float64(time.Since(start).Milliseconds()) / 1000
	}
}

// FixedClock is a clock advanced by hand, for export and tests.
// Safe for concurrent use.
type FixedClock struct {
	bits atomic.Uint64
}

// Set moves the clock to t seconds.
func (c *FixedClock) Set(t float64) { c.bits.Store(math.Float64bits(t)) }

// Now returns the last value passed to Set.
func (c *FixedClock) Now() float64 { return math.Float64frombits(c.bits.Load()) }

// Scene renders one frame per tick at the time its clock reports.
type Scene struct {
	r     *Renderer
	clock Clock
}

// NewScene binds a renderer to a clock. A nil clock starts a WallClock now.
func NewScene(r *Renderer, clock Clock) *Scene {
	if clock == nil {
		clock = WallClock(time.Now())
	}
	return &Scene{r: r, clock: clock}
}

// Renderer returns the scene's renderer.
func (s *Scene) Renderer() *Renderer { return s.r }

// Tick renders into fb.
func (s *Scene) Tick(fb *FrameBuffer) error {
	t := s.clock()
	if err := s.r.Render(fb, t); err != nil {
		return err
	}
	logging.Logger().Debug("frame rendered", "t", t)
	return nil
}
