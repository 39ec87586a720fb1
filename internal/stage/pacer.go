package stage

import (
	"context"
	"time"

	"mode7-renderer/internal/config"
)

// Pacer blocks between ticks until the host is ready for the next frame.
// A stage calls Wait from a single goroutine.
type Pacer interface {
	Wait(ctx context.Context) error
}

type immediate struct{}

// Immediate returns a pacer that never waits. Used for headless export.
func Immediate() Pacer { return immediate{} }

func (immediate) Wait(ctx context.Context) error { return ctx.Err() }

// SignalPacer releases one waiting tick per Signal. Hosts with their own
// refresh callback (a window's draw hook) call Signal from it. Signals that
// arrive while nobody waits collapse into one.
type SignalPacer struct {
	ch chan struct{}
}

func NewSignalPacer() *SignalPacer {
	return &SignalPacer{ch: make(chan struct{}, 1)}
}

// Signal marks the next frame as due. It never blocks.
func (p *SignalPacer) Signal() {
	select {
	case p.ch <- struct{}{}:
	default:
	}
}

func (p *SignalPacer) Wait(ctx context.Context) error {
	select {
	case <-p.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// intervalPacer waits for the next boundary of a fixed-rate frame clock.
// Boundaries that pass while a tick runs are skipped, not queued.
type intervalPacer struct {
	period time.Duration
	origin time.Time
}

// Interval returns the fallback pacer for hosts with no display-refresh
// callback, such as a terminal or an SSH session. It waits on a timer; hosts
// that have a refresh callback use SignalPacer instead. fps <= 0 means 60 and
// fps above config.MaxFPS is capped.
func Interval(fps int) Pacer {
	if fps <= 0 {
		fps = 60
	}
	fps = min(fps, config.MaxFPS)
	return &intervalPacer{period: time.Second / time.Duration(fps)}
}

func (p *intervalPacer) Wait(ctx context.Context) error {
	now := time.Now()
	if p.origin.IsZero() {
		p.origin = now
	}
	frames := now.Sub(p.origin)/p.period + 1
	next := p.origin.Add(frames * p.period)

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
