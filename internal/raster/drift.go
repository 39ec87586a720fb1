package raster

import (
	"math"
	"sync"

	"mode7-renderer/internal/config"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Drift moves the sampling window over the texture as scene time advances.
// Offset must be continuous in t; a jump shows up as tearing.
type Drift interface {
	Offset(t float64) (x, y float64)
}

// SineDrift is the default motion: (sin t, t).
type SineDrift struct{}

func (SineDrift) Offset(t float64) (x, y float64) {
	return math.Sin(t), t
}

// EasedDrift sways side to side between -Amplitude and +Amplitude, one leg
// per Period seconds, while moving forward at Speed texture units per second.
type EasedDrift struct {
	Amplitude float64
	Period    float64
	Speed     float64

	mu   sync.Mutex
	out  *gween.Tween
	back *gween.Tween
}

// NewEasedDrift builds a sway using fn for each leg. A nil fn uses
// ease.InOutSine, which keeps velocity continuous at the turning points.
func NewEasedDrift(amplitude, period, speed float64, fn ease.TweenFunc) *EasedDrift {
	if fn == nil {
		fn = ease.InOutSine
	}
	if period <= 0 {
		period = math.Pi
	}
	a := float32(amplitude)
	return &EasedDrift{
		Amplitude: amplitude,
		Period:    period,
		Speed:     speed,
		out:       gween.New(-a, a, float32(period), fn),
		back:      gween.New(a, -a, float32(period), fn),
	}
}

// Offset is a pure function of t; the tweens are positioned absolutely.
func (d *EasedDrift) Offset(t float64) (x, y float64) {
	cycle := math.Floor(t / d.Period)
	phase := t - cycle*d.Period

	leg := d.out
	if int64(cycle)%2 != 0 {
		leg = d.back
	}

	d.mu.Lock()
	v, _ := leg.Set(float32(phase))
	d.mu.Unlock()

	return float64(v), t * d.Speed
}

// DriftFor returns the motion for a configured drift mode. Unknown modes get
// SineDrift.
func DriftFor(mode string) Drift {
	if mode == config.DriftSway {
		return NewEasedDrift(1, math.Pi, 1, ease.InOutSine)
	}
	return SineDrift{}
}
