package raster

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"reflect"
	"runtime"
	"sync"

	"mode7-renderer/internal/config"
)

// epsilon keeps z off zero on the horizon row.
const epsilon = 0.01

// ErrTargetSize is returned when a frame buffer does not match the stage.
var ErrTargetSize = errors.New("raster: frame buffer size does not match stage")

// Texture is the sampling surface the renderer reads from.
// Coordinates passed to Sample are always wrapped into [0, w) x [0, h).
type Texture interface {
	Size() (w, h int)
	Sample(x, y int) color.NRGBA
}

// Params are the fixed stage parameters.
type Params struct {
	StageWidth  int
	StageHeight int
	FocalLength float64 // camera-to-screen distance
	ScaleFactor float64 // world-to-texel scale
}

// Validate returns a *config.ConfigurationError for any non-positive field.
func (p Params) Validate() error {
	return errors.Join(
		config.Positive("stage_width", p.StageWidth),
		config.Positive("stage_height", p.StageHeight),
		config.Positive("focal_length", p.FocalLength),
		config.Positive("scale_factor", p.ScaleFactor),
	)
}

// Renderer projects a floor texture onto the lower half of the stage and a
// mirrored ceiling onto the upper half.
type Renderer struct {
	params  Params
	floor   Texture
	ceiling Texture
	shared  bool // ceiling is the floor; reuse each floor lookup
	drift   Drift
	workers int

	horizon int // first floor row
	half    int // pixel index the ceiling mirrors around
}

// NewRenderer validates p and returns a renderer. A nil ceiling reuses the
// floor texture.
func NewRenderer(p Params, floor, ceiling Texture) (*Renderer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if floor == nil {
		return nil, &config.ConfigurationError{Field: "floor_texture", Value: nil, Reason: "must not be nil"}
	}
	if ceiling == nil {
		ceiling = floor
	}

	return &Renderer{
		params:  p,
		floor:   floor,
		ceiling: ceiling,
		shared:  sameTexture(floor, ceiling),
		drift:   SineDrift{},
		workers: runtime.NumCPU(),
		horizon: HorizonRow(p.StageHeight),
		half:    HalfPixelCount(p.StageWidth, p.StageHeight),
	}, nil
}

func sameTexture(a, b Texture) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// Params returns the stage parameters.
func (r *Renderer) Params() Params { return r.params }

// SetDrift replaces the sampling-window motion. nil restores SineDrift.
func (r *Renderer) SetDrift(d Drift) {
	if d == nil {
		d = SineDrift{}
	}
	r.drift = d
}

// SetWorkers bounds how many rows render concurrently. n <= 1 renders
// sequentially.
func (r *Renderer) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.workers = n
}

// HorizonRow returns the first floor row.
func (r *Renderer) HorizonRow() int { return r.horizon }

// HalfPixelCount returns the pixel index the ceiling mirrors around.
func (r *Renderer) HalfPixelCount() int { return r.half }

// MirroredIndex returns the pixel index the ceiling sample of floor pixel
// (px, py) lands on. It may fall outside the buffer.
func (r *Renderer) MirroredIndex(px, py int) int {
	return r.half - ((py-r.horizon)*r.params.StageWidth - px)
}

// Project returns the texture coordinate and camera depth of floor pixel
// (px, py) at time t.
func (r *Renderer) Project(px, py int, t float64) (u, v, z float64) {
	ox, oy := r.drift.Offset(t)
	return r.project(px, py, ox, oy)
}

func (r *Renderer) project(px, py int, ox, oy float64) (u, v, z float64) {
	x := float64(r.params.StageWidth)/2 - float64(px)
	y := float64(py) + r.params.FocalLength
	z = float64(py-r.horizon) + epsilon
	u = (x/z + ox) * r.params.ScaleFactor
	v = (y/z + oy) * r.params.ScaleFactor
	return u, v, z
}

// Render draws one frame at scene time t into fb. Floor rows are split across
// the worker pool; every ceiling write from row py lands either in row py
// itself or above the horizon in a span no other row touches, so rows are
// independent and the output matches a sequential scan byte for byte.
func (r *Renderer) Render(fb *FrameBuffer, t float64) error {
	if fb == nil || fb.Width != r.params.StageWidth || fb.Height != r.params.StageHeight || len(fb.Color) != fb.Width*fb.Height*4 {
		return ErrTargetSize
	}

	ox, oy := r.drift.Offset(t)
	rows := r.params.StageHeight - r.horizon
	workers := min(r.workers, rows)

	if workers <= 1 {
		for py := r.horizon; py < r.params.StageHeight; py++ {
			r.renderRow(fb.Color, py, ox, oy)
		}
		return nil
	}

	rowChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for py := range rowChan {
				r.renderRow(fb.Color, py, ox, oy)
			}
		}()
	}
	for py := r.horizon; py < r.params.StageHeight; py++ {
		rowChan <- py
	}
	close(rowChan)
	wg.Wait()

	return nil
}

func (r *Renderer) renderRow(dst []uint8, py int, ox, oy float64) {
	w := r.params.StageWidth
	pixels := len(dst) / 4

	fw, fh := r.floor.Size()
	cw, ch := fw, fh
	if !r.shared {
		cw, ch = r.ceiling.Size()
	}

	rowStart := py * w
	for px := 0; px < w; px++ {
		u, v, z := r.project(px, py, ox, oy)
		att := Attenuation(z, r.horizon)
		iu, iv := roundHalfUp(u), roundHalfUp(v)

		fc := r.floor.Sample(Wrap(iu, fw), Wrap(iv, fh))
		fc.A = fade(fc.A, att)
		put(dst, rowStart+px, fc)

		mi := r.MirroredIndex(px, py)
		if mi < 0 || mi >= pixels {
			continue
		}
		cc := fc
		if !r.shared {
			cc = r.ceiling.Sample(Wrap(iu, cw), Wrap(iv, ch))
			cc.A = fade(cc.A, att)
		}
		put(dst, mi, cc)
	}
}

func put(dst []uint8, i int, c color.NRGBA) {
	p := dst[i*4 : i*4+4 : i*4+4]
	p[0] = c.R
	p[1] = c.G
	p[2] = c.B
	p[3] = c.A
}

// Wrap maps n into [0, size) with true modulo. A non-positive size maps
// everything to 0.
func Wrap(n, size int) int {
	if size <= 0 {
		return 0
	}
	return ((n % size) + size) % size
}

// Attenuation is the depth-fog opacity of a row at camera depth z:
// 1.5*|z|/horizonRow clamped to [0, 1].
func Attenuation(z float64, horizonRow int) float64 {
	if horizonRow <= 0 {
		return 1
	}
	a := 1.5 * math.Abs(z) / float64(horizonRow)
	return math.Min(math.Max(a, 0), 1)
}

// HorizonRow returns round(height/2).
func HorizonRow(height int) int {
	return roundHalfUp(float64(height) / 2)
}

// HalfPixelCount returns round(width*height/2).
func HalfPixelCount(width, height int) int {
	return roundHalfUp(float64(width) * float64(height) / 2)
}

// roundHalfUp rounds to the nearest integer, ties toward +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// fade scales alpha by att, rounding ties to even like a clamped byte store.
func fade(a uint8, att float64) uint8 {
	v := math.RoundToEven(float64(a) * att)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// String describes the stage geometry.
func (p Params) String() string {
	return fmt.Sprintf("%dx%d focal=%g scale=%g", p.StageWidth, p.StageHeight, p.FocalLength, p.ScaleFactor)
}
