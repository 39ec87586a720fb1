package texture

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"

	"mode7-renderer/internal/logging"
)

// Sampler gives random-access pixel lookup over one decoded raster.
// It is empty (size 0x0, transparent samples) until Load succeeds and
// immutable afterwards, so concurrent Sample calls need no locking.
type Sampler struct {
	source string
	img    atomic.Pointer[image.NRGBA]
}

// New returns an unloaded sampler for the given source id.
func New(source string) *Sampler {
	return &Sampler{source: source}
}

// FromImage wraps an already-decoded image.
func FromImage(id string, img image.Image) *Sampler {
	s := New(id)
	if img != nil && !img.Bounds().Empty() {
		s.img.Store(toNRGBA(img))
	}
	return s
}

// Source returns the id the sampler was created with.
func (s *Sampler) Source() string { return s.source }

// Loaded reports whether a raster is available.
func (s *Sampler) Loaded() bool { return s.img.Load() != nil }

// Load fetches and decodes the source, blocking until it completes or fails.
// On failure the sampler keeps its previous contents and a *LoadError is
// returned.
func (s *Sampler) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &LoadError{Source: s.source, Err: err}
	}

	img, err := LoadTexture(ctx, s.source)
	if err != nil {
		return &LoadError{Source: s.source, Err: err}
	}
	s.img.Store(img)

	b := img.Bounds()
	logging.Logger().Info("texture loaded", "source", s.source, "width", b.Dx(), "height", b.Dy())
	return nil
}

// LoadAsync runs Load on its own goroutine. The returned channel yields
// exactly one value: nil or a *LoadError.
func (s *Sampler) LoadAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Load(ctx)
	}()
	return done
}

// Size returns the raster dimensions, or (0, 0) before a successful load.
func (s *Sampler) Size() (w, h int) {
	img := s.img.Load()
	if img == nil {
		return 0, 0
	}
	return img.Rect.Dx(), img.Rect.Dy()
}

// Sample returns the pixel at (x, y). Callers wrap coordinates into
// [0, w) x [0, h) themselves; anything outside, or any read on an empty
// sampler, yields transparent black.
func (s *Sampler) Sample(x, y int) color.NRGBA {
	img := s.img.Load()
	if img == nil {
		return color.NRGBA{}
	}
	if x < 0 || y < 0 || x >= img.Rect.Dx() || y >= img.Rect.Dy() {
		return color.NRGBA{}
	}
	i := y*img.Stride + x*4
	p := img.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}
