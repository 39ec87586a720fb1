package present

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mode7-renderer/internal/raster"

	"github.com/HugoSmits86/nativewebp"
	"github.com/gogpu/gg"
)

// ErrUnknownFormat is returned by WriteFile for extensions it cannot encode.
var ErrUnknownFormat = errors.New("present: unknown output format")

// Image flattens fb over bg. A transparent bg keeps the frame's alpha.
func Image(fb *raster.FrameBuffer, bg gg.RGBA) *image.RGBA {
	return fb.Flatten(nil, bg).ToImage()
}

// EncodeWebP writes fb over bg as lossless WebP.
func EncodeWebP(w io.Writer, fb *raster.FrameBuffer, bg gg.RGBA) error {
	if err := nativewebp.Encode(w, Image(fb, bg), nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}

// EncodePNG writes fb over bg as PNG.
func EncodePNG(w io.Writer, fb *raster.FrameBuffer, bg gg.RGBA) error {
	if err := fb.Flatten(nil, bg).EncodePNG(w); err != nil {
		return fmt.Errorf("png encode: %w", err)
	}
	return nil
}

// WriteFile encodes fb over bg to path, choosing the format from the
// extension (.webp or .png).
func WriteFile(path string, fb *raster.FrameBuffer, bg gg.RGBA) error {
	var encode func(io.Writer, *raster.FrameBuffer, gg.RGBA) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		encode = EncodeWebP
	case ".png":
		encode = EncodePNG
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f, fb, bg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeAnimation writes frames as one looping animated WebP, each frame
// shown for delay.
func EncodeAnimation(w io.Writer, frames []image.Image, delay time.Duration) error {
	ms := uint(max(delay.Milliseconds(), 1))
	ani := &nativewebp.Animation{
		Images:    frames,
		Durations: make([]uint, len(frames)),
		Disposals: make([]uint, len(frames)),
		LoopCount: 0,
	}
	for i := range ani.Durations {
		ani.Durations[i] = ms
	}
	if err := nativewebp.EncodeAll(w, ani, nil); err != nil {
		return fmt.Errorf("webp animation: %w", err)
	}
	return nil
}
