package raster

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/gogpu/gg"
)

// FrameBuffer holds the rendering target as one flat slice for cache locality.
// Pixels are straight (non-premultiplied) RGBA, row-major, origin top-left.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8 // RGBA interleaved, len = W*H*4
}

// NewFrameBuffer allocates a transparent w x h buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, w*h*4),
	}
}

// Clear fills every pixel with c.
func (fb *FrameBuffer) Clear(c gg.RGBA) {
	n := ToNRGBA(c)
	if n == (color.NRGBA{}) {
		clear(fb.Color)
		return
	}
	for i := 0; i < len(fb.Color); i += 4 {
		fb.Color[i] = n.R
		fb.Color[i+1] = n.G
		fb.Color[i+2] = n.B
		fb.Color[i+3] = n.A
	}
}

// NRGBA returns an image view sharing the buffer's memory.
func (fb *FrameBuffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    fb.Color,
		Stride: fb.Width * 4,
		Rect:   image.Rect(0, 0, fb.Width, fb.Height),
	}
}

// Flatten composites the buffer over bg into dst, which holds premultiplied
// pixels. dst is reallocated when nil or of the wrong size. With an opaque bg
// the result is what a display shows; with a transparent bg it is simply the
// premultiplied form of the buffer.
func (fb *FrameBuffer) Flatten(dst *gg.Pixmap, bg gg.RGBA) *gg.Pixmap {
	if dst == nil || dst.Width() != fb.Width || dst.Height() != fb.Height {
		dst = gg.NewPixmap(fb.Width, fb.Height)
	}

	b := ToNRGBA(bg)
	// Background premultiplied, scaled by 255.
	br := uint32(b.R) * uint32(b.A)
	bgg := uint32(b.G) * uint32(b.A)
	bb := uint32(b.B) * uint32(b.A)
	ba := uint32(b.A) * 255

	out := dst.Data()
	src := fb.Color
	for i := 0; i+3 < len(src); i += 4 {
		a := uint32(src[i+3])
		inv := 255 - a
		out[i] = div65025(uint32(src[i])*a*255 + br*inv)
		out[i+1] = div65025(uint32(src[i+1])*a*255 + bgg*inv)
		out[i+2] = div65025(uint32(src[i+2])*a*255 + bb*inv)
		out[i+3] = div65025(a*255*255 + ba*inv)
	}
	dst.NotifyPixelsChanged()
	return dst
}

// div65025 divides v by 255*255 with rounding.
func div65025(v uint32) uint8 {
	return uint8((v + 65025/2) / 65025)
}

// EncodePNG writes the buffer as PNG, keeping its alpha channel.
func (fb *FrameBuffer) EncodePNG(w io.Writer) error {
	return fb.Flatten(nil, gg.RGBA{}).EncodePNG(w)
}

// SavePNG writes the buffer to a PNG file, keeping its alpha channel.
func (fb *FrameBuffer) SavePNG(path string) error {
	return fb.Flatten(nil, gg.RGBA{}).SavePNG(path)
}

// ToNRGBA converts a gg colour to 8-bit straight RGBA.
func ToNRGBA(c gg.RGBA) color.NRGBA {
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
