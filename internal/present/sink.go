// Package present hands finished frames to something that shows or stores
// them: a terminal, an ANSI byte stream, or an image file.
package present

import (
	"image/color"

	"mode7-renderer/internal/postprocess"
	"mode7-renderer/internal/raster"

	"github.com/gogpu/gg"
)

// Sink accepts finished frames. Every sink here also satisfies the stage
// handler interface through Tick, so it can run after the scene each tick.
type Sink interface {
	Present(fb *raster.FrameBuffer) error
}

// HalfBlock is the glyph used for two vertically stacked pixels per cell.
const HalfBlock = '▀'

// Cell is one character cell: Upper is drawn as the glyph's foreground,
// Lower as its background. Both are opaque.
type Cell struct {
	Upper color.RGBA
	Lower color.RGBA
}

// Cells maps fb onto a cols x rows grid of half-block cells. The frame keeps
// its aspect ratio and is centred; the margin and any transparency show bg.
func Cells(fb *raster.FrameBuffer, bg gg.RGBA, cols, rows int) []Cell {
	if cols <= 0 || rows <= 0 {
		return nil
	}

	b := raster.ToNRGBA(bg)
	b.A = 255
	fill := color.RGBA{R: b.R, G: b.G, B: b.B, A: 255}

	cells := make([]Cell, cols*rows)
	for i := range cells {
		cells[i] = Cell{Upper: fill, Lower: fill}
	}

	pw, ph := postprocess.Fit(fb.Width, fb.Height, cols, rows*2)
	if pw == 0 || ph == 0 {
		return cells
	}
	small := postprocess.Resize(fb.NRGBA(), pw, ph)
	offX := (cols - pw) / 2
	offY := (rows*2 - ph) / 2

	for y := 0; y < ph; y++ {
		py := y + offY
		for x := 0; x < pw; x++ {
			c := over(small.NRGBAAt(x, y), b)
			cell := &cells[(py/2)*cols+x+offX]
			if py%2 == 0 {
				cell.Upper = c
			} else {
				cell.Lower = c
			}
		}
	}
	return cells
}

// over composites straight-alpha c over the opaque colour bg.
func over(c, bg color.NRGBA) color.RGBA {
	a := uint32(c.A)
	inv := 255 - a
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*inv + 127) / 255)
	}
	return color.RGBA{R: mix(c.R, bg.R), G: mix(c.G, bg.G), B: mix(c.B, bg.B), A: 255}
}
