package texture

import (
	"image"
	"image/color"
)

// Solid returns a w x h sampler filled with c.
func Solid(id string, w, h int, c color.NRGBA) *Sampler {
	if w <= 0 || h <= 0 {
		return New(id)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return FromImage(id, img)
}

// Checker returns a w x h checkerboard with square cells of the given size,
// alternating a and b starting with a at the origin. Used as the stand-in
// floor when a texture fails to load.
func Checker(id string, w, h, cell int, a, b color.NRGBA) *Sampler {
	if w <= 0 || h <= 0 {
		return New(id)
	}
	if cell <= 0 {
		cell = 1
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return FromImage(id, img)
}
