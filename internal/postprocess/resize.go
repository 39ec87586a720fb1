package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales img to w x h with premultiplied-alpha-aware CatmullRom
// filtering, so transparent pixels do not bleed dark fringes into their
// neighbours. img is returned unchanged when it already has that size.
func Resize(img *image.NRGBA, w, h int) *image.NRGBA {
	b := img.Bounds()
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	}
	if b.Dx() == w && b.Dy() == h && b.Min == (image.Point{}) {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premultiply(img), b, draw.Src, nil)
	return unpremultiply(dst)
}

// premultiply returns img with colour scaled by alpha, in the same bounds.
func premultiply(img *image.NRGBA) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		dst := out.Pix[out.PixOffset(b.Min.X, y):out.PixOffset(b.Max.X, y)]
		for i := 0; i < len(src); i += 4 {
			a := uint32(src[i+3])
			dst[i] = uint8((uint32(src[i])*a + 127) / 255)
			dst[i+1] = uint8((uint32(src[i+1])*a + 127) / 255)
			dst[i+2] = uint8((uint32(src[i+2])*a + 127) / 255)
			dst[i+3] = src[i+3]
		}
	}
	return out
}

// unpremultiply converts a premultiplied raster back to straight alpha.
// Pixels with alpha at or below 1 keep black colour.
func unpremultiply(img *image.RGBA) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a > 1 {
			inv := 255.0 / float64(a)
			out.Pix[i] = clamp8(float64(img.Pix[i]) * inv)
			out.Pix[i+1] = clamp8(float64(img.Pix[i+1]) * inv)
			out.Pix[i+2] = clamp8(float64(img.Pix[i+2]) * inv)
		}
		out.Pix[i+3] = a
	}
	return out
}

// Fit returns the largest size with the aspect ratio of srcW x srcH that
// fits inside maxW x maxH. Both results are at least 1 when the bounds are
// positive.
func Fit(srcW, srcH, maxW, maxH int) (w, h int) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	w, h = maxW, srcH*maxW/srcW
	if h > maxH {
		w, h = srcW*maxH/srcH, maxH
	}
	return max(w, 1), max(h, 1)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
