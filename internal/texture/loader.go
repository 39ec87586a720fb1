package texture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// maxSourceBytes caps how much a single remote texture source may weigh.
var maxSourceBytes int64 = 64 << 20

type decodeFunc func(io.Reader) (image.Image, error)

// decoders maps lower-case file extensions to decoders. TGA carries no magic
// number, so dispatch is by extension rather than by sniffing.
var decoders = map[string]decodeFunc{
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".bmp":  bmp.Decode,
	".tif":  tiff.Decode,
	".tiff": tiff.Decode,
	".webp": nativewebp.DecodeIgnoreAlphaFlag,
	".tga":  tga.Decode,
}

// extByType maps sniffed content types to decoder extensions, for sources
// whose name carries no usable extension.
var extByType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
}

// SupportedExt reports whether ext (with leading dot) has a decoder.
func SupportedExt(ext string) bool {
	_, ok := decoders[strings.ToLower(ext)]
	return ok
}

// LoadTexture fetches a source (file path, file:// or http(s):// URL) and
// decodes it into an NRGBA raster.
func LoadTexture(ctx context.Context, source string) (*image.NRGBA, error) {
	raw, ext, err := fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	dec, ok := decoders[ext]
	if !ok {
		dec, ok = decoders[extByType[http.DetectContentType(raw)]]
	}
	if !ok {
		return nil, fmt.Errorf("texture: decode %s: %w", source, ErrUnsupportedFormat)
	}

	img, err := dec(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", source, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("texture: decode %s: %w", source, ErrEmptyImage)
	}

	return toNRGBA(img), nil
}

// fetch returns the raw bytes of source and its lower-case extension.
func fetch(ctx context.Context, source string) ([]byte, string, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain path (a one-letter scheme is a Windows drive letter).
		return readFile(source)
	}

	switch u.Scheme {
	case "file":
		return readFile(u.Path)
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, "", fmt.Errorf("texture: request %s: %w", source, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("texture: fetch %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("texture: fetch %s: status %s", source, resp.Status)
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
		if err != nil {
			return nil, "", fmt.Errorf("texture: read %s: %w", source, err)
		}
		if int64(len(raw)) > maxSourceBytes {
			return nil, "", fmt.Errorf("texture: fetch %s: %w (limit %d bytes)", source, ErrTooLarge, maxSourceBytes)
		}
		return raw, strings.ToLower(path.Ext(u.Path)), nil
	default:
		return nil, "", fmt.Errorf("texture: fetch %s: unsupported scheme %q", source, u.Scheme)
	}
}

func readFile(p string) ([]byte, string, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("texture: read %s: %w", p, err)
	}
	return raw, strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/"))), nil
}

// toNRGBA converts any image to a zero-origin NRGBA raster.
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
