package texture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/bmp"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 7, A: 200})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestUnloadedSampler(t *testing.T) {
	s := New("floor.png")
	if w, h := s.Size(); w != 0 || h != 0 {
		t.Errorf("Size() = %d,%d, want 0,0", w, h)
	}
	if s.Loaded() {
		t.Error("Loaded() = true before Load")
	}
	for _, p := range [][2]int{{0, 0}, {5, 9}, {-1, -1}, {1 << 20, 3}} {
		if got := s.Sample(p[0], p[1]); got != (color.NRGBA{}) {
			t.Errorf("Sample(%d,%d) = %v, want transparent black", p[0], p[1], got)
		}
	}
}

func TestFromImageSample(t *testing.T) {
	s := FromImage("mem", testImage(4, 3))
	if w, h := s.Size(); w != 4 || h != 3 {
		t.Fatalf("Size() = %d,%d, want 4,3", w, h)
	}
	want := color.NRGBA{R: 30, G: 20, B: 7, A: 200}
	if got := s.Sample(3, 2); got != want {
		t.Errorf("Sample(3,2) = %v, want %v", got, want)
	}
	if got := s.Sample(4, 0); got != (color.NRGBA{}) {
		t.Errorf("Sample(4,0) out of range = %v, want transparent", got)
	}
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := testImage(6, 6).SubImage(image.Rect(2, 2, 4, 4))
	s := FromImage("sub", img)
	if w, h := s.Size(); w != 2 || h != 2 {
		t.Fatalf("Size() = %d,%d, want 2,2", w, h)
	}
	want := color.NRGBA{R: 20, G: 20, B: 7, A: 200}
	if got := s.Sample(0, 0); got != want {
		t.Errorf("Sample(0,0) = %v, want %v", got, want)
	}
}

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floor.png")
	writePNG(t, path, testImage(8, 5))

	s := New(path)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if w, h := s.Size(); w != 8 || h != 5 {
		t.Errorf("Size() = %d,%d, want 8,5", w, h)
	}
	want := color.NRGBA{R: 70, G: 40, B: 7, A: 200}
	if got := s.Sample(7, 4); got != want {
		t.Errorf("Sample(7,4) = %v, want %v", got, want)
	}
}

func TestLoadOpaqueFormats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	tests := []struct {
		name   string
		encode func(*bytes.Buffer) error
	}{
		{"tex.jpg", func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) }},
		{"tex.bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, src) }},
		{"tex.webp", func(b *bytes.Buffer) error { return nativewebp.Encode(b, src, nil) }},
		{"noext", func(b *bytes.Buffer) error { return png.Encode(b, src) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(t.TempDir(), tt.name)
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				t.Fatal(err)
			}

			img, err := LoadTexture(context.Background(), path)
			if err != nil {
				t.Fatalf("LoadTexture() error = %v", err)
			}
			if img.Rect.Dx() != 4 || img.Rect.Dy() != 4 {
				t.Errorf("size = %v, want 4x4", img.Rect)
			}
			if a := img.Pix[3]; a != 255 {
				t.Errorf("alpha = %d, want 255", a)
			}
		})
	}
}

func TestLoadFailure(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.png"))
	err := s.Load(context.Background())

	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Load() error = %v, want *LoadError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want wrapping os.ErrNotExist", err)
	}
	if w, h := s.Size(); w != 0 || h != 0 {
		t.Errorf("Size() after failed load = %d,%d, want 0,0", w, h)
	}
	if got := s.Sample(0, 0); got != (color.NRGBA{}) {
		t.Errorf("Sample after failed load = %v, want transparent", got)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text, not pixels"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadTexture(context.Background(), path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("LoadTexture() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadCorruptPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nnope"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := New(path).Load(context.Background()); err == nil {
		t.Error("Load(corrupt png) error = nil, want error")
	}
}

func TestLoadHTTP(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(3, 3)); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/textures/floor.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	s := New(srv.URL + "/textures/floor.png")
	if err := <-s.LoadAsync(context.Background()); err != nil {
		t.Fatalf("LoadAsync() error = %v", err)
	}
	if w, h := s.Size(); w != 3 || h != 3 {
		t.Errorf("Size() = %d,%d, want 3,3", w, h)
	}

	missing := New(srv.URL + "/textures/ceiling.png")
	if err := missing.Load(context.Background()); err == nil {
		t.Error("Load(404) error = nil, want error")
	}
}

func TestLoadHTTPTooLarge(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(8, 8)); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	old := maxSourceBytes
	defer func() { maxSourceBytes = old }()

	maxSourceBytes = int64(buf.Len())
	if err := New(srv.URL + "/exact.png").Load(context.Background()); err != nil {
		t.Fatalf("Load() at the limit error = %v", err)
	}

	maxSourceBytes = int64(buf.Len() - 1)
	err := New(srv.URL + "/big.png").Load(context.Background())
	var le *LoadError
	if !errors.As(err, &le) || !errors.Is(err, ErrTooLarge) {
		t.Errorf("Load() over the limit error = %v, want LoadError wrapping ErrTooLarge", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New("anything.png").Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Load(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestConcurrentSample(t *testing.T) {
	s := FromImage("mem", testImage(16, 16))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				x, y := i%16, (i/16)%16
				if got := s.Sample(x, y); got.B != 7 {
					t.Errorf("Sample(%d,%d).B = %d, want 7", x, y, got.B)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSolidAndChecker(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	s := Solid("red", 2, 2, red)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := s.Sample(x, y); got != red {
				t.Errorf("Solid Sample(%d,%d) = %v, want %v", x, y, got, red)
			}
		}
	}
	if w, h := Solid("empty", 0, 3, red).Size(); w != 0 || h != 0 {
		t.Errorf("Solid(0x3) Size() = %d,%d, want 0,0", w, h)
	}

	a := color.NRGBA{R: 1, A: 255}
	b := color.NRGBA{R: 2, A: 255}
	c := Checker("check", 4, 4, 2, a, b)
	if got := c.Sample(0, 0); got != a {
		t.Errorf("Checker(0,0) = %v, want %v", got, a)
	}
	if got := c.Sample(2, 0); got != b {
		t.Errorf("Checker(2,0) = %v, want %v", got, b)
	}
	if got := c.Sample(2, 2); got != a {
		t.Errorf("Checker(2,2) = %v, want %v", got, a)
	}
}
