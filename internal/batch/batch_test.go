package batch

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/texture"

	"github.com/HugoSmits86/nativewebp"
)

func testRenderer(t *testing.T) *raster.Renderer {
	t.Helper()
	floor := texture.Checker("floor", 16, 16, 4, color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255})
	r, err := raster.NewRenderer(raster.Params{StageWidth: 8, StageHeight: 6, FocalLength: 250, ScaleFactor: 100}, floor, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.SetWorkers(1)
	return r
}

func TestRunWritesFrames(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		OutputDir:  dir,
		Format:     "png",
		Renderer:   testRenderer(t),
		Background: "#ffffff",
		Frames:     5,
		FPS:        10,
		Workers:    3,
	}

	results, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(results))
	}
	for i, r := range results {
		if !r.Success {
			t.Fatalf("frame %d failed: %s", i, r.Error)
		}
		if r.Frame != i || r.Time != float64(i)/10 || r.Image != FrameName(i, "png") {
			t.Errorf("result %d = %+v", i, r)
		}

		f, err := os.Open(filepath.Join(dir, r.Image))
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", r.Image, err)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
			t.Errorf("%s bounds = %v, want 8x6", r.Image, b)
		}
	}

	manifest := filepath.Join(dir, "manifest.json")
	if err := WriteManifest(manifest, cfg, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Width != 8 || m.Height != 6 || m.FPS != 10 || len(m.Frames) != 5 {
		t.Errorf("manifest = %+v", m)
	}
	if m.Frames[3].Image != "frame_0003.png" {
		t.Errorf("frame 3 image = %q", m.Frames[3].Image)
	}
}

func TestRunMatchesDirectRender(t *testing.T) {
	dir := t.TempDir()
	r := testRenderer(t)
	cfg := Config{OutputDir: dir, Format: "png", Renderer: r, Background: "#00000000", Frames: 3, FPS: 4, Workers: 2}
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	want := raster.NewFrameBuffer(8, 6)
	if err := r.Render(want, FrameTime(2, 4)); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, FrameName(2, "png")))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	// Only opaque pixels survive the round trip unchanged.
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			i := (y*8 + x) * 4
			if want.Color[i+3] != 255 {
				continue
			}
			got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			exp := color.NRGBA{R: want.Color[i], G: want.Color[i+1], B: want.Color[i+2], A: 255}
			if got != exp {
				t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, exp)
			}
		}
	}
}

func TestRunAnimation(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		OutputDir:  dir,
		Format:     "webp",
		Renderer:   testRenderer(t),
		Background: "#336699",
		Frames:     3,
		FPS:        30,
		Workers:    2,
		Animation:  "scene.webp",
	}
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	f, err := os.Open(filepath.Join(dir, FrameName(0, "webp")))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := nativewebp.Decode(f); err != nil {
		t.Errorf("decode frame: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "scene.webp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		t.Error("animation is not a WebP file")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{OutputDir: t.TempDir(), Format: "png", Renderer: testRenderer(t), Background: "#fff", Frames: 50, FPS: 60, Workers: 1}
	results, err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed == 0 {
		t.Error("cancelled run rendered every frame")
	}
}

func TestRunBadBackground(t *testing.T) {
	cfg := Config{OutputDir: t.TempDir(), Format: "png", Renderer: testRenderer(t), Background: "nope", Frames: 2, FPS: 60, Workers: 2}
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("Run() error = nil, want configuration error")
	}
	if _, err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("Run() without renderer error = nil")
	}
}
