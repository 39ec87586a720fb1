package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/present"
	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/stage"
)

// Config holds all shared resources for an export run.
type Config struct {
	OutputDir  string
	Format     string // "webp" or "png"
	Renderer   *raster.Renderer
	Background string
	Frames     int
	FPS        int
	Workers    int
	// Animation, when set, is the file name (inside OutputDir) of an
	// animated WebP holding every frame in order.
	Animation string
}

// Result holds the outcome of rendering one frame.
type Result struct {
	Frame   int
	Time    float64
	Image   string
	Success bool
	Error   string
}

// FrameName returns the output file name of frame i.
func FrameName(i int, format string) string {
	return fmt.Sprintf("frame_%04d.%s", i, format)
}

// FrameTime returns the scene time of frame i at fps frames per second.
func FrameTime(i, fps int) float64 {
	return float64(i) / float64(fps)
}

// Run renders all frames using a worker pool. Every worker owns its stage and
// clock; the renderer is shared. Cancelling ctx stops workers from picking up
// new frames, and unrendered frames are reported as failed.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("batch: no renderer")
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, err
	}

	total := cfg.Frames
	results := make([]Result, total)
	for i := range results {
		results[i] = Result{Frame: i, Time: FrameTime(i, cfg.FPS), Image: FrameName(i, cfg.Format), Error: "not rendered"}
	}
	var frames []image.Image
	if cfg.Animation != "" {
		frames = make([]image.Image, total)
	}
	var processed atomic.Int64

	start := time.Now()
	log := logging.Logger()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f frames/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	frameChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	var setupErr atomic.Pointer[error]

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wk, err := newWorker(cfg)
			if err != nil {
				setupErr.CompareAndSwap(nil, &err)
				for range frameChan {
				}
				return
			}
			for i := range frameChan {
				var img image.Image
				results[i], img = wk.render(cfg, i)
				if frames != nil && img != nil {
					frames[i] = img
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
send:
	for i := 0; i < total && ctx.Err() == nil; i++ {
		select {
		case frameChan <- i:
		case <-ctx.Done():
			break send
		}
	}
	close(frameChan)

	wg.Wait()
	close(done)

	if p := setupErr.Load(); p != nil {
		return results, *p
	}
	log.Debug("export finished", "frames", processed.Load(), "elapsed", time.Since(start))

	if cfg.Animation != "" && ctx.Err() == nil {
		if err := writeAnimation(filepath.Join(cfg.OutputDir, cfg.Animation), frames, cfg.FPS); err != nil {
			return results, err
		}
	}
	return results, ctx.Err()
}

// worker renders frames through its own stage so the target buffer is never
// shared between goroutines.
type worker struct {
	stage *stage.Stage
	clock *raster.FixedClock
}

func newWorker(cfg Config) (*worker, error) {
	p := cfg.Renderer.Params()
	wk := &worker{
		stage: stage.New(stage.Immediate()),
		clock: &raster.FixedClock{},
	}
	if err := wk.stage.Configure(p.StageWidth, p.StageHeight, cfg.Background); err != nil {
		return nil, err
	}
	wk.stage.OnTick(raster.NewScene(cfg.Renderer, wk.clock.Now))
	return wk, nil
}

func (wk *worker) render(cfg Config, i int) (Result, image.Image) {
	res := Result{
		Frame: i,
		Time:  FrameTime(i, cfg.FPS),
		Image: FrameName(i, cfg.Format),
	}

	wk.clock.Set(res.Time)
	if err := wk.stage.TickOnce(); err != nil {
		res.Error = err.Error()
		return res, nil
	}

	fb := wk.stage.Target()
	bg := wk.stage.Background()
	if err := present.WriteFile(filepath.Join(cfg.OutputDir, res.Image), fb, bg); err != nil {
		res.Error = err.Error()
		return res, nil
	}

	res.Success = true
	if cfg.Animation == "" {
		return res, nil
	}
	return res, present.Image(fb, bg)
}

func writeAnimation(path string, frames []image.Image, fps int) error {
	for i, img := range frames {
		if img == nil {
			return fmt.Errorf("batch: animation: frame %d missing", i)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := present.EncodeAnimation(f, frames, time.Second/time.Duration(fps)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
