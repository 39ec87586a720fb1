// Package viewer shows a stage in a desktop window.
package viewer

import (
	"context"
	"errors"
	"sync"

	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/stage"

	"github.com/gogpu/gg"
	"github.com/hajimehoshi/ebiten/v2"
)

// Viewer presents frames from a stage in an ebiten window. The stage runs on
// its own goroutine, paced by the window's draw callback: every Draw lets one
// more tick through.
type Viewer struct {
	stage *stage.Stage
	pacer *stage.SignalPacer
	title string

	mu     sync.Mutex
	latest *gg.Pixmap // premultiplied, guarded by mu
	dirty  bool

	img *ebiten.Image // touched only on the ebiten goroutine
}

// New returns a viewer for st, which must have been created with pacer and
// configured. The viewer registers itself as the stage's last handler.
func New(st *stage.Stage, pacer *stage.SignalPacer, title string) *Viewer {
	v := &Viewer{stage: st, pacer: pacer, title: title}
	st.OnTick(v)
	return v
}

// Tick copies the finished frame for the next Draw, composited over the
// stage background.
func (v *Viewer) Tick(fb *raster.FrameBuffer) error {
	v.mu.Lock()
	v.latest = fb.Flatten(v.latest, v.stage.Background())
	v.dirty = true
	v.mu.Unlock()
	return nil
}

// Frame returns a copy of the last frame handed over by Tick, or nil.
func (v *Viewer) Frame() []uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.latest == nil {
		return nil
	}
	return append([]uint8(nil), v.latest.Data()...)
}

func (v *Viewer) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) || ebiten.IsKeyPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}
	return nil
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	v.mu.Lock()
	if v.dirty && v.latest != nil {
		w, h := v.latest.Width(), v.latest.Height()
		if v.img == nil || v.img.Bounds().Dx() != w || v.img.Bounds().Dy() != h {
			if v.img != nil {
				v.img.Deallocate()
			}
			v.img = ebiten.NewImage(w, h)
		}
		v.img.WritePixels(v.latest.Data())
		v.dirty = false
	}
	v.mu.Unlock()

	if v.img != nil {
		screen.DrawImage(v.img, nil)
	}
	v.pacer.Signal()
}

// Layout keeps the logical screen at the stage size; ebiten scales it to the
// window.
func (v *Viewer) Layout(_, _ int) (int, int) {
	if fb := v.stage.Target(); fb != nil {
		return fb.Width, fb.Height
	}
	return 1, 1
}

// Run opens the window and blocks until it is closed, Escape is pressed or
// ctx ends. It must be called from the main goroutine.
func (v *Viewer) Run(ctx context.Context) error {
	fb := v.stage.Target()
	if fb == nil {
		return stage.ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stageErr := make(chan error, 1)
	go func() {
		stageErr <- v.stage.Start(ctx)
	}()

	ebiten.SetWindowTitle(v.title)
	ebiten.SetWindowSize(fb.Width, fb.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err := ebiten.RunGame(&closer{Viewer: v, ctx: ctx})
	v.stage.Stop()
	cancel()
	<-stageErr

	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	logging.Logger().Debug("viewer closed", "ticks", v.stage.Ticks())
	return err
}

// closer ends the game loop once ctx is done.
type closer struct {
	*Viewer
	ctx context.Context
}

func (c *closer) Update() error {
	if c.ctx.Err() != nil {
		return ebiten.Termination
	}
	return c.Viewer.Update()
}
