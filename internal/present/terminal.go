package present

import (
	"mode7-renderer/internal/raster"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"
)

// Terminal draws frames on a tcell screen, two pixels per cell. The screen
// size is read on every frame, so resizes take effect on the next tick.
type Terminal struct {
	screen tcell.Screen
	bg     gg.RGBA
}

// NewTerminal wraps an initialised screen.
func NewTerminal(screen tcell.Screen, bg gg.RGBA) *Terminal {
	return &Terminal{screen: screen, bg: bg}
}

func (t *Terminal) Present(fb *raster.FrameBuffer) error {
	cols, rows := t.screen.Size()
	cells := Cells(fb, t.bg, cols, rows)
	for i, c := range cells {
		style := tcell.StyleDefault.
			Foreground(tcell.NewRGBColor(int32(c.Upper.R), int32(c.Upper.G), int32(c.Upper.B))).
			Background(tcell.NewRGBColor(int32(c.Lower.R), int32(c.Lower.G), int32(c.Lower.B)))
		t.screen.SetContent(i%cols, i/cols, HalfBlock, nil, style)
	}
	t.screen.Show()
	return nil
}

// Tick presents the frame.
func (t *Terminal) Tick(fb *raster.FrameBuffer) error { return t.Present(fb) }
