package present

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"mode7-renderer/internal/raster"

	"github.com/gogpu/gg"
)

const (
	ESC   = "\x1b"
	CSI   = ESC + "["
	Reset = CSI + "0m"
)

// Home moves the cursor to the top-left corner.
func Home() string { return CSI + "H" }

// ClearScreen clears the entire screen.
func ClearScreen() string { return CSI + "2J" }

// HideCursor hides the terminal cursor.
func HideCursor() string { return CSI + "?25l" }

// ShowCursor shows the terminal cursor.
func ShowCursor() string { return CSI + "?25h" }

// EnableAltScreen switches to the alternate screen buffer.
func EnableAltScreen() string { return CSI + "?1049h" }

// DisableAltScreen switches back from the alternate screen buffer.
func DisableAltScreen() string { return CSI + "?1049l" }

// ANSI writes frames as 24-bit colour escape sequences, for terminals
// reached through a plain byte stream such as an SSH channel.
type ANSI struct {
	w  io.Writer
	bg gg.RGBA

	mu   sync.Mutex
	cols int
	rows int
	sb   strings.Builder
}

// NewANSI returns a sink drawing cols x rows cells to w.
func NewANSI(w io.Writer, cols, rows int, bg gg.RGBA) *ANSI {
	return &ANSI{w: w, bg: bg, cols: cols, rows: rows}
}

// Resize changes the cell grid used from the next frame on. Safe to call
// while frames are being presented.
func (a *ANSI) Resize(cols, rows int) {
	a.mu.Lock()
	a.cols, a.rows = cols, rows
	a.mu.Unlock()
}

// Size returns the current cell grid.
func (a *ANSI) Size() (cols, rows int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cols, a.rows
}

func (a *ANSI) Present(fb *raster.FrameBuffer) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cells := Cells(fb, a.bg, a.cols, a.rows)
	if len(cells) == 0 {
		return nil
	}

	a.sb.Reset()
	a.sb.WriteString(Home())
	for y := 0; y < a.rows; y++ {
		if y > 0 {
			a.sb.WriteString("\r\n")
		}
		for x := 0; x < a.cols; x++ {
			writeCellSGR(&a.sb, cells[y*a.cols+x])
		}
		a.sb.WriteString(Reset)
	}

	_, err := io.WriteString(a.w, a.sb.String())
	return err
}

// Tick presents the frame.
func (a *ANSI) Tick(fb *raster.FrameBuffer) error { return a.Present(fb) }

// writeCellSGR writes one cell's full SGR and glyph. Each cell carries both
// colours so no state leaks between cells.
func writeCellSGR(sb *strings.Builder, c Cell) {
	sb.WriteString("\x1b[0;38;2;")
	sb.WriteString(strconv.Itoa(int(c.Upper.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.Upper.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.Upper.B)))
	sb.WriteString(";48;2;")
	sb.WriteString(strconv.Itoa(int(c.Lower.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.Lower.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.Lower.B)))
	sb.WriteByte('m')
	sb.WriteRune(HalfBlock)
}
