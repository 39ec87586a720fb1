// Package server streams the scene to SSH clients as ANSI half-block frames.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/present"
	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/stage"

	"github.com/gliderlabs/ssh"
	"github.com/gogpu/gg"
)

// SSHServer wraps the SSH listener. Every session gets its own stage and
// clock; the renderer and its textures are shared.
type SSHServer struct {
	renderer   *raster.Renderer
	background string
	fps        int
	addr       string
	hostKey    string
}

// NewSSHServer creates a new SSH server bound to the given address.
func NewSSHServer(addr, hostKey string, r *raster.Renderer, background string, fps int) *SSHServer {
	return &SSHServer{
		renderer:   r,
		background: background,
		fps:        fps,
		addr:       addr,
		hostKey:    hostKey,
	}
}

// Start listens for SSH connections until ctx ends.
func (s *SSHServer) Start(ctx context.Context) error {
	server := &ssh.Server{
		Addr: s.addr,
		Handler: func(sess ssh.Session) {
			s.handleSession(sess)
		},
	}

	// Set host key
	if err := server.SetOption(ssh.HostKeyFile(s.hostKey)); err != nil {
		return fmt.Errorf("set host key: %w", err)
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	logging.Logger().Info("SSH server listening", "addr", s.addr)
	err := server.ListenAndServe()
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *SSHServer) handleSession(sess ssh.Session) {
	log := logging.Logger().With("user", sess.User(), "remote", sess.RemoteAddr().String())

	// Require PTY
	ptyReq, winCh, ok := sess.Pty()
	if !ok {
		fmt.Fprintln(sess, "Error: PTY required. Use: ssh -t ...")
		return
	}

	bg, err := gg.ParseHex(s.background)
	if err != nil {
		fmt.Fprintf(sess, "Error: %v\n", err)
		return
	}

	p := s.renderer.Params()
	st := stage.New(stage.Interval(s.fps))
	if err := st.Configure(p.StageWidth, p.StageHeight, s.background); err != nil {
		fmt.Fprintf(sess, "Error: %v\n", err)
		return
	}
	sink := present.NewANSI(sess, ptyReq.Window.Width, ptyReq.Window.Height, bg)
	st.OnTick(raster.NewScene(s.renderer, nil))
	st.OnTick(sink)

	log.Info("viewer connected", "cols", ptyReq.Window.Width, "rows", ptyReq.Window.Height)

	// Setup terminal
	io.WriteString(sess, present.EnableAltScreen())
	io.WriteString(sess, present.HideCursor())
	io.WriteString(sess, present.ClearScreen())
	defer func() {
		io.WriteString(sess, present.Reset)
		io.WriteString(sess, present.ShowCursor())
		io.WriteString(sess, present.DisableAltScreen())
	}()

	ctx, cancel := context.WithCancel(sess.Context())
	defer cancel()

	// Goroutine: read input
	go func() {
		defer cancel()
		buf := make([]byte, 64)
		for {
			n, err := sess.Read(buf)
			if err != nil || wantsQuit(buf[:n]) {
				return
			}
		}
	}()

	// Goroutine: handle window resizes
	go func() {
		for {
			select {
			case win, ok := <-winCh:
				if !ok {
					return
				}
				sink.Resize(win.Width, win.Height)
			case <-ctx.Done():
				return
			}
		}
	}()

	st.Start(ctx)
	log.Info("viewer disconnected", "ticks", st.Ticks())
}

// wantsQuit reports whether data holds a quit key: q, Q, Ctrl-C or a lone
// Escape. Escape sequences such as arrow keys are skipped.
func wantsQuit(data []byte) bool {
	if len(data) == 1 && data[0] == 0x1b {
		return true
	}
	i := 0
	for i < len(data) {
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' {
			i += 3
			continue
		}

		r, size := utf8.DecodeRune(data[i:])
		switch r {
		case 'q', 'Q':
			return true
		case 3: // Ctrl-C
			return true
		}
		i += size
	}
	return false
}
