package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"mode7-renderer/internal/app"
	"mode7-renderer/internal/present"
	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/stage"

	"github.com/gdamore/tcell/v2"
	"github.com/gogpu/gg"
)

func main() {
	cli := app.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := cli.Load()
	if err != nil {
		app.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := app.Renderer(ctx, cfg)
	if err != nil {
		app.Fatal(err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		app.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		app.Fatal(err)
	}
	defer screen.Fini()

	bg, _ := gg.ParseHex(cfg.Background) // checked by Validate
	st := stage.New(stage.Interval(cfg.FPS))
	if err := st.Configure(cfg.StageWidth, cfg.StageHeight, cfg.Background); err != nil {
		screen.Fini()
		app.Fatal(err)
	}
	st.OnTick(raster.NewScene(r, nil))
	st.OnTick(present.NewTerminal(screen, bg))

	go func() {
		for handleInput(screen.PollEvent(), screen) {
		}
		stop()
	}()

	if err := st.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		screen.Fini()
		app.Fatal(err)
	}
}

// handleInput reports whether the loop should keep running.
func handleInput(ev tcell.Event, screen tcell.Screen) bool {
	switch ev := ev.(type) {
	case nil:
		// Screen finalised.
		return false
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
			(ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q')) {
			return false
		}
	case *tcell.EventResize:
		screen.Sync()
	}
	return true
}
