package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"mode7-renderer/internal/app"
	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/stage"
	"mode7-renderer/internal/viewer"
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

	pacer := stage.NewSignalPacer()
	st := stage.New(pacer)
	if err := st.Configure(cfg.StageWidth, cfg.StageHeight, cfg.Background); err != nil {
		app.Fatal(err)
	}
	st.OnTick(raster.NewScene(r, nil))

	v := viewer.New(st, pacer, "Mode 7")
	if err := v.Run(ctx); err != nil {
		app.Fatal(err)
	}
}
