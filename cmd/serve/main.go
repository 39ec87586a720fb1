package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"mode7-renderer/internal/app"
	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/server"
)

func main() {
	cli := app.RegisterFlags(flag.CommandLine)
	flag.StringVar(&cli.Flags.ListenAddr, "addr", "", "Listen address (default: :2222, or :$PORT)")
	flag.Parse()

	if cli.Flags.ListenAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cli.Flags.ListenAddr = ":" + port
		}
	}

	cfg, err := cli.Load()
	if err != nil {
		app.Fatal(err)
	}

	// Generate host key if it doesn't exist
	if err := server.EnsureHostKey(cfg.HostKey); err != nil {
		app.Fatal(fmt.Errorf("host key: %w", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r, err := app.Renderer(ctx, cfg)
	if err != nil {
		app.Fatal(err)
	}

	port := cfg.ListenAddr[strings.LastIndex(cfg.ListenAddr, ":")+1:]
	logging.Logger().Info("connect with: ssh -t -p " + port + " localhost")

	srv := server.NewSSHServer(cfg.ListenAddr, cfg.HostKey, r, cfg.Background, cfg.FPS)
	if err := srv.Start(ctx); err != nil {
		app.Fatal(fmt.Errorf("SSH server: %w", err))
	}
}
