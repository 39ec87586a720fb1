package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"mode7-renderer/internal/app"
	"mode7-renderer/internal/batch"
)

func main() {
	// CLI flags
	cli := app.RegisterFlags(flag.CommandLine)
	frames := flag.Int("frames", 0, "Number of frames to render (default: 60)")
	outputDir := flag.String("output", "", "Output directory (default: frames)")
	format := flag.String("format", "", "Frame format: webp or png (default: webp)")
	anim := flag.String("anim", "", "Also write an animated WebP with this name into the output directory")

	flag.Parse()

	cli.Flags.Frames = *frames
	cli.Flags.OutputDir = *outputDir
	cli.Flags.Format = *format

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
	// Frames render in parallel; rows within a frame do not.
	r.SetWorkers(1)

	fmt.Printf("Mode 7 frame export → %s\n", cfg.Format)
	fmt.Printf("Stage: %s\n", r.Params())
	fmt.Printf("Frames: %d @ %d fps, Workers: %d\n", cfg.Frames, cfg.FPS, cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		OutputDir:  cfg.OutputDir,
		Format:     cfg.Format,
		Renderer:   r,
		Background: cfg.Background,
		Frames:     cfg.Frames,
		FPS:        cfg.FPS,
		Workers:    cfg.Workers,
		Animation:  *anim,
	}

	results, runErr := batch.Run(ctx, batchCfg)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, cfg.Frames)

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(len(errors), 20)
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Image, e.Error)
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := batch.WriteManifest(manifestPath, batchCfg, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 || runErr != nil {
		os.Exit(1)
	}
}
