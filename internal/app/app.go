// Package app holds the start-up steps shared by the command-line tools:
// flag parsing, config resolution and building a renderer from textures.
package app

import (
	"context"
	"flag"
	"fmt"
	"os"

	"mode7-renderer/internal/config"
	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/raster"
	"mode7-renderer/internal/texture"
)

// CLI collects the flags every tool accepts.
type CLI struct {
	ConfigFile string
	Verbose    bool
	Flags      config.Flags
}

// RegisterFlags adds the common flags to fs.
func RegisterFlags(fs *flag.FlagSet) *CLI {
	c := &CLI{}
	fs.StringVar(&c.ConfigFile, "config", "", "Path to config.json file")
	fs.BoolVar(&c.Verbose, "v", false, "Verbose (debug) logging")
	fs.IntVar(&c.Flags.Width, "width", 0, "Stage width in pixels (default: 1024)")
	fs.IntVar(&c.Flags.Height, "height", 0, "Stage height in pixels (default: 768)")
	fs.StringVar(&c.Flags.Floor, "floor", "", "Floor texture path, URL or indexed name (default: floor.jpg)")
	fs.StringVar(&c.Flags.Ceiling, "ceiling", "", "Ceiling texture path, URL or indexed name (default: ceiling.jpg)")
	fs.StringVar(&c.Flags.TextureDir, "textures", "", "Directory to index texture names from")
	fs.IntVar(&c.Flags.Workers, "workers", 0, "Number of worker goroutines (default: NumCPU)")
	fs.StringVar(&c.Flags.Drift, "drift", "", "Texture drift: sine or sway (default: sine)")
	fs.StringVar(&c.Flags.Background, "bg", "", "Background colour as hex (default: #ffffff)")
	fs.IntVar(&c.Flags.FPS, "fps", 0, "Frames per second (default: 60)")
	return c
}

// Load reads the config file if one was given, applies the flags, installs
// the logger and validates the result.
func (c *CLI) Load() (config.Config, error) {
	logging.Setup(c.Verbose)

	var cfg config.Config
	if c.ConfigFile != "" {
		var err error
		cfg, err = config.Load(c.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
	}

	// CLI flags override config file
	cfg.Resolve(c.Flags)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Renderer loads the configured textures and returns a ready renderer.
// Texture failures are logged and replaced, never fatal.
func Renderer(ctx context.Context, cfg config.Config) (*raster.Renderer, error) {
	index := texture.BuildIndex(cfg.TextureDir)
	cache := texture.NewCache(index)
	if cfg.TextureDir != "" {
		logging.Logger().Info("textures indexed", "dir", cfg.TextureDir, "count", index.Len())
	}

	floor, ceiling, err := texture.LoadStage(ctx, cache, cfg.FloorTexture, cfg.CeilingTexture)
	if err != nil {
		logging.Logger().Warn("texture load", "err", err)
	}

	r, err := raster.NewRenderer(raster.Params{
		StageWidth:  cfg.StageWidth,
		StageHeight: cfg.StageHeight,
		FocalLength: cfg.FocalLength,
		ScaleFactor: cfg.ScaleFactor,
	}, floor, ceiling)
	if err != nil {
		return nil, err
	}
	r.SetDrift(raster.DriftFor(cfg.Drift))
	r.SetWorkers(cfg.Workers)
	return r, nil
}

// Fatal prints err the way every tool reports start-up failures and exits.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
