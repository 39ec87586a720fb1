package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gogpu/gg"
)

// Config holds the stage geometry, texture sources and output settings.
type Config struct {
	// Stage
	StageWidth  int     `json:"stage_width"`
	StageHeight int     `json:"stage_height"`
	FocalLength float64 `json:"focal_length"`
	ScaleFactor float64 `json:"scale_factor"`
	Background  string  `json:"background"`
	Drift       string  `json:"drift"`

	// Textures
	TextureDir     string `json:"texture_dir"`
	FloorTexture   string `json:"floor_texture"`
	CeilingTexture string `json:"ceiling_texture"`

	// Export
	OutputDir string `json:"output_dir"`
	Frames    int    `json:"frames"`
	FPS       int    `json:"fps"`
	Format    string `json:"format"`
	Workers   int    `json:"workers"`

	// SSH server
	ListenAddr string `json:"listen_addr"`
	HostKey    string `json:"host_key"`

	// baseDir is the directory of the loaded config file; relative paths
	// in the file are resolved against it.
	baseDir string
}

// Drift modes.
const (
	DriftSine = "sine"
	DriftSway = "sway"
)

// MaxFPS is the highest frame rate a paced host may ask for.
const MaxFPS = 1000

// Output formats.
const (
	FormatWebP = "webp"
	FormatPNG  = "png"
)

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Width      int
	Height     int
	Floor      string
	Ceiling    string
	TextureDir string
	OutputDir  string
	Frames     int
	FPS        int
	Format     string
	Workers    int
	Drift      string
	Background string
	ListenAddr string
}

// Resolve applies flag overrides and fills in defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Width > 0 {
		c.StageWidth = flags.Width
	}
	if flags.Height > 0 {
		c.StageHeight = flags.Height
	}
	if flags.Floor != "" {
		c.FloorTexture = flags.Floor
	}
	if flags.Ceiling != "" {
		c.CeilingTexture = flags.Ceiling
	}
	if flags.TextureDir != "" {
		c.TextureDir = flags.TextureDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.FPS > 0 {
		c.FPS = flags.FPS
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Drift != "" {
		c.Drift = flags.Drift
	}
	if flags.Background != "" {
		c.Background = flags.Background
	}
	if flags.ListenAddr != "" {
		c.ListenAddr = flags.ListenAddr
	}

	// Stage defaults
	if c.StageWidth == 0 {
		c.StageWidth = 1024
	}
	if c.StageHeight == 0 {
		c.StageHeight = 768
	}
	if c.FocalLength == 0 {
		c.FocalLength = 250
	}
	if c.ScaleFactor == 0 {
		c.ScaleFactor = 100
	}
	if c.Background == "" {
		c.Background = "#ffffff"
	}
	if c.Drift == "" {
		c.Drift = DriftSine
	}

	if c.FloorTexture == "" {
		c.FloorTexture = "floor.jpg"
	}
	if c.CeilingTexture == "" {
		c.CeilingTexture = "ceiling.jpg"
	}

	if c.OutputDir == "" {
		c.OutputDir = "frames"
	}
	if c.Frames <= 0 {
		c.Frames = 60
	}
	if c.FPS <= 0 {
		c.FPS = 60
	}
	if c.Format == "" {
		c.Format = FormatWebP
	}
	c.Format = strings.ToLower(c.Format)
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}

	if c.ListenAddr == "" {
		c.ListenAddr = ":2222"
	}
	if c.HostKey == "" {
		c.HostKey = "host_key"
	}

	// Resolve relative paths against the config file directory
	if c.baseDir != "" {
		c.TextureDir = c.resolvePath(c.TextureDir)
		c.OutputDir = c.resolvePath(c.OutputDir)
		c.HostKey = c.resolvePath(c.HostKey)
		if c.TextureDir == "" {
			c.FloorTexture = c.resolvePath(c.FloorTexture)
			c.CeilingTexture = c.resolvePath(c.CeilingTexture)
		}
	}
}

func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// Validate rejects configurations no tick could run with.
func (c *Config) Validate() error {
	checks := []error{
		Positive("stage_width", c.StageWidth),
		Positive("stage_height", c.StageHeight),
		Positive("focal_length", c.FocalLength),
		Positive("scale_factor", c.ScaleFactor),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if c.FPS > MaxFPS {
		return &ConfigurationError{Field: "fps", Value: c.FPS, Reason: fmt.Sprintf("must be at most %d", MaxFPS)}
	}
	if _, err := gg.ParseHex(c.Background); err != nil {
		return &ConfigurationError{Field: "background", Value: c.Background, Reason: "must be a hex colour"}
	}
	if c.Drift != DriftSine && c.Drift != DriftSway {
		return &ConfigurationError{Field: "drift", Value: c.Drift, Reason: "must be sine or sway"}
	}
	if c.Format != FormatWebP && c.Format != FormatPNG {
		return &ConfigurationError{Field: "format", Value: c.Format, Reason: "must be webp or png"}
	}
	if c.FloorTexture == "" {
		return &ConfigurationError{Field: "floor_texture", Value: c.FloorTexture, Reason: "must not be empty"}
	}
	return nil
}
