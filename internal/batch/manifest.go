package batch

import (
	"encoding/json"
	"os"
)

// Manifest describes an export run.
type Manifest struct {
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	FPS       int             `json:"fps"`
	Animation string          `json:"animation,omitempty"`
	Frames    []ManifestEntry `json:"frames"`
}

// ManifestEntry represents one rendered frame in the output manifest.
type ManifestEntry struct {
	Frame int     `json:"frame"`
	Time  float64 `json:"time"`
	Image string  `json:"image"`
}

// WriteManifest writes the successful frames of results to path.
func WriteManifest(path string, cfg Config, results []Result) error {
	m := Manifest{
		FPS:       cfg.FPS,
		Animation: cfg.Animation,
		Frames:    make([]ManifestEntry, 0, len(results)),
	}
	if cfg.Renderer != nil {
		p := cfg.Renderer.Params()
		m.Width, m.Height = p.StageWidth, p.StageHeight
	}
	for _, r := range results {
		if !r.Success {
			continue
		}
		m.Frames = append(m.Frames, ManifestEntry{Frame: r.Frame, Time: r.Time, Image: r.Image})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
