package texture

import (
	"os"
	"path/filepath"
	"strings"
)

// Index maps lower-case texture stems to filesystem paths.
// Formats that carry alpha take priority over opaque ones for the same stem.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// alphaExt lists extensions whose decoders can produce transparency.
var alphaExt = map[string]bool{
	".png":  true,
	".tga":  true,
	".webp": true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// BuildIndex scans dir and its subdirectories for decodable images.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[string]string)}
	if dir == "" {
		return idx
	}

	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !SupportedExt(ext) {
			return nil
		}
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

		existing, exists := idx.entries[stem]
		if !exists {
			idx.entries[stem] = path
		} else if alphaExt[ext] && !alphaExt[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[stem] = path
		}
		return nil
	})

	return idx
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
// Directory prefixes and extensions in name are ignored.
func (idx *Index) ResolvePath(name string) (string, bool) {
	if idx == nil {
		return "", false
	}
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))

	path, ok := idx.entries[stem]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}
