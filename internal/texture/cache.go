package texture

import (
	"context"
	"errors"
	"image/color"
	"sync"

	"mode7-renderer/internal/logging"
)

// Resolver resolves a texture name to a loaded sampler.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*Sampler, error)
}

// Cache is a concurrency-safe sampler cache. Each distinct source is decoded
// once, so a floor and ceiling naming the same texture share one sampler.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	index *Index
}

type cacheEntry struct {
	sampler *Sampler
	err     error // load failure, returned again on later lookups
}

// NewCache creates a cache backed by index. Names missing from the index
// (or all names, when index is nil) are used as source ids directly.
func NewCache(index *Index) *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		index: index,
	}
}

// Resolve loads and caches a texture by name. On failure the returned
// sampler is empty and the error is a *LoadError.
func (c *Cache) Resolve(ctx context.Context, name string) (*Sampler, error) {
	source := name
	if p, ok := c.index.ResolvePath(name); ok {
		source = p
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[source]; exists {
		c.mu.RUnlock()
		return entry.sampler, entry.err
	}
	c.mu.RUnlock()

	// Slow path: fetch and decode
	s := New(source)
	err := s.Load(ctx)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[source]; exists {
		return entry.sampler, entry.err
	}
	c.items[source] = &cacheEntry{sampler: s, err: err}

	return s, err
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Placeholder colours for a floor that failed to load.
var (
	placeholderA = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	placeholderB = color.NRGBA{R: 90, G: 90, B: 110, A: 255}
)

// LoadStage resolves the floor and ceiling textures concurrently.
// A floor that fails to load is replaced by a checkerboard and a ceiling that
// fails (or is empty) reuses the floor, so rendering can always proceed. The
// returned error joins the load failures and is informational only.
func LoadStage(ctx context.Context, r Resolver, floorName, ceilingName string) (floor, ceiling *Sampler, err error) {
	var floorErr, ceilingErr error
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		floor, floorErr = r.Resolve(ctx, floorName)
	}()
	if ceilingName != "" && ceilingName != floorName {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ceiling, ceilingErr = r.Resolve(ctx, ceilingName)
		}()
	}
	wg.Wait()

	log := logging.Logger()
	if floorErr != nil || floor == nil || !floor.Loaded() {
		log.Warn("floor texture unavailable, using checkerboard", "source", floorName, "err", floorErr)
		floor = Checker("placeholder:"+floorName, 64, 64, 8, placeholderA, placeholderB)
	}
	if ceilingErr != nil || ceiling == nil || !ceiling.Loaded() {
		if ceilingErr != nil {
			log.Warn("ceiling texture unavailable, reusing floor", "source", ceilingName, "err", ceilingErr)
		}
		ceiling = floor
	}

	return floor, ceiling, errors.Join(floorErr, ceilingErr)
}
