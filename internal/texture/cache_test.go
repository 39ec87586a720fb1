package texture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestBuildIndexPrefersAlpha(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "stage")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Floor.jpg", "floor.png", "stage/ceiling.bmp", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	idx := BuildIndex(dir)
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
	if p, ok := idx.ResolvePath("textures\\FLOOR.jpg"); !ok || filepath.Base(p) != "floor.png" {
		t.Errorf("ResolvePath(FLOOR.jpg) = %q, %v, want floor.png", p, ok)
	}
	if p, ok := idx.ResolvePath("ceiling"); !ok || p != filepath.Join(sub, "ceiling.bmp") {
		t.Errorf("ResolvePath(ceiling) = %q, %v", p, ok)
	}
	if _, ok := idx.ResolvePath("readme"); ok {
		t.Error("ResolvePath(readme) found an unsupported file")
	}

	var nilIdx *Index
	if _, ok := nilIdx.ResolvePath("floor"); ok || nilIdx.Len() != 0 {
		t.Error("nil Index should resolve nothing")
	}
}

func TestCacheSharesSampler(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "floor.png"), testImage(4, 4))
	cache := NewCache(BuildIndex(dir))

	var wg sync.WaitGroup
	got := make([]*Sampler, 6)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := cache.Resolve(context.Background(), "floor.jpg")
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
			}
			got[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Fatalf("Resolve returned distinct samplers for the same source")
		}
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCacheRemembersFailure(t *testing.T) {
	cache := NewCache(nil)
	missing := filepath.Join(t.TempDir(), "gone.png")

	s1, err1 := cache.Resolve(context.Background(), missing)
	s2, err2 := cache.Resolve(context.Background(), missing)
	if err1 == nil || err2 == nil {
		t.Fatal("Resolve(missing) error = nil, want error")
	}
	if s1 != s2 {
		t.Error("failed lookups should share one entry")
	}
	if s1.Loaded() {
		t.Error("failed sampler reports Loaded")
	}
}

func TestLoadStage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "floor.png"), testImage(4, 4))
	writePNG(t, filepath.Join(dir, "ceiling.png"), testImage(2, 2))

	t.Run("distinct", func(t *testing.T) {
		floor, ceiling, err := LoadStage(context.Background(), NewCache(BuildIndex(dir)), "floor", "ceiling")
		if err != nil {
			t.Fatalf("LoadStage() error = %v", err)
		}
		if w, _ := floor.Size(); w != 4 {
			t.Errorf("floor width = %d, want 4", w)
		}
		if w, _ := ceiling.Size(); w != 2 {
			t.Errorf("ceiling width = %d, want 2", w)
		}
	})

	t.Run("same name", func(t *testing.T) {
		floor, ceiling, err := LoadStage(context.Background(), NewCache(BuildIndex(dir)), "floor", "floor")
		if err != nil {
			t.Fatalf("LoadStage() error = %v", err)
		}
		if floor != ceiling {
			t.Error("same name should yield one sampler")
		}
	})

	t.Run("ceiling missing", func(t *testing.T) {
		floor, ceiling, err := LoadStage(context.Background(), NewCache(BuildIndex(dir)), "floor", filepath.Join(dir, "nope.png"))
		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("LoadStage() error = %v, want *LoadError", err)
		}
		if ceiling != floor {
			t.Error("failed ceiling should reuse floor")
		}
	})

	t.Run("floor missing", func(t *testing.T) {
		floor, ceiling, err := LoadStage(context.Background(), NewCache(nil), filepath.Join(dir, "nope.png"), "")
		if err == nil {
			t.Fatal("LoadStage() error = nil, want error")
		}
		if w, h := floor.Size(); w != 64 || h != 64 {
			t.Errorf("placeholder size = %d,%d, want 64,64", w, h)
		}
		if floor.Sample(0, 0) != placeholderA || floor.Sample(8, 0) != placeholderB {
			t.Error("placeholder is not a checkerboard")
		}
		if ceiling != floor {
			t.Error("ceiling should reuse placeholder floor")
		}
	})
}
