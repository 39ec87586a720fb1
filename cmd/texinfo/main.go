package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"

	"mode7-renderer/internal/logging"
	"mode7-renderer/internal/texture"
)

func main() {
	dir := flag.String("textures", "", "Directory to resolve bare texture names against")
	verbose := flag.Bool("v", false, "Verbose (debug) logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-textures dir] texture...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	logging.Setup(*verbose)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Build texture index
	idx := texture.BuildIndex(*dir)
	if *dir != "" {
		fmt.Printf("Textures: %d indexed in %s\n", idx.Len(), *dir)
	}

	failed := false
	for _, name := range flag.Args() {
		source := name
		if p, ok := idx.ResolvePath(name); ok {
			source = p
		}
		tex, err := texture.LoadTexture(context.Background(), source)
		if err != nil {
			fmt.Printf("%s: %v\n", name, err)
			failed = true
			continue
		}
		checkNRGBAAlpha(tex, source)

		// Also check a few specific pixels
		b := tex.Bounds()
		for _, p := range [][2]int{{0, 0}, {b.Dx() / 2, b.Dy() / 2}, {b.Dx() - 1, b.Dy() - 1}} {
			c := tex.NRGBAAt(b.Min.X+p[0], b.Min.Y+p[1])
			fmt.Printf("  Pixel(%d,%d): R=%d G=%d B=%d A=%d\n", p[0], p[1], c.R, c.G, c.B, c.A)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkNRGBAAlpha(tex *image.NRGBA, name string) {
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	var minA, maxA uint8 = 255, 0
	total := 0
	opaque := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := tex.Pix[y*tex.Stride+x*4+3]
			total++
			if a < minA {
				minA = a
			}
			if a > maxA {
				maxA = a
			}
			if a == 255 {
				opaque++
			}
		}
	}
	fmt.Printf("%s: %dx%d, alpha: min=%d max=%d opaque=%d/%d (%.0f%%)\n",
		name, w, h, minA, maxA, opaque, total, 100*float64(opaque)/float64(max(total, 1)))
}
