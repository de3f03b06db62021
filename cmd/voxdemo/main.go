// Command voxdemo renders a procedural voxel world offscreen and saves
// a heightfield preview of the generated terrain.
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/vox"
	"github.com/gogpu/vox/world"
)

func main() {
	var (
		width    = flag.Uint("width", 960, "render width")
		height   = flag.Uint("height", 540, "render height")
		distance = flag.Uint("distance", 1, "render distance in chunks")
		depth    = flag.Uint("depth", 5, "octree depth, 2^depth voxels per edge")
		seed     = flag.Int64("seed", 42, "terrain seed")
		frames   = flag.Int("frames", 60, "frames to render")
		output   = flag.String("output", "terrain.png", "terrain preview file")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		vox.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	eng, err := vox.New(
		vox.WithSize(uint32(*width), uint32(*height)),
		vox.WithRenderDistance(uint32(*distance)),
		vox.WithWorldDepth(uint32(*depth)),
		vox.WithSeed(*seed),
	)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	voxels, err := eng.GenerateGround()
	if err != nil {
		log.Fatalf("Failed to generate terrain: %v", err)
	}
	eng.SetCamera(vox.DefaultCamera())

	batch := vox.DefaultBatch()
	for i := 0; i < *frames; i++ {
		if err := eng.DrawBatch(batch); err != nil {
			log.Fatalf("Frame %d failed: %v", i, err)
		}
	}

	size := uint32(1) << *depth
	if err := savePreview(*output, *seed, size, int(*width), int(*height)); err != nil {
		log.Fatalf("Failed to save preview: %v", err)
	}

	log.Printf("Rendered %d frames of %d voxels, preview saved to %s (%dx%d)\n",
		eng.Frames(), voxels, *output, *width, *height)
}

// savePreview writes a top-down heightfield image of the terrain,
// scaled to the output extent.
func savePreview(path string, seed int64, size uint32, w, h int) error {
	g := world.NewGround(seed)

	src := image.NewRGBA(image.Rect(0, 0, int(size), int(size)))
	for x := uint32(0); x < size; x++ {
		for z := uint32(0); z < size; z++ {
			hgt := g.HeightAt(x, z, size)
			shade := uint8(255 * hgt / size)
			src.Set(int(x), int(z), color.RGBA{R: shade / 4, G: shade, B: shade / 3, A: 255})
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dst)
}
