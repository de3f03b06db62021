// Package world generates procedural voxel terrain for a renderer world.
// Generation is deterministic per seed and operates on plain octrees and
// float slices, so it needs no GPU to run or test.
package world

import (
	"github.com/aquilax/go-perlin"

	"github.com/gogpu/vox/octree"
)

// BlockGrass is the block id written for ground voxels.
const BlockGrass uint16 = 1

// groundColor is the RGBA albedo stored per ground voxel in the volume.
var groundColor = [4]float32{0.0, 0.6, 0.1, 1.0}

// sdfOutside is the seed distance for empty cells before the JFA passes
// tighten the field.
const sdfOutside float32 = 100000.0

// Ground is a Perlin-noise heightfield terrain generator. A column's
// height is a third of the world edge plus a scaled noise sample.
type Ground struct {
	noise *perlin.Perlin
}

// NewGround creates a generator for the given seed.
func NewGround(seed int64) *Ground {
	return &Ground{
		noise: perlin.NewPerlin(2, 2, 3, seed),
	}
}

// HeightAt returns the exclusive ground height of column (x, z) in a
// world of the given edge length. Voxels with y below the height are
// solid.
func (g *Ground) HeightAt(x, z, size uint32) uint32 {
	base := int64(size / 3)
	offset := int64(10.0 * g.noise.Noise2D(float64(x)/32.0, float64(z)/32.0))
	h := base + offset
	if h < 0 {
		h = 0
	}
	if h > int64(size) {
		h = int64(size)
	}
	return uint32(h)
}

// Fill inserts ground voxels into the tree and returns how many voxels
// were written. The tree's edge length bounds the generated region.
func (g *Ground) Fill(tr *octree.Tree) (int, error) {
	size := tr.Size()
	voxels := 0
	for x := uint32(0); x < size; x++ {
		for z := uint32(0); z < size; z++ {
			height := g.HeightAt(x, z, size)
			for y := uint32(0); y < height; y++ {
				if err := tr.Insert(octree.Position{X: x, Y: y, Z: z}, BlockGrass); err != nil {
					return voxels, err
				}
				voxels++
			}
		}
	}
	return voxels, nil
}

// Volume produces the RGBA32F albedo volume and the matching SDF seed
// volume for a world of the given edge length, both in x-major,
// z-fastest order. Solid cells carry the ground color and distance 0;
// empty cells are transparent with a large outside distance.
func (g *Ground) Volume(size uint32) (rgba []float32, sdf []float32) {
	cells := int(size) * int(size) * int(size)
	rgba = make([]float32, cells*4)
	sdf = make([]float32, cells*4)

	i := 0
	for x := uint32(0); x < size; x++ {
		for y := uint32(0); y < size; y++ {
			for z := uint32(0); z < size; z++ {
				height := g.HeightAt(x, z, size)
				if y < height {
					copy(rgba[i*4:i*4+4], groundColor[:])
					// sdf distance stays 0 inside the ground.
				} else {
					sdf[i*4] = sdfOutside
				}
				i++
			}
		}
	}
	return rgba, sdf
}
