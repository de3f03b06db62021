package world

import (
	"testing"

	"github.com/gogpu/vox/octree"
)

func TestGroundDeterministic(t *testing.T) {
	a := NewGround(42)
	b := NewGround(42)
	for x := uint32(0); x < 16; x++ {
		if a.HeightAt(x, x, 64) != b.HeightAt(x, x, 64) {
			t.Fatalf("height at (%d, %d) differs between same-seed generators", x, x)
		}
	}
}

func TestHeightWithinWorld(t *testing.T) {
	g := NewGround(7)
	const size = 64
	for x := uint32(0); x < size; x += 5 {
		for z := uint32(0); z < size; z += 5 {
			h := g.HeightAt(x, z, size)
			if h > size {
				t.Errorf("height %d at (%d, %d) exceeds world size %d", h, x, z, size)
			}
		}
	}
}

// Flat-ground scenario: every column must be solid from the bottom up to
// its height and air above it.
func TestFillGroundColumns(t *testing.T) {
	g := NewGround(1)
	tr := octree.New(4) // 16^3 world keeps the test quick
	voxels, err := g.Fill(tr)
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if voxels == 0 {
		t.Fatal("Fill wrote no voxels")
	}

	size := tr.Size()
	for x := uint32(0); x < size; x++ {
		for z := uint32(0); z < size; z++ {
			height := g.HeightAt(x, z, size)
			for y := uint32(0); y < size; y++ {
				block, ok := tr.Lookup(octree.Position{X: x, Y: y, Z: z})
				if y < height {
					if !ok || block != BlockGrass {
						t.Fatalf("(%d,%d,%d) = (%d, %v), want ground", x, y, z, block, ok)
					}
				} else if ok {
					t.Fatalf("(%d,%d,%d) solid above ground height %d", x, y, z, height)
				}
			}
		}
	}
}

func TestVolumeMatchesHeightfield(t *testing.T) {
	g := NewGround(3)
	const size = 8
	rgba, sdf := g.Volume(size)

	cells := size * size * size
	if len(rgba) != cells*4 || len(sdf) != cells*4 {
		t.Fatalf("volume sizes = %d, %d, want %d", len(rgba), len(sdf), cells*4)
	}

	i := 0
	for x := uint32(0); x < size; x++ {
		for y := uint32(0); y < size; y++ {
			for z := uint32(0); z < size; z++ {
				solid := y < g.HeightAt(x, z, size)
				if solid {
					if rgba[i*4+3] != 1.0 || sdf[i*4] != 0 {
						t.Fatalf("cell (%d,%d,%d): solid cell not opaque/zero-distance", x, y, z)
					}
				} else {
					if rgba[i*4+3] != 0 || sdf[i*4] != sdfOutside {
						t.Fatalf("cell (%d,%d,%d): empty cell not transparent/outside", x, y, z)
					}
				}
				i++
			}
		}
	}
}
