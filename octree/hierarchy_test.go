package octree

import (
	"math/bits"
	"testing"
)

func TestPositionHierarchyLength(t *testing.T) {
	for depth := uint32(1); depth <= 8; depth++ {
		h := PositionHierarchy(Position{}, depth)
		if len(h) != int(depth) {
			t.Errorf("depth %d: got %d masks, want %d", depth, len(h), depth)
		}
	}
}

func TestPositionHierarchySingleBitMasks(t *testing.T) {
	positions := []Position{
		{0, 0, 0},
		{7, 7, 7},
		{3, 5, 1},
		{6, 0, 4},
	}
	for _, pos := range positions {
		for _, mask := range PositionHierarchy(pos, 3) {
			if bits.OnesCount8(mask) != 1 {
				t.Errorf("pos %v: mask %#02x has %d bits set", pos, mask, bits.OnesCount8(mask))
			}
		}
	}
}

func TestPositionHierarchyOctantOrder(t *testing.T) {
	// At depth 1 the mask directly encodes 4x + 2y + z.
	cases := []struct {
		pos  Position
		mask uint8
	}{
		{Position{0, 0, 0}, 1 << 0},
		{Position{0, 0, 1}, 1 << 1},
		{Position{0, 1, 0}, 1 << 2},
		{Position{0, 1, 1}, 1 << 3},
		{Position{1, 0, 0}, 1 << 4},
		{Position{1, 0, 1}, 1 << 5},
		{Position{1, 1, 0}, 1 << 6},
		{Position{1, 1, 1}, 1 << 7},
	}
	for _, tc := range cases {
		h := PositionHierarchy(tc.pos, 1)
		if len(h) != 1 || h[0] != tc.mask {
			t.Errorf("pos %v: got %#02x, want %#02x", tc.pos, h[0], tc.mask)
		}
	}
}

func TestHierarchyRoundTrip(t *testing.T) {
	for depth := uint32(1); depth <= 6; depth++ {
		size := uint32(1) << depth
		step := size/4 + 1
		for x := uint32(0); x < size; x += step {
			for y := uint32(0); y < size; y += step {
				for z := uint32(0); z < size; z += step {
					pos := Position{x, y, z}
					got := HierarchyPosition(PositionHierarchy(pos, depth))
					if got != pos {
						t.Fatalf("depth %d: round trip %v -> %v", depth, pos, got)
					}
				}
			}
		}
	}
}

func TestMaskIndexPanicsOnMultiBit(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for multi-bit mask")
		}
	}()
	maskIndex(0b11)
}

func TestMaskIndexPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero mask")
		}
	}()
	maskIndex(0)
}
