package octree

import (
	"fmt"
	"math/bits"
)

// Position is an unsigned voxel coordinate inside a tree's cubic region.
// A tree of depth d spans [0, 2^d) on each axis.
type Position struct {
	X, Y, Z uint32
}

// PositionHierarchy encodes a position as a sequence of octant masks,
// one per tree level, most significant level first.
//
// At each level the remaining region is halved per axis. The octant
// index packs the three half-selection bits as 4*px + 2*py + pz, and
// the emitted mask is 1 << index. The result always has exactly depth
// entries, each with a single bit set.
func PositionHierarchy(pos Position, depth uint32) []uint8 {
	hierarchy := make([]uint8, 0, depth)
	for level := depth; level > 0; level-- {
		half := uint32(1) << (level - 1)

		var index uint8
		if pos.X&half != 0 {
			index |= 4
		}
		if pos.Y&half != 0 {
			index |= 2
		}
		if pos.Z&half != 0 {
			index |= 1
		}
		hierarchy = append(hierarchy, 1<<index)
	}
	return hierarchy
}

// HierarchyPosition decodes an octant-mask sequence back into the
// position it addresses. Inverse of PositionHierarchy for sequences
// of valid single-bit masks.
func HierarchyPosition(hierarchy []uint8) Position {
	var pos Position
	levels := uint32(len(hierarchy))
	for i, mask := range hierarchy {
		index := maskIndex(mask)
		half := uint32(1) << (levels - uint32(i) - 1)
		if index&4 != 0 {
			pos.X |= half
		}
		if index&2 != 0 {
			pos.Y |= half
		}
		if index&1 != 0 {
			pos.Z |= half
		}
	}
	return pos
}

// maskIndex returns the octant index of a single-bit mask.
// A mask with zero or multiple bits set is a programming error.
func maskIndex(mask uint8) uint8 {
	if bits.OnesCount8(mask) != 1 {
		panic(fmt.Sprintf("octree: octant mask %#02x must have exactly one bit set", mask))
	}
	return uint8(bits.TrailingZeros8(mask))
}
