package octree

// Walk visits every terminal voxel in the tree in octant order and
// calls fn with its position and block. Walking stops early when fn
// returns false.
func (t *Tree) Walk(fn func(Position, uint16) bool) {
	t.walk(0, t.depth, Position{}, fn)
}

func (t *Tree) walk(idx, level uint32, origin Position, fn func(Position, uint16) bool) bool {
	if level == 0 {
		return fn(origin, t.nodes[idx].Block)
	}

	half := uint32(1) << (level - 1)
	for octant := uint8(0); octant < 8; octant++ {
		mask := uint8(1) << octant
		if t.nodes[idx].Valid&mask == 0 {
			continue
		}
		child := origin
		if octant&4 != 0 {
			child.X += half
		}
		if octant&2 != 0 {
			child.Y += half
		}
		if octant&1 != 0 {
			child.Z += half
		}
		if !t.walk(t.childSlot(idx, mask), level-1, child, fn) {
			return false
		}
	}
	return true
}
