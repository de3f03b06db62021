// Package octree implements a sparse voxel octree stored in a single
// growable node array.
//
// Children of a node are kept as one contiguous sibling run, ordered by
// octant index and compacted: only octants present in the parent's valid
// mask occupy a slot. Descent finds a child's slot with a popcount over
// the valid bits below its mask, so lookups never touch absent octants.
//
// Insertion never moves the root and never shrinks the array. When a new
// octant joins a node, the node's children are reallocated as a fresh run
// appended at the end of the array; the old run stays behind as dead
// space. There is no delete and no reclamation.
package octree

import (
	"errors"
	"math/bits"
)

// NoChildren is the child sentinel for a node without any children.
const NoChildren = ^uint32(0)

// BlockAir is the block value of unset voxels.
const BlockAir uint16 = 42069

// ErrOutOfBounds is returned when a position lies outside the tree's
// cubic region.
var ErrOutOfBounds = errors.New("octree: position outside tree bounds")

// Node is a single octree node.
//
// Child indexes the first slot of the node's sibling run, or NoChildren.
// Valid marks which octants exist in that run. Block carries the voxel
// payload on terminal nodes and BlockAir everywhere else.
type Node struct {
	Child uint32
	Valid uint8
	Block uint16
}

// emptyNode returns the sentinel node: no children, air payload.
func emptyNode() Node {
	return Node{Child: NoChildren, Valid: 0, Block: BlockAir}
}

// Stats reports the array occupancy of a tree.
type Stats struct {
	// Nodes is the total array length, dead slots included.
	Nodes int
	// DeadNodes counts slots orphaned by child-run reallocation.
	DeadNodes int
}

// Tree is a sparse voxel octree with a fixed depth. The root lives at
// index 0 and never moves. Not safe for concurrent use.
type Tree struct {
	depth uint32
	nodes []Node
	dead  int
}

// New creates an empty tree of the given depth. A tree of depth d
// addresses a cube of 2^d voxels per edge.
func New(depth uint32) *Tree {
	return &Tree{
		depth: depth,
		nodes: []Node{emptyNode()},
	}
}

// Depth returns the tree's fixed depth.
func (t *Tree) Depth() uint32 { return t.depth }

// Size returns the edge length of the addressed cube.
func (t *Tree) Size() uint32 { return 1 << t.depth }

// Len returns the node array length, dead slots included.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes exposes the backing array for upload. The slice is live;
// callers must not retain it across an Insert.
func (t *Tree) Nodes() []Node { return t.nodes }

// Stats returns occupancy counters.
func (t *Tree) Stats() Stats {
	return Stats{Nodes: len(t.nodes), DeadNodes: t.dead}
}

// Insert sets the block value of the voxel at pos, creating every
// missing level on the way down. Inserting the same position twice is
// a no-op on the second call apart from overwriting the block value.
func (t *Tree) Insert(pos Position, block uint16) error {
	if !t.contains(pos) {
		return ErrOutOfBounds
	}

	cur := uint32(0)
	for _, mask := range PositionHierarchy(pos, t.depth) {
		if t.nodes[cur].Valid&mask == 0 {
			t.growChildren(cur, mask)
		}
		cur = t.childSlot(cur, mask)
	}
	t.nodes[cur].Block = block
	return nil
}

// Lookup returns the block value at pos. The second result is false
// when any level on the path is absent; the block is then BlockAir.
func (t *Tree) Lookup(pos Position) (uint16, bool) {
	if !t.contains(pos) {
		return BlockAir, false
	}

	cur := uint32(0)
	for _, mask := range PositionHierarchy(pos, t.depth) {
		node := t.nodes[cur]
		// A set valid bit without an allocated run is treated as absent.
		if node.Valid&mask == 0 || node.Child == NoChildren {
			return BlockAir, false
		}
		cur = t.childSlot(cur, mask)
	}
	return t.nodes[cur].Block, true
}

// childSlot resolves the array index of the child addressed by mask.
// The mask must be a single present bit of the node's valid mask.
func (t *Tree) childSlot(node uint32, mask uint8) uint32 {
	valid := t.nodes[node].Valid
	if bits.OnesCount8(mask) != 1 {
		panic("octree: descent mask must have exactly one bit set")
	}
	return t.nodes[node].Child + uint32(bits.OnesCount8(valid&(mask-1)))
}

// growChildren reallocates node's sibling run with mask added. The new
// run is appended at the array end; surviving children are copied over
// in octant order and the old run becomes dead space.
func (t *Tree) growChildren(node uint32, mask uint8) {
	oldValid := t.nodes[node].Valid
	oldChild := t.nodes[node].Child
	newValid := oldValid | mask

	base := uint32(len(t.nodes))
	for i := 0; i < bits.OnesCount8(newValid); i++ {
		t.nodes = append(t.nodes, emptyNode())
	}

	for bit := uint8(0); bit < 8; bit++ {
		m := uint8(1) << bit
		if oldValid&m == 0 {
			continue
		}
		oldSlot := oldChild + uint32(bits.OnesCount8(oldValid&(m-1)))
		newSlot := base + uint32(bits.OnesCount8(newValid&(m-1)))
		t.nodes[newSlot] = t.nodes[oldSlot]
		t.nodes[oldSlot] = emptyNode()
	}
	t.dead += bits.OnesCount8(oldValid)

	t.nodes[node].Child = base
	t.nodes[node].Valid = newValid
}

func (t *Tree) contains(pos Position) bool {
	size := t.Size()
	return pos.X < size && pos.Y < size && pos.Z < size
}
