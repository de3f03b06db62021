package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/vox/octree"
)

// nodeStride is the device footprint of one octree node: child, valid,
// and block each widened to a u32 for std430 addressing.
const nodeStride = 12

// packNodes serializes the node array little-endian for the world
// storage buffer.
func packNodes(nodes []octree.Node) []byte {
	buf := make([]byte, len(nodes)*nodeStride)
	off := 0
	for _, n := range nodes {
		binary.LittleEndian.PutUint32(buf[off:], n.Child)
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(n.Valid))
		binary.LittleEndian.PutUint32(buf[off+8:], uint32(n.Block))
		off += nodeStride
	}
	return buf
}

// packFloats serializes a float slice little-endian.
func packFloats(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, f := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
