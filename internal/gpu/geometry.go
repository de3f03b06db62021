package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// cubeVertexCount is the unrolled unit cube: 6 faces, 2 triangles each.
const cubeVertexCount = 36

const vertexStride = 3 * 4 // vec3<f32> position

// instanceStride is one vec3<f32> world offset per drawn voxel.
const instanceStride = 3 * 4

// MaxInstances is how many voxel instances fit in the instance buffer.
const MaxInstances = defaultInstanceSize / instanceStride

// unit cube corners, unrolled with consistent counter-clockwise winding
// per face so back-face culling works.
var cubeCorners = [cubeVertexCount][3]float32{
	// -Z face
	{0, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 0}, {1, 1, 0}, {1, 0, 0},
	// +Z face
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1},
	{0, 0, 1}, {1, 1, 1}, {0, 1, 1},
	// -X face
	{0, 0, 0}, {0, 0, 1}, {0, 1, 1},
	{0, 0, 0}, {0, 1, 1}, {0, 1, 0},
	// +X face
	{1, 0, 0}, {1, 1, 0}, {1, 1, 1},
	{1, 0, 0}, {1, 1, 1}, {1, 0, 1},
	// -Y face
	{0, 0, 0}, {1, 0, 0}, {1, 0, 1},
	{0, 0, 0}, {1, 0, 1}, {0, 0, 1},
	// +Y face
	{0, 1, 0}, {0, 1, 1}, {1, 1, 1},
	{0, 1, 0}, {1, 1, 1}, {1, 1, 0},
}

// cubeVertices packs the unrolled cube little-endian for upload.
func cubeVertices() []byte {
	buf := make([]byte, cubeVertexCount*vertexStride)
	off := 0
	for _, c := range cubeCorners {
		for _, f := range c {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

// voxelVertexLayout describes slot 0 (per-vertex cube corner) and
// slot 1 (per-instance world offset). Matches VertexInput in
// voxel.vs.wgsl.
func voxelVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: instanceStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 1},
			},
		},
	}
}
