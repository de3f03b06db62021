package vox

import "github.com/gogpu/vox/internal/gpu"

// Batch names the shader set a frame is drawn with. Each name refers to
// a WGSL file in the shader directory: Vertex to <name>.vs.wgsl,
// Fragment to <name>.fs.wgsl, Seed and JFA to <name>.cs.wgsl.
//
// Swapping a batch between frames rebuilds only the affected pipelines;
// an unchanged batch rebuilds nothing.
type Batch struct {
	Vertex   string
	Fragment string
	Seed     string
	JFA      string
}

// DefaultBatch names the embedded default shaders.
func DefaultBatch() Batch {
	return Batch{
		Vertex:   "voxel",
		Fragment: "voxel",
		Seed:     "seed",
		JFA:      "jfa",
	}
}

func (b Batch) toGPU() gpu.Batch {
	return gpu.Batch{
		Vertex:   b.Vertex,
		Fragment: b.Fragment,
		Seed:     b.Seed,
		JFA:      b.JFA,
	}
}
