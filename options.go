package vox

import (
	"math/bits"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/vox/internal/gpu"
)

// Option configures an Engine during creation.
//
// Example:
//
//	// Defaults: 960x540, render distance 2
//	eng, err := vox.New()
//
//	// Custom extent and terrain seed
//	eng, err := vox.New(vox.WithSize(1280, 720), vox.WithSeed(7))
type Option func(*engineOptions)

// engineOptions holds optional configuration for Engine creation.
type engineOptions struct {
	width          uint32
	height         uint32
	renderDistance uint32
	worldDepth     uint32
	worldBuffer    uint64
	shaderDir      string
	artifactDir    string
	seed           int64
	present        gpucontext.TextureDrawer
}

// defaultOptions returns the default engine options. The world depth
// stays zero here and is derived from the render distance in New when
// no option overrides it.
func defaultOptions() engineOptions {
	return engineOptions{
		width:          gpu.DefaultWidth,
		height:         gpu.DefaultHeight,
		renderDistance: gpu.DefaultRenderDistance,
		shaderDir:      "resources",
		artifactDir:    "assets",
		seed:           42,
	}
}

// derivedWorldDepth is the smallest tree depth whose cube covers the
// volume textures of the given render distance.
func derivedWorldDepth(renderDistance uint32) uint32 {
	edge := gpu.VolumeEdge(renderDistance)
	return uint32(bits.Len32(edge - 1))
}

// WithSize sets the render target extent in pixels.
func WithSize(width, height uint32) Option {
	return func(o *engineOptions) {
		o.width = width
		o.height = height
	}
}

// WithRenderDistance sets the render distance in chunks. The volume
// textures span 2*distance chunks of 32 voxels per axis.
func WithRenderDistance(distance uint32) Option {
	return func(o *engineOptions) {
		o.renderDistance = distance
	}
}

// WithWorldDepth overrides the derived octree depth. A tree of depth d
// addresses 2^d voxels per edge.
func WithWorldDepth(depth uint32) Option {
	return func(o *engineOptions) {
		o.worldDepth = depth
	}
}

// WithWorldBufferSize caps the device buffer that holds the octree node
// array, in bytes.
func WithWorldBufferSize(size uint64) Option {
	return func(o *engineOptions) {
		o.worldBuffer = size
	}
}

// WithShaderDirs sets the WGSL source directory and the compiled
// artifact directory. When the source directory holds no WGSL files
// the embedded default shaders are written into it.
func WithShaderDirs(src, artifacts string) Option {
	return func(o *engineOptions) {
		o.shaderDir = src
		o.artifactDir = artifacts
	}
}

// WithSeed sets the terrain seed used by GenerateGround.
func WithSeed(seed int64) Option {
	return func(o *engineOptions) {
		o.seed = seed
	}
}

// WithPresentTarget sets the drawer that receives finished frames.
// Without one the engine renders offscreen.
//
// Example:
//
//	eng, err := vox.New(vox.WithPresentTarget(canvasContext))
func WithPresentTarget(target gpucontext.TextureDrawer) Option {
	return func(o *engineOptions) {
		o.present = target
	}
}
