// Package vox renders sparse voxel worlds with the GoGPU stack.
//
// # Overview
//
// vox keeps the world in a sparse octree stored as a single growable
// node array, generates procedural terrain, and draws the result
// through gogpu/wgpu. Shaders are plain WGSL files on disk, compiled
// to SPIR-V with gogpu/naga and hot-reloaded when their mtime moves.
//
// # Quick Start
//
//	import "github.com/gogpu/vox"
//
//	eng, err := vox.New(vox.WithSeed(42))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	eng.GenerateGround()
//	eng.SetCamera(vox.DefaultCamera())
//
//	for i := 0; i < 60; i++ {
//	    if err := eng.DrawBatch(vox.DefaultBatch()); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: Engine, Batch, Camera, Option
//   - octree: position hierarchy encoding and the sparse node store
//   - world: deterministic Perlin terrain and volume generation
//   - internal/gpu: device, buffers, volumes, shader catalog, frames
//
// # Coordinate System
//
// World space is a cube of voxels with the origin at one corner:
//   - X increases right
//   - Y increases up
//   - Z increases forward
//
// A tree of depth d addresses 2^d voxels per edge.
package vox

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
