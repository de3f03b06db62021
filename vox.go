package vox

import (
	"fmt"
	"os"
	"sync"

	"github.com/gogpu/vox/internal/gpu"
	"github.com/gogpu/vox/octree"
	"github.com/gogpu/vox/world"
)

// Engine ties the voxel world to the renderer. It owns the octree, the
// generated volumes, and the GPU renderer; World mutations are synced
// to the device lazily on the next frame.
//
// Engine methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	r *gpu.Renderer

	tree           *octree.Tree
	seed           int64
	renderDistance uint32
	camera         Camera

	volumeData []float32
	volumeSDF  []float32
	worldDirty bool
}

// New builds an engine on the best available GPU. The shader directory
// is seeded with the embedded defaults when it holds no WGSL sources.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r, err := newRenderer(o)
	if err != nil {
		return nil, err
	}
	return newEngine(r, o), nil
}

// newRenderer prepares the shader directories and acquires a device.
func newRenderer(o engineOptions) (*gpu.Renderer, error) {
	if err := materializeShaders(o.shaderDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(o.artifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("vox: create artifact dir: %w", err)
	}
	return gpu.New(gpu.Config{
		Width:           o.width,
		Height:          o.height,
		RenderDistance:  o.renderDistance,
		WorldBufferSize: o.worldBuffer,
		ShaderDir:       o.shaderDir,
		ArtifactDir:     o.artifactDir,
		Present:         o.present,
	})
}

// newEngine wraps a built renderer. Split from New so tests can inject
// a renderer running on the noop backend.
func newEngine(r *gpu.Renderer, o engineOptions) *Engine {
	depth := o.worldDepth
	if depth == 0 {
		depth = derivedWorldDepth(o.renderDistance)
	}
	e := &Engine{
		r:              r,
		tree:           octree.New(depth),
		seed:           o.seed,
		renderDistance: o.renderDistance,
	}
	e.SetCamera(DefaultCamera())
	return e
}

// World returns the engine's octree for direct mutation. Call
// MarkWorldDirty afterwards so the next frame re-uploads it.
func (e *Engine) World() *octree.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree
}

// MarkWorldDirty schedules a world re-upload before the next frame.
func (e *Engine) MarkWorldDirty() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.worldDirty = true
}

// GenerateGround fills the world with Perlin heightfield terrain and
// regenerates the albedo and distance-field volumes. Returns how many
// voxels were written.
func (e *Engine) GenerateGround() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ground := world.NewGround(e.seed)
	voxels, err := ground.Fill(e.tree)
	if err != nil {
		return voxels, fmt.Errorf("vox: generate ground: %w", err)
	}
	e.volumeData, e.volumeSDF = ground.Volume(gpu.VolumeEdge(e.renderDistance))
	e.worldDirty = true

	Logger().Info("vox: ground generated", "voxels", voxels, "seed", e.seed)
	return voxels, nil
}

// SetCamera applies the camera's view and projection to the next frame.
func (e *Engine) SetCamera(c Camera) {
	e.mu.Lock()
	e.camera = c
	e.mu.Unlock()

	u := e.r.Uniforms()
	w, h := e.r.Extent()
	u.View = c.view()
	u.Proj = c.projection(w, h)
	e.r.SetUniforms(u)
}

// DrawBatch renders one frame with the given shader batch, syncing the
// world to the device first when it changed.
func (e *Engine) DrawBatch(b Batch) error {
	if err := e.syncWorld(); err != nil {
		return err
	}
	return e.r.DrawBatch(b.toGPU())
}

// Resize rebuilds the render target at the new extent and re-projects
// the camera for the changed aspect ratio.
func (e *Engine) Resize(width, height uint32) error {
	if err := e.r.Resize(width, height); err != nil {
		return err
	}

	e.mu.Lock()
	c := e.camera
	e.mu.Unlock()

	u := e.r.Uniforms()
	u.Proj = c.projection(width, height)
	e.r.SetUniforms(u)
	return nil
}

// Extent returns the current render target size.
func (e *Engine) Extent() (uint32, uint32) {
	return e.r.Extent()
}

// Frames returns how many frames were fully submitted.
func (e *Engine) Frames() uint64 {
	return e.r.Frames()
}

// Close releases all GPU resources. Safe to call twice.
func (e *Engine) Close() {
	e.r.Close()
}

// syncWorld uploads the node array, the volumes, and the visible
// instance offsets when the world is dirty.
func (e *Engine) syncWorld() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.worldDirty {
		return nil
	}

	if err := e.r.UploadWorld(e.tree, e.volumeData, e.volumeSDF); err != nil {
		return fmt.Errorf("vox: upload world: %w", err)
	}

	offsets, truncated := instanceOffsets(e.tree)
	if truncated {
		Logger().Warn("vox: exposed voxels exceed instance capacity",
			"capacity", gpu.MaxInstances)
	}
	if err := e.r.SetInstances(offsets); err != nil {
		return fmt.Errorf("vox: upload instances: %w", err)
	}

	e.worldDirty = false
	return nil
}

// instanceOffsets collects the world offsets of exposed voxels, capped
// at the instance buffer capacity. A voxel is exposed when any of its
// six neighbors is air.
func instanceOffsets(tr *octree.Tree) ([]float32, bool) {
	offsets := make([]float32, 0, 3*256)
	truncated := false

	tr.Walk(func(pos octree.Position, block uint16) bool {
		if block == octree.BlockAir || !exposed(tr, pos) {
			return true
		}
		if len(offsets)/3 >= gpu.MaxInstances {
			truncated = true
			return false
		}
		offsets = append(offsets, float32(pos.X), float32(pos.Y), float32(pos.Z))
		return true
	})
	return offsets, truncated
}

// exposed reports whether any of the six neighbors of pos is air.
// Voxels on the tree boundary count as exposed.
func exposed(tr *octree.Tree, pos octree.Position) bool {
	size := tr.Size()
	if pos.X == 0 || pos.Y == 0 || pos.Z == 0 ||
		pos.X == size-1 || pos.Y == size-1 || pos.Z == size-1 {
		return true
	}
	neighbors := [6]octree.Position{
		{X: pos.X - 1, Y: pos.Y, Z: pos.Z},
		{X: pos.X + 1, Y: pos.Y, Z: pos.Z},
		{X: pos.X, Y: pos.Y - 1, Z: pos.Z},
		{X: pos.X, Y: pos.Y + 1, Z: pos.Z},
		{X: pos.X, Y: pos.Y, Z: pos.Z - 1},
		{X: pos.X, Y: pos.Y, Z: pos.Z + 1},
	}
	for _, n := range neighbors {
		if block, ok := tr.Lookup(n); !ok || block == octree.BlockAir {
			return true
		}
	}
	return false
}
