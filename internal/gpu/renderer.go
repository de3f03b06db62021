// Package gpu owns every GPU object of the voxel renderer: the device,
// the static buffers and volumes, the swapchain-dependent render group,
// and the shader-dependent compute group. Nothing outside this package
// creates or destroys GPU resources.
package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vox/octree"
)

// ErrClosed is returned by operations on a closed renderer.
var ErrClosed = errors.New("gpu: renderer closed")

// Defaults for Config zero values.
const (
	DefaultWidth          = 960
	DefaultHeight         = 540
	DefaultRenderDistance = 2
)

// Config sizes the renderer's static resources.
type Config struct {
	Width          uint32
	Height         uint32
	RenderDistance uint32

	// WorldBufferSize caps the octree node array on the device.
	WorldBufferSize uint64

	// ShaderDir holds WGSL sources; ArtifactDir receives compiled
	// SPIR-V.
	ShaderDir   string
	ArtifactDir string

	// Present receives finished frames. Nil renders offscreen.
	Present gpucontext.TextureDrawer
}

func (c *Config) applyDefaults() {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.Height == 0 {
		c.Height = DefaultHeight
	}
	if c.RenderDistance == 0 {
		c.RenderDistance = DefaultRenderDistance
	}
	if c.WorldBufferSize == 0 {
		c.WorldBufferSize = defaultWorldSize
	}
}

// Renderer owns the device and every resource rendered with. All
// methods are safe for concurrent use; a single mutex serializes
// frames, resizes, and teardown.
type Renderer struct {
	mu sync.Mutex

	handle *deviceHandle // nil when the device was injected
	device hal.Device
	queue  hal.Queue

	fence      hal.Fence
	fenceValue uint64

	cfg     Config
	buffers *bufferSet
	volumes *volumeSet
	shaders *ShaderCatalog

	// render is the swapchain-dependent group; compute the
	// shader-dependent one. Either can be nil after a failed rebuild;
	// frames are skipped until the group exists again.
	render  *renderData
	compute *computeData

	uniforms      Uniforms
	uniformsDirty bool
	instanceCount uint32

	// lastPresented keeps the previous frame's present texture alive
	// until the GPU is provably past it.
	lastPresented gpucontext.Texture

	frames uint64
	closed bool
}

// New acquires a device and builds a renderer.
func New(cfg Config) (*Renderer, error) {
	handle, err := acquireDevice()
	if err != nil {
		return nil, err
	}
	r, err := NewWithDevice(handle.device, handle.queue, cfg)
	if err != nil {
		handle.destroy()
		return nil, err
	}
	r.handle = handle
	return r, nil
}

// NewWithDevice builds a renderer on a caller-provided device. The
// caller keeps ownership of the device unless it came through New.
func NewWithDevice(device hal.Device, queue hal.Queue, cfg Config) (*Renderer, error) {
	cfg.applyDefaults()

	r := &Renderer{
		device: device,
		queue:  queue,
		cfg:    cfg,
	}

	var err error
	r.fence, err = device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create frame fence: %w", err)
	}

	r.buffers, err = createBuffers(device, cfg.WorldBufferSize)
	if err != nil {
		r.destroyLocked()
		return nil, err
	}

	r.volumes, err = createVolumes(device, cfg.RenderDistance)
	if err != nil {
		r.destroyLocked()
		return nil, err
	}

	r.shaders = newShaderCatalog(device, cfg.ShaderDir, cfg.ArtifactDir)

	if err := r.uploadBuffer(r.buffers.vertex, 0, cubeVertices()); err != nil {
		r.destroyLocked()
		return nil, fmt.Errorf("upload cube vertices: %w", err)
	}

	r.uniforms = defaultUniforms(cfg.Width, cfg.Height, cfg.RenderDistance)
	r.uniformsDirty = true

	r.render, err = r.createRenderData(cfg.Width, cfg.Height, nil)
	if err != nil {
		r.destroyLocked()
		return nil, err
	}

	slogger().Info("gpu: renderer ready",
		"extent", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"render_distance", cfg.RenderDistance)
	return r, nil
}

// SetUniforms replaces the frame uniforms; the device copy updates on
// the next frame.
func (r *Renderer) SetUniforms(u Uniforms) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uniforms = u
	r.uniformsDirty = true
}

// Uniforms returns the current frame uniforms.
func (r *Renderer) Uniforms() Uniforms {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uniforms
}

// UploadWorld copies the octree node array into the world buffer and
// the generated volumes into the cubelet textures.
func (r *Renderer) UploadWorld(tr *octree.Tree, volumeData, volumeSDF []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	if err := r.uploadBuffer(r.buffers.world, 0, packNodes(tr.Nodes())); err != nil {
		return fmt.Errorf("upload world nodes: %w", err)
	}
	if volumeData != nil {
		if err := r.volumes.UploadData(r.queue, volumeData); err != nil {
			return err
		}
	}
	if volumeSDF != nil {
		if err := r.volumes.UploadSDF(r.queue, volumeSDF); err != nil {
			return err
		}
	}
	return nil
}

// SetInstances uploads per-voxel world offsets and sets the drawn
// instance count.
func (r *Renderer) SetInstances(offsets []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if len(offsets)%3 != 0 {
		return fmt.Errorf("gpu: instance offsets length %d not a multiple of 3", len(offsets))
	}
	if len(offsets)/3 > MaxInstances {
		return fmt.Errorf("gpu: %d instances exceed buffer capacity %d", len(offsets)/3, MaxInstances)
	}
	if err := r.uploadBuffer(r.buffers.instance, 0, packFloats(offsets)); err != nil {
		return fmt.Errorf("upload instances: %w", err)
	}
	r.instanceCount = uint32(len(offsets) / 3)
	return nil
}

// Resize retires the current swapchain and rebuilds the
// swapchain-dependent group at the new extent. In-flight work is fenced
// out first. On failure the renderer stays alive without a render
// group; frames are skipped until a later resize succeeds.
func (r *Renderer) Resize(width, height uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("gpu: resize to empty extent %dx%d", width, height)
	}

	if r.render != nil && r.render.swapchain != nil {
		r.render.swapchain.markStale()
	}

	old := r.render
	rd, err := r.createRenderData(width, height, old)
	if err != nil {
		if old != nil {
			old.destroy(r.device)
		}
		r.render = nil
		return fmt.Errorf("rebuild render data: %w", err)
	}
	if old != nil {
		// The swapchain was handed over; drop the rest of the group.
		old.destroy(r.device)
	}
	r.render = rd

	r.cfg.Width = width
	r.cfg.Height = height
	r.uniforms.Resolution[0] = float32(width)
	r.uniforms.Resolution[1] = float32(height)
	r.uniformsDirty = true

	slogger().Info("gpu: resized", "extent", fmt.Sprintf("%dx%d", width, height))
	return nil
}

// Extent returns the current target size.
func (r *Renderer) Extent() (uint32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Width, r.cfg.Height
}

// Frames returns how many frames were fully submitted.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close waits for the device and destroys everything in reverse
// creation order. Safe to call twice.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true

	// Fence out in-flight work before touching resources.
	if r.fence != nil && r.fenceValue > 0 {
		if ok, err := r.device.Wait(r.fence, r.fenceValue, gpuWaitTimeout); err != nil || !ok {
			slogger().Warn("gpu: close wait failed", "ok", ok, "error", err)
		}
	}
	r.destroyLocked()
}

// destroyLocked tears down all resources. Also used to unwind a failed
// init, so every step tolerates nil.
func (r *Renderer) destroyLocked() {
	if r.compute != nil {
		r.compute.destroy(r.device)
		r.compute = nil
	}
	if r.render != nil {
		r.render.destroy(r.device)
		r.render = nil
	}
	if r.shaders != nil {
		r.shaders.Close()
		r.shaders = nil
	}
	if r.volumes != nil {
		r.volumes.destroy(r.device)
		r.volumes = nil
	}
	if r.buffers != nil {
		r.buffers.destroy(r.device)
		r.buffers = nil
	}
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
		r.fence = nil
	}
	if r.handle != nil {
		r.handle.destroy()
		r.handle = nil
	}
}
