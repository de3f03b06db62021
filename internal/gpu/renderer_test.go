package gpu

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/vox/octree"
)

// createNoopDevice creates a noop device and queue for testing.
// Returns the device, queue, and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

const (
	testVS = `@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) off: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos + off, 1.0);
}
`
	testFS = `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.0, 0.6, 0.1, 1.0);
}
`
	testCS = `@compute @workgroup_size(4, 4, 4)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
}
`
)

// writeTestShaders populates a shader directory for the default batch.
func writeTestShaders(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"voxel.vs.wgsl": testVS,
		"voxel.fs.wgsl": testFS,
		"seed.cs.wgsl":  testCS,
		"jfa.cs.wgsl":   testCS,
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatalf("write shader %s: %v", name, err)
		}
	}
}

// testConfig returns a config small enough for unit tests.
func testConfig(t *testing.T) Config {
	t.Helper()
	srcDir := t.TempDir()
	writeTestShaders(t, srcDir)
	return Config{
		Width:           64,
		Height:          64,
		RenderDistance:  1,
		WorldBufferSize: 1 << 20,
		ShaderDir:       srcDir,
		ArtifactDir:     t.TempDir(),
	}
}

func testBatch() Batch {
	return Batch{Vertex: "voxel", Fragment: "voxel", Seed: "seed", JFA: "jfa"}
}

func newTestRenderer(t *testing.T) (*Renderer, func()) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	r, err := NewWithDevice(device, queue, testConfig(t))
	if err != nil {
		cleanup()
		t.Fatalf("NewWithDevice: %v", err)
	}
	return r, func() {
		r.Close()
		cleanup()
	}
}

func TestRendererInit(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if r.fence == nil {
		t.Error("fence not created")
	}
	if r.buffers == nil || r.buffers.staging == nil || r.buffers.world == nil {
		t.Error("static buffers not created")
	}
	if r.volumes == nil || r.volumes.dataTex == nil || r.volumes.sdfTex == nil {
		t.Error("volumes not created")
	}
	if r.render == nil || r.render.swapchain == nil {
		t.Fatal("render data not created")
	}
	if len(r.render.swapchain.images) != swapchainImageCount {
		t.Errorf("swapchain ring = %d images, want %d",
			len(r.render.swapchain.images), swapchainImageCount)
	}
	// Pipelines are batch-dependent and must not exist before a frame.
	if r.render.pipeline != nil || r.compute != nil {
		t.Error("pipelines built before the first frame")
	}
}

func TestRendererDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Errorf("default extent = %dx%d, want %dx%d",
			cfg.Width, cfg.Height, DefaultWidth, DefaultHeight)
	}
	if cfg.RenderDistance != DefaultRenderDistance {
		t.Errorf("default render distance = %d, want %d",
			cfg.RenderDistance, DefaultRenderDistance)
	}
}

func TestDrawBatchBuildsPipelinesOnce(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	batch := testBatch()
	if err := r.DrawBatch(batch); err != nil {
		t.Fatalf("first DrawBatch: %v", err)
	}
	if r.compute == nil || r.render.pipeline == nil {
		t.Fatal("pipelines missing after first frame")
	}

	compute := r.compute
	pipeline := r.render.pipeline
	if err := r.DrawBatch(batch); err != nil {
		t.Fatalf("second DrawBatch: %v", err)
	}

	// Same batch, untouched shaders: nothing may rebuild.
	if r.compute != compute {
		t.Error("compute data rebuilt for an unchanged batch")
	}
	if r.render.pipeline != pipeline {
		t.Error("render pipeline rebuilt for an unchanged batch")
	}
}

func TestDrawBatchRebuildsOnBatchChange(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if err := r.DrawBatch(testBatch()); err != nil {
		t.Fatalf("DrawBatch: %v", err)
	}
	compute := r.compute

	changed := testBatch()
	changed.Seed = "jfa" // points at the other compute shader
	if err := r.DrawBatch(changed); err != nil {
		t.Fatalf("DrawBatch with changed batch: %v", err)
	}
	if r.compute == compute {
		t.Error("compute data not rebuilt for a changed batch")
	}
}

func TestResizeRebuildsRenderData(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	oldRender := r.render
	if err := r.Resize(128, 96); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if r.render == oldRender {
		t.Fatal("render data not rebuilt on resize")
	}
	if r.render.swapchain.width != 128 || r.render.swapchain.height != 96 {
		t.Errorf("swapchain extent = %dx%d, want 128x96",
			r.render.swapchain.width, r.render.swapchain.height)
	}
	w, h := r.Extent()
	if w != 128 || h != 96 {
		t.Errorf("Extent = %dx%d, want 128x96", w, h)
	}

	// The renderer must keep drawing after a resize.
	if err := r.DrawBatch(testBatch()); err != nil {
		t.Fatalf("DrawBatch after resize: %v", err)
	}
}

// failTextureDevice refuses texture creation while fail is set.
type failTextureDevice struct {
	hal.Device
	fail bool
}

func (d *failTextureDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.fail {
		return nil, errors.New("texture creation refused")
	}
	return d.Device.CreateTexture(desc)
}

func TestResizeFailureReleasesOldRing(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	fd := &failTextureDevice{Device: device}
	r, err := NewWithDevice(fd, queue, testConfig(t))
	if err != nil {
		t.Fatalf("NewWithDevice: %v", err)
	}
	defer r.Close()

	oldChain := r.render.swapchain
	fd.fail = true
	if err := r.Resize(128, 128); err == nil {
		t.Fatal("Resize succeeded on a device refusing textures")
	}
	if r.render != nil {
		t.Error("render group kept after a failed rebuild")
	}
	// The old ring must have been destroyed with its group, not leaked.
	if len(oldChain.images) != 0 || len(oldChain.views) != 0 {
		t.Errorf("old swapchain ring leaked: %d images, %d views",
			len(oldChain.images), len(oldChain.views))
	}

	// A later resize recovers.
	fd.fail = false
	if err := r.Resize(128, 128); err != nil {
		t.Fatalf("recovery Resize: %v", err)
	}
	if r.render == nil || r.render.swapchain == nil {
		t.Fatal("render group missing after recovery")
	}
}

func TestResizeRejectsEmptyExtent(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if err := r.Resize(0, 64); err == nil {
		t.Error("Resize accepted zero width")
	}
}

func TestStaleSwapchainSkipsFrame(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if err := r.DrawBatch(testBatch()); err != nil {
		t.Fatalf("DrawBatch: %v", err)
	}
	frames := r.Frames()

	r.render.swapchain.markStale()
	if err := r.DrawBatch(testBatch()); err != nil {
		t.Fatalf("DrawBatch on stale swapchain: %v", err)
	}
	if r.Frames() != frames {
		t.Error("stale swapchain frame was submitted instead of skipped")
	}
}

func TestUploadWorld(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	tr := octree.New(3)
	if err := tr.Insert(octree.Position{X: 1, Y: 2, Z: 3}, 1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := r.UploadWorld(tr, nil, nil); err != nil {
		t.Fatalf("UploadWorld: %v", err)
	}
}

func TestSetInstances(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if err := r.SetInstances([]float32{0, 0, 0, 1, 0, 0}); err != nil {
		t.Fatalf("SetInstances: %v", err)
	}
	if r.instanceCount != 2 {
		t.Errorf("instanceCount = %d, want 2", r.instanceCount)
	}

	if err := r.SetInstances([]float32{1, 2}); err == nil {
		t.Error("SetInstances accepted a non-vec3 payload")
	}
}

func TestSetUniformsMarksDirty(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if err := r.DrawBatch(testBatch()); err != nil {
		t.Fatalf("DrawBatch: %v", err)
	}
	if r.uniformsDirty {
		t.Fatal("uniforms still dirty after a frame")
	}

	u := r.Uniforms()
	u.RenderDistance = 4
	r.SetUniforms(u)
	if !r.uniformsDirty {
		t.Error("SetUniforms did not mark uniforms dirty")
	}
}

func TestCloseTwice(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	r, err := NewWithDevice(device, queue, testConfig(t))
	if err != nil {
		t.Fatalf("NewWithDevice: %v", err)
	}
	r.Close()
	r.Close() // must not panic

	if err := r.DrawBatch(testBatch()); err != ErrClosed {
		t.Errorf("DrawBatch after close = %v, want ErrClosed", err)
	}
	if err := r.Resize(10, 10); err != ErrClosed {
		t.Errorf("Resize after close = %v, want ErrClosed", err)
	}
}
