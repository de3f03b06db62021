package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Frame clear values.
var clearColor = gputypes.Color{R: 0.0385, G: 0.0385, B: 0.0385, A: 1.0}

const depthClear = 1.0

// computeWorkgroupEdge is the per-axis workgroup size of the seed and
// JFA shaders. 4x4x4 keeps total invocations within the portable 256
// limit.
const computeWorkgroupEdge = 4

// DrawBatch renders one frame with the given shader batch.
//
// The protocol: fence out the previous frame, rescan shaders, acquire a
// target, rebuild the shader-dependent pipelines only when the batch or
// a shader changed, flush dirty uniforms, record the render pass and
// the seed + JFA compute passes, submit on the frame fence, and present.
// A stale swapchain skips the frame; a failed present logs and carries
// on.
func (r *Renderer) DrawBatch(batch Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	// Previous frame must be out of flight before its resources are
	// reused.
	if r.fenceValue > 0 {
		ok, err := r.device.Wait(r.fence, r.fenceValue, gpuWaitTimeout)
		if werr := fenceWaitError("wait for previous frame", ok, err); werr != nil {
			return werr
		}
	}

	if err := r.shaders.Rescan(); err != nil {
		return fmt.Errorf("rescan shaders: %w", err)
	}

	if r.render == nil {
		slogger().Warn("gpu: no render data, skipping frame")
		return nil
	}
	imageIndex, err := r.render.swapchain.acquire()
	if err != nil {
		if errors.Is(err, ErrSwapchainStale) {
			slogger().Debug("gpu: swapchain stale, skipping frame")
			return nil
		}
		return fmt.Errorf("acquire swapchain image: %w", err)
	}

	gen := r.shaders.Generation()
	if !r.compute.matches(batch, gen) {
		cd, err := r.createComputeData(batch)
		if err != nil {
			return fmt.Errorf("rebuild compute data: %w", err)
		}
		if r.compute != nil {
			r.compute.destroy(r.device)
		}
		r.compute = cd
		slogger().Debug("gpu: compute pipelines rebuilt", "seed", batch.Seed, "jfa", batch.JFA)
	}
	if _, err := r.render.ensurePipeline(r, batch); err != nil {
		return fmt.Errorf("rebuild render pipeline: %w", err)
	}

	if r.uniformsDirty {
		if err := r.uploadBuffer(r.buffers.uniform, 0, r.uniforms.pack()); err != nil {
			return fmt.Errorf("upload uniforms: %w", err)
		}
		r.uniformsDirty = false
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "vox_frame",
	})
	if err != nil {
		return fmt.Errorf("create frame encoder: %w", err)
	}
	if err := encoder.BeginEncoding("vox_frame"); err != nil {
		return fmt.Errorf("begin frame encoding: %w", err)
	}

	r.recordRenderPass(encoder, imageIndex)
	r.recordComputePasses(encoder)

	presenting := r.cfg.Present != nil
	var readback hal.Buffer
	var readbackSize, rowPitch uint64
	if presenting {
		readback, readbackSize, rowPitch, err = r.recordPresentCopy(encoder, imageIndex)
		if err != nil {
			encoder.DiscardEncoding()
			return err
		}
		defer r.device.DestroyBuffer(readback)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end frame encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	r.fenceValue++
	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, r.fence, r.fenceValue); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	r.frames++

	if presenting {
		// Present failure is logged, never fatal: the frame already
		// rendered.
		if err := r.present(readback, readbackSize, rowPitch); err != nil {
			slogger().Warn("gpu: present failed", "error", err)
		}
	}
	return nil
}

// recordRenderPass clears color and depth, then draws the voxel
// instances.
func (r *Renderer) recordRenderPass(encoder hal.CommandEncoder, imageIndex int) {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "vox_render_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.render.swapchain.views[imageIndex],
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              r.render.depthView,
			DepthLoadOp:       gputypes.LoadOpClear,
			DepthStoreOp:      gputypes.StoreOpDiscard,
			DepthClearValue:   depthClear,
			StencilLoadOp:     gputypes.LoadOpClear,
			StencilStoreOp:    gputypes.StoreOpDiscard,
			StencilClearValue: 0,
		},
	})

	if r.render.pipeline != nil && r.instanceCount > 0 {
		rp.SetPipeline(r.render.pipeline)
		rp.SetBindGroup(0, r.render.bindGroup, nil)
		rp.SetVertexBuffer(0, r.buffers.vertex, 0)
		rp.SetVertexBuffer(1, r.buffers.instance, 0)
		rp.Draw(cubeVertexCount, r.instanceCount, 0, 0)
	}
	rp.End()
}

// recordComputePasses dispatches the SDF seed pass and the jump-flood
// iterations, one prebuilt bind group per dispatch. The SDF texture is
// sampled by the render pass, so it transitions to storage for the
// flood and back afterwards.
func (r *Renderer) recordComputePasses(encoder hal.CommandEncoder) {
	if r.compute == nil || len(r.compute.stepGroups) == 0 {
		return
	}
	groups := workgroups(r.volumes.edge)

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.volumes.sdfTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageTextureBinding,
			NewUsage: gputypes.TextureUsageStorageBinding,
		},
	}})

	cp := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "vox_seed_pass"})
	cp.SetPipeline(r.compute.seed)
	cp.SetBindGroup(0, r.compute.stepGroups[0], nil)
	cp.Dispatch(groups, groups, groups)
	cp.End()

	for _, group := range r.compute.stepGroups[1:] {
		cp := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "vox_jfa_pass"})
		cp.SetPipeline(r.compute.jfa)
		cp.SetBindGroup(0, group, nil)
		cp.Dispatch(groups, groups, groups)
		cp.End()
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.volumes.sdfTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageStorageBinding,
			NewUsage: gputypes.TextureUsageTextureBinding,
		},
	}})
}

// workgroups is the ceiling dispatch count for one volume axis.
func workgroups(edge uint32) uint32 {
	return (edge + computeWorkgroupEdge - 1) / computeWorkgroupEdge
}

// recordPresentCopy stages the finished image into a readback buffer.
// Rows are padded to the 256-byte copy pitch.
func (r *Renderer) recordPresentCopy(encoder hal.CommandEncoder, imageIndex int) (hal.Buffer, uint64, uint64, error) {
	w := r.render.swapchain.width
	h := r.render.swapchain.height

	const copyPitchAlignment = 256
	rowPitch := (uint64(w)*4 + copyPitchAlignment - 1) &^ uint64(copyPitchAlignment-1)
	size := rowPitch * uint64(h)

	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vox_present_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create present readback buffer: %w", err)
	}

	image := r.render.swapchain.images[imageIndex]
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: image,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(image, buf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(rowPitch), RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: image, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: image,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	return buf, size, rowPitch, nil
}

// present waits out the frame, reads the staged pixels back, and hands
// them to the present target as an RGBA texture.
func (r *Renderer) present(readback hal.Buffer, size, rowPitch uint64) error {
	ok, err := r.device.Wait(r.fence, r.fenceValue, gpuWaitTimeout)
	if werr := fenceWaitError("wait for frame", ok, err); werr != nil {
		return werr
	}

	raw := make([]byte, size)
	if err := r.queue.ReadBuffer(readback, 0, raw); err != nil {
		return fmt.Errorf("read back frame: %w", err)
	}

	w := int(r.render.swapchain.width)
	h := int(r.render.swapchain.height)
	rgba := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		src := raw[uint64(row)*rowPitch:]
		dst := rgba[row*w*4:]
		for x := 0; x < w; x++ {
			// BGRA -> RGBA
			dst[x*4+0] = src[x*4+2]
			dst[x*4+1] = src[x*4+1]
			dst[x*4+2] = src[x*4+0]
			dst[x*4+3] = src[x*4+3]
		}
	}

	creator := r.cfg.Present.TextureCreator()
	if creator == nil {
		return errors.New("gpu: present target has no texture creator")
	}
	tex, err := creator.NewTextureFromRGBA(w, h, rgba)
	if err != nil {
		return fmt.Errorf("create present texture: %w", err)
	}
	if err := r.cfg.Present.DrawTexture(tex, 0, 0); err != nil {
		return fmt.Errorf("draw present texture: %w", err)
	}

	// The previous frame's texture is no longer in use: the fence wait
	// above proves the GPU is past it.
	if r.lastPresented != nil {
		if destroyer, ok := r.lastPresented.(interface{ Destroy() }); ok {
			destroyer.Destroy()
		}
	}
	r.lastPresented = tex
	return nil
}
