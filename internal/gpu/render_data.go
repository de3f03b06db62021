package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Batch names the shader set a frame is drawn with. Vertex and Fragment
// feed the render pipeline; Seed and JFA feed the compute pipelines.
type Batch struct {
	Vertex   string
	Fragment string
	Seed     string
	JFA      string
}

// renderData is the swapchain-dependent resource group. It exists as a
// whole or not at all: a failed rebuild destroys every partial piece
// and the renderer keeps running without one until the next attempt.
type renderData struct {
	swapchain *swapchain

	depthTex  hal.Texture
	depthView hal.TextureView

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	bindGroup  hal.BindGroup

	// pipeline is rebuilt when the batch or a shader changes, not on
	// resize; it lives here because it targets this group's formats.
	pipeline      hal.RenderPipeline
	pipelineBatch Batch
	pipelineGen   uint64
}

// createRenderData builds the group at the given extent. The previous
// group's swapchain is handed over so its ring is retired only after
// the replacement ring exists. The old group keeps ownership of its
// ring until then; on failure the caller's destroy releases it.
func (r *Renderer) createRenderData(width, height uint32, old *renderData) (*renderData, error) {
	rd := &renderData{}

	var oldChain *swapchain
	if old != nil {
		oldChain = old.swapchain
	}
	sc, err := createSwapchain(r.device, width, height, oldChain)
	if err != nil {
		return nil, err
	}
	if old != nil {
		// The old ring was retired by the replacement; detach it so the
		// old group's destroy does not touch it again.
		old.swapchain = nil
	}
	rd.swapchain = sc

	rd.depthTex, err = r.device.CreateTexture(&hal.TextureDescriptor{
		Label: "vox_depth",
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		rd.destroy(r.device)
		return nil, fmt.Errorf("create depth texture: %w", err)
	}
	rd.depthView, err = r.device.CreateTextureView(rd.depthTex, &hal.TextureViewDescriptor{
		Label:         "vox_depth_view",
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		rd.destroy(r.device)
		return nil, fmt.Errorf("create depth view: %w", err)
	}

	rd.bindLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "vox_render_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: uniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
					ViewDimension: gputypes.TextureViewDimension3D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeNonFiltering},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
					ViewDimension: gputypes.TextureViewDimension3D,
				},
			},
			{
				Binding:    4,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeNonFiltering},
			},
		},
	})
	if err != nil {
		rd.destroy(r.device)
		return nil, fmt.Errorf("create render bind layout: %w", err)
	}

	rd.pipeLayout, err = r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "vox_render_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{rd.bindLayout},
	})
	if err != nil {
		rd.destroy(r.device)
		return nil, fmt.Errorf("create render pipeline layout: %w", err)
	}

	rd.bindGroup, err = r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "vox_render_bind",
		Layout: rd.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.buffers.uniform.NativeHandle(), Offset: 0, Size: uniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: r.volumes.dataView.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: r.volumes.sampler.NativeHandle(),
			}},
			{Binding: 3, Resource: gputypes.TextureViewBinding{
				TextureView: r.volumes.sdfView.NativeHandle(),
			}},
			{Binding: 4, Resource: gputypes.SamplerBinding{
				Sampler: r.volumes.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		rd.destroy(r.device)
		return nil, fmt.Errorf("create render bind group: %w", err)
	}

	return rd, nil
}

// ensurePipeline rebuilds the render pipeline when the batch's shader
// pair or the catalog generation moved. Returns whether a rebuild
// happened.
func (rd *renderData) ensurePipeline(r *Renderer, batch Batch) (bool, error) {
	gen := r.shaders.Generation()
	if rd.pipeline != nil && rd.pipelineBatch == batch && rd.pipelineGen == gen {
		return false, nil
	}

	vs, err := r.shaders.Module(batch.Vertex, ShaderVertex)
	if err != nil {
		return false, err
	}
	fs, err := r.shaders.Module(batch.Fragment, ShaderFragment)
	if err != nil {
		return false, err
	}

	pipeline, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "vox_render_pipeline",
		Layout: rd.pipeLayout,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: "vs_main",
			Buffers:    voxelVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatBGRA8Unorm,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0x00,
			StencilWriteMask: 0x00,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeBack,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return false, fmt.Errorf("create render pipeline: %w", err)
	}

	if rd.pipeline != nil {
		r.device.DestroyRenderPipeline(rd.pipeline)
	}
	rd.pipeline = pipeline
	rd.pipelineBatch = batch
	rd.pipelineGen = gen
	return true, nil
}

// destroy releases the group in reverse creation order. Safe to call
// twice and on partially built groups.
func (rd *renderData) destroy(device hal.Device) {
	if rd.pipeline != nil {
		device.DestroyRenderPipeline(rd.pipeline)
		rd.pipeline = nil
	}
	if rd.bindGroup != nil {
		device.DestroyBindGroup(rd.bindGroup)
		rd.bindGroup = nil
	}
	if rd.pipeLayout != nil {
		device.DestroyPipelineLayout(rd.pipeLayout)
		rd.pipeLayout = nil
	}
	if rd.bindLayout != nil {
		device.DestroyBindGroupLayout(rd.bindLayout)
		rd.bindLayout = nil
	}
	if rd.depthView != nil {
		device.DestroyTextureView(rd.depthView)
		rd.depthView = nil
	}
	if rd.depthTex != nil {
		device.DestroyTexture(rd.depthTex)
		rd.depthTex = nil
	}
	if rd.swapchain != nil {
		rd.swapchain.destroy(device)
		rd.swapchain = nil
	}
}
