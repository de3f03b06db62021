package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// stepUniformSize is the packed size of the compute pass parameter
// block. One u32 step padded to 16 bytes.
const stepUniformSize = 16

// computeData is the shader-dependent resource group: the SDF seed
// pipeline, the jump-flood pipeline, and one bind group per dispatch.
// The group is rebuilt as a unit when the batch's compute shaders
// change and reused otherwise.
//
// Both pipelines share one layout: the cubelet data texture is sampled,
// the SDF texture is written as storage, and a small uniform carries
// the flood step. stepBufs[0]/stepGroups[0] serve the seed pass; the
// rest carry one halving step each.
type computeData struct {
	bindLayout hal.BindGroupLayout
	layout     hal.PipelineLayout

	seed hal.ComputePipeline
	jfa  hal.ComputePipeline

	stepBufs   []hal.Buffer
	stepGroups []hal.BindGroup

	batch Batch
	gen   uint64
}

// jfaSteps returns the flood step sizes for a volume edge, halving down
// to one voxel.
func jfaSteps(edge uint32) []uint32 {
	var steps []uint32
	for step := edge / 2; step >= 1; step /= 2 {
		steps = append(steps, step)
		if step == 1 {
			break
		}
	}
	return steps
}

// createComputeData builds both pipelines and the per-step bind groups
// from the batch's compute shaders. A failed build destroys the partial
// group.
func (r *Renderer) createComputeData(batch Batch) (*computeData, error) {
	cd := &computeData{batch: batch, gen: r.shaders.Generation()}

	var err error
	cd.bindLayout, err = r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "vox_compute_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: stepUniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
					ViewDimension: gputypes.TextureViewDimension3D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageCompute,
				StorageTexture: &gputypes.StorageTextureBindingLayout{
					Access:        gputypes.StorageTextureAccessReadWrite,
					Format:        gputypes.TextureFormatRGBA32Float,
					ViewDimension: gputypes.TextureViewDimension3D,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute bind layout: %w", err)
	}

	cd.layout, err = r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "vox_compute_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{cd.bindLayout},
	})
	if err != nil {
		cd.destroy(r.device)
		return nil, fmt.Errorf("create compute pipeline layout: %w", err)
	}

	seedModule, err := r.shaders.Module(batch.Seed, ShaderCompute)
	if err != nil {
		cd.destroy(r.device)
		return nil, err
	}
	cd.seed, err = r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "vox_seed_pipeline",
		Layout: cd.layout,
		Compute: hal.ComputeState{
			Module:     seedModule,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		cd.destroy(r.device)
		return nil, fmt.Errorf("create seed pipeline: %w", err)
	}

	jfaModule, err := r.shaders.Module(batch.JFA, ShaderCompute)
	if err != nil {
		cd.destroy(r.device)
		return nil, err
	}
	cd.jfa, err = r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "vox_jfa_pipeline",
		Layout: cd.layout,
		Compute: hal.ComputeState{
			Module:     jfaModule,
			EntryPoint: "cs_main",
		},
	})
	if err != nil {
		cd.destroy(r.device)
		return nil, fmt.Errorf("create jfa pipeline: %w", err)
	}

	// Step 0 is the seed dispatch; the rest are the flood iterations.
	params := append([]uint32{0}, jfaSteps(r.volumes.edge)...)
	for i, step := range params {
		buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("vox_compute_step_%d", i),
			Size:  stepUniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			cd.destroy(r.device)
			return nil, fmt.Errorf("create compute step buffer: %w", err)
		}
		cd.stepBufs = append(cd.stepBufs, buf)

		var packed [stepUniformSize]byte
		binary.LittleEndian.PutUint32(packed[:4], step)
		r.queue.WriteBuffer(buf, 0, packed[:])

		group, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  fmt.Sprintf("vox_compute_bind_%d", i),
			Layout: cd.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(), Offset: 0, Size: stepUniformSize,
				}},
				{Binding: 1, Resource: gputypes.TextureViewBinding{
					TextureView: r.volumes.dataView.NativeHandle(),
				}},
				{Binding: 2, Resource: gputypes.TextureViewBinding{
					TextureView: r.volumes.sdfView.NativeHandle(),
				}},
			},
		})
		if err != nil {
			cd.destroy(r.device)
			return nil, fmt.Errorf("create compute bind group: %w", err)
		}
		cd.stepGroups = append(cd.stepGroups, group)
	}

	return cd, nil
}

// matches reports whether the group can serve the batch unchanged.
func (cd *computeData) matches(batch Batch, gen uint64) bool {
	return cd != nil && cd.batch.Seed == batch.Seed && cd.batch.JFA == batch.JFA && cd.gen == gen
}

// destroy releases the group. Safe to call twice and on partial groups.
func (cd *computeData) destroy(device hal.Device) {
	for _, g := range cd.stepGroups {
		device.DestroyBindGroup(g)
	}
	cd.stepGroups = nil
	for _, b := range cd.stepBufs {
		device.DestroyBuffer(b)
	}
	cd.stepBufs = nil
	if cd.jfa != nil {
		device.DestroyComputePipeline(cd.jfa)
		cd.jfa = nil
	}
	if cd.seed != nil {
		device.DestroyComputePipeline(cd.seed)
		cd.seed = nil
	}
	if cd.layout != nil {
		device.DestroyPipelineLayout(cd.layout)
		cd.layout = nil
	}
	if cd.bindLayout != nil {
		device.DestroyBindGroupLayout(cd.bindLayout)
		cd.bindLayout = nil
	}
}
