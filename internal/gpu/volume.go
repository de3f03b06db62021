package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// chunkSize is the world edge per render-distance unit, in voxels.
const chunkSize = 32

// volumeSet holds the two cubelet volumes: per-voxel albedo and the
// signed distance field the JFA passes refine. Both are cubic RGBA32F
// 3D textures of edge 2*renderDistance*chunkSize.
type volumeSet struct {
	edge uint32

	dataTex  hal.Texture
	dataView hal.TextureView
	sdfTex   hal.Texture
	sdfView  hal.TextureView
	sampler  hal.Sampler
}

// VolumeEdge returns the cubelet edge for a render distance.
func VolumeEdge(renderDistance uint32) uint32 {
	return 2 * renderDistance * chunkSize
}

// createVolumes builds both volumes and their shared nearest sampler.
func createVolumes(device hal.Device, renderDistance uint32) (*volumeSet, error) {
	vs := &volumeSet{edge: VolumeEdge(renderDistance)}

	size := hal.Extent3D{
		Width:              vs.edge,
		Height:             vs.edge,
		DepthOrArrayLayers: vs.edge,
	}

	var err error
	vs.dataTex, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         "vox_cubelet_data",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension3D,
		Format:        gputypes.TextureFormatRGBA32Float,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create cubelet data texture: %w", err)
	}
	vs.dataView, err = device.CreateTextureView(vs.dataTex, &hal.TextureViewDescriptor{
		Label:         "vox_cubelet_data_view",
		Format:        gputypes.TextureFormatRGBA32Float,
		Dimension:     gputypes.TextureViewDimension3D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		vs.destroy(device)
		return nil, fmt.Errorf("create cubelet data view: %w", err)
	}

	vs.sdfTex, err = device.CreateTexture(&hal.TextureDescriptor{
		Label:         "vox_cubelet_sdf",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension3D,
		Format:        gputypes.TextureFormatRGBA32Float,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		vs.destroy(device)
		return nil, fmt.Errorf("create cubelet sdf texture: %w", err)
	}
	vs.sdfView, err = device.CreateTextureView(vs.sdfTex, &hal.TextureViewDescriptor{
		Label:         "vox_cubelet_sdf_view",
		Format:        gputypes.TextureFormatRGBA32Float,
		Dimension:     gputypes.TextureViewDimension3D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		vs.destroy(device)
		return nil, fmt.Errorf("create cubelet sdf view: %w", err)
	}

	// RGBA32F is unfilterable; nearest sampling is also what blocky
	// voxel lookups want.
	vs.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "vox_cubelet_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		vs.destroy(device)
		return nil, fmt.Errorf("create cubelet sampler: %w", err)
	}

	return vs, nil
}

// upload writes full-volume float data into one of the cubelet textures
// through queue.WriteTexture. len(data) must be edge^3 * 4 floats.
func (vs *volumeSet) upload(queue hal.Queue, tex hal.Texture, data []float32) error {
	want := int(vs.edge) * int(vs.edge) * int(vs.edge) * 4
	if len(data) != want {
		return fmt.Errorf("gpu: volume upload size %d, want %d floats", len(data), want)
	}

	raw := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}

	queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		raw,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  vs.edge * 16,
			RowsPerImage: vs.edge,
		},
		&hal.Extent3D{Width: vs.edge, Height: vs.edge, DepthOrArrayLayers: vs.edge},
	)
	return nil
}

// UploadData uploads the albedo volume.
func (vs *volumeSet) UploadData(queue hal.Queue, data []float32) error {
	return vs.upload(queue, vs.dataTex, data)
}

// UploadSDF uploads the distance-field seed volume.
func (vs *volumeSet) UploadSDF(queue hal.Queue, data []float32) error {
	return vs.upload(queue, vs.sdfTex, data)
}

// destroy releases views, textures, and the sampler. Safe to call twice
// and on partially built sets.
func (vs *volumeSet) destroy(device hal.Device) {
	if vs.sampler != nil {
		device.DestroySampler(vs.sampler)
		vs.sampler = nil
	}
	if vs.sdfView != nil {
		device.DestroyTextureView(vs.sdfView)
		vs.sdfView = nil
	}
	if vs.sdfTex != nil {
		device.DestroyTexture(vs.sdfTex)
		vs.sdfTex = nil
	}
	if vs.dataView != nil {
		device.DestroyTextureView(vs.dataView)
		vs.dataView = nil
	}
	if vs.dataTex != nil {
		device.DestroyTexture(vs.dataTex)
		vs.dataTex = nil
	}
}
