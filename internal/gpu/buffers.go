package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Default buffer sizes. The world buffer holds the octree node array
// plus both volume uploads and dominates device memory.
const (
	defaultStagingSize  = 32768
	defaultInstanceSize = 32768
	defaultWorldSize    = 3_200_000_000
)

// gpuWaitTimeout bounds every fence wait. A frame that takes longer
// than this indicates a hung device.
const gpuWaitTimeout = 5 * time.Second

// fenceWaitError folds a fence wait result into a single error. A nil
// error with ok false is a timeout.
func fenceWaitError(op string, ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%s: fence wait timed out after %v", op, gpuWaitTimeout)
	}
	return nil
}

// bufferSet holds the renderer's long-lived buffers.
type bufferSet struct {
	staging  hal.Buffer
	instance hal.Buffer
	world    hal.Buffer
	uniform  hal.Buffer
	vertex   hal.Buffer

	stagingSize uint64
}

// createBuffers allocates the static buffer set. On failure everything
// already created is destroyed.
func createBuffers(device hal.Device, worldSize uint64) (*bufferSet, error) {
	bs := &bufferSet{stagingSize: defaultStagingSize}

	var err error
	bs.staging, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vox_staging",
		Size:  defaultStagingSize,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}

	bs.instance, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vox_instance",
		Size:  defaultInstanceSize,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		bs.destroy(device)
		return nil, fmt.Errorf("create instance buffer: %w", err)
	}

	bs.world, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vox_world",
		Size:  worldSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		bs.destroy(device)
		return nil, fmt.Errorf("create world buffer: %w", err)
	}

	bs.uniform, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vox_uniform",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		bs.destroy(device)
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}

	cube := cubeVertices()
	bs.vertex, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vox_cube_vertices",
		Size:  uint64(len(cube)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		bs.destroy(device)
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}

	return bs, nil
}

// destroy releases all buffers. Safe to call twice.
func (bs *bufferSet) destroy(device hal.Device) {
	for _, b := range []*hal.Buffer{&bs.vertex, &bs.uniform, &bs.world, &bs.instance, &bs.staging} {
		if *b != nil {
			device.DestroyBuffer(*b)
			*b = nil
		}
	}
}

// uploadBuffer streams data into dst through the staging buffer, one
// staging-sized chunk at a time. Each chunk is written, copied, and
// fenced before the next; the transfer is complete when this returns.
func (r *Renderer) uploadBuffer(dst hal.Buffer, offset uint64, data []byte) error {
	for len(data) > 0 {
		n := uint64(len(data))
		if n > r.buffers.stagingSize {
			n = r.buffers.stagingSize
		}
		r.queue.WriteBuffer(r.buffers.staging, 0, data[:n])

		encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
			Label: "vox_upload",
		})
		if err != nil {
			return fmt.Errorf("create upload encoder: %w", err)
		}
		if err := encoder.BeginEncoding("vox_upload"); err != nil {
			return fmt.Errorf("begin upload encoding: %w", err)
		}
		encoder.CopyBufferToBuffer(r.buffers.staging, dst, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: offset, Size: n},
		})
		cmdBuf, err := encoder.EndEncoding()
		if err != nil {
			return fmt.Errorf("end upload encoding: %w", err)
		}

		err = r.submitAndWait([]hal.CommandBuffer{cmdBuf})
		r.device.FreeCommandBuffer(cmdBuf)
		if err != nil {
			return err
		}

		data = data[n:]
		offset += n
	}
	return nil
}

// submitAndWait submits command buffers on the frame fence and blocks
// until the GPU signals it.
func (r *Renderer) submitAndWait(cmdBufs []hal.CommandBuffer) error {
	r.fenceValue++
	if err := r.queue.Submit(cmdBufs, r.fence, r.fenceValue); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := r.device.Wait(r.fence, r.fenceValue, gpuWaitTimeout)
	return fenceWaitError("wait for GPU", ok, err)
}
