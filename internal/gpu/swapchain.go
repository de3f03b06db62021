package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// swapchainImageCount is the presentation ring length.
const swapchainImageCount = 3

// ErrSwapchainStale is returned by acquire after a resize retires the
// ring. The caller skips the frame; the next frame renders into the
// rebuilt ring.
var ErrSwapchainStale = errors.New("gpu: swapchain out of date")

// swapchain is the owned ring of presentation targets. Each image is a
// BGRA8 render attachment that can also be copied out for presentation
// readback.
type swapchain struct {
	width  uint32
	height uint32

	images []hal.Texture
	views  []hal.TextureView
	next   int
	stale  bool
}

// createSwapchain builds a ring at the given extent. The old ring, when
// present, is destroyed only after every image of the new ring exists,
// so a failed rebuild leaves the old ring usable.
func createSwapchain(device hal.Device, width, height uint32, old *swapchain) (*swapchain, error) {
	sc := &swapchain{width: width, height: height}

	for i := 0; i < swapchainImageCount; i++ {
		tex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label: fmt.Sprintf("vox_swapchain_%d", i),
			Size: hal.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatBGRA8Unorm,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			sc.destroy(device)
			return nil, fmt.Errorf("create swapchain image %d: %w", i, err)
		}
		sc.images = append(sc.images, tex)

		view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         fmt.Sprintf("vox_swapchain_%d_view", i),
			Format:        gputypes.TextureFormatBGRA8Unorm,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			sc.destroy(device)
			return nil, fmt.Errorf("create swapchain view %d: %w", i, err)
		}
		sc.views = append(sc.views, view)
	}

	if old != nil {
		old.destroy(device)
	}
	return sc, nil
}

// acquire returns the next image index. Fails once the ring is stale.
func (sc *swapchain) acquire() (int, error) {
	if sc.stale {
		return 0, ErrSwapchainStale
	}
	idx := sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	return idx, nil
}

// markStale retires the ring; every acquire fails until a rebuild.
func (sc *swapchain) markStale() { sc.stale = true }

// destroy releases the ring. Safe to call twice.
func (sc *swapchain) destroy(device hal.Device) {
	for _, v := range sc.views {
		if v != nil {
			device.DestroyTextureView(v)
		}
	}
	sc.views = nil
	for _, t := range sc.images {
		if t != nil {
			device.DestroyTexture(t)
		}
	}
	sc.images = nil
}
