package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device acquisition errors.
var (
	// ErrBackendUnavailable is returned when the Vulkan backend is not
	// compiled in or cannot start.
	ErrBackendUnavailable = errors.New("gpu: vulkan backend not available")

	// ErrNoAdapter is returned when adapter enumeration comes back empty.
	ErrNoAdapter = errors.New("gpu: no usable adapter found")
)

// Adapter score weights. Discrete GPUs win by a wide margin; ties keep
// enumeration order.
const (
	scoreDiscrete   = 420
	scoreIntegrated = 42
)

// deviceHandle bundles the instance-scoped objects the renderer owns.
// One queue family serves render, compute, and transfer submissions.
type deviceHandle struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	name     string
}

// acquireDevice creates an instance, scores the available adapters, and
// opens the best one.
func acquireDevice() (*deviceHandle, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters)

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	slogger().Info("gpu: device acquired",
		"adapter", selected.Info.Name,
		"type", selected.Info.DeviceType)

	return &deviceHandle{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		name:     selected.Info.Name,
	}, nil
}

// selectAdapter picks the highest-scoring adapter. The first adapter of
// the best score wins, so enumeration order breaks ties.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	best := &adapters[0]
	bestScore := adapterScore(adapters[0].Info.DeviceType)
	for i := 1; i < len(adapters); i++ {
		if s := adapterScore(adapters[i].Info.DeviceType); s > bestScore {
			best = &adapters[i]
			bestScore = s
		}
	}
	return best
}

func adapterScore(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return scoreDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return scoreIntegrated
	default:
		return 0
	}
}

// destroy releases the handle. Safe to call on a partially built or
// already destroyed handle.
func (h *deviceHandle) destroy() {
	if h.device != nil {
		h.device.Destroy()
		h.device = nil
		h.queue = nil
	}
	if h.instance != nil {
		h.instance.Destroy()
		h.instance = nil
	}
}
