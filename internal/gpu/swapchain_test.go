package gpu

import (
	"errors"
	"testing"
)

func TestSwapchainAcquireRotates(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	sc, err := createSwapchain(device, 64, 64, nil)
	if err != nil {
		t.Fatalf("createSwapchain: %v", err)
	}
	defer sc.destroy(device)

	seen := make(map[int]bool)
	for i := 0; i < swapchainImageCount*2; i++ {
		idx, err := sc.acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if idx < 0 || idx >= swapchainImageCount {
			t.Fatalf("acquire returned index %d", idx)
		}
		seen[idx] = true
	}
	if len(seen) != swapchainImageCount {
		t.Errorf("ring used %d distinct images, want %d", len(seen), swapchainImageCount)
	}
}

func TestSwapchainStale(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	sc, err := createSwapchain(device, 64, 64, nil)
	if err != nil {
		t.Fatalf("createSwapchain: %v", err)
	}
	defer sc.destroy(device)

	sc.markStale()
	if _, err := sc.acquire(); !errors.Is(err, ErrSwapchainStale) {
		t.Errorf("acquire on stale ring = %v, want ErrSwapchainStale", err)
	}
}

func TestSwapchainReplacementRetiresOld(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	old, err := createSwapchain(device, 64, 64, nil)
	if err != nil {
		t.Fatalf("createSwapchain: %v", err)
	}
	next, err := createSwapchain(device, 128, 128, old)
	if err != nil {
		t.Fatalf("replacement createSwapchain: %v", err)
	}
	defer next.destroy(device)

	if len(old.images) != 0 || len(old.views) != 0 {
		t.Error("old ring not retired after replacement")
	}
	if next.width != 128 || next.height != 128 {
		t.Errorf("replacement extent = %dx%d, want 128x128", next.width, next.height)
	}
}

func TestSwapchainDestroyTwice(t *testing.T) {
	device, _, cleanup := createNoopDevice(t)
	defer cleanup()

	sc, err := createSwapchain(device, 32, 32, nil)
	if err != nil {
		t.Fatalf("createSwapchain: %v", err)
	}
	sc.destroy(device)
	sc.destroy(device) // must not panic
}
