package octree

import "testing"

func TestWalkVisitsInsertedVoxels(t *testing.T) {
	tr := New(4)
	inserted := map[Position]uint16{
		{X: 0, Y: 0, Z: 0}:    1,
		{X: 15, Y: 15, Z: 15}: 2,
		{X: 3, Y: 7, Z: 11}:   3,
	}
	for pos, block := range inserted {
		if err := tr.Insert(pos, block); err != nil {
			t.Fatalf("Insert(%v): %v", pos, err)
		}
	}

	visited := make(map[Position]uint16)
	tr.Walk(func(pos Position, block uint16) bool {
		visited[pos] = block
		return true
	})

	if len(visited) != len(inserted) {
		t.Fatalf("walk visited %d voxels, want %d", len(visited), len(inserted))
	}
	for pos, block := range inserted {
		if visited[pos] != block {
			t.Errorf("voxel %v = %d, want %d", pos, visited[pos], block)
		}
	}
}

func TestWalkStopsEarly(t *testing.T) {
	tr := New(3)
	for x := uint32(0); x < 4; x++ {
		if err := tr.Insert(Position{X: x}, 1); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	count := 0
	tr.Walk(func(Position, uint16) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("walk visited %d voxels after stop, want 2", count)
	}
}

func TestWalkEmptyTree(t *testing.T) {
	tr := New(5)
	tr.Walk(func(pos Position, block uint16) bool {
		t.Errorf("walk visited %v in an empty tree", pos)
		return true
	})
}
