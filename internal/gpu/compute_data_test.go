package gpu

import "testing"

func TestJFASteps(t *testing.T) {
	tests := []struct {
		edge uint32
		want []uint32
	}{
		{edge: 64, want: []uint32{32, 16, 8, 4, 2, 1}},
		{edge: 8, want: []uint32{4, 2, 1}},
		{edge: 2, want: []uint32{1}},
	}
	for _, tt := range tests {
		got := jfaSteps(tt.edge)
		if len(got) != len(tt.want) {
			t.Errorf("jfaSteps(%d) = %v, want %v", tt.edge, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("jfaSteps(%d)[%d] = %d, want %d", tt.edge, i, got[i], tt.want[i])
			}
		}
	}
}

func TestDrawBatchBindsComputeResources(t *testing.T) {
	r, done := newTestRenderer(t)
	defer done()

	if err := r.DrawBatch(testBatch()); err != nil {
		t.Fatalf("DrawBatch: %v", err)
	}
	cd := r.compute
	if cd == nil {
		t.Fatal("compute data missing after a frame")
	}
	if cd.bindLayout == nil || cd.layout == nil {
		t.Fatal("compute layouts missing")
	}

	// One bind group for the seed dispatch plus one per flood step, each
	// backed by its own step uniform.
	want := 1 + len(jfaSteps(r.volumes.edge))
	if len(cd.stepGroups) != want {
		t.Errorf("compute bind groups = %d, want %d", len(cd.stepGroups), want)
	}
	if len(cd.stepBufs) != want {
		t.Errorf("compute step buffers = %d, want %d", len(cd.stepBufs), want)
	}
	for i, g := range cd.stepGroups {
		if g == nil {
			t.Errorf("bind group %d is nil", i)
		}
	}
}
