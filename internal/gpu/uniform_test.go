package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUniformPackSize(t *testing.T) {
	u := defaultUniforms(960, 540, 2)
	buf := u.pack()
	if len(buf) != uniformSize {
		t.Fatalf("packed size = %d, want %d", len(buf), uniformSize)
	}
	if uniformSize%16 != 0 {
		t.Errorf("uniform size %d not 16-byte aligned", uniformSize)
	}
}

func TestUniformPackLayout(t *testing.T) {
	u := Uniforms{
		Model:          mgl32.Ident4(),
		View:           mgl32.Translate3D(1, 2, 3),
		Proj:           mgl32.Perspective(mgl32.DegToRad(90), 16.0/9.0, 0.1, 100),
		Resolution:     mgl32.Vec2{960, 540},
		RenderDistance: 3,
	}
	buf := u.pack()

	// First matrix column-major: identity starts with 1.0.
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])); got != 1.0 {
		t.Errorf("model[0] = %v, want 1.0", got)
	}
	// View matrix occupies the second 64-byte block; its translation
	// lives in the last column.
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[64+12*4:])); got != 1.0 {
		t.Errorf("view translation x = %v, want 1.0", got)
	}
	// Resolution follows the three matrices.
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[192:])); got != 960 {
		t.Errorf("resolution x = %v, want 960", got)
	}
	if got := binary.LittleEndian.Uint32(buf[200:]); got != 3 {
		t.Errorf("render distance = %d, want 3", got)
	}
}

func TestCubeVertices(t *testing.T) {
	buf := cubeVertices()
	if len(buf) != cubeVertexCount*vertexStride {
		t.Fatalf("cube vertex bytes = %d, want %d", len(buf), cubeVertexCount*vertexStride)
	}
	// Every coordinate is a unit-cube corner.
	for i := 0; i < len(buf); i += 4 {
		f := math.Float32frombits(binary.LittleEndian.Uint32(buf[i:]))
		if f != 0 && f != 1 {
			t.Fatalf("vertex coordinate %v outside the unit cube", f)
		}
	}
}

func TestWorkgroups(t *testing.T) {
	cases := []struct{ edge, want uint32 }{
		{64, 16},
		{65, 17},
		{1, 1},
	}
	for _, tc := range cases {
		if got := workgroups(tc.edge); got != tc.want {
			t.Errorf("workgroups(%d) = %d, want %d", tc.edge, got, tc.want)
		}
	}
}

func TestVolumeEdge(t *testing.T) {
	if VolumeEdge(2) != 128 {
		t.Errorf("VolumeEdge(2) = %d, want 128", VolumeEdge(2))
	}
}
