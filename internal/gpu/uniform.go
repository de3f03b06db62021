package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// uniformSize is the packed std140 size of Uniforms: three mat4s, a
// vec2, a u32, padded to a 16-byte multiple.
const uniformSize = 3*64 + 8 + 4 + 4

// Uniforms is the per-frame shader uniform block.
type Uniforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Proj       mgl32.Mat4
	Resolution mgl32.Vec2
	// RenderDistance is in chunks; shaders derive the world edge from it.
	RenderDistance uint32
}

// defaultUniforms returns identity matrices with the given viewport.
func defaultUniforms(width, height, renderDistance uint32) Uniforms {
	return Uniforms{
		Model:          mgl32.Ident4(),
		View:           mgl32.Ident4(),
		Proj:           mgl32.Ident4(),
		Resolution:     mgl32.Vec2{float32(width), float32(height)},
		RenderDistance: renderDistance,
	}
}

// pack serializes the block little-endian in std140 layout. mgl32
// matrices are column-major, matching the WGSL side.
func (u *Uniforms) pack() []byte {
	buf := make([]byte, uniformSize)
	off := 0
	for _, m := range []mgl32.Mat4{u.Model, u.View, u.Proj} {
		for _, f := range m {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(u.Resolution[0]))
	binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(u.Resolution[1]))
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], u.RenderDistance)
	// Trailing 4 bytes stay zero padding.
	return buf
}
