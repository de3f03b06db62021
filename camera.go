package vox

import "github.com/go-gl/mathgl/mgl32"

// Camera positions the view for rendered frames. FOV is the vertical
// field of view in radians; Near and Far bound the depth range.
type Camera struct {
	Eye    mgl32.Vec3
	Center mgl32.Vec3
	Up     mgl32.Vec3

	FOV  float32
	Near float32
	Far  float32
}

// DefaultCamera looks at the world center from an elevated corner.
func DefaultCamera() Camera {
	return Camera{
		Eye:    mgl32.Vec3{-32, 96, -32},
		Center: mgl32.Vec3{64, 32, 64},
		Up:     mgl32.Vec3{0, 1, 0},
		FOV:    mgl32.DegToRad(70),
		Near:   0.1,
		Far:    1000,
	}
}

// view returns the camera's view matrix.
func (c Camera) view() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Center, c.Up)
}

// projection returns the camera's projection matrix for the given
// target extent.
func (c Camera) projection(width, height uint32) mgl32.Mat4 {
	aspect := float32(width) / float32(height)
	return mgl32.Perspective(c.FOV, aspect, c.Near, c.Far)
}
