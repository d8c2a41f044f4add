package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid pose: a rotation followed by a translation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewPose creates a transform at position with the given rotation.
func NewPose(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Position: position, Rotation: rotation.Normalize()}
}

// Apply maps a local point to world space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// ApplyInverse maps a world point to local space.
func (t Transform) ApplyInverse(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(p.Sub(t.Position))
}

// Rotate maps a local direction to world space.
func (t Transform) Rotate(d mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(d)
}

// InverseRotate maps a world direction to local space.
func (t Transform) InverseRotate(d mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(d)
}

// Mul returns the pose of child, expressed in t's frame, in world space.
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Position: t.Apply(child.Position),
		Rotation: t.Rotation.Mul(child.Rotation).Normalize(),
	}
}

// Inverse returns the transform undoing t.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{Position: inv.Rotate(t.Position.Mul(-1)), Rotation: inv}
}

// Delta returns the distance and the rotation angle (radians) between two
// poses.
func (t Transform) Delta(other Transform) (linear, angular float64) {
	linear = other.Position.Sub(t.Position).Len()
	dot := math.Abs(t.Rotation.Dot(other.Rotation))
	angular = 2 * math.Acos(min(dot, 1))
	return linear, angular
}

// Interpolate blends two poses, f in [0,1].
func (t Transform) Interpolate(other Transform, f float64) Transform {
	return Transform{
		Position: t.Position.Add(other.Position.Sub(t.Position).Mul(f)),
		Rotation: mgl64.QuatSlerp(t.Rotation, other.Rotation, f).Normalize(),
	}
}

// Mat4 returns the homogeneous matrix of t.
func (t Transform) Mat4() mgl64.Mat4 {
	return mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).Mul4(t.Rotation.Mat4())
}
