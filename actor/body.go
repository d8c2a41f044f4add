package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of body
type BodyType int

const (
	// BodyTypeDynamic bodies move and have finite mass.
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies never move and have infinite mass.
	BodyTypeStatic
)

// Body places a shape in the world. The pose before the current step is
// kept so continuous queries can sweep the motion.
type Body struct {
	ID uint64

	PreviousTransform Transform
	Transform         Transform

	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	BodyType BodyType
	// Material indexes the dispatcher's material table.
	Material  int
	IsTrigger bool

	Shape Shape

	mass                float64
	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3
}

// NewBody creates a body. density is used to calculate mass for dynamic
// bodies and ignored for static ones.
func NewBody(id uint64, transform Transform, shape Shape, bodyType BodyType, density float64) *Body {
	b := &Body{
		ID:                id,
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
	}

	if bodyType == BodyTypeStatic {
		b.mass = math.Inf(1)
		return b
	}
	b.mass = shape.ComputeMass(density)
	b.InertiaLocal = shape.ComputeInertia(b.mass)
	if b.InertiaLocal.Det() != 0 {
		b.InverseInertiaLocal = b.InertiaLocal.Inv()
	}
	return b
}

func (b *Body) Mass() float64 {
	return b.mass
}

// MoveTo records the current pose as previous and sets a new one.
func (b *Body) MoveTo(transform Transform) {
	b.PreviousTransform = b.Transform
	b.Transform = transform
}

// Displacement returns how far the body travelled during the last step.
func (b *Body) Displacement() float64 {
	return b.Transform.Position.Sub(b.PreviousTransform.Position).Len()
}

// Bounds returns the world box of the shape.
func (b *Body) Bounds() AABB {
	return b.Shape.Bounds(b.Transform)
}

// SweptBounds returns the box covering the last step's motion.
func (b *Body) SweptBounds() AABB {
	return b.Shape.Bounds(b.PreviousTransform).Union(b.Bounds())
}

// SupportWorld maps a world direction through a convex shape's support.
func SupportWorld(shape Convex, transform Transform, direction mgl64.Vec3) mgl64.Vec3 {
	local := shape.Support(transform.InverseRotate(direction))
	return transform.Apply(local)
}

// GetInertiaWorld returns R * I_local * R^T.
func (b *Body) GetInertiaWorld() mgl64.Mat3 {
	r := b.Transform.Rotation.Mat4().Mat3()
	return r.Mul3(b.InertiaLocal).Mul3(r.Transpose())
}

// GetInverseInertiaWorld returns R * I_local^-1 * R^T, zero for static bodies.
func (b *Body) GetInverseInertiaWorld() mgl64.Mat3 {
	if b.BodyType == BodyTypeStatic {
		return mgl64.Mat3{}
	}
	r := b.Transform.Rotation.Mat4().Mat3()
	return r.Mul3(b.InverseInertiaLocal).Mul3(r.Transpose())
}
