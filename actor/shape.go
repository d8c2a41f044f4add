package actor

import (
	"fmt"
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind is the stable id of a shape variant. The values are persisted
// and must not be renumbered.
type ShapeKind int

const (
	ShapeKindConvex ShapeKind = iota + 1
	ShapeKindCompound
	ShapeKindScene
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeKindConvex:
		return "convex"
	case ShapeKindCompound:
		return "compound"
	case ShapeKindScene:
		return "scene"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Shape is implemented by every collision shape. Shapes are immutable once
// built and may be shared between bodies.
type Shape interface {
	Kind() ShapeKind
	// Bounds returns the world box of the shape placed at transform.
	Bounds(transform Transform) AABB
	// BoundingRadius bounds the distance from the local origin to any point.
	BoundingRadius() float64
	Volume() float64
	// ComputeMass calculates the mass for a given density
	ComputeMass(density float64) float64
	ComputeInertia(mass float64) mgl64.Mat3
	Signature() Signature
}

// Convex is a shape described by its support mapping.
type Convex interface {
	Shape
	// Support returns the local point furthest along a local direction.
	Support(direction mgl64.Vec3) mgl64.Vec3
	// ContactFeature returns the local vertex, edge or face most aligned
	// with a local direction.
	ContactFeature(direction mgl64.Vec3) []mgl64.Vec3
}

// Box represents an oriented box collision shape
// The box is defined by its half-extents (half-width, half-height, half-depth)
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Kind() ShapeKind {
	return ShapeKindConvex
}

func (b *Box) corners() [8]mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	return [8]mgl64.Vec3{
		{-hx, -hy, -hz}, {+hx, -hy, -hz}, {-hx, +hy, -hz}, {+hx, +hy, -hz},
		{-hx, -hy, +hz}, {+hx, -hy, +hz}, {-hx, +hy, +hz}, {+hx, +hy, +hz},
	}
}

func (b *Box) Bounds(transform Transform) AABB {
	corners := b.corners()
	return BoundPoints(corners[:], transform)
}

func (b *Box) BoundingRadius() float64 {
	return b.HalfExtents.Len()
}

func (b *Box) Volume() float64 {
	return 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

func (b *Box) ComputeMass(density float64) float64 {
	return density * b.Volume()
}

func (b *Box) ComputeInertia(mass float64) mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	// I = (m/12) * (d1² + d2²)
	factor := mass / 12.0
	return mgl64.Diag3(mgl64.Vec3{
		factor * (y*y + z*z),
		factor * (x*x + z*z),
		factor * (x*x + y*y),
	})
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}
	return mgl64.Vec3{hx, hy, hz}
}

// ContactFeature returns the face whose normal is closest to direction,
// counter-clockwise seen from outside.
func (b *Box) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	axis, sign := 0, 1.0
	best := -1.0
	for i := range 3 {
		if d := math.Abs(direction[i]); d > best {
			best = d
			axis = i
			sign = math.Copysign(1, direction[i])
		}
	}

	// Two tangent axes forming a right handed frame with the face normal.
	u, v := (axis+1)%3, (axis+2)%3
	if sign < 0 {
		u, v = v, u
	}
	h := b.HalfExtents
	corner := func(su, sv float64) mgl64.Vec3 {
		var p mgl64.Vec3
		p[axis] = sign * h[axis]
		p[u] = su * h[u]
		p[v] = sv * h[v]
		return p
	}
	return []mgl64.Vec3{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}
}

func (b *Box) Signature() Signature {
	s := newSigner(ShapeKindConvex, "box")
	s.vec(b.HalfExtents)
	return s.sum()
}

// Sphere represents a spherical collision shape
type Sphere struct {
	Radius float64
}

func (s *Sphere) Kind() ShapeKind {
	return ShapeKindConvex
}

// Bounds ignores rotation.
func (s *Sphere) Bounds(transform Transform) AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{
		Min: transform.Position.Sub(r),
		Max: transform.Position.Add(r),
	}
}

func (s *Sphere) BoundingRadius() float64 {
	return s.Radius
}

func (s *Sphere) Volume() float64 {
	return (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)
}

func (s *Sphere) ComputeMass(density float64) float64 {
	return density * s.Volume()
}

func (s *Sphere) ComputeInertia(mass float64) mgl64.Mat3 {
	// I = (2/5) * m * r²
	i := (2.0 / 5.0) * mass * s.Radius * s.Radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < geom.Epsilon*geom.Epsilon {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

func (s *Sphere) Signature() Signature {
	sg := newSigner(ShapeKindConvex, "sphere")
	sg.float(s.Radius)
	return sg.sum()
}
