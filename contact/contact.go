// Package contact holds the narrow-phase output: contact points, the mixed
// material of a touching pair and the reduction of raw contact sets.
package contact

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// NoChild marks a contact owned by a shape that has no children.
const NoChild = -1

// Point is one contact between two shapes.
type Point struct {
	Position mgl64.Vec3
	// Normal points from body A toward body B.
	Normal mgl64.Vec3
	Depth  float64
	// LocalA and LocalB anchor the contact in each body's frame, used to
	// check whether the contact still holds after the bodies moved.
	LocalA mgl64.Vec3
	LocalB mgl64.Vec3
	// ChildA and ChildB index the compound child or scene triangle that
	// produced the contact, NoChild otherwise.
	ChildA int
	ChildB int
}

// Anchor fills the local anchors of p from the two body poses.
func (p *Point) Anchor(poseA, poseB actor.Transform) {
	p.LocalA = poseA.ApplyInverse(p.Position)
	p.LocalB = poseB.ApplyInverse(p.Position.Sub(p.Normal.Mul(p.Depth)))
}

// Drift returns how far the anchors of p moved apart from their original
// configuration under the new poses.
func (p Point) Drift(poseA, poseB actor.Transform) float64 {
	worldA := poseA.Apply(p.LocalA)
	worldB := poseB.Apply(p.LocalB)
	offset := worldA.Sub(worldB)
	depth := offset.Dot(p.Normal)
	tangential := offset.Sub(p.Normal.Mul(depth)).Len()
	return math.Max(math.Abs(depth-p.Depth), tangential)
}

// Material is the combined response of a touching pair.
type Material struct {
	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64
}

// Mix combines two body materials: restitution is averaged and frictions use
// the geometric mean.
func Mix(a, b actor.Material) Material {
	return Material{
		Restitution:     (a.Restitution + b.Restitution) / 2.0,
		StaticFriction:  math.Sqrt(a.StaticFriction * b.StaticFriction),
		DynamicFriction: math.Sqrt(a.DynamicFriction * b.DynamicFriction),
	}
}

// Manifold is the cached contact set of one body pair.
type Manifold struct {
	BodyA    uint64
	BodyB    uint64
	Normal   mgl64.Vec3
	Points   []Point
	Material Material
	// TOI is the fraction of the step at which the contacts were found,
	// 1 for discrete contacts.
	TOI float64
}

// Deepest returns the point with the largest depth, or false when empty.
func (m *Manifold) Deepest() (Point, bool) {
	if len(m.Points) == 0 {
		return Point{}, false
	}
	best := m.Points[0]
	for _, p := range m.Points[1:] {
		if p.Depth > best.Depth {
			best = p
		}
	}
	return best, true
}

// Flip swaps the roles of both bodies.
func (m *Manifold) Flip() {
	m.BodyA, m.BodyB = m.BodyB, m.BodyA
	m.Normal = m.Normal.Mul(-1)
	for i := range m.Points {
		m.Points[i] = m.Points[i].Flipped()
	}
}

// Flipped returns p seen from the other body. The position moves to the
// surface of the former body B.
func (p Point) Flipped() Point {
	return Point{
		Position: p.Position.Sub(p.Normal.Mul(p.Depth)),
		Normal:   p.Normal.Mul(-1),
		Depth:    p.Depth,
		LocalA:   p.LocalB,
		LocalB:   p.LocalA,
		ChildA:   p.ChildB,
		ChildB:   p.ChildA,
	}
}
