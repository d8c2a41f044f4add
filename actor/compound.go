package actor

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Child is a convex piece of a compound placed in the compound frame.
type Child struct {
	Shape Convex
	Local Transform
}

// Compound is a rigid union of convex children, indexed by a tree over
// their local boxes.
type Compound struct {
	Children []Child

	tree      *Tree
	radius    float64
	volume    float64
	signature Signature
}

// NewCompound builds a compound. It needs at least one child.
func NewCompound(children []Child) (*Compound, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("actor: compound without children: %w", geom.ErrDegenerateInput)
	}
	c := &Compound{
		Children: children,
		tree:     NewTree(0),
	}
	s := newSigner(ShapeKindCompound, "")
	s.int(len(children))
	for i, child := range children {
		c.tree.Insert(child.Shape.Bounds(child.Local), i)
		c.radius = max(c.radius, child.Local.Position.Len()+child.Shape.BoundingRadius())
		c.volume += child.Shape.Volume()
		s.signature(child.Shape.Signature())
		s.transform(child.Local)
	}
	c.signature = s.sum()
	return c, nil
}

func (c *Compound) Kind() ShapeKind {
	return ShapeKindCompound
}

func (c *Compound) Bounds(transform Transform) AABB {
	box := EmptyAABB()
	for _, child := range c.Children {
		box = box.Union(child.Shape.Bounds(transform.Mul(child.Local)))
	}
	return box
}

func (c *Compound) BoundingRadius() float64 {
	return c.radius
}

func (c *Compound) Volume() float64 {
	return c.volume
}

func (c *Compound) ComputeMass(density float64) float64 {
	return density * c.volume
}

// ComputeInertia sums the child tensors, each carrying a share of mass
// proportional to its volume, moved to the compound origin.
func (c *Compound) ComputeInertia(mass float64) mgl64.Mat3 {
	var inertia mgl64.Mat3
	if c.volume <= 0 {
		return inertia
	}
	for _, child := range c.Children {
		m := mass * child.Shape.Volume() / c.volume
		r := child.Local.Rotation.Mat4().Mat3()
		local := r.Mul3(child.Shape.ComputeInertia(m)).Mul3(r.Transpose())
		d := child.Local.Position
		shift := mgl64.Ident3().Mul(d.Dot(d)).Sub(d.OuterProd3(d)).Mul(m)
		inertia = inertia.Add(local).Add(shift)
	}
	return inertia
}

// Query calls fn with the index of every child whose local box overlaps
// box, given in the compound frame.
func (c *Compound) Query(box AABB, fn func(child int) bool) {
	c.tree.Query(box, fn)
}

func (c *Compound) Signature() Signature {
	return c.signature
}
