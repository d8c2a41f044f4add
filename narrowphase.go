package quill

import (
	"errors"
	"fmt"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/epa"
	"github.com/akmonengine/quill/gjk"
)

// ErrUnsupportedPair is returned for shape kinds that never collide with
// each other, such as two scenes.
var ErrUnsupportedPair = errors.New("unsupported shape pair")

// rank orders shape kinds so the simpler shape of a pair is evaluated on
// the left.
func rank(k actor.ShapeKind) int {
	switch k {
	case actor.ShapeKindConvex:
		return 0
	case actor.ShapeKindCompound:
		return 1
	case actor.ShapeKindScene:
		return 2
	}
	return 3
}

// generator collects raw contacts for one pair, bounded by limit.
type generator struct {
	limit  int
	points []contact.Point
	calls  func()
}

func (g *generator) add(points []contact.Point, childA, childB int) error {
	for _, p := range points {
		if p.ChildA == contact.NoChild {
			p.ChildA = childA
		}
		if p.ChildB == contact.NoChild {
			p.ChildB = childB
		}
		g.points = append(g.points, p)
	}
	return contact.CheckRaw(g.points, g.limit)
}

// collide routes a pair by shape kind. Pairs whose left shape ranks above
// the right one are evaluated swapped and their contacts flipped back.
func (g *generator) collide(a actor.Shape, poseA actor.Transform, b actor.Shape, poseB actor.Transform) error {
	if rank(a.Kind()) > rank(b.Kind()) {
		swapped := &generator{limit: g.limit, calls: g.calls}
		if err := swapped.collide(b, poseB, a, poseA); err != nil {
			return err
		}
		flipped := make([]contact.Point, len(swapped.points))
		for i, p := range swapped.points {
			flipped[i] = p.Flipped()
		}
		return g.add(flipped, contact.NoChild, contact.NoChild)
	}

	switch a.Kind() {
	case actor.ShapeKindConvex:
		convex, ok := a.(actor.Convex)
		if !ok {
			return fmt.Errorf("quill: %T reports convex kind without a support function: %w", a, ErrUnsupportedPair)
		}
		switch b.Kind() {
		case actor.ShapeKindConvex:
			other, ok := b.(actor.Convex)
			if !ok {
				return fmt.Errorf("quill: %T reports convex kind without a support function: %w", b, ErrUnsupportedPair)
			}
			return g.convexConvex(convex, poseA, other, poseB, contact.NoChild, contact.NoChild)
		case actor.ShapeKindCompound:
			return g.convexCompound(convex, poseA, b.(*actor.Compound), poseB)
		case actor.ShapeKindScene:
			return g.convexScene(convex, poseA, b.(*actor.Scene), poseB)
		}
	case actor.ShapeKindCompound:
		compound := a.(*actor.Compound)
		for i, child := range compound.Children {
			sub := &generator{limit: g.limit, calls: g.calls}
			if err := sub.collide(child.Shape, poseA.Mul(child.Local), b, poseB); err != nil {
				return err
			}
			if err := g.add(sub.points, i, contact.NoChild); err != nil {
				return err
			}
		}
		return nil
	case actor.ShapeKindScene:
		return fmt.Errorf("quill: %s against %s: %w", a.Kind(), b.Kind(), ErrUnsupportedPair)
	}
	return fmt.Errorf("quill: %s against %s: %w", a.Kind(), b.Kind(), ErrUnsupportedPair)
}

func (g *generator) convexConvex(a actor.Convex, poseA actor.Transform, b actor.Convex, poseB actor.Transform, childA, childB int) error {
	if g.calls != nil {
		g.calls()
	}
	proxyA := gjk.Proxy{Shape: a, Transform: poseA}
	proxyB := gjk.Proxy{Shape: b, Transform: poseB}

	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.Intersect(proxyA, proxyB, simplex) {
		return nil
	}
	pen, err := epa.Penetrate(proxyA, proxyB, simplex)
	if err != nil {
		return err
	}
	points, err := epa.Manifold(proxyA, proxyB, pen)
	if err != nil {
		return err
	}
	return g.add(points, childA, childB)
}

// convexCompound tests a against the children of c whose bounds overlap it.
func (g *generator) convexCompound(a actor.Convex, poseA actor.Transform, c *actor.Compound, poseC actor.Transform) error {
	box := a.Bounds(poseC.Inverse().Mul(poseA))
	var err error
	c.Query(box, func(i int) bool {
		child := c.Children[i]
		err = g.convexConvex(a, poseA, child.Shape, poseC.Mul(child.Local), contact.NoChild, i)
		return err == nil
	})
	return err
}

// convexScene tests a against the scene triangles its bounds overlap.
func (g *generator) convexScene(a actor.Convex, poseA actor.Transform, s *actor.Scene, poseS actor.Transform) error {
	box := a.Bounds(poseS.Inverse().Mul(poseA))
	var err error
	s.Query(box, func(i int) bool {
		err = g.convexConvex(a, poseA, s.Leaf(i), poseS, contact.NoChild, i)
		return err == nil
	})
	return err
}

// leaf is a convex piece of a shape, placed relative to the shape's origin.
type leaf struct {
	shape actor.Convex
	local actor.Transform
	child int
}

// leaves lists the convex pieces of shape whose bounds overlap region,
// given in the shape's local frame. A convex shape is its own single leaf.
func leaves(shape actor.Shape, region actor.AABB) []leaf {
	switch s := shape.(type) {
	case *actor.Compound:
		var out []leaf
		s.Query(region, func(i int) bool {
			child := s.Children[i]
			out = append(out, leaf{shape: child.Shape, local: child.Local, child: i})
			return true
		})
		return out
	case *actor.Scene:
		var out []leaf
		s.Query(region, func(i int) bool {
			out = append(out, leaf{shape: s.Leaf(i), local: actor.NewTransform(), child: i})
			return true
		})
		return out
	case actor.Convex:
		return []leaf{{shape: s, local: actor.NewTransform(), child: contact.NoChild}}
	}
	return nil
}
