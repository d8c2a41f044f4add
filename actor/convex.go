package actor

import (
	"math"

	"github.com/akmonengine/quill/hull"
	"github.com/akmonengine/quill/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// ConvexHull is a convex polytope shape built by hull.Build.
type ConvexHull struct {
	Hull *hull.Hull

	mass      mesh.MassProperties
	radius    float64
	signature Signature
}

// NewConvexHull wraps a built hull and precomputes its mass properties and
// signature.
func NewConvexHull(h *hull.Hull) *ConvexHull {
	c := &ConvexHull{Hull: h}
	if m, err := mesh.FromPolygons(h.Vertices, h.Faces, mesh.DefaultOptions()); err == nil {
		c.mass = m.MassProperties()
	} else {
		c.mass = mesh.MassProperties{Volume: h.Volume(), CenterOfMass: h.Centroid()}
	}
	for _, v := range h.Vertices {
		c.radius = math.Max(c.radius, v.Len())
	}

	s := newSigner(ShapeKindConvex, "hull")
	s.int(len(h.Vertices))
	s.vec(h.Vertices...)
	s.int(len(h.Faces))
	for _, f := range h.Faces {
		s.int(len(f))
		for _, v := range f {
			s.int(v)
		}
	}
	c.signature = s.sum()
	return c
}

func (c *ConvexHull) Kind() ShapeKind {
	return ShapeKindConvex
}

func (c *ConvexHull) Bounds(transform Transform) AABB {
	return BoundPoints(c.Hull.Vertices, transform)
}

func (c *ConvexHull) BoundingRadius() float64 {
	return c.radius
}

func (c *ConvexHull) Volume() float64 {
	return c.mass.Volume
}

// CenterOfMass returns the local centre of mass.
func (c *ConvexHull) CenterOfMass() mgl64.Vec3 {
	return c.mass.CenterOfMass
}

func (c *ConvexHull) ComputeMass(density float64) float64 {
	return density * c.mass.Volume
}

// ComputeInertia scales the unit density tensor about the centre of mass.
func (c *ConvexHull) ComputeInertia(mass float64) mgl64.Mat3 {
	if c.mass.Volume <= 0 {
		return mgl64.Mat3{}
	}
	return c.mass.Inertia.Mul(mass / c.mass.Volume)
}

func (c *ConvexHull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return c.Hull.Support(direction)
}

// ContactFeature returns the face whose outward normal is closest to
// direction.
func (c *ConvexHull) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	best, bestDot := 0, math.Inf(-1)
	for f, pl := range c.Hull.Planes {
		if d := pl.Normal.Dot(direction); d > bestDot {
			best, bestDot = f, d
		}
	}
	return c.Hull.Polygon(best)
}

// RayCast clips origin + t*direction, t in [0, maxT], against the face
// planes. It returns the entry parameter and the normal of the entry face.
func (c *ConvexHull) RayCast(origin, direction mgl64.Vec3, maxT float64) (float64, mgl64.Vec3, bool) {
	tEnter, tExit := 0.0, maxT
	var normal mgl64.Vec3
	for _, pl := range c.Hull.Planes {
		dist := pl.Distance(origin)
		denom := pl.Normal.Dot(direction)
		if math.Abs(denom) < 1e-12 {
			if dist > 0 {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		t := -dist / denom
		if denom < 0 {
			if t > tEnter {
				tEnter = t
				normal = pl.Normal
			}
		} else if t < tExit {
			tExit = t
		}
		if tEnter > tExit {
			return 0, mgl64.Vec3{}, false
		}
	}
	return tEnter, normal, true
}

func (c *ConvexHull) Signature() Signature {
	return c.signature
}

// Triangle is a two sided triangle, the leaf shape of a Scene.
type Triangle struct {
	Points [3]mgl64.Vec3
}

func (tr *Triangle) Kind() ShapeKind {
	return ShapeKindConvex
}

func (tr *Triangle) Bounds(transform Transform) AABB {
	return BoundPoints(tr.Points[:], transform)
}

func (tr *Triangle) BoundingRadius() float64 {
	return math.Max(tr.Points[0].Len(), math.Max(tr.Points[1].Len(), tr.Points[2].Len()))
}

func (tr *Triangle) Volume() float64 {
	return 0
}

func (tr *Triangle) ComputeMass(density float64) float64 {
	return 0
}

func (tr *Triangle) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

func (tr *Triangle) Normal() mgl64.Vec3 {
	return tr.Points[1].Sub(tr.Points[0]).Cross(tr.Points[2].Sub(tr.Points[0])).Normalize()
}

func (tr *Triangle) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := tr.Points[0]
	for _, p := range tr.Points[1:] {
		if p.Dot(direction) > best.Dot(direction) {
			best = p
		}
	}
	return best
}

func (tr *Triangle) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	if tr.Normal().Dot(direction) < 0 {
		return []mgl64.Vec3{tr.Points[0], tr.Points[2], tr.Points[1]}
	}
	return tr.Points[:]
}

func (tr *Triangle) Signature() Signature {
	s := newSigner(ShapeKindConvex, "triangle")
	s.vec(tr.Points[:]...)
	return s.sum()
}
