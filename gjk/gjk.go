// Package gjk implements the Gilbert-Johnson-Keerthi algorithm on convex
// shapes placed in the world.
//
// Intersect answers the boolean overlap query and leaves a tetrahedron
// enclosing the origin of the Minkowski difference, the starting polytope of
// EPA. Distance returns the closest points of separated shapes, and
// TimeOfImpact advances two moving shapes conservatively until they touch.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"sync"

	"github.com/akmonengine/quill/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds every GJK loop.
const MaxIterations = 32

// Proxy is a convex shape at a world pose.
type Proxy struct {
	Shape     actor.Convex
	Transform actor.Transform
}

// Support returns the world point of the shape furthest along direction.
func (p Proxy) Support(direction mgl64.Vec3) mgl64.Vec3 {
	return actor.SupportWorld(p.Shape, p.Transform, direction)
}

// Simplex is the 1 to 4 point set GJK refines inside the Minkowski
// difference. The most recent point is last.
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport returns support(A, d) - support(B, -d).
func MinkowskiSupport(a, b Proxy, direction mgl64.Vec3) mgl64.Vec3 {
	return a.Support(direction).Sub(b.Support(direction.Mul(-1)))
}

// Intersect reports whether the two shapes overlap. On overlap the simplex
// usually holds a tetrahedron containing the origin; touching contacts may
// end with fewer points.
func Intersect(a, b Proxy, simplex *Simplex) bool {
	// Starting toward the other shape typically saves iterations.
	direction := b.Transform.Position.Sub(a.Transform.Position)
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.Points[0] = MinkowskiSupport(a, b, direction)
	simplex.Count = 1

	direction = simplex.Points[0].Mul(-1)
	if direction.LenSqr() < 1e-16 {
		return true
	}

	for range MaxIterations {
		p := MinkowskiSupport(a, b, direction)

		// The new point does not pass the origin: separated.
		if p.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = p
		simplex.Count++

		if containsOrigin(simplex, &direction) {
			return true
		}
	}
	return false
}

// containsOrigin reduces the simplex to the feature closest to the origin
// and updates the search direction. Only a tetrahedron can contain the
// origin, except for degenerate touching configurations.
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

func (s *Simplex) set(points ...mgl64.Vec3) {
	s.Count = copy(s.Points[:], points)
}

// line handles the segment [B, A], A being the newest point.
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.set(a)
		*direction = ao
		return false
	}

	// Origin behind A.
	if ab.Dot(ao) <= 0 {
		simplex.set(a)
		*direction = ao
		return false
	}

	perp := ab.Cross(ao).Cross(ab)
	if perp.LenSqr() < 1e-8 {
		// Origin on the segment.
		return true
	}
	*direction = perp
	return false
}

// triangle handles [C, B, A], A being the newest point.
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2]
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	// Collinear: keep the newest edge.
	if abc.LenSqr() < 1e-10 {
		simplex.set(b, a)
		return line(simplex, direction)
	}

	if ab.Cross(abc).Dot(ao) > 0 {
		simplex.set(b, a)
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	if abc.Cross(ac).Dot(ao) > 0 {
		simplex.set(c, a)
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if abc.Dot(ao) > 0 {
		*direction = abc
	} else {
		// Below: flip the winding so the normal faces the origin.
		simplex.set(b, c, a)
		*direction = abc.Mul(-1)
	}
	return false
}

// tetrahedron handles [D, C, B, A], A being the newest point.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3]
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	// Face normals oriented away from the opposite vertex.
	outward := func(n, toOpposite mgl64.Vec3) mgl64.Vec3 {
		if n.Dot(toOpposite) > 0 {
			return n.Mul(-1)
		}
		return n
	}
	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	}

	switch {
	case abc.Dot(ao) > 0:
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	case acd.Dot(ao) > 0:
		simplex.set(d, c, a)
		return triangle(simplex, direction)
	case adb.Dot(ao) > 0:
		simplex.set(b, d, a)
		return triangle(simplex, direction)
	}
	return true
}
