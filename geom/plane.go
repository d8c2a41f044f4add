package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Side classifies a point or polygon against a plane.
type Side int

const (
	SideOn Side = iota
	SideFront
	SideBack
	SideSpanning
)

// Plane is the set of points p with Normal·p + D == 0. Normal is unit length.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// PlaneFromPoints builds the plane through a, b, c with the normal following
// the CCW winding. ok is false when the points are collinear.
func PlaneFromPoints(a, b, c mgl64.Vec3) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l < AreaEpsilon {
		return Plane{}, false
	}
	n = n.Mul(1.0 / l)
	return Plane{Normal: n, D: -n.Dot(a)}, true
}

// PlaneFromPolygon fits a plane to a polygon with Newell's method, which is
// robust for slightly non-planar and concave loops.
func PlaneFromPolygon(points []mgl64.Vec3) (Plane, bool) {
	if len(points) < 3 {
		return Plane{}, false
	}
	var n, centroid mgl64.Vec3
	for i, cur := range points {
		next := points[(i+1)%len(points)]
		n[0] += (cur.Y() - next.Y()) * (cur.Z() + next.Z())
		n[1] += (cur.Z() - next.Z()) * (cur.X() + next.X())
		n[2] += (cur.X() - next.X()) * (cur.Y() + next.Y())
		centroid = centroid.Add(cur)
	}
	l := n.Len()
	if l < AreaEpsilon {
		return Plane{}, false
	}
	n = n.Mul(1.0 / l)
	centroid = centroid.Mul(1.0 / float64(len(points)))
	return Plane{Normal: n, D: -n.Dot(centroid)}, true
}

// Distance returns the signed distance of p to the plane.
func (pl Plane) Distance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) + pl.D
}

// Classify reports which side of the plane p lies on.
func (pl Plane) Classify(p mgl64.Vec3, tolerance float64) Side {
	d := pl.Distance(p)
	switch {
	case d > tolerance:
		return SideFront
	case d < -tolerance:
		return SideBack
	}
	return SideOn
}

// Flip returns the plane facing the other way.
func (pl Plane) Flip() Plane {
	return Plane{Normal: pl.Normal.Mul(-1), D: -pl.D}
}

// Project returns the orthogonal projection of p on the plane.
func (pl Plane) Project(p mgl64.Vec3) mgl64.Vec3 {
	return p.Sub(pl.Normal.Mul(pl.Distance(p)))
}

// IntersectSegment returns the parameter t in [0,1] where the segment a→b
// crosses the plane. ok is false when the segment is parallel to it.
func (pl Plane) IntersectSegment(a, b mgl64.Vec3) (float64, bool) {
	da := pl.Distance(a)
	db := pl.Distance(b)
	denom := da - db
	if math.Abs(denom) < Epsilon {
		return 0, false
	}
	t := da / denom
	return math.Max(0, math.Min(1, t)), true
}

// Transform returns the plane moved by the rigid transform (rotation then
// translation).
func (pl Plane) Transform(rotation mgl64.Quat, translation mgl64.Vec3) Plane {
	n := rotation.Rotate(pl.Normal)
	point := rotation.Rotate(pl.Normal.Mul(-pl.D)).Add(translation)
	return Plane{Normal: n, D: -n.Dot(point)}
}

// Parallel reports whether the normals of both planes point the same way
// within the given angle.
func (pl Plane) Parallel(other Plane, angle float64) bool {
	return pl.Normal.Dot(other.Normal) >= math.Cos(angle)
}
