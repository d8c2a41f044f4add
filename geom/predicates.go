package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Orient3D returns (b-a)×(c-a)·(d-a), six times the signed volume of the
// tetrahedron (a, b, c, d).
func Orient3D(a, b, c, d mgl64.Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Dot(d.Sub(a))
}

// TetraVolume returns the signed volume of (a, b, c, d).
func TetraVolume(a, b, c, d mgl64.Vec3) float64 {
	return Orient3D(a, b, c, d) / 6.0
}

// TriangleArea returns the unsigned area of (a, b, c).
func TriangleArea(a, b, c mgl64.Vec3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Len() * 0.5
}

// TriangleNormal returns the unit normal of (a, b, c), or the zero vector when
// the triangle is degenerate.
func TriangleNormal(a, b, c mgl64.Vec3) mgl64.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	l := n.Len()
	if l < AreaEpsilon {
		return mgl64.Vec3{}
	}
	return n.Mul(1.0 / l)
}

// Lift maps p onto the paraboloid x²+y²+z² in one extra dimension.
func Lift(p mgl64.Vec3) mgl64.Vec4 {
	return mgl64.Vec4{p.X(), p.Y(), p.Z(), p.Dot(p)}
}

// LiftedOrient returns the orientation of e relative to the hyperplane through
// the lifted points of a, b, c, d. For a positively oriented (a, b, c, d) the
// result is positive exactly when e lies inside the circumsphere, i.e. when the
// lifted e is below the lifted facet and the facet is visible from it.
func LiftedOrient(a, b, c, d, e mgl64.Vec3) float64 {
	le := Lift(e)
	rows := [4]mgl64.Vec4{Lift(a).Sub(le), Lift(b).Sub(le), Lift(c).Sub(le), Lift(d).Sub(le)}
	// mgl64 matrices are column major; the determinant of the transpose is
	// the same, so rows are written as columns.
	m := mgl64.Mat4{
		rows[0][0], rows[0][1], rows[0][2], rows[0][3],
		rows[1][0], rows[1][1], rows[1][2], rows[1][3],
		rows[2][0], rows[2][1], rows[2][2], rows[2][3],
		rows[3][0], rows[3][1], rows[3][2], rows[3][3],
	}
	return -m.Det()
}

// Barycentric returns the barycentric coordinates of p with respect to the
// triangle (a, b, c). p is assumed to lie in the triangle's plane.
func Barycentric(a, b, c, p mgl64.Vec3) (u, v, w float64, ok bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if math.Abs(denom) < AreaEpsilon*AreaEpsilon {
		return 0, 0, 0, false
	}
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	u = 1 - v - w
	return u, v, w, true
}

// PointInTriangle reports whether p lies on the triangle (a, b, c) within tol,
// both in distance to the plane and in barycentric slack.
func PointInTriangle(a, b, c, p mgl64.Vec3, tol float64) bool {
	n := TriangleNormal(a, b, c)
	if n.Len() == 0 {
		return false
	}
	if math.Abs(n.Dot(p.Sub(a))) > tol {
		return false
	}
	u, v, w, ok := Barycentric(a, b, c, p)
	if !ok {
		return false
	}
	scale := math.Max(b.Sub(a).Len(), c.Sub(a).Len())
	slack := tol / math.Max(scale, Epsilon)
	return u >= -slack && v >= -slack && w >= -slack
}

// ClosestPointOnSegment returns the point of segment a→b closest to p and its
// parameter.
func ClosestPointOnSegment(a, b, p mgl64.Vec3) (mgl64.Vec3, float64) {
	ab := b.Sub(a)
	l := ab.LenSqr()
	if l < Epsilon*Epsilon {
		return a, 0
	}
	t := p.Sub(a).Dot(ab) / l
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t)), t
}

// PointOnSegment reports whether p lies strictly inside segment a→b within
// tol, returning its parameter.
func PointOnSegment(a, b, p mgl64.Vec3, tol float64) (float64, bool) {
	q, t := ClosestPointOnSegment(a, b, p)
	if q.Sub(p).Len() > tol {
		return t, false
	}
	l := b.Sub(a).Len()
	if l < Epsilon {
		return t, false
	}
	margin := tol / l
	return t, t > margin && t < 1-margin
}

// SegmentTriangle intersects the segment p→q with triangle (a, b, c) and
// returns the segment parameter of the crossing. Touching at the segment end
// points is not reported.
func SegmentTriangle(p, q, a, b, c mgl64.Vec3, tol float64) (float64, bool) {
	pl, ok := PlaneFromPoints(a, b, c)
	if !ok {
		return 0, false
	}
	dp := pl.Distance(p)
	dq := pl.Distance(q)
	if (dp > tol && dq > tol) || (dp < -tol && dq < -tol) {
		return 0, false
	}
	if math.Abs(dp-dq) < Epsilon {
		return 0, false
	}
	t := dp / (dp - dq)
	if t <= 0 || t >= 1 {
		return t, false
	}
	x := p.Add(q.Sub(p).Mul(t))
	if !PointInTriangle(a, b, c, x, tol) {
		return t, false
	}
	return t, true
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// AlmostEqual compares two vectors component-wise.
func AlmostEqual(a, b mgl64.Vec3, tol float64) bool {
	return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol && math.Abs(a[2]-b[2]) <= tol
}

// TangentBasis returns two unit vectors orthogonal to normal and each other.
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	tangent1 := mgl64.Vec3{1, 0, 0}
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
