package gjk

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Output describes the closest points between two convex shapes.
type Output struct {
	PointA   mgl64.Vec3
	PointB   mgl64.Vec3
	Distance float64
	// Normal is the unit direction from PointA to PointB. It is zero on overlap.
	Normal     mgl64.Vec3
	Iterations int
	Overlap    bool
}

// simplexVertex keeps the two support points that produced a Minkowski
// vertex so the witness points can be rebuilt from barycentric weights.
type simplexVertex struct {
	a, b, w mgl64.Vec3
	weight  float64
}

type distanceSimplex struct {
	v     [4]simplexVertex
	count int
}

func (s *distanceSimplex) keep(vs ...simplexVertex) {
	s.count = copy(s.v[:], vs)
}

func (s *distanceSimplex) closest() mgl64.Vec3 {
	var p mgl64.Vec3
	for i := range s.count {
		p = p.Add(s.v[i].w.Mul(s.v[i].weight))
	}
	return p
}

func (s *distanceSimplex) witness() (mgl64.Vec3, mgl64.Vec3) {
	var pa, pb mgl64.Vec3
	for i := range s.count {
		pa = pa.Add(s.v[i].a.Mul(s.v[i].weight))
		pb = pb.Add(s.v[i].b.Mul(s.v[i].weight))
	}
	return pa, pb
}

func (s *distanceSimplex) contains(w mgl64.Vec3) bool {
	for i := range s.count {
		if s.v[i].w.Sub(w).LenSqr() < 1e-18 {
			return true
		}
	}
	return false
}

func support(a, b Proxy, direction mgl64.Vec3) simplexVertex {
	pa := a.Support(direction)
	pb := b.Support(direction.Mul(-1))
	return simplexVertex{a: pa, b: pb, w: pa.Sub(pb)}
}

// Distance computes the closest points of two convex shapes. Overlapping
// shapes report Overlap with a zero distance.
func Distance(a, b Proxy) Output {
	direction := b.Transform.Position.Sub(a.Transform.Position)
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	var s distanceSimplex
	first := support(a, b, direction)
	first.weight = 1
	s.keep(first)

	out := Output{}
	for out.Iterations = 0; out.Iterations < MaxIterations; out.Iterations++ {
		if !s.reduce() {
			out.Overlap = true
			break
		}

		v := s.closest()
		vv := v.LenSqr()
		if vv < 1e-18 {
			out.Overlap = true
			break
		}

		w := support(a, b, v.Mul(-1))
		// No vertex makes progress toward the origin.
		if s.contains(w.w) || vv-v.Dot(w.w) <= 1e-10*vv {
			break
		}
		s.v[s.count] = w
		s.count++
	}

	out.PointA, out.PointB = s.witness()
	if out.Overlap {
		return out
	}
	diff := out.PointB.Sub(out.PointA)
	out.Distance = diff.Len()
	if out.Distance > 0 {
		out.Normal = diff.Mul(1 / out.Distance)
	}
	return out
}

// reduce keeps the smallest sub-simplex supporting the point closest to the
// origin and sets its barycentric weights. It reports false when the
// tetrahedron encloses the origin.
func (s *distanceSimplex) reduce() bool {
	switch s.count {
	case 1:
		s.v[0].weight = 1
	case 2:
		s.reduceSegment(s.v[0], s.v[1])
	case 3:
		s.reduceTriangle(s.v[0], s.v[1], s.v[2])
	case 4:
		return s.reduceTetrahedron()
	}
	return true
}

func (s *distanceSimplex) reduceSegment(p, q simplexVertex) {
	pq := q.w.Sub(p.w)
	denom := pq.LenSqr()
	if denom < 1e-18 {
		p.weight = 1
		s.keep(p)
		return
	}
	t := -p.w.Dot(pq) / denom
	switch {
	case t <= 0:
		p.weight = 1
		s.keep(p)
	case t >= 1:
		q.weight = 1
		s.keep(q)
	default:
		p.weight, q.weight = 1-t, t
		s.keep(p, q)
	}
}

// reduceTriangle walks the Voronoi regions of the triangle (Ericson 5.1.5).
func (s *distanceSimplex) reduceTriangle(a, b, c simplexVertex) {
	ab := b.w.Sub(a.w)
	ac := c.w.Sub(a.w)
	if ab.Cross(ac).LenSqr() < 1e-18 {
		s.reduceDegenerateTriangle(a, b, c)
		return
	}

	ap := a.w.Mul(-1)
	d1, d2 := ab.Dot(ap), ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		a.weight = 1
		s.keep(a)
		return
	}

	bp := b.w.Mul(-1)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		b.weight = 1
		s.keep(b)
		return
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		t := d1 / (d1 - d3)
		a.weight, b.weight = 1-t, t
		s.keep(a, b)
		return
	}

	cp := c.w.Mul(-1)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		c.weight = 1
		s.keep(c)
		return
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		t := d2 / (d2 - d6)
		a.weight, c.weight = 1-t, t
		s.keep(a, c)
		return
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		t := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		b.weight, c.weight = 1-t, t
		s.keep(b, c)
		return
	}

	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	a.weight, b.weight, c.weight = 1-v-w, v, w
	s.keep(a, b, c)
}

// reduceDegenerateTriangle picks the best of the three edges of a flat
// triangle.
func (s *distanceSimplex) reduceDegenerateTriangle(a, b, c simplexVertex) {
	best := math.Inf(1)
	var kept distanceSimplex
	for _, edge := range [3][2]simplexVertex{{a, b}, {b, c}, {c, a}} {
		var candidate distanceSimplex
		candidate.reduceSegment(edge[0], edge[1])
		if d := candidate.closest().LenSqr(); d < best {
			best = d
			kept = candidate
		}
	}
	*s = kept
}

func (s *distanceSimplex) reduceTetrahedron() bool {
	v := s.v
	faces := [4][4]int{{0, 1, 2, 3}, {0, 2, 3, 1}, {0, 3, 1, 2}, {1, 3, 2, 0}}

	best := math.Inf(1)
	var kept distanceSimplex
	outside := false
	for _, f := range faces {
		a, b, c, d := v[f[0]], v[f[1]], v[f[2]], v[f[3]]
		n := b.w.Sub(a.w).Cross(c.w.Sub(a.w))
		signOrigin := a.w.Mul(-1).Dot(n)
		signOpposite := d.w.Sub(a.w).Dot(n)
		// A flat tetrahedron has no inside, every face is a candidate.
		if math.Abs(signOpposite) > 1e-18 && signOrigin*signOpposite >= 0 {
			continue
		}
		outside = true

		var candidate distanceSimplex
		candidate.reduceTriangle(a, b, c)
		if dist := candidate.closest().LenSqr(); dist < best {
			best = dist
			kept = candidate
		}
	}
	if !outside {
		return false
	}
	*s = kept
	return true
}
