package mesh

import (
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/halfedge"
	"github.com/go-gl/mathgl/mgl64"
)

func project2D(points []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec2 {
	t1, t2 := geom.TangentBasis(normal)
	flat := make([]mgl64.Vec2, len(points))
	for i, p := range points {
		flat[i] = mgl64.Vec2{p.Dot(t1), p.Dot(t2)}
	}
	return flat
}

func cross2D(a, b, c mgl64.Vec2) float64 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	return ab.X()*ac.Y() - ab.Y()*ac.X()
}

func insideTriangle2D(a, b, c, p mgl64.Vec2) bool {
	return cross2D(a, b, p) >= 0 && cross2D(b, c, p) >= 0 && cross2D(c, a, p) >= 0
}

// earClip triangulates a simple polygon and returns corner index triples.
// Collinear corners are never clipped as ears of their own: they stay in
// the ring until a real ear uses them, so vertices spliced into an edge
// keep the edge split in the output. Only a fully collinear remainder is
// dropped.
func earClip(points []mgl64.Vec3, normal mgl64.Vec3) [][3]int {
	n := len(points)
	if n < 3 {
		return nil
	}
	flat := project2D(points, normal)
	// TangentBasis is right handed around normal, so CCW stays CCW.
	ring := make([]int, n)
	for i := range ring {
		ring[i] = i
	}

	var triangles [][3]int
	for len(ring) > 3 {
		k := len(ring)
		ear := -1
		collinear := 0
		for i := range k {
			a, b, c := ring[(i+k-1)%k], ring[i], ring[(i+1)%k]
			area := cross2D(flat[a], flat[b], flat[c]) * 0.5
			if math.Abs(area) < geom.AreaEpsilon {
				collinear++
				continue
			}
			if area < 0 {
				continue
			}
			blocked := false
			for _, o := range ring {
				if o == a || o == b || o == c {
					continue
				}
				if flat[o] == flat[a] || flat[o] == flat[b] || flat[o] == flat[c] {
					continue
				}
				if insideTriangle2D(flat[a], flat[b], flat[c], flat[o]) {
					blocked = true
					break
				}
			}
			if !blocked {
				ear = i
				break
			}
		}

		switch {
		case ear >= 0:
			triangles = append(triangles, [3]int{ring[(ear+k-1)%k], ring[ear], ring[(ear+1)%k]})
			ring = append(ring[:ear], ring[ear+1:]...)
		case collinear == k:
			return triangles
		default:
			// Self-intersecting loop: cut the most convex corner.
			best, bestArea := 0, math.Inf(-1)
			for i := range k {
				area := cross2D(flat[ring[(i+k-1)%k]], flat[ring[i]], flat[ring[(i+1)%k]])
				if area > bestArea {
					best, bestArea = i, area
				}
			}
			triangles = append(triangles, [3]int{ring[(best+k-1)%k], ring[best], ring[(best+1)%k]})
			ring = append(ring[:best], ring[best+1:]...)
		}
	}
	if geom.TriangleArea(points[ring[0]], points[ring[1]], points[ring[2]]) >= geom.AreaEpsilon {
		triangles = append(triangles, [3]int{ring[0], ring[1], ring[2]})
	}
	return triangles
}

func triangulatePolygon(p polygon) []polygon {
	if len(p.corners) == 3 {
		return []polygon{p}
	}
	points := p.positions()
	pl, ok := geom.PlaneFromPolygon(points)
	if !ok {
		return nil
	}
	var out []polygon
	for _, tri := range earClip(points, pl.Normal) {
		out = append(out, polygon{
			corners: []Attribute{p.corners[tri[0]], p.corners[tri[1]], p.corners[tri[2]]},
			tag:     p.tag,
		})
	}
	return out
}

// Triangulate returns a copy of the mesh whose faces are all triangles.
// Corner attributes are preserved; triangles are left untouched, so
// triangulating twice gives the same mesh.
func (m *Mesh) Triangulate() (*Mesh, error) {
	var out []polygon
	for _, p := range m.soup() {
		out = append(out, triangulatePolygon(p)...)
	}
	result, _, err := fromSoup(out, m.Options)
	return result, err
}

// ConvexPartition returns a copy of the mesh where every face is convex.
// Each face is triangulated, then triangles are merged back greedily across
// their shared diagonals while the merged polygon stays convex
// (Hertel-Mehlhorn).
func (m *Mesh) ConvexPartition() (*Mesh, error) {
	var out []polygon
	for _, p := range m.soup() {
		out = append(out, partitionPolygon(p)...)
	}
	result, _, err := fromSoup(out, m.Options)
	return result, err
}

func partitionPolygon(p polygon) []polygon {
	points := p.positions()
	pl, ok := geom.PlaneFromPolygon(points)
	if !ok {
		return nil
	}
	if isConvex(points, pl.Normal) {
		return []polygon{p}
	}

	triangles := earClip(points, pl.Normal)
	faces := make([][]int, len(triangles))
	for i, tri := range triangles {
		faces[i] = tri[:]
	}
	local, _ := halfedge.FromPolygons(points, faces)

	for e := range local.Edges {
		he := local.Edges[e]
		if he.Vertex == halfedge.NoVertex || he.Face == halfedge.Boundary {
			continue
		}
		t := he.Twin
		if local.Edges[t].Face == halfedge.Boundary || local.Edges[t].Face == he.Face {
			continue
		}
		if !convexAfterDelete(local, e, pl.Normal) {
			continue
		}
		_, _ = local.DeleteEdge(e)
	}

	var out []polygon
	for f := range local.LiveFaces() {
		var corners []Attribute
		for _, v := range local.FaceVertices(f) {
			corners = append(corners, p.corners[v])
		}
		out = append(out, polygon{corners: corners, tag: p.tag})
	}
	return out
}

// convexAfterDelete reports whether both corners created by deleting e are
// convex.
func convexAfterDelete(m *halfedge.Mesh, e int, normal mgl64.Vec3) bool {
	t := m.Edges[e].Twin
	pos := func(edge int) mgl64.Vec3 { return m.Vertices[m.Edges[edge].Vertex].Position }

	u, v := pos(e), pos(t)
	a := pos(m.Edges[e].Prev)
	b := pos(m.Edges[m.Edges[t].Next].Twin)
	c := pos(m.Edges[t].Prev)
	d := pos(m.Edges[m.Edges[e].Next].Twin)

	return u.Sub(a).Cross(b.Sub(u)).Dot(normal) >= -geom.AreaEpsilon &&
		v.Sub(c).Cross(d.Sub(v)).Dot(normal) >= -geom.AreaEpsilon
}

func isConvex(points []mgl64.Vec3, normal mgl64.Vec3) bool {
	n := len(points)
	for i := range n {
		a, b, c := points[(i+n-1)%n], points[i], points[(i+1)%n]
		if b.Sub(a).Cross(c.Sub(b)).Dot(normal) < -geom.AreaEpsilon {
			return false
		}
	}
	return true
}
