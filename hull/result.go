package hull

import (
	"fmt"
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/halfedge"
	"github.com/go-gl/mathgl/mgl64"
)

// Hull is a closed convex polytope. It is read-only once built.
type Hull struct {
	Vertices []mgl64.Vec3
	// Faces are vertex loops, counter-clockwise seen from outside.
	Faces [][]int
	// Planes holds the outward plane of each face.
	Planes []geom.Plane
	// BoundingPlanes is the subset of Planes whose normals are pairwise
	// apart by more than the bounding angle.
	BoundingPlanes []geom.Plane
	Mesh           *halfedge.Mesh
}

func (h *Hull) polygon(f int) []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(h.Faces[f]))
	for i, v := range h.Faces[f] {
		points[i] = h.Vertices[v]
	}
	return points
}

// Polygon returns the corner positions of face f.
func (h *Hull) Polygon(f int) []mgl64.Vec3 {
	return h.polygon(f)
}

// Counts returns the number of vertices, edges and faces.
func (h *Hull) Counts() (v, e, f int) {
	return h.Mesh.VertexCount(), h.Mesh.EdgeCount(), h.Mesh.FaceCount()
}

// Centroid returns the average of the hull vertices, an interior point.
func (h *Hull) Centroid() mgl64.Vec3 {
	var c mgl64.Vec3
	for _, v := range h.Vertices {
		c = c.Add(v)
	}
	return c.Mul(1.0 / float64(len(h.Vertices)))
}

// Volume returns the enclosed volume.
func (h *Hull) Volume() float64 {
	apex := h.Centroid()
	volume := 0.0
	for f := range h.Faces {
		poly := h.polygon(f)
		for i := 1; i+1 < len(poly); i++ {
			volume += geom.TetraVolume(apex, poly[0], poly[i], poly[i+1])
		}
	}
	return volume
}

// Contains reports whether p lies inside every face plane within tolerance.
func (h *Hull) Contains(p mgl64.Vec3, tolerance float64) bool {
	for _, pl := range h.Planes {
		if pl.Distance(p) > tolerance {
			return false
		}
	}
	return true
}

// Support returns the vertex furthest along direction.
func (h *Hull) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := h.Vertices[0]
	bestDot := best.Dot(direction)
	for _, v := range h.Vertices[1:] {
		if d := v.Dot(direction); d > bestDot {
			best = v
			bestDot = d
		}
	}
	return best
}

// Radius returns the largest distance from the centroid to a vertex.
func (h *Hull) Radius() float64 {
	c := h.Centroid()
	r := 0.0
	for _, v := range h.Vertices {
		r = math.Max(r, v.Sub(c).Len())
	}
	return r
}

// checkConvex verifies no vertex sits above a face plane it is not part of.
func (h *Hull) checkConvex(tolerance float64) error {
	for f, pl := range h.Planes {
		on := make(map[int]bool, len(h.Faces[f]))
		for _, v := range h.Faces[f] {
			on[v] = true
		}
		for v, p := range h.Vertices {
			if on[v] {
				continue
			}
			if pl.Distance(p) > tolerance {
				return fmt.Errorf("hull: vertex %d above face %d by %g: %w", v, f, pl.Distance(p), geom.ErrDegenerateInput)
			}
		}
	}
	return nil
}

func (h *Hull) selectBoundingPlanes(angle float64) {
	if angle <= 0 {
		h.BoundingPlanes = append([]geom.Plane(nil), h.Planes...)
		return
	}
	for _, pl := range h.Planes {
		keep := true
		for _, chosen := range h.BoundingPlanes {
			if pl.Parallel(chosen, angle) {
				keep = false
				break
			}
		}
		if keep {
			h.BoundingPlanes = append(h.BoundingPlanes, pl)
		}
	}
}

// Shrink returns a copy of the hull scaled by factor toward its centroid.
func (h *Hull) Shrink(factor float64) *Hull {
	c := h.Centroid()
	s := &Hull{
		Vertices: make([]mgl64.Vec3, len(h.Vertices)),
		Faces:    h.Faces,
	}
	for i, v := range h.Vertices {
		s.Vertices[i] = c.Add(v.Sub(c).Mul(factor))
	}
	s.Mesh, _ = halfedge.FromPolygons(s.Vertices, s.Faces)
	for f := range s.Faces {
		pl, _ := geom.PlaneFromPolygon(s.polygon(f))
		s.Planes = append(s.Planes, pl)
	}
	for _, pl := range h.BoundingPlanes {
		point := c.Add(pl.Project(c).Sub(c).Mul(factor))
		s.BoundingPlanes = append(s.BoundingPlanes, geom.Plane{Normal: pl.Normal, D: -pl.Normal.Dot(point)})
	}
	return s
}

// FromPolygons rebuilds a hull from vertices and faces produced by an
// earlier Build, keeping their order. The polytope must be closed and
// convex.
func FromPolygons(vertices []mgl64.Vec3, faces [][]int, opts Options) (*Hull, error) {
	if opts.ConvexityTolerance <= 0 {
		opts.ConvexityTolerance = geom.ConvexityTolerance
	}
	if len(vertices) < 4 || len(faces) < 4 {
		return nil, fmt.Errorf("hull: %d vertices, %d faces: %w", len(vertices), len(faces), geom.ErrDegenerateInput)
	}
	for _, f := range faces {
		for _, v := range f {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("hull: face index %d out of range: %w", v, geom.ErrDegenerateInput)
			}
		}
	}

	m, rejected := halfedge.FromPolygons(vertices, faces)
	if len(rejected) > 0 || !m.IsClosed() {
		return nil, fmt.Errorf("hull: %d faces could not be stitched: %w", len(rejected), geom.ErrNonManifoldTopology)
	}
	h := &Hull{Vertices: vertices, Faces: faces, Mesh: m}
	for f := range faces {
		pl, ok := geom.PlaneFromPolygon(h.polygon(f))
		if !ok {
			return nil, fmt.Errorf("hull: face %d has no area: %w", f, geom.ErrDegenerateInput)
		}
		h.Planes = append(h.Planes, pl)
	}
	if err := h.checkConvex(opts.ConvexityTolerance); err != nil {
		return nil, err
	}
	h.selectBoundingPlanes(opts.BoundingAngle)
	return h, nil
}
