// Package hull builds convex polytopes from point clouds.
//
// The builder is a quickhull: a non-degenerate seed tetrahedron is grown by
// repeatedly taking the point furthest outside the current hull, removing the
// faces it can see and re-triangulating the horizon around it. Every face owns
// a conflict list of the points still outside it, so a point is only ever
// tested against the faces that could contain it.
//
// Once no point lies outside a face beyond tolerance, adjacent coplanar
// triangles are merged into polygons on a half-edge mesh and the result is
// checked for convexity. Failures are reported as geom.ErrDegenerateInput or
// geom.ErrCapacityExceeded; Build never panics on malformed input.
package hull

import (
	"fmt"
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/halfedge"
	"github.com/go-gl/mathgl/mgl64"
)

// Options controls hull construction.
type Options struct {
	// Tolerance welds input points and decides when a point is outside a face.
	Tolerance float64 `toml:"tolerance"`
	// EdgeAngle is the largest angle between two face normals for the faces
	// to be merged.
	EdgeAngle float64 `toml:"edge_angle"`
	// ConvexityTolerance bounds how far a vertex may sit above a face plane.
	ConvexityTolerance float64 `toml:"convexity_tolerance"`
	// BoundingAngle is the smallest angle between two bounding planes.
	BoundingAngle float64 `toml:"bounding_angle"`
	// MaxIterations caps the number of points added to the hull. Zero means
	// a bound derived from the input size.
	MaxIterations int `toml:"max_iterations"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Tolerance:          1e-6,
		EdgeAngle:          geom.EdgeAngleEpsilon,
		ConvexityTolerance: geom.ConvexityTolerance,
		BoundingAngle:      0.1,
	}
}

type face struct {
	v       [3]int
	plane   geom.Plane
	outside []int
	alive   bool
}

type edge struct {
	from, to int
}

// builder holds the scratch of one Build call.
type builder struct {
	points  []mgl64.Vec3
	faces   []face
	owner   map[edge]int
	stack   []int
	visible map[int]bool
	eps     float64
}

// Build computes the convex hull of points.
func Build(points []mgl64.Vec3, opts Options) (*Hull, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.EdgeAngle <= 0 {
		opts.EdgeAngle = geom.EdgeAngleEpsilon
	}
	if opts.ConvexityTolerance <= 0 {
		opts.ConvexityTolerance = geom.ConvexityTolerance
	}

	welded, _ := geom.Weld(points, opts.Tolerance)
	if len(welded) < 4 {
		return nil, fmt.Errorf("hull: %d distinct points: %w", len(welded), geom.ErrDegenerateInput)
	}

	b := &builder{
		points:  welded,
		owner:   make(map[edge]int),
		visible: make(map[int]bool),
		eps:     opts.Tolerance,
	}
	if err := b.seed(); err != nil {
		return nil, err
	}

	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 4*len(welded) + 16
	}
	iterations := 0
	for {
		f, eye := b.nextEye()
		if f < 0 {
			break
		}
		iterations++
		if iterations > maxIterations {
			return nil, fmt.Errorf("hull: more than %d iterations: %w", maxIterations, geom.ErrCapacityExceeded)
		}
		if err := b.addPoint(f, eye); err != nil {
			return nil, err
		}
	}

	return b.finish(opts)
}

// seed creates the initial tetrahedron from four far apart points.
func (b *builder) seed() error {
	pts := b.points

	var extremes [6]int
	for i, p := range pts {
		for axis := range 3 {
			if p[axis] < pts[extremes[axis*2]][axis] {
				extremes[axis*2] = i
			}
			if p[axis] > pts[extremes[axis*2+1]][axis] {
				extremes[axis*2+1] = i
			}
		}
	}

	i0, i1 := 0, 0
	best := -1.0
	for _, a := range extremes {
		for _, c := range extremes {
			if d := pts[a].Sub(pts[c]).LenSqr(); d > best {
				best = d
				i0, i1 = a, c
			}
		}
	}
	if math.Sqrt(best) <= b.eps {
		return fmt.Errorf("hull: coincident points: %w", geom.ErrDegenerateInput)
	}

	axis := pts[i1].Sub(pts[i0])
	i2 := -1
	best = 0
	for i, p := range pts {
		if d := axis.Cross(p.Sub(pts[i0])).Len(); d > best {
			best = d
			i2 = i
		}
	}
	if i2 < 0 || best/axis.Len() <= b.eps {
		return fmt.Errorf("hull: collinear points: %w", geom.ErrDegenerateInput)
	}

	base, _ := geom.PlaneFromPoints(pts[i0], pts[i1], pts[i2])
	i3 := -1
	best = 0
	for i, p := range pts {
		if d := math.Abs(base.Distance(p)); d > best {
			best = d
			i3 = i
		}
	}
	if i3 < 0 || best <= b.eps {
		return fmt.Errorf("hull: coplanar points: %w", geom.ErrDegenerateInput)
	}

	if geom.Orient3D(pts[i0], pts[i1], pts[i2], pts[i3]) < 0 {
		i1, i2 = i2, i1
	}
	seeds := [4]int{i0, i1, i2, i3}
	for _, v := range [4][3]int{{i0, i2, i1}, {i0, i1, i3}, {i1, i2, i3}, {i0, i3, i2}} {
		b.newFace(v[0], v[1], v[2])
	}

	for i := range pts {
		if i == seeds[0] || i == seeds[1] || i == seeds[2] || i == seeds[3] {
			continue
		}
		b.assign(i, []int{0, 1, 2, 3})
	}
	return nil
}

func (b *builder) newFace(a, c, d int) int {
	pl, ok := geom.PlaneFromPoints(b.points[a], b.points[c], b.points[d])
	if !ok {
		// Sliver created on the horizon; orient it by its neighbours later.
		n := b.points[c].Sub(b.points[a]).Cross(b.points[d].Sub(b.points[a]))
		pl = geom.Plane{Normal: n, D: -n.Dot(b.points[a])}
	}
	f := len(b.faces)
	b.faces = append(b.faces, face{v: [3]int{a, c, d}, plane: pl, alive: true})
	b.owner[edge{a, c}] = f
	b.owner[edge{c, d}] = f
	b.owner[edge{d, a}] = f
	return f
}

func (b *builder) killFace(f int) {
	fc := &b.faces[f]
	fc.alive = false
	for i := range 3 {
		e := edge{fc.v[i], fc.v[(i+1)%3]}
		if b.owner[e] == f {
			delete(b.owner, e)
		}
	}
}

// assign moves point p to the conflict list of the candidate face it is
// furthest outside of. Points inside every candidate are dropped.
func (b *builder) assign(p int, candidates []int) {
	best := -1
	bestDist := b.eps
	for _, f := range candidates {
		if !b.faces[f].alive {
			continue
		}
		if d := b.faces[f].plane.Distance(b.points[p]); d > bestDist {
			best = f
			bestDist = d
		}
	}
	if best >= 0 {
		b.faces[best].outside = append(b.faces[best].outside, p)
	}
}

// nextEye returns the face with a conflict point and its furthest point.
func (b *builder) nextEye() (int, int) {
	for f := range b.faces {
		fc := &b.faces[f]
		if !fc.alive || len(fc.outside) == 0 {
			continue
		}
		eye := -1
		best := -math.MaxFloat64
		for _, p := range fc.outside {
			if d := fc.plane.Distance(b.points[p]); d > best {
				best = d
				eye = p
			}
		}
		return f, eye
	}
	return -1, -1
}

// addPoint removes the faces visible from eye and connects the horizon to it.
func (b *builder) addPoint(start, eye int) error {
	clear(b.visible)
	b.stack = append(b.stack[:0], start)
	b.visible[start] = true
	var visible []int
	for len(b.stack) > 0 {
		f := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		visible = append(visible, f)

		fc := b.faces[f]
		for i := range 3 {
			n, ok := b.owner[edge{fc.v[(i+1)%3], fc.v[i]}]
			if !ok {
				return fmt.Errorf("hull: open edge %d-%d: %w", fc.v[i], fc.v[(i+1)%3], geom.ErrDegenerateInput)
			}
			if b.visible[n] {
				continue
			}
			if b.faces[n].plane.Distance(b.points[eye]) > b.eps {
				b.visible[n] = true
				b.stack = append(b.stack, n)
			}
		}
	}

	var horizon []edge
	for _, f := range visible {
		fc := b.faces[f]
		for i := range 3 {
			e := edge{fc.v[i], fc.v[(i+1)%3]}
			if !b.visible[b.owner[edge{e.to, e.from}]] {
				horizon = append(horizon, e)
			}
		}
	}

	var orphans []int
	for _, f := range visible {
		for _, p := range b.faces[f].outside {
			if p != eye {
				orphans = append(orphans, p)
			}
		}
		b.faces[f].outside = nil
		b.killFace(f)
	}

	created := make([]int, 0, len(horizon))
	for _, e := range horizon {
		created = append(created, b.newFace(e.from, e.to, eye))
	}
	for _, p := range orphans {
		b.assign(p, created)
	}
	return nil
}

// finish builds the polygon mesh, merges coplanar faces and validates the
// result.
func (b *builder) finish(opts Options) (*Hull, error) {
	remap := make(map[int]int)
	var vertices []mgl64.Vec3
	var triangles [][]int
	for _, fc := range b.faces {
		if !fc.alive {
			continue
		}
		tri := make([]int, 3)
		for i, v := range fc.v {
			idx, ok := remap[v]
			if !ok {
				idx = len(vertices)
				remap[v] = idx
				vertices = append(vertices, b.points[v])
			}
			tri[i] = idx
		}
		triangles = append(triangles, tri)
	}

	m, rejected := halfedge.FromPolygons(vertices, triangles)
	if len(rejected) > 0 || !m.IsClosed() {
		return nil, fmt.Errorf("hull: %d faces could not be stitched: %w", len(rejected), geom.ErrDegenerateInput)
	}

	mergeCoplanar(m, opts.EdgeAngle, opts.Tolerance)

	h := &Hull{Vertices: vertices}
	for f := range m.LiveFaces() {
		h.Faces = append(h.Faces, m.FaceVertices(f))
	}
	// Rebuild densely so face handles match Faces indices.
	h.Mesh, _ = halfedge.FromPolygons(h.Vertices, h.Faces)

	for i, f := range h.Faces {
		pl, ok := geom.PlaneFromPolygon(h.polygon(i))
		if !ok {
			return nil, fmt.Errorf("hull: face %d has no area: %w", f[0], geom.ErrDegenerateInput)
		}
		h.Planes = append(h.Planes, pl)
	}

	if err := h.checkConvex(opts.ConvexityTolerance); err != nil {
		return nil, err
	}
	h.selectBoundingPlanes(opts.BoundingAngle)
	return h, nil
}

// mergeCoplanar deletes edges between faces whose normals agree within
// angle. Edges whose removal would leave a vertex with fewer than three
// neighbours are kept.
func mergeCoplanar(m *halfedge.Mesh, angle, tolerance float64) {
	for changed := true; changed; {
		changed = false
		for e := range m.Edges {
			he := m.Edges[e]
			if he.Vertex == halfedge.NoVertex || he.Face == halfedge.Boundary {
				continue
			}
			other := m.Edges[he.Twin].Face
			if other == he.Face || other == halfedge.Boundary {
				continue
			}
			p1, ok1 := geom.PlaneFromPolygon(m.FacePositions(he.Face))
			p2, ok2 := geom.PlaneFromPolygon(m.FacePositions(other))
			if !ok1 || !ok2 || !p1.Parallel(p2, angle) {
				continue
			}
			if !coplanar(p1, m.FacePositions(other), tolerance) || !coplanar(p2, m.FacePositions(he.Face), tolerance) {
				continue
			}
			if degree(m, he.Vertex) <= 3 || degree(m, m.Dest(e)) <= 3 {
				continue
			}
			if _, err := m.DeleteEdge(e); err == nil {
				changed = true
			}
		}
	}
}

func coplanar(pl geom.Plane, points []mgl64.Vec3, tolerance float64) bool {
	for _, p := range points {
		if math.Abs(pl.Distance(p)) > tolerance*10 {
			return false
		}
	}
	return true
}

func degree(m *halfedge.Mesh, v int) int {
	n := 0
	for range m.VertexFan(v) {
		n++
	}
	return n
}
