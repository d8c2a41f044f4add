// Package decompose approximates a closed, possibly concave mesh by a set of
// convex pieces.
//
// The mesh vertices are tetrahedralized through the paraboloid lift: the
// lower convex hull of the points (x, y, z, x²+y²+z²) projects to the
// Delaunay tetrahedralization, built here incrementally. Surface edges and
// faces absent from it are recovered by inserting points where they cross
// it, splitting the surface at the same places. Cells reachable from the
// inner side of a surface face without crossing the surface are kept, and
// one convex hull is emitted per cell, optionally merged with convex
// neighbours.
//
// The run moves through Seeded, EdgesRecovered, FacesRecovered, Classified
// and Emitted. A failure returns a *FeatureError naming the feature that
// could not be recovered and no partial result.
package decompose

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/hull"
	"github.com/akmonengine/quill/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// Options controls a decomposition.
type Options struct {
	// ShrinkFactor scales every emitted piece toward its centroid.
	ShrinkFactor float64 `toml:"shrink_factor"`
	// MaxRecoveryRetries bounds the points inserted to recover one input
	// edge or face.
	MaxRecoveryRetries int `toml:"max_recovery_retries"`
	// MaxSteinerPoints bounds the points inserted in total.
	MaxSteinerPoints int `toml:"max_steiner_points"`
	// MaxPieces bounds the number of emitted pieces; adjacent cells are
	// merged while their union stays convex. Zero keeps one piece per cell.
	MaxPieces int `toml:"max_pieces"`
	// Hull is used to build every piece.
	Hull hull.Options `toml:"hull"`

	Logger *slog.Logger `toml:"-"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		ShrinkFactor:       1,
		MaxRecoveryRetries: 32,
		MaxSteinerPoints:   4096,
		Hull:               hull.DefaultOptions(),
	}
}

// Result is a decomposition.
type Result struct {
	Pieces []*hull.Hull
	// Vertices are the vertices of the tetrahedralization, input vertices
	// first, then inserted points.
	Vertices []mgl64.Vec3
	// Tetrahedra are the interior cells, indexing Vertices.
	Tetrahedra [][4]int
	// SteinerPoints is the number of points inserted during recovery.
	SteinerPoints int
}

// Volume returns the summed volume of the pieces.
func (r *Result) Volume() float64 {
	v := 0.0
	for _, p := range r.Pieces {
		v += p.Volume()
	}
	return v
}

type decomposer struct {
	opts  Options
	log   *slog.Logger
	state State
	tets  *tetrahedralization
	skin  *surface

	rootEdges     [][2]int
	rootFaces     [][3]int
	edgeAttempts  map[int]int
	faceAttempts  map[int]int
	steinerPoints int
	inside        []int
}

// Decompose splits a closed outward facing mesh into convex pieces.
func Decompose(m *mesh.Mesh, opts Options) (*Result, error) {
	if opts.MaxRecoveryRetries < 0 {
		opts.MaxRecoveryRetries = 0
	}
	if opts.MaxSteinerPoints <= 0 {
		opts.MaxSteinerPoints = DefaultOptions().MaxSteinerPoints
	}
	if opts.ShrinkFactor <= 0 || opts.ShrinkFactor > 1 {
		opts.ShrinkFactor = 1
	}
	d := &decomposer{
		opts:         opts,
		log:          opts.Logger,
		edgeAttempts: make(map[int]int),
		faceAttempts: make(map[int]int),
	}
	if d.log == nil {
		d.log = slog.Default()
	}

	if err := d.seed(m); err != nil {
		return nil, err
	}
	d.advance(Seeded)

	for {
		if err := d.recoverEdges(); err != nil {
			return nil, err
		}
		d.advance(EdgesRecovered)
		missing, err := d.recoverFaces()
		if err != nil {
			return nil, err
		}
		if !missing {
			break
		}
	}
	d.advance(FacesRecovered)

	if err := d.classify(); err != nil {
		return nil, err
	}
	d.advance(Classified)

	result, err := d.emit()
	if err != nil {
		return nil, err
	}
	d.advance(Emitted)
	return result, nil
}

func (d *decomposer) advance(s State) {
	if d.state == s && s != Seeded {
		return
	}
	d.state = s
	d.log.Debug("decompose stage",
		slog.String("state", s.String()),
		slog.Int("vertices", len(d.tets.points)-superVertices),
		slog.Int("steiner", d.steinerPoints),
		slog.Int("surface", len(d.skin.triangles)))
}

func (d *decomposer) fail(stage State, kind string, vertices []int, err error) error {
	fe := &FeatureError{Stage: stage, Kind: kind, Err: err}
	for _, v := range vertices {
		fe.Vertices = append(fe.Vertices, d.tets.points[v])
	}
	return fe
}

// seed triangulates the mesh and tetrahedralizes its vertices.
func (d *decomposer) seed(m *mesh.Mesh) error {
	tri, err := m.Triangulate()
	if err != nil {
		return err
	}
	topo := tri.Topology
	if topo.FaceCount() < 4 || !topo.IsClosed() {
		return fmt.Errorf("decompose: mesh is not a closed surface: %w", geom.ErrNonManifoldTopology)
	}
	if tri.Volume() <= geom.VolumeEpsilon {
		return fmt.Errorf("decompose: mesh encloses no volume: %w", geom.ErrDegenerateInput)
	}

	lo, hi := tri.Bounds()
	d.tets = newTetrahedralization(lo, hi)
	d.skin = newSurface()

	index := make([]int, len(topo.Vertices))
	for v, vert := range topo.Vertices {
		index[v] = -1
		if vert.Edge < 0 {
			continue
		}
		idx, err := d.tets.insert(vert.Position)
		if err != nil {
			return err
		}
		index[v] = idx
	}

	for f := range topo.LiveFaces() {
		verts := topo.FaceVertices(f)
		root := len(d.rootFaces)
		face := [3]int{index[verts[0]], index[verts[1]], index[verts[2]]}
		d.rootFaces = append(d.rootFaces, face)
		d.skin.add(face, root)
	}
	for _, e := range d.skin.edges() {
		d.skin.edgeRoot[e] = len(d.rootEdges)
		d.rootEdges = append(d.rootEdges, [2]int{e[0], e[1]})
	}
	return nil
}

func (d *decomposer) addSteiner(p mgl64.Vec3) (int, error) {
	if d.steinerPoints >= d.opts.MaxSteinerPoints {
		return -1, fmt.Errorf("decompose: more than %d inserted points: %w", d.opts.MaxSteinerPoints, geom.ErrCapacityExceeded)
	}
	before := len(d.tets.points)
	idx, err := d.tets.insert(p)
	if err != nil {
		return -1, err
	}
	if idx >= before {
		d.steinerPoints++
	}
	return idx, nil
}

// edgeFeature returns the input corners an edge root refers to.
func (d *decomposer) edgeFeature(root int) (string, []int) {
	if root >= 0 {
		e := d.rootEdges[root]
		return "edge", e[:]
	}
	f := d.rootFaces[-1-root]
	return "face", f[:]
}

// recoverEdges inserts points on missing surface edges until every surface
// edge is an edge of the tetrahedralization.
func (d *decomposer) recoverEdges() error {
	for {
		present := d.tets.edges()
		var missing []edgeKey
		for _, e := range d.skin.edges() {
			if _, ok := present[e]; !ok {
				missing = append(missing, e)
			}
		}
		if len(missing) == 0 {
			return nil
		}

		for _, e := range missing {
			root := d.skin.edgeRoot[e]
			d.edgeAttempts[root]++
			if d.edgeAttempts[root] > d.opts.MaxRecoveryRetries {
				kind, verts := d.edgeFeature(root)
				return d.fail(EdgesRecovered, kind, verts, geom.ErrUnrecoverableFeature)
			}

			u, v := e[0], e[1]
			t := d.crossing(u, v)
			x, err := d.addSteiner(geom.Lerp(d.tets.points[u], d.tets.points[v], t))
			if err != nil {
				kind, verts := d.edgeFeature(root)
				return d.fail(EdgesRecovered, kind, verts, err)
			}
			if x == u || x == v {
				kind, verts := d.edgeFeature(root)
				return d.fail(EdgesRecovered, kind, verts, geom.ErrUnrecoverableFeature)
			}
			d.skin.splitEdge(u, v, x)
			d.log.Debug("edge split", slog.Int("from", u), slog.Int("to", v), slog.Float64("t", t))
			// Insertion changes the cells; the remaining missing edges are
			// recomputed on the next pass.
			break
		}
	}
}

// crossing returns the parameter along u→v where the segment leaves the
// cells around u. Crossings too close to an end point fall back to the
// midpoint.
func (d *decomposer) crossing(u, v int) float64 {
	pu, pv := d.tets.points[u], d.tets.points[v]
	tol := d.tets.pointEps
	best := 0.5
	found := false
	for _, t := range d.tets.live() {
		tet := d.tets.tets[t]
		for i, w := range tet.V {
			if w != u {
				continue
			}
			f := d.tets.face(t, i)
			s, ok := geom.SegmentTriangle(pu, pv, d.tets.points[f[0]], d.tets.points[f[1]], d.tets.points[f[2]], tol)
			if ok && (!found || s < best) {
				best = s
				found = true
			}
		}
	}
	if !found || best < 0.05 || best > 0.95 {
		return 0.5
	}
	return best
}

// recoverFaces inserts one point per missing surface triangle. It reports
// whether any triangle was missing.
func (d *decomposer) recoverFaces() (bool, error) {
	present := d.tets.faces()
	missing := false
	for i := 0; i < len(d.skin.triangles); i++ {
		tri := d.skin.triangles[i]
		if _, ok := present[makeFaceKey(tri.v[0], tri.v[1], tri.v[2])]; ok {
			continue
		}
		missing = true
		d.faceAttempts[tri.root]++
		if d.faceAttempts[tri.root] > d.opts.MaxRecoveryRetries {
			f := d.rootFaces[tri.root]
			return false, d.fail(FacesRecovered, "face", f[:], geom.ErrUnrecoverableFeature)
		}

		x, err := d.addSteiner(d.faceCrossing(tri.v))
		if err != nil {
			f := d.rootFaces[tri.root]
			return false, d.fail(FacesRecovered, "face", f[:], err)
		}
		if x == tri.v[0] || x == tri.v[1] || x == tri.v[2] {
			f := d.rootFaces[tri.root]
			return false, d.fail(FacesRecovered, "face", f[:], geom.ErrUnrecoverableFeature)
		}
		d.skin.splitFace(i, x)
		// One insertion per pass; edges are recovered again first.
		return true, nil
	}
	return missing, nil
}

// faceCrossing returns where a cell edge pierces the triangle, or its
// centroid when no edge crosses it well inside.
func (d *decomposer) faceCrossing(v [3]int) mgl64.Vec3 {
	a, b, c := d.tets.points[v[0]], d.tets.points[v[1]], d.tets.points[v[2]]
	centroid := a.Add(b).Add(c).Mul(1.0 / 3.0)
	for e := range d.tets.edges() {
		if e[0] == v[0] || e[0] == v[1] || e[0] == v[2] || e[1] == v[0] || e[1] == v[1] || e[1] == v[2] {
			continue
		}
		p, q := d.tets.points[e[0]], d.tets.points[e[1]]
		s, ok := geom.SegmentTriangle(p, q, a, b, c, d.tets.pointEps)
		if !ok {
			continue
		}
		x := geom.Lerp(p, q, s)
		bu, bv, bw, ok := geom.Barycentric(a, b, c, x)
		if ok && min(bu, bv, bw) > 0.05 {
			return x
		}
	}
	return centroid
}

// classify flood-fills the cells on the inner side of the surface.
func (d *decomposer) classify() error {
	faces := d.tets.faces()
	constrained := make(map[faceKey]bool, len(d.skin.triangles))
	visited := make(map[int]bool)
	var seeds []int
	for _, tri := range d.skin.triangles {
		k := makeFaceKey(tri.v[0], tri.v[1], tri.v[2])
		refs, ok := faces[k]
		if !ok {
			f := d.rootFaces[tri.root]
			return d.fail(Classified, "face", f[:], geom.ErrNonManifoldTopology)
		}
		constrained[k] = true
		a, b, c := d.tets.points[tri.v[0]], d.tets.points[tri.v[1]], d.tets.points[tri.v[2]]
		for _, ref := range refs {
			opposite := d.tets.points[d.tets.tets[ref.tet].V[ref.face]]
			if geom.Orient3D(a, b, c, opposite) < 0 && !visited[ref.tet] {
				visited[ref.tet] = true
				seeds = append(seeds, ref.tet)
			}
		}
	}

	queue := seeds
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		tet := d.tets.tets[t]
		for _, v := range tet.V {
			if d.tets.isSuper(v) {
				return d.fail(Classified, "region", tet.V[:], fmt.Errorf("decompose: interior leaks to the outside: %w", geom.ErrNonManifoldTopology))
			}
		}
		d.inside = append(d.inside, t)
		for i, n := range tet.N {
			if n < 0 || visited[n] {
				continue
			}
			f := d.tets.face(t, i)
			if constrained[makeFaceKey(f[0], f[1], f[2])] {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
	if len(d.inside) == 0 {
		return d.fail(Classified, "region", nil, geom.ErrDegenerateInput)
	}
	return nil
}

type piece struct {
	cells  []int
	points []mgl64.Vec3
	volume float64
}

// emit builds one hull per interior cell, merging cells when MaxPieces asks
// for fewer pieces.
func (d *decomposer) emit() (*Result, error) {
	result := &Result{
		Vertices:      append([]mgl64.Vec3(nil), d.tets.points[superVertices:]...),
		SteinerPoints: d.steinerPoints,
	}

	var pieces []*piece
	owner := make(map[int]int)
	for _, t := range d.inside {
		vol := d.tets.volume(t)
		v := d.tets.tets[t].V
		result.Tetrahedra = append(result.Tetrahedra, [4]int{v[0] - superVertices, v[1] - superVertices, v[2] - superVertices, v[3] - superVertices})
		if vol <= d.tets.volumeEps {
			continue
		}
		owner[t] = len(pieces)
		pieces = append(pieces, &piece{
			cells:  []int{t},
			points: []mgl64.Vec3{d.tets.points[v[0]], d.tets.points[v[1]], d.tets.points[v[2]], d.tets.points[v[3]]},
			volume: vol,
		})
	}

	if d.opts.MaxPieces > 0 && len(pieces) > d.opts.MaxPieces {
		var err error
		if pieces, err = d.merge(pieces, owner); err != nil {
			return nil, err
		}
	}

	for _, p := range pieces {
		h, err := hull.Build(p.points, d.opts.Hull)
		if errors.Is(err, geom.ErrDegenerateInput) && len(p.cells) == 1 {
			d.log.Debug("sliver cell dropped", slog.Float64("volume", p.volume))
			continue
		}
		if err != nil {
			return nil, d.fail(Emitted, "region", d.tets.tets[p.cells[0]].V[:], err)
		}
		if d.opts.ShrinkFactor < 1 {
			h = h.Shrink(d.opts.ShrinkFactor)
		}
		result.Pieces = append(result.Pieces, h)
	}
	return result, nil
}

// merge grows pieces by absorbing adjacent pieces while the union stays
// convex, until at most MaxPieces remain.
func (d *decomposer) merge(pieces []*piece, owner map[int]int) ([]*piece, error) {
	if whole, ok := d.mergeAll(pieces); ok {
		return []*piece{whole}, nil
	}

	alive := make([]bool, len(pieces))
	for i := range alive {
		alive[i] = true
	}
	count := len(pieces)

	for progress := true; progress && count > d.opts.MaxPieces; {
		progress = false
		for i := 0; i < len(pieces) && count > d.opts.MaxPieces; i++ {
			if !alive[i] {
				continue
			}
			for _, j := range d.neighbours(pieces[i], owner) {
				if j == i || !alive[j] {
					continue
				}
				union, ok := d.convexUnion(pieces[i], pieces[j])
				if !ok {
					continue
				}
				pieces[i] = union
				for _, c := range pieces[j].cells {
					owner[c] = i
				}
				alive[j] = false
				count--
				progress = true
				break
			}
		}
	}

	if count > d.opts.MaxPieces {
		return nil, d.fail(Emitted, "region", nil, fmt.Errorf("decompose: %d convex pieces needed, %d allowed: %w", count, d.opts.MaxPieces, geom.ErrCapacityExceeded))
	}
	var out []*piece
	for i, p := range pieces {
		if alive[i] {
			out = append(out, p)
		}
	}
	return out, nil
}

// mergeAll returns the single piece covering every cell when the solid is
// convex.
func (d *decomposer) mergeAll(pieces []*piece) (*piece, bool) {
	whole := &piece{}
	for _, p := range pieces {
		whole.cells = append(whole.cells, p.cells...)
		whole.points = append(whole.points, p.points...)
		whole.volume += p.volume
	}
	h, err := hull.Build(whole.points, d.opts.Hull)
	if err != nil || !sameVolume(h.Volume(), whole.volume) {
		return nil, false
	}
	whole.points = h.Vertices
	return whole, true
}

func (d *decomposer) convexUnion(a, b *piece) (*piece, bool) {
	points := append(append([]mgl64.Vec3(nil), a.points...), b.points...)
	h, err := hull.Build(points, d.opts.Hull)
	if err != nil {
		return nil, false
	}
	sum := a.volume + b.volume
	if !sameVolume(h.Volume(), sum) {
		return nil, false
	}
	return &piece{
		cells:  append(append([]int(nil), a.cells...), b.cells...),
		points: h.Vertices,
		volume: sum,
	}, true
}

func sameVolume(a, b float64) bool {
	return math.Abs(a-b) <= 1e-7*max(1, math.Abs(b))
}

func (d *decomposer) neighbours(p *piece, owner map[int]int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, c := range p.cells {
		for _, n := range d.tets.tets[c].N {
			j, ok := owner[n]
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			out = append(out, j)
		}
	}
	return out
}

// IsFeatureError reports whether err carries a *FeatureError and returns it.
func IsFeatureError(err error) (*FeatureError, bool) {
	var fe *FeatureError
	ok := errors.As(err, &fe)
	return fe, ok
}
