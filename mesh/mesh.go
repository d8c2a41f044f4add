// Package mesh layers per-corner attributes over a half-edge mesh and
// implements the polygon processing used to prepare collision geometry:
// triangulation, convex partitioning, welding, T-junction repair, plane
// clipping, boolean composition, mass properties and UV mapping.
//
// Positions live once per topological vertex. Normals, UV sets and material
// ids live in Attributes, addressed by the Payload of the half-edge leaving
// each face corner, so a vertex on a hard seam carries one attribute per
// adjacent face. Every attribute keeps a copy of its vertex position; Sanity
// reports any drift between the two.
package mesh

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/halfedge"
	"github.com/go-gl/mathgl/mgl64"
)

// Attribute is the data carried by one face corner.
type Attribute struct {
	Position mgl64.Vec3
	Normal   mgl64.Vec3
	UV0      mgl64.Vec2
	UV1      mgl64.Vec2
	Material int
}

// Options holds the tolerances and scratch bounds of mesh operations.
type Options struct {
	// WeldTolerance merges positions closer than this distance.
	WeldTolerance float64 `toml:"weld_tolerance"`
	// PlaneTolerance is the thickness of a plane when classifying points.
	PlaneTolerance float64 `toml:"plane_tolerance"`
	// MaxCrossings bounds the number of edges of one face a plane may cross.
	MaxCrossings int `toml:"max_crossings"`
	// MaxBSPNodes bounds the size of the partition tree of a boolean.
	MaxBSPNodes int `toml:"max_bsp_nodes"`
	// MaxRepairPasses bounds T-junction repair.
	MaxRepairPasses int `toml:"max_repair_passes"`
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		WeldTolerance:   1e-6,
		PlaneTolerance:  1e-5,
		MaxCrossings:    16,
		MaxBSPNodes:     1 << 16,
		MaxRepairPasses: 8,
	}
}

// Mesh is a polygon mesh with per-corner attributes.
type Mesh struct {
	Topology   *halfedge.Mesh
	Attributes []Attribute
	Options    Options
}

// New returns an empty mesh.
func New(opts Options) *Mesh {
	return &Mesh{Topology: halfedge.New(), Options: opts}
}

// AddVertex appends a vertex.
func (m *Mesh) AddVertex(p mgl64.Vec3) int {
	return m.Topology.AddVertex(p)
}

// AddFace inserts a face with one attribute per corner. When attrs is nil the
// corners get the flat face normal. Attribute positions are overwritten with
// the vertex positions.
func (m *Mesh) AddFace(verts []int, attrs []Attribute) (int, bool) {
	if attrs != nil && len(attrs) != len(verts) {
		return halfedge.NoFace, false
	}
	f, ok := m.Topology.AddFace(verts)
	if !ok {
		return f, false
	}
	var normal mgl64.Vec3
	if attrs == nil {
		if pl, ok := geom.PlaneFromPolygon(m.Topology.FacePositions(f)); ok {
			normal = pl.Normal
		}
	}
	k := 0
	for e := range m.Topology.FaceLoop(f) {
		var a Attribute
		if attrs != nil {
			a = attrs[k]
		} else {
			a.Normal = normal
		}
		a.Position = m.Topology.Vertices[verts[k]].Position
		m.Topology.Edges[e].Payload = len(m.Attributes)
		m.Attributes = append(m.Attributes, a)
		k++
	}
	return f, true
}

// FromPolygons builds a mesh with flat normals from vertex loops.
func FromPolygons(positions []mgl64.Vec3, faces [][]int, opts Options) (*Mesh, error) {
	m := New(opts)
	for _, p := range positions {
		m.AddVertex(p)
	}
	for i, f := range faces {
		if _, ok := m.AddFace(f, nil); !ok {
			return nil, fmt.Errorf("mesh: face %d: %w", i, geom.ErrNonManifoldTopology)
		}
	}
	return m, nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Topology:   m.Topology.Clone(),
		Attributes: append([]Attribute(nil), m.Attributes...),
		Options:    m.Options,
	}
}

// Corner returns the attribute of the corner at the tail of half-edge e.
func (m *Mesh) Corner(e int) Attribute {
	p := m.Topology.Edges[e].Payload
	if p < 0 || p >= len(m.Attributes) {
		return Attribute{Position: m.Topology.Vertices[m.Topology.Edges[e].Vertex].Position}
	}
	return m.Attributes[p]
}

// FaceAttributes returns the corner attributes of face f in loop order.
func (m *Mesh) FaceAttributes(f int) []Attribute {
	var attrs []Attribute
	for e := range m.Topology.FaceLoop(f) {
		attrs = append(attrs, m.Corner(e))
	}
	return attrs
}

// FacePlane returns the plane of face f.
func (m *Mesh) FacePlane(f int) (geom.Plane, bool) {
	return geom.PlaneFromPolygon(m.Topology.FacePositions(f))
}

// Positions returns the positions of the vertices referenced by live faces.
func (m *Mesh) Positions() []mgl64.Vec3 {
	var points []mgl64.Vec3
	for _, v := range m.Topology.Vertices {
		if v.Edge != halfedge.NoEdge {
			points = append(points, v.Position)
		}
	}
	return points
}

// Bounds returns the axis aligned bounds of the live vertices.
func (m *Mesh) Bounds() (mgl64.Vec3, mgl64.Vec3) {
	points := m.Positions()
	if len(points) == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for i := range 3 {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	return lo, hi
}

// Sanity verifies the topology and that every corner attribute sits on its
// vertex.
func (m *Mesh) Sanity() error {
	if err := m.Topology.Check(); err != nil {
		return err
	}
	tolerance := m.Options.WeldTolerance
	for f := range m.Topology.LiveFaces() {
		for e := range m.Topology.FaceLoop(f) {
			p := m.Topology.Edges[e].Payload
			if p < 0 || p >= len(m.Attributes) {
				return fmt.Errorf("mesh: half-edge %d: payload %d out of range: %w", e, p, geom.ErrNonManifoldTopology)
			}
			v := m.Topology.Vertices[m.Topology.Edges[e].Vertex].Position
			if !geom.AlmostEqual(m.Attributes[p].Position, v, tolerance) {
				return fmt.Errorf("mesh: half-edge %d: attribute at %v, vertex at %v: %w", e, m.Attributes[p].Position, v, geom.ErrDegenerateInput)
			}
		}
	}
	return nil
}

// Transform returns a copy moved by the affine transform t. Normals are
// transformed by the inverse transpose and renormalised.
func (m *Mesh) Transform(t mgl64.Mat4) *Mesh {
	c := m.Clone()
	normalMatrix := t.Mat3().Inv().Transpose()
	for i := range c.Topology.Vertices {
		c.Topology.Vertices[i].Position = mgl64.TransformCoordinate(c.Topology.Vertices[i].Position, t)
	}
	for i := range c.Attributes {
		a := &c.Attributes[i]
		a.Position = mgl64.TransformCoordinate(a.Position, t)
		if n := normalMatrix.Mul3x1(a.Normal); n.Len() > geom.Epsilon {
			a.Normal = n.Normalize()
		}
	}
	if t.Mat3().Det() < 0 {
		// Mirroring flips the winding.
		return fromSoupUnchecked(flipAll(c.soup()), c.Options)
	}
	return c
}

// polygon is a face detached from the topology.
type polygon struct {
	corners []Attribute
	tag     int
}

func (p polygon) positions() []mgl64.Vec3 {
	points := make([]mgl64.Vec3, len(p.corners))
	for i, c := range p.corners {
		points[i] = c.Position
	}
	return points
}

func (p polygon) flip() polygon {
	corners := make([]Attribute, len(p.corners))
	for i, c := range p.corners {
		c.Normal = c.Normal.Mul(-1)
		corners[len(corners)-1-i] = c
	}
	return polygon{corners: corners, tag: p.tag}
}

func flipAll(polys []polygon) []polygon {
	out := make([]polygon, len(polys))
	for i, p := range polys {
		out[i] = p.flip()
	}
	return out
}

// soup detaches every live face.
func (m *Mesh) soup() []polygon {
	var polys []polygon
	for f := range m.Topology.LiveFaces() {
		polys = append(polys, polygon{corners: m.FaceAttributes(f), tag: m.Topology.Faces[f].Tag})
	}
	return polys
}

// fromSoup welds the positions of a polygon soup and rebuilds a mesh from
// it. Polygons that collapse below three corners or have no area are
// dropped. It also returns, for every corner of the input in order, the
// vertex it was welded to.
func fromSoup(polys []polygon, opts Options) (*Mesh, []int, error) {
	var points []mgl64.Vec3
	for _, p := range polys {
		for _, c := range p.corners {
			points = append(points, c.Position)
		}
	}
	positions, remap := geom.Weld(points, opts.WeldTolerance)

	var faces [][]halfedge.Corner
	var tags []int
	var attrs []Attribute
	attrIndex := make(map[Attribute]int)
	k := 0
	for _, p := range polys {
		loop := make([]halfedge.Corner, 0, len(p.corners))
		for _, c := range p.corners {
			v := remap[k]
			k++
			if len(loop) > 0 && loop[len(loop)-1].Vertex == v {
				continue
			}
			c.Position = positions[v]
			idx, ok := attrIndex[c]
			if !ok {
				idx = len(attrs)
				attrIndex[c] = idx
				attrs = append(attrs, c)
			}
			loop = append(loop, halfedge.Corner{Vertex: v, Payload: idx})
		}
		if len(loop) > 1 && loop[0].Vertex == loop[len(loop)-1].Vertex {
			loop = loop[:len(loop)-1]
		}
		if len(loop) < 3 || polygonArea(positions, loop) < geom.AreaEpsilon {
			continue
		}
		faces = append(faces, loop)
		tags = append(tags, p.tag)
	}

	topology, rejected := halfedge.FromCorners(positions, faces, tags)
	m := &Mesh{Topology: topology, Attributes: attrs, Options: opts}
	if len(rejected) > 0 {
		return m, remap, fmt.Errorf("mesh: %d faces would share a directed edge: %w", len(rejected), geom.ErrNonManifoldTopology)
	}
	return m, remap, nil
}

func fromSoupUnchecked(polys []polygon, opts Options) *Mesh {
	m, _, _ := fromSoup(polys, opts)
	return m
}

func polygonArea(positions []mgl64.Vec3, loop []halfedge.Corner) float64 {
	var n mgl64.Vec3
	for i := 1; i+1 < len(loop); i++ {
		a := positions[loop[0].Vertex]
		n = n.Add(positions[loop[i].Vertex].Sub(a).Cross(positions[loop[i+1].Vertex].Sub(a)))
	}
	return n.Len() * 0.5
}
