// Package halfedge implements an index based half-edge mesh.
//
// Vertices, half-edges and faces live in dense slices and reference each
// other through integer handles. Each undirected edge is a pair of half-edges
// (twins); a half-edge owned by no face carries the Boundary face tag and
// marks an open border. Deleted records stay in place with a dead marker so
// handles held by callers never dangle.
//
// Invariants, verified by Check:
//   - Twin(Twin(e)) == e for every live half-edge
//   - Prev(Next(e)) == e for every half-edge owned by a face
//   - the half-edges around a face form a cycle whose length equals the
//     face vertex count
package halfedge

import (
	"fmt"
	"iter"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// NoVertex, NoEdge and NoFace are null handles.
	NoVertex = -1
	NoEdge   = -1
	NoFace   = -1

	// Boundary is the face tag of half-edges that belong to an open border.
	Boundary = -1

	// NoPayload is the payload of a half-edge without attribute.
	NoPayload = -1
)

type Vertex struct {
	Position mgl64.Vec3
	// One outgoing half-edge, NoEdge for an isolated vertex.
	Edge int
}

type HalfEdge struct {
	// Tail vertex.
	Vertex int
	Twin   int
	Next   int
	Prev   int
	// Owning face, Boundary when open.
	Face int
	// Opaque per corner slot, an attribute index for mesh users.
	Payload int
	// Traversal mark, compared against Mesh.NewMark.
	Mark uint64
}

func (e HalfEdge) alive() bool {
	return e.Vertex != NoVertex
}

type Face struct {
	// One half-edge of the face loop, NoEdge once deleted.
	Edge int
	// Free user tag, copied when faces are split or merged.
	Tag int
}

type edgeKey struct {
	from, to int
}

// Mesh is a half-edge polygon mesh.
type Mesh struct {
	Vertices []Vertex
	Edges    []HalfEdge
	Faces    []Face

	index map[edgeKey]int
	mark  uint64
}

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{index: make(map[edgeKey]int)}
}

// AddVertex appends an isolated vertex.
func (m *Mesh) AddVertex(p mgl64.Vec3) int {
	m.Vertices = append(m.Vertices, Vertex{Position: p, Edge: NoEdge})
	return len(m.Vertices) - 1
}

// FindEdge returns the half-edge going from u to v, or NoEdge.
func (m *Mesh) FindEdge(u, v int) int {
	if e, ok := m.index[edgeKey{u, v}]; ok {
		return e
	}
	return NoEdge
}

func (m *Mesh) newHalfEdge(from, to int) int {
	m.Edges = append(m.Edges, HalfEdge{
		Vertex:  from,
		Twin:    NoEdge,
		Next:    NoEdge,
		Prev:    NoEdge,
		Face:    Boundary,
		Payload: NoPayload,
	})
	e := len(m.Edges) - 1
	m.index[edgeKey{from, to}] = e
	if m.Vertices[from].Edge == NoEdge {
		m.Vertices[from].Edge = e
	}
	return e
}

// edgePair returns the half-edge from u to v, creating it and its boundary
// twin when missing.
func (m *Mesh) edgePair(u, v int) int {
	if e := m.FindEdge(u, v); e != NoEdge {
		return e
	}
	e := m.newHalfEdge(u, v)
	t := m.newHalfEdge(v, u)
	m.Edges[e].Twin = t
	m.Edges[t].Twin = e
	return e
}

// AddFace inserts a face over the given vertex loop. Missing half-edges are
// allocated and wired to existing reversed half-edges as twins. It fails,
// returning (NoFace, false), when the loop has fewer than three distinct
// vertices or when one of its directed edges already bounds a face, which
// would make that edge non-manifold.
func (m *Mesh) AddFace(verts []int) (int, bool) {
	n := len(verts)
	if n < 3 {
		return NoFace, false
	}
	seen := make(map[int]struct{}, n)
	for _, v := range verts {
		if v < 0 || v >= len(m.Vertices) {
			return NoFace, false
		}
		if _, dup := seen[v]; dup {
			return NoFace, false
		}
		seen[v] = struct{}{}
	}
	for i := range n {
		if e := m.FindEdge(verts[i], verts[(i+1)%n]); e != NoEdge && m.Edges[e].Face != Boundary {
			return NoFace, false
		}
	}

	f := len(m.Faces)
	loop := make([]int, n)
	for i := range n {
		loop[i] = m.edgePair(verts[i], verts[(i+1)%n])
	}
	for i, e := range loop {
		he := &m.Edges[e]
		he.Face = f
		he.Next = loop[(i+1)%n]
		he.Prev = loop[(i+n-1)%n]
		// Prefer a face half-edge as the vertex anchor so fans start inside.
		m.Vertices[he.Vertex].Edge = e
	}
	m.Faces = append(m.Faces, Face{Edge: loop[0]})
	return f, true
}

// NewMark returns a fresh traversal mark. Half-edges whose Mark equals it
// have been visited in the current traversal.
func (m *Mesh) NewMark() uint64 {
	m.mark++
	return m.mark
}

// Dest returns the head vertex of half-edge e.
func (m *Mesh) Dest(e int) int {
	return m.Edges[m.Edges[e].Twin].Vertex
}

// FaceLoop yields the half-edges of face f in order.
func (m *Mesh) FaceLoop(f int) iter.Seq[int] {
	return func(yield func(int) bool) {
		start := m.Faces[f].Edge
		if start == NoEdge {
			return
		}
		e := start
		for range len(m.Edges) {
			if !yield(e) {
				return
			}
			e = m.Edges[e].Next
			if e == start || e == NoEdge {
				return
			}
		}
	}
}

// FaceVertices returns the vertex loop of face f.
func (m *Mesh) FaceVertices(f int) []int {
	var verts []int
	for e := range m.FaceLoop(f) {
		verts = append(verts, m.Edges[e].Vertex)
	}
	return verts
}

// FacePositions returns the vertex positions of face f.
func (m *Mesh) FacePositions(f int) []mgl64.Vec3 {
	var points []mgl64.Vec3
	for e := range m.FaceLoop(f) {
		points = append(points, m.Vertices[m.Edges[e].Vertex].Position)
	}
	return points
}

// VertexFan yields the outgoing half-edges of vertex v. For vertices on an
// open border the fan is walked from one border to the other.
func (m *Mesh) VertexFan(v int) iter.Seq[int] {
	return func(yield func(int) bool) {
		start := m.Vertices[v].Edge
		if start == NoEdge {
			return
		}
		// Rewind to the first outgoing half-edge so open fans are complete.
		e := start
		for range len(m.Edges) {
			prev := m.Edges[e].Prev
			if prev == NoEdge {
				break
			}
			back := m.Edges[prev].Twin
			if back == start {
				break
			}
			e = back
		}
		first := e
		for range len(m.Edges) {
			if !yield(e) {
				return
			}
			next := m.Edges[m.Edges[e].Twin].Next
			if next == NoEdge || next == first {
				return
			}
			e = next
		}
	}
}

// Live reports whether the face has not been deleted.
func (m *Mesh) Live(f int) bool {
	return m.Faces[f].Edge != NoEdge
}

// LiveFaces yields the handles of faces that have not been deleted.
func (m *Mesh) LiveFaces() iter.Seq[int] {
	return func(yield func(int) bool) {
		for f := range m.Faces {
			if m.Live(f) && !yield(f) {
				return
			}
		}
	}
}

// FaceCount returns the number of live faces.
func (m *Mesh) FaceCount() int {
	n := 0
	for range m.LiveFaces() {
		n++
	}
	return n
}

// EdgeCount returns the number of live undirected edges.
func (m *Mesh) EdgeCount() int {
	n := 0
	for _, e := range m.Edges {
		if e.alive() {
			n++
		}
	}
	return n / 2
}

// VertexCount returns the number of vertices referenced by a live edge.
func (m *Mesh) VertexCount() int {
	n := 0
	for _, v := range m.Vertices {
		if v.Edge != NoEdge {
			n++
		}
	}
	return n
}

// EulerCharacteristic returns V - E + F over the live elements.
func (m *Mesh) EulerCharacteristic() int {
	return m.VertexCount() - m.EdgeCount() + m.FaceCount()
}

// IsClosed reports whether no live half-edge lies on an open border.
func (m *Mesh) IsClosed() bool {
	for _, e := range m.Edges {
		if e.alive() && e.Face == Boundary {
			return false
		}
	}
	return true
}

// BoundaryEdges yields the live half-edges that lie on an open border.
func (m *Mesh) BoundaryEdges() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, e := range m.Edges {
			if e.alive() && e.Face == Boundary && m.Edges[e.Twin].Face != Boundary {
				if !yield(i) {
					return
				}
			}
		}
	}
}

// Check verifies the structural invariants of the mesh.
func (m *Mesh) Check() error {
	for i, e := range m.Edges {
		if !e.alive() {
			continue
		}
		if e.Twin == NoEdge || m.Edges[e.Twin].Twin != i {
			return fmt.Errorf("half-edge %d: twin mismatch: %w", i, geom.ErrNonManifoldTopology)
		}
		if m.Edges[e.Twin].Vertex == e.Vertex {
			return fmt.Errorf("half-edge %d: zero length edge: %w", i, geom.ErrNonManifoldTopology)
		}
		if e.Face == Boundary {
			continue
		}
		if e.Next == NoEdge || m.Edges[e.Next].Prev != i {
			return fmt.Errorf("half-edge %d: next/prev mismatch: %w", i, geom.ErrNonManifoldTopology)
		}
		if m.Edges[e.Next].Face != e.Face {
			return fmt.Errorf("half-edge %d: loop leaves face %d: %w", i, e.Face, geom.ErrNonManifoldTopology)
		}
		if m.Edges[e.Next].Vertex != m.Dest(i) {
			return fmt.Errorf("half-edge %d: next does not start at head: %w", i, geom.ErrNonManifoldTopology)
		}
	}
	for f := range m.LiveFaces() {
		count := 0
		for e := range m.FaceLoop(f) {
			if m.Edges[e].Face != f {
				return fmt.Errorf("face %d: half-edge %d owned by face %d: %w", f, e, m.Edges[e].Face, geom.ErrNonManifoldTopology)
			}
			count++
		}
		if count < 3 {
			return fmt.Errorf("face %d: %d corners: %w", f, count, geom.ErrDegenerateInput)
		}
	}
	return nil
}
