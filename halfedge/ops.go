package halfedge

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// FromPolygons builds a mesh from positions and vertex loops. Faces that
// cannot be inserted are reported by index in rejected.
func FromPolygons(positions []mgl64.Vec3, faces [][]int) (m *Mesh, rejected []int) {
	m = New()
	for _, p := range positions {
		m.AddVertex(p)
	}
	for i, f := range faces {
		if _, ok := m.AddFace(f); !ok {
			rejected = append(rejected, i)
		}
	}
	return m, rejected
}

// killPair removes e and its twin from the mesh.
func (m *Mesh) killPair(e int) {
	he := m.Edges[e]
	if !he.alive() {
		return
	}
	t := he.Twin
	u, v := he.Vertex, m.Edges[t].Vertex
	delete(m.index, edgeKey{u, v})
	delete(m.index, edgeKey{v, u})
	dead := HalfEdge{Vertex: NoVertex, Twin: NoEdge, Next: NoEdge, Prev: NoEdge, Face: Boundary, Payload: NoPayload}
	m.Edges[e] = dead
	m.Edges[t] = dead
}

// reanchor points the vertex at a live outgoing half-edge other than skip.
func (m *Mesh) reanchor(v int, skip ...int) {
	anchor := NoEdge
	for i, e := range m.Edges {
		if e.Vertex != v || !e.alive() {
			continue
		}
		excluded := false
		for _, s := range skip {
			if s == i {
				excluded = true
			}
		}
		if excluded {
			continue
		}
		if anchor == NoEdge || e.Face != Boundary {
			anchor = i
		}
		if e.Face != Boundary {
			break
		}
	}
	m.Vertices[v].Edge = anchor
}

// DeleteEdge removes both half-edges of the undirected edge containing e
// and merges the faces on either side into one, returning the surviving face.
// When one side is an open border the other face is opened as well. Deleting
// an edge whose two sides belong to the same face would leave a bridge and is
// rejected.
func (m *Mesh) DeleteEdge(e int) (int, error) {
	if e < 0 || e >= len(m.Edges) || !m.Edges[e].alive() {
		return NoFace, fmt.Errorf("delete edge %d: not a live half-edge: %w", e, geom.ErrNonManifoldTopology)
	}
	t := m.Edges[e].Twin
	f1 := m.Edges[e].Face
	f2 := m.Edges[t].Face

	if f1 == f2 {
		return NoFace, fmt.Errorf("delete edge %d: both sides belong to face %d: %w", e, f1, geom.ErrNonManifoldTopology)
	}

	if f1 == Boundary || f2 == Boundary {
		f := f1
		if f == Boundary {
			f = f2
		}
		u, v := m.Edges[e].Vertex, m.Edges[t].Vertex
		m.openFace(f)
		m.killPair(e)
		m.reanchor(u)
		m.reanchor(v)
		return NoFace, nil
	}

	for x := range m.FaceLoop(f2) {
		m.Edges[x].Face = f1
	}

	ep, en := m.Edges[e].Prev, m.Edges[e].Next
	tp, tn := m.Edges[t].Prev, m.Edges[t].Next

	m.Edges[ep].Next = tn
	m.Edges[tn].Prev = ep
	m.Edges[tp].Next = en
	m.Edges[en].Prev = tp

	m.Faces[f1].Edge = ep
	m.Faces[f2].Edge = NoEdge

	u, v := m.Edges[e].Vertex, m.Edges[t].Vertex
	m.killPair(e)
	if m.Vertices[u].Edge == e {
		m.Vertices[u].Edge = tn
	}
	if m.Vertices[v].Edge == t {
		m.Vertices[v].Edge = en
	}
	return f1, nil
}

// openFace turns the loop of face f into open border half-edges and drops
// edges left with no face on either side.
func (m *Mesh) openFace(f int) {
	loop := make([]int, 0, 8)
	for e := range m.FaceLoop(f) {
		loop = append(loop, e)
	}
	for _, e := range loop {
		m.Edges[e].Face = Boundary
		m.Edges[e].Next = NoEdge
		m.Edges[e].Prev = NoEdge
	}
	m.Faces[f].Edge = NoEdge
	for _, e := range loop {
		he := m.Edges[e]
		if !he.alive() {
			continue
		}
		if m.Edges[he.Twin].Face == Boundary {
			u, v := he.Vertex, m.Edges[he.Twin].Vertex
			m.killPair(e)
			m.reanchor(u)
			m.reanchor(v)
		}
	}
}

// DeleteFace removes face f and opens its border.
func (m *Mesh) DeleteFace(f int) {
	if !m.Live(f) {
		return
	}
	m.openFace(f)
}

// SplitEdge inserts a new vertex at p on the edge of e. Both half-edges are
// split; the returned half-edges start at the new vertex, the first in e's
// face and the second in its twin's. Payloads of the new corners are left as
// NoPayload for the caller to fill.
func (m *Mesh) SplitEdge(e int, p mgl64.Vec3) (v, forward, backward int) {
	t := m.Edges[e].Twin
	a := m.Edges[e].Vertex
	b := m.Edges[t].Vertex
	v = m.AddVertex(p)

	delete(m.index, edgeKey{a, b})
	delete(m.index, edgeKey{b, a})

	forward = len(m.Edges)
	backward = forward + 1
	m.Edges = append(m.Edges,
		HalfEdge{Vertex: v, Face: m.Edges[e].Face, Payload: NoPayload, Prev: NoEdge, Next: NoEdge},
		HalfEdge{Vertex: v, Face: m.Edges[t].Face, Payload: NoPayload, Prev: NoEdge, Next: NoEdge},
	)

	// e: a→v, forward: v→b, t: b→v, backward: v→a
	m.Edges[e].Twin = backward
	m.Edges[backward].Twin = e
	m.Edges[t].Twin = forward
	m.Edges[forward].Twin = t

	m.index[edgeKey{a, v}] = e
	m.index[edgeKey{v, b}] = forward
	m.index[edgeKey{b, v}] = t
	m.index[edgeKey{v, a}] = backward

	if m.Edges[e].Face != Boundary {
		next := m.Edges[e].Next
		m.Edges[forward].Next = next
		m.Edges[forward].Prev = e
		m.Edges[next].Prev = forward
		m.Edges[e].Next = forward
	}
	if m.Edges[t].Face != Boundary {
		next := m.Edges[t].Next
		m.Edges[backward].Next = next
		m.Edges[backward].Prev = t
		m.Edges[next].Prev = backward
		m.Edges[t].Next = backward
	}
	if m.Edges[forward].Face != Boundary {
		m.Vertices[v].Edge = forward
	} else {
		m.Vertices[v].Edge = backward
	}
	return v, forward, backward
}

// SplitFace cuts face f with a new edge between the corners starting
// half-edges a and b (both in f, not adjacent). It returns the new face,
// which owns the loop starting at b.
func (m *Mesh) SplitFace(a, b int) (int, error) {
	f := m.Edges[a].Face
	if f == Boundary || m.Edges[b].Face != f || a == b || m.Edges[a].Next == b || m.Edges[b].Next == a {
		return NoFace, fmt.Errorf("split face: invalid corners %d, %d: %w", a, b, geom.ErrNonManifoldTopology)
	}
	va := m.Edges[a].Vertex
	vb := m.Edges[b].Vertex
	if m.FindEdge(va, vb) != NoEdge || m.FindEdge(vb, va) != NoEdge {
		return NoFace, fmt.Errorf("split face: edge %d-%d exists: %w", va, vb, geom.ErrNonManifoldTopology)
	}

	ap, bp := m.Edges[a].Prev, m.Edges[b].Prev
	// d1: vb→va closes loop of a..bp, d2: va→vb closes loop of b..ap
	d1 := m.newHalfEdge(vb, va)
	d2 := m.newHalfEdge(va, vb)
	m.Edges[d1].Twin = d2
	m.Edges[d2].Twin = d1
	m.Edges[d1].Payload = m.Edges[b].Payload
	m.Edges[d2].Payload = m.Edges[a].Payload

	m.Edges[bp].Next = d1
	m.Edges[d1].Prev = bp
	m.Edges[d1].Next = a
	m.Edges[a].Prev = d1

	m.Edges[ap].Next = d2
	m.Edges[d2].Prev = ap
	m.Edges[d2].Next = b
	m.Edges[b].Prev = d2

	nf := len(m.Faces)
	m.Faces = append(m.Faces, Face{Edge: b, Tag: m.Faces[f].Tag})
	m.Faces[f].Edge = a
	m.Edges[d1].Face = f
	for e := range m.FaceLoop(nf) {
		m.Edges[e].Face = nf
	}
	return nf, nil
}

// Corner is a face corner: its vertex and the payload of the half-edge
// leaving it.
type Corner struct {
	Vertex  int
	Payload int
}

// Corners returns the corners of face f.
func (m *Mesh) Corners(f int) []Corner {
	var corners []Corner
	for e := range m.FaceLoop(f) {
		corners = append(corners, Corner{Vertex: m.Edges[e].Vertex, Payload: m.Edges[e].Payload})
	}
	return corners
}

// FromCorners rebuilds a mesh from corner loops, keeping payloads and tags.
// Vertex handles are preserved; face handles are renumbered densely.
func FromCorners(positions []mgl64.Vec3, faces [][]Corner, tags []int) (*Mesh, []int) {
	m := New()
	for _, p := range positions {
		m.AddVertex(p)
	}
	var rejected []int
	verts := make([]int, 0, 8)
	for i, loop := range faces {
		verts = verts[:0]
		for _, c := range loop {
			verts = append(verts, c.Vertex)
		}
		f, ok := m.AddFace(verts)
		if !ok {
			rejected = append(rejected, i)
			continue
		}
		if tags != nil {
			m.Faces[f].Tag = tags[i]
		}
		k := 0
		for e := range m.FaceLoop(f) {
			m.Edges[e].Payload = loop[k].Payload
			k++
		}
	}
	return m, rejected
}

// CollapseEdge merges the head of e into its tail, moving the tail to p.
// Faces reduced below three corners disappear. Vertex handles are kept, face
// handles are renumbered; the rebuilt mesh replaces m's content.
func (m *Mesh) CollapseEdge(e int, p mgl64.Vec3) error {
	if e < 0 || e >= len(m.Edges) || !m.Edges[e].alive() {
		return fmt.Errorf("collapse edge %d: not a live half-edge: %w", e, geom.ErrNonManifoldTopology)
	}
	keep := m.Edges[e].Vertex
	gone := m.Dest(e)

	positions := make([]mgl64.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = v.Position
	}
	positions[keep] = p

	var faces [][]Corner
	var tags []int
	for f := range m.LiveFaces() {
		loop := m.Corners(f)
		out := loop[:0:0]
		for _, c := range loop {
			if c.Vertex == gone {
				c.Vertex = keep
			}
			if len(out) > 0 && out[len(out)-1].Vertex == c.Vertex {
				continue
			}
			out = append(out, c)
		}
		if len(out) > 1 && out[0].Vertex == out[len(out)-1].Vertex {
			out = out[:len(out)-1]
		}
		if len(out) < 3 {
			continue
		}
		faces = append(faces, out)
		tags = append(tags, m.Faces[f].Tag)
	}

	rebuilt, rejected := FromCorners(positions, faces, tags)
	if len(rejected) > 0 {
		return fmt.Errorf("collapse edge %d: %d faces became non-manifold: %w", e, len(rejected), geom.ErrNonManifoldTopology)
	}
	rebuilt.Vertices[gone].Edge = NoEdge
	rebuilt.mark = m.mark
	*m = *rebuilt
	return nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: append([]Vertex(nil), m.Vertices...),
		Edges:    append([]HalfEdge(nil), m.Edges...),
		Faces:    append([]Face(nil), m.Faces...),
		index:    make(map[edgeKey]int, len(m.index)),
		mark:     m.mark,
	}
	for k, v := range m.index {
		c.index[k] = v
	}
	return c
}
