package epa

import (
	"fmt"
	"math"
	"sync"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the expanding polytope. Normal points away from the
// polytope and Distance is the distance from the origin to its plane.
type Face struct {
	Points   [3]mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64
}

// edge is a polytope edge, stored with A < B so both windings compare equal.
type edge struct {
	A, B  mgl64.Vec3
	Count int
}

// Polytope is the scratch state of one EPA run. Instances are pooled and
// owned by the goroutine running the query.
type Polytope struct {
	faces    []Face
	vertices []mgl64.Vec3
	edges    []edge
	visible  []int
}

var polytopePool = sync.Pool{
	New: func() interface{} {
		return &Polytope{
			faces:    make([]Face, 0, polytopeInitialCapacity),
			vertices: make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			edges:    make([]edge, 0, polytopeInitialCapacity),
			visible:  make([]int, 0, polytopeInitialCapacity),
		}
	},
}

func (p *Polytope) Reset() {
	p.faces = p.faces[:0]
	p.vertices = p.vertices[:0]
	p.edges = p.edges[:0]
	p.visible = p.visible[:0]
}

// Faces returns the current faces. The slice is reused by later calls.
func (p *Polytope) Faces() []Face {
	return p.faces
}

// Init seeds the polytope from a GJK tetrahedron.
func (p *Polytope) Init(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("epa: simplex has %d points, want 4: %w", simplex.Count, geom.ErrDegenerateInput)
	}

	p0, p1, p2, p3 := simplex.Points[0], simplex.Points[1], simplex.Points[2], simplex.Points[3]
	p.vertices = append(p.vertices, p0, p1, p2, p3)

	candidates := [4]Face{
		newFace(p0, p1, p2, p3),
		newFace(p0, p2, p3, p1),
		newFace(p0, p3, p1, p2),
		newFace(p1, p3, p2, p0),
	}
	for _, f := range candidates {
		if f.Distance >= MinFaceDistance {
			p.faces = append(p.faces, f)
		}
	}
	// A tetrahedron touching the origin keeps all its faces.
	if len(p.faces) < 3 {
		p.faces = append(p.faces[:0], candidates[:]...)
	}
	return nil
}

// newFace orients the triangle away from opposite and measures its
// distance to the origin, clamped to MinFaceDistance.
func newFace(a, b, c, opposite mgl64.Vec3) Face {
	face := Face{Points: [3]mgl64.Vec3{a, b, c}}

	normal := b.Sub(a).Cross(c.Sub(a))
	length := normal.Len()
	if length < 1e-8 {
		face.Normal = mgl64.Vec3{0, 1, 0}
		face.Distance = MinFaceDistance
		return face
	}
	normal = normal.Mul(1.0 / length)

	if normal.Dot(opposite.Sub(a)) > 0 {
		normal = normal.Mul(-1)
	}

	distance := a.Dot(normal)
	if distance < 0 {
		normal = normal.Mul(-1)
		distance = -distance
	}

	face.Normal = snapNormalToAxis(normal)
	face.Distance = math.Max(distance, MinFaceDistance)
	return face
}

// Closest returns the index of the face nearest to the origin, -1 when the
// polytope is empty.
func (p *Polytope) Closest() int {
	if len(p.faces) == 0 {
		return -1
	}
	closest := 0
	for i := 1; i < len(p.faces); i++ {
		if p.faces[i].Distance < p.faces[closest].Distance {
			closest = i
		}
	}
	return closest
}

func (p *Polytope) remove(i int) {
	p.faces[i] = p.faces[len(p.faces)-1]
	p.faces = p.faces[:len(p.faces)-1]
}

func (p *Polytope) centroid() mgl64.Vec3 {
	var sum mgl64.Vec3
	for _, v := range p.vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1.0 / float64(len(p.vertices)))
}

// Expand adds support to the polytope: faces that see it are removed and
// their horizon is fanned to the new vertex. closest is kept as the only
// visible face when every face would be removed.
func (p *Polytope) Expand(support mgl64.Vec3, closest int) error {
	if len(p.faces) >= MaxFaces {
		return fmt.Errorf("epa: polytope reached %d faces: %w", MaxFaces, geom.ErrCapacityExceeded)
	}

	p.visible = p.visible[:0]
	for i := range p.faces {
		if support.Sub(p.faces[i].Points[0]).Dot(p.faces[i].Normal) > 0 {
			p.visible = append(p.visible, i)
		}
	}
	if len(p.visible) == 0 || len(p.visible) >= len(p.faces) {
		p.visible = append(p.visible[:0], closest)
	}

	p.horizon()
	p.vertices = append(p.vertices, support)
	centroid := p.centroid()

	// Remove from the highest index so swaps never move a visible face.
	for i := len(p.visible) - 1; i >= 0; i-- {
		p.remove(p.visible[i])
	}
	for _, e := range p.edges {
		if e.Count == 1 {
			p.faces = append(p.faces, newFace(e.A, e.B, support, centroid))
		}
	}
	if len(p.faces) == 0 {
		return fmt.Errorf("epa: polytope collapsed: %w", geom.ErrDegenerateInput)
	}
	return nil
}

// horizon counts the edges of the visible faces. Edges seen once border
// the visible region.
func (p *Polytope) horizon() {
	p.edges = p.edges[:0]
	for _, fi := range p.visible {
		face := &p.faces[fi]
		for j := range 3 {
			a, b := face.Points[j], face.Points[(j+1)%3]
			if compareVec3(a, b) > 0 {
				a, b = b, a
			}
			found := false
			for k := range p.edges {
				if vec3Equal(p.edges[k].A, a) && vec3Equal(p.edges[k].B, b) {
					p.edges[k].Count++
					found = true
					break
				}
			}
			if !found {
				p.edges = append(p.edges, edge{A: a, B: b, Count: 1})
			}
		}
	}
}

// compareVec3 orders vectors lexicographically.
func compareVec3(a, b mgl64.Vec3) int {
	for i := range 3 {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

func vec3Equal(a, b mgl64.Vec3) bool {
	return a[0] == b[0] && a[1] == b[1] && a[2] == b[2]
}
