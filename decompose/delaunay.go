package decompose

import (
	"fmt"
	"slices"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// superVertices is the number of bounding vertices placed before the input
// points.
const superVertices = 4

// faceOrder lists, for each face opposite V[i], its corners in outward
// winding for a positively oriented tetrahedron.
var faceOrder = [4][3]int{{1, 2, 3}, {0, 3, 2}, {0, 1, 3}, {0, 2, 1}}

// Tetrahedron is a positively oriented cell. N[i] is the neighbour across
// the face opposite V[i], or -1 on the outer boundary.
type Tetrahedron struct {
	V     [4]int
	N     [4]int
	alive bool
}

type edgeKey [2]int

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

type faceKey [3]int

func makeFaceKey(a, b, c int) faceKey {
	k := faceKey{a, b, c}
	slices.Sort(k[:])
	return k
}

type faceRef struct {
	tet, face int
}

// tetrahedralization is an incremental Delaunay tetrahedralization. A point
// is inserted by removing every cell whose lifted facet is visible from the
// lifted point, i.e. whose circumsphere contains it, and connecting the
// boundary of that cavity to the new vertex.
type tetrahedralization struct {
	points    []mgl64.Vec3
	tets      []Tetrahedron
	volumeEps float64
	pointEps  float64
}

// newTetrahedralization starts from one cell enclosing the box lo-hi.
func newTetrahedralization(lo, hi mgl64.Vec3) *tetrahedralization {
	center := lo.Add(hi).Mul(0.5)
	extent := max(hi.Sub(lo).Len(), geom.Epsilon)
	k := extent * 50

	d := &tetrahedralization{
		volumeEps: 1e-12 * extent * extent * extent,
		pointEps:  1e-9 * extent,
	}
	d.points = append(d.points,
		center.Add(mgl64.Vec3{1, 1, 1}.Mul(k)),
		center.Add(mgl64.Vec3{1, -1, -1}.Mul(k)),
		center.Add(mgl64.Vec3{-1, 1, -1}.Mul(k)),
		center.Add(mgl64.Vec3{-1, -1, 1}.Mul(k)),
	)
	v := [4]int{0, 1, 2, 3}
	if geom.Orient3D(d.points[0], d.points[1], d.points[2], d.points[3]) < 0 {
		v[1], v[2] = v[2], v[1]
	}
	d.tets = append(d.tets, Tetrahedron{V: v, N: [4]int{-1, -1, -1, -1}, alive: true})
	return d
}

func (d *tetrahedralization) isSuper(v int) bool {
	return v < superVertices
}

func (d *tetrahedralization) face(t, i int) [3]int {
	tet := d.tets[t]
	o := faceOrder[i]
	return [3]int{tet.V[o[0]], tet.V[o[1]], tet.V[o[2]]}
}

func (d *tetrahedralization) orientFace(f [3]int, p mgl64.Vec3) float64 {
	return geom.Orient3D(d.points[f[0]], d.points[f[1]], d.points[f[2]], p)
}

// inSphere reports whether p lies strictly inside the circumsphere of t.
func (d *tetrahedralization) inSphere(t int, p mgl64.Vec3) bool {
	v := d.tets[t].V
	return geom.LiftedOrient(d.points[v[0]], d.points[v[1]], d.points[v[2]], d.points[v[3]], p) > 0
}

// locate returns a live cell containing p, or -1.
func (d *tetrahedralization) locate(p mgl64.Vec3) int {
	for t := range d.tets {
		if !d.tets[t].alive {
			continue
		}
		inside := true
		for i := range 4 {
			if d.orientFace(d.face(t, i), p) > d.volumeEps {
				inside = false
				break
			}
		}
		if inside {
			return t
		}
	}
	return -1
}

// find returns the index of a vertex at p, or -1.
func (d *tetrahedralization) find(p mgl64.Vec3) int {
	for i := superVertices; i < len(d.points); i++ {
		if d.points[i].Sub(p).Len() <= d.pointEps {
			return i
		}
	}
	return -1
}

// insert adds p and returns its vertex index. Inserting an existing point
// returns the existing index.
func (d *tetrahedralization) insert(p mgl64.Vec3) (int, error) {
	if v := d.find(p); v >= 0 {
		return v, nil
	}
	start := d.locate(p)
	if start < 0 {
		return -1, fmt.Errorf("decompose: point %v outside the tetrahedralization: %w", p, geom.ErrDegenerateInput)
	}

	inCavity := map[int]bool{start: true}
	cavity := []int{start}
	for i := 0; i < len(cavity); i++ {
		for _, n := range d.tets[cavity[i]].N {
			if n < 0 || inCavity[n] {
				continue
			}
			if d.inSphere(n, p) {
				inCavity[n] = true
				cavity = append(cavity, n)
			}
		}
	}

	// Grow the cavity until p sees every boundary face from inside, so the
	// cone from p fills it with positive cells.
	for {
		grow := -1
		for _, t := range cavity {
			for i, n := range d.tets[t].N {
				if n >= 0 && inCavity[n] {
					continue
				}
				if d.orientFace(d.face(t, i), p) > -d.volumeEps {
					if n < 0 {
						return -1, fmt.Errorf("decompose: point %v on the outer boundary: %w", p, geom.ErrDegenerateInput)
					}
					grow = n
					break
				}
			}
			if grow >= 0 {
				break
			}
		}
		if grow < 0 {
			break
		}
		inCavity[grow] = true
		cavity = append(cavity, grow)
	}

	idx := len(d.points)
	d.points = append(d.points, p)

	pending := make(map[edgeKey]faceRef)
	for _, t := range cavity {
		for i, n := range d.tets[t].N {
			if n >= 0 && inCavity[n] {
				continue
			}
			f := d.face(t, i)
			nt := len(d.tets)
			d.tets = append(d.tets, Tetrahedron{
				V:     [4]int{f[0], f[2], f[1], idx},
				N:     [4]int{-1, -1, -1, n},
				alive: true,
			})
			if n >= 0 {
				for j, back := range d.tets[n].N {
					if back == t {
						d.tets[n].N[j] = nt
					}
				}
			}
			// Faces 0, 1 and 2 hold the edges (f2,f1), (f0,f1) and (f0,f2).
			for j, e := range [3]edgeKey{makeEdgeKey(f[2], f[1]), makeEdgeKey(f[0], f[1]), makeEdgeKey(f[0], f[2])} {
				if other, ok := pending[e]; ok {
					d.tets[nt].N[j] = other.tet
					d.tets[other.tet].N[other.face] = nt
					delete(pending, e)
				} else {
					pending[e] = faceRef{tet: nt, face: j}
				}
			}
		}
	}
	for _, t := range cavity {
		d.tets[t].alive = false
	}
	if len(pending) != 0 {
		return -1, fmt.Errorf("decompose: cavity of %v is not closed: %w", p, geom.ErrNonManifoldTopology)
	}
	return idx, nil
}

func (d *tetrahedralization) edges() map[edgeKey]struct{} {
	edges := make(map[edgeKey]struct{})
	for _, t := range d.tets {
		if !t.alive {
			continue
		}
		for i := range 4 {
			for j := i + 1; j < 4; j++ {
				edges[makeEdgeKey(t.V[i], t.V[j])] = struct{}{}
			}
		}
	}
	return edges
}

func (d *tetrahedralization) faces() map[faceKey][]faceRef {
	faces := make(map[faceKey][]faceRef)
	for t := range d.tets {
		if !d.tets[t].alive {
			continue
		}
		for i := range 4 {
			f := d.face(t, i)
			k := makeFaceKey(f[0], f[1], f[2])
			faces[k] = append(faces[k], faceRef{tet: t, face: i})
		}
	}
	return faces
}

func (d *tetrahedralization) volume(t int) float64 {
	v := d.tets[t].V
	return geom.TetraVolume(d.points[v[0]], d.points[v[1]], d.points[v[2]], d.points[v[3]])
}

// live yields the indices of live cells.
func (d *tetrahedralization) live() []int {
	var out []int
	for t := range d.tets {
		if d.tets[t].alive {
			out = append(out, t)
		}
	}
	return out
}
