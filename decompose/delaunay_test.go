package decompose

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomTetrahedralization(t *testing.T, n int, seed uint64) *tetrahedralization {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed*7+1))
	d := newTetrahedralization(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	for range n {
		p := mgl64.Vec3{rng.Float64(), rng.Float64(), rng.Float64()}
		_, err := d.insert(p)
		require.NoError(t, err)
	}
	return d
}

func TestInsert_Delaunay(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		d := randomTetrahedralization(t, 40, seed)

		for _, c := range d.live() {
			tet := d.tets[c]
			assert.Positive(t, d.volume(c), "cell %d", c)

			for i, n := range tet.N {
				if n < 0 {
					continue
				}
				require.True(t, d.tets[n].alive, "cell %d points at a dead neighbour", c)
				assert.Contains(t, d.tets[n].N, c)
				f := d.face(c, i)
				for _, v := range f {
					assert.Contains(t, d.tets[n].V, v)
				}
			}

			for p := superVertices; p < len(d.points); p++ {
				if p == tet.V[0] || p == tet.V[1] || p == tet.V[2] || p == tet.V[3] {
					continue
				}
				lifted := geom.LiftedOrient(d.points[tet.V[0]], d.points[tet.V[1]], d.points[tet.V[2]], d.points[tet.V[3]], d.points[p])
				assert.LessOrEqual(t, lifted, 1e-9, "point %d inside the circumsphere of cell %d", p, c)
			}
		}
	}
}

func TestInsert_FillsSuperCell(t *testing.T) {
	d := randomTetrahedralization(t, 25, 11)

	total := 0.0
	for _, c := range d.live() {
		total += d.volume(c)
	}
	s := d.points[:superVertices]
	assert.InDelta(t, math.Abs(geom.TetraVolume(s[0], s[1], s[2], s[3])), total, 1e-6*total)
}

func TestInsert_Duplicate(t *testing.T) {
	d := newTetrahedralization(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	a, err := d.insert(mgl64.Vec3{0.5, 0.5, 0.5})
	require.NoError(t, err)
	b, err := d.insert(mgl64.Vec3{0.5, 0.5, 0.5})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, d.points, superVertices+1)
	assert.Len(t, d.live(), 4)
}

func TestInsert_Outside(t *testing.T) {
	d := newTetrahedralization(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	_, err := d.insert(mgl64.Vec3{1e6, 0, 0})
	assert.ErrorIs(t, err, geom.ErrDegenerateInput)
}

func TestSurface_Split(t *testing.T) {
	s := newSurface()
	s.add([3]int{0, 1, 2}, 0)
	s.add([3]int{1, 0, 3}, 1)
	for i, e := range s.edges() {
		s.edgeRoot[e] = i
	}
	root := s.edgeRoot[makeEdgeKey(0, 1)]

	s.splitEdge(0, 1, 4)
	assert.Len(t, s.triangles, 4)
	assert.NotContains(t, s.edges(), makeEdgeKey(0, 1))
	assert.Equal(t, root, s.edgeRoot[makeEdgeKey(0, 4)])
	assert.Equal(t, root, s.edgeRoot[makeEdgeKey(4, 1)])
	assert.Equal(t, root, s.edgeRoot[makeEdgeKey(4, 2)])

	// Every directed edge still appears once.
	directed := make(map[[2]int]int)
	for _, tri := range s.triangles {
		for i := range 3 {
			directed[[2]int{tri.v[i], tri.v[(i+1)%3]}]++
		}
	}
	for e, n := range directed {
		assert.Equal(t, 1, n, "edge %v", e)
	}

	s.splitFace(0, 5)
	assert.Len(t, s.triangles, 6)
	assert.Equal(t, -1-s.triangles[0].root, s.edgeRoot[makeEdgeKey(5, s.triangles[0].v[0])])
}
