package quill

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeCorners(lo, hi float64) []mgl64.Vec3 {
	var out []mgl64.Vec3
	for _, x := range []float64{lo, hi} {
		for _, y := range []float64{lo, hi} {
			for _, z := range []float64{lo, hi} {
				out = append(out, mgl64.Vec3{x, y, z})
			}
		}
	}
	return out
}

func assertVec(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	assert.InDelta(t, 0, want.Sub(got).Len(), delta, "want %v got %v", want, got)
}

func TestBuildConvexHull(t *testing.T) {
	points := append(cubeCorners(-0.5, 0.5), mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.1, -0.2, 0.3})
	shape, err := BuildConvexHull(points, 0)
	require.NoError(t, err)

	v, e, f := shape.Hull.Counts()
	assert.Equal(t, 8, v)
	assert.Equal(t, 12, e)
	assert.Equal(t, 6, f)
	assert.Equal(t, 2, v-e+f)
	assert.InDelta(t, 1, shape.Volume(), 1e-9)
	for _, p := range points {
		assert.True(t, shape.Hull.Contains(p, 1e-9))
	}
}

func TestBuildConvexHull_Errors(t *testing.T) {
	tests := []struct {
		name   string
		points []mgl64.Vec3
	}{
		{"empty", nil},
		{"coplanar", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}},
		{"coincident", []mgl64.Vec3{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildConvexHull(tt.points, 1e-6)
			assert.True(t, errors.Is(err, geom.ErrDegenerateInput), "got %v", err)
		})
	}
}

func TestBuildCompoundFromMesh(t *testing.T) {
	prism, err := mesh.Extrude([]mgl64.Vec2{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}, 1, mesh.DefaultOptions())
	require.NoError(t, err)

	compound, err := BuildCompoundFromMesh(prism, 0)
	require.NoError(t, err)
	assert.Greater(t, len(compound.Children), 1)
	assert.InDelta(t, 3, compound.Volume(), 1e-6)

	cube := mesh.Box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, mesh.DefaultOptions())
	single, err := BuildCompoundFromMesh(cube, 1)
	require.NoError(t, err)
	require.Len(t, single.Children, 1)
	assert.InDelta(t, 1, single.Volume(), 1e-9)
}

func TestCollide(t *testing.T) {
	hullShape, err := BuildConvexHull(cubeCorners(-0.5, 0.5), 0)
	require.NoError(t, err)

	tests := []struct {
		name        string
		a, b        actor.Shape
		poseB       actor.Transform
		maxContacts int
		count       int
		depth       float64
		normal      mgl64.Vec3
	}{
		{"offset cubes", cube(0.5), cube(0.5), at(0.5, 0, 0), 0, 4, 0.5, mgl64.Vec3{1, 0, 0}},
		{"single contact", cube(0.5), cube(0.5), at(0.5, 0, 0), 1, 1, 0.5, mgl64.Vec3{1, 0, 0}},
		{"hull on box", hullShape, cube(0.5), at(0, -0.8, 0), 0, 4, 0.2, mgl64.Vec3{0, -1, 0}},
		{"sphere on box", cube(0.5), &actor.Sphere{Radius: 0.5}, at(0, 0.9, 0), 0, 1, 0.1, mgl64.Vec3{0, 1, 0}},
		{"separated", cube(0.5), &actor.Sphere{Radius: 0.5}, at(0, 2, 0), 0, 0, 0, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := Collide(tt.a, at(0, 0, 0), tt.b, tt.poseB, tt.maxContacts)
			require.Len(t, points, tt.count)
			for _, p := range points {
				assert.InDelta(t, tt.depth, p.Depth, 1e-3)
				assert.InDelta(t, 1, p.Normal.Dot(tt.normal), 1e-3)
				assert.InDelta(t, 0, p.Drift(at(0, 0, 0), tt.poseB), 1e-9)
			}
		})
	}
}

func TestCollide_SwappedKinds(t *testing.T) {
	compound, err := actor.NewCompound([]actor.Child{{Shape: cube(0.5), Local: at(0, 0, 0)}})
	require.NoError(t, err)

	forward := Collide(cube(0.5), at(0, 0, 0), compound, at(0, 0.9, 0), 0)
	backward := Collide(compound, at(0, 0.9, 0), cube(0.5), at(0, 0, 0), 0)
	require.NotEmpty(t, forward)
	require.Len(t, backward, len(forward))
	for _, p := range backward {
		assert.InDelta(t, -1, p.Normal.Y(), 1e-6)
		assert.InDelta(t, 0.1, p.Depth, 1e-6)
		assert.Equal(t, 0, p.ChildA)
	}
}

func TestMotion_Advance(t *testing.T) {
	m := Motion{Linear: mgl64.Vec3{1, 2, 3}, Angular: mgl64.Vec3{0, 0, math.Pi / 2}}
	pose := m.Advance(at(1, 0, 0))

	assertVec(t, mgl64.Vec3{2, 2, 3}, pose.Position, 1e-12)
	assertVec(t, mgl64.Vec3{0, 1, 0}, pose.Rotate(mgl64.Vec3{1, 0, 0}), 1e-9)

	still := Motion{}.Advance(at(1, 0, 0))
	assert.Equal(t, at(1, 0, 0), still)
}

func TestCollideContinuous(t *testing.T) {
	bullet := &actor.Sphere{Radius: 0.1}

	t.Run("tunnel", func(t *testing.T) {
		toi, points := CollideContinuous(bullet, at(-5, 0, 0), Motion{Linear: mgl64.Vec3{10, 0, 0}}, cube(0.5), at(0, 0, 0), Motion{})
		assert.InDelta(t, 0.44, toi, 1e-3)
		require.Len(t, points, 1)
		assert.InDelta(t, 1, points[0].Normal.X(), 1e-6)
		assert.LessOrEqual(t, points[0].Depth, 0.0)
	})

	t.Run("head on", func(t *testing.T) {
		toi, points := CollideContinuous(bullet, at(-5, 0, 0), Motion{Linear: mgl64.Vec3{5, 0, 0}}, cube(0.5), at(5, 0, 0), Motion{Linear: mgl64.Vec3{-5, 0, 0}})
		assert.InDelta(t, 0.94, toi, 1e-3)
		assert.Len(t, points, 1)
	})

	t.Run("miss", func(t *testing.T) {
		toi, points := CollideContinuous(bullet, at(-5, 2, 0), Motion{Linear: mgl64.Vec3{10, 0, 0}}, cube(0.5), at(0, 0, 0), Motion{})
		assert.InDelta(t, 1, toi, 1e-12)
		assert.Empty(t, points)
	})

	t.Run("resting", func(t *testing.T) {
		toi, points := CollideContinuous(cube(0.5), at(0, 0.9, 0), Motion{}, cube(0.5), at(0, 0, 0), Motion{})
		assert.InDelta(t, 1, toi, 1e-12)
		require.NotEmpty(t, points)
		assert.InDelta(t, 0.1, points[0].Depth, 1e-6)
	})
}

func TestClosestPoint(t *testing.T) {
	compound, err := actor.NewCompound([]actor.Child{
		{Shape: cube(0.5), Local: at(-1, 0, 0)},
		{Shape: cube(0.5), Local: at(1, 0, 0)},
	})
	require.NoError(t, err)

	tests := []struct {
		name           string
		a              actor.Shape
		b              actor.Shape
		poseB          actor.Transform
		pA, pB, normal mgl64.Vec3
	}{
		{"spheres", &actor.Sphere{Radius: 1}, &actor.Sphere{Radius: 1}, at(5, 0, 0), mgl64.Vec3{1, 0, 0}, mgl64.Vec3{4, 0, 0}, mgl64.Vec3{1, 0, 0}},
		{"compound and sphere", compound, &actor.Sphere{Radius: 0.5}, at(4, 0, 0), mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{3.5, 0, 0}, mgl64.Vec3{1, 0, 0}},
		{"sphere and compound", &actor.Sphere{Radius: 0.5}, compound, at(-4, 0, 0), mgl64.Vec3{-0.5, 0, 0}, mgl64.Vec3{-2.5, 0, 0}, mgl64.Vec3{-1, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pA, pB, normal := ClosestPoint(tt.a, at(0, 0, 0), tt.b, tt.poseB)
			assertVec(t, tt.pA, pA, 1e-4)
			assertVec(t, tt.pB, pB, 1e-4)
			assertVec(t, tt.normal, normal, 1e-4)
		})
	}
}

func TestClosestPoint_Overlap(t *testing.T) {
	pA, pB, normal := ClosestPoint(cube(0.5), at(0, 0, 0), cube(0.5), at(0.5, 0, 0))
	assert.InDelta(t, 1, normal.X(), 1e-6)
	assert.InDelta(t, 0.5, pA.X()-pB.X(), 1e-6)
}
