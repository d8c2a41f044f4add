package contact

import (
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMix(t *testing.T) {
	tests := []struct {
		name string
		a, b actor.Material
		want Material
	}{
		{
			name: "both zero",
			want: Material{},
		},
		{
			name: "averaged restitution",
			a:    actor.Material{Restitution: 0.3},
			b:    actor.Material{Restitution: 0.7},
			want: Material{Restitution: 0.5},
		},
		{
			name: "geometric mean friction",
			a:    actor.Material{StaticFriction: 0.5, DynamicFriction: 0.2},
			b:    actor.Material{StaticFriction: 0.5, DynamicFriction: 0.8},
			want: Material{StaticFriction: 0.5, DynamicFriction: 0.4},
		},
		{
			name: "frictionless side",
			a:    actor.Material{StaticFriction: 0, DynamicFriction: 0},
			b:    actor.DefaultMaterial,
			want: Material{Restitution: actor.DefaultMaterial.Restitution / 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mix(tt.a, tt.b)
			assert.InDelta(t, tt.want.Restitution, got.Restitution, 1e-12)
			assert.InDelta(t, tt.want.StaticFriction, got.StaticFriction, 1e-12)
			assert.InDelta(t, tt.want.DynamicFriction, got.DynamicFriction, 1e-12)
		})
	}
}

func TestPoint_AnchorAndDrift(t *testing.T) {
	poseA := actor.NewTransform()
	poseB := actor.NewPose(mgl64.Vec3{0, 0.9, 0}, mgl64.QuatIdent())
	p := Point{Position: mgl64.Vec3{0.2, 0.5, 0}, Normal: mgl64.Vec3{0, 1, 0}, Depth: 0.1}
	p.Anchor(poseA, poseB)

	assert.InDelta(t, 0, p.Drift(poseA, poseB), 1e-12)

	// Moving both bodies together keeps the contact.
	shift := mgl64.Vec3{3, -1, 2}
	movedA := actor.NewPose(poseA.Position.Add(shift), mgl64.QuatIdent())
	movedB := actor.NewPose(poseB.Position.Add(shift), mgl64.QuatIdent())
	assert.InDelta(t, 0, p.Drift(movedA, movedB), 1e-12)

	// Separating B changes the depth.
	apart := actor.NewPose(mgl64.Vec3{0, 1.2, 0}, mgl64.QuatIdent())
	assert.InDelta(t, 0.3, p.Drift(poseA, apart), 1e-12)

	// Sliding B is tangential drift.
	slid := actor.NewPose(mgl64.Vec3{0.5, 0.9, 0}, mgl64.QuatIdent())
	assert.InDelta(t, 0.5, p.Drift(poseA, slid), 1e-12)
}

func TestManifold_Flip(t *testing.T) {
	m := Manifold{
		BodyA:  1,
		BodyB:  2,
		Normal: mgl64.Vec3{1, 0, 0},
		Points: []Point{{Position: mgl64.Vec3{1, 0, 0}, Normal: mgl64.Vec3{1, 0, 0}, Depth: 0.25, ChildA: 3, ChildB: NoChild}},
	}
	m.Flip()

	assert.Equal(t, uint64(2), m.BodyA)
	assert.Equal(t, uint64(1), m.BodyB)
	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, m.Normal)
	require.Len(t, m.Points, 1)
	assert.Equal(t, mgl64.Vec3{0.75, 0, 0}, m.Points[0].Position)
	assert.Equal(t, NoChild, m.Points[0].ChildA)
	assert.Equal(t, 3, m.Points[0].ChildB)

	deepest, ok := m.Deepest()
	assert.True(t, ok)
	assert.Equal(t, 0.25, deepest.Depth)
}

func TestCheckRaw(t *testing.T) {
	assert.NoError(t, CheckRaw(make([]Point, MaxRawContacts), 0))
	err := CheckRaw(make([]Point, MaxRawContacts+1), 0)
	assert.ErrorIs(t, err, geom.ErrCapacityExceeded)
	assert.ErrorIs(t, CheckRaw(make([]Point, 5), 4), geom.ErrCapacityExceeded)
}

func TestPrune(t *testing.T) {
	t.Run("small sets are untouched", func(t *testing.T) {
		points := []Point{{Position: mgl64.Vec3{0, 0, 0}}, {Position: mgl64.Vec3{1, 0, 0}}}
		got, window := Prune(points, 16)
		assert.Len(t, got, 2)
		assert.Zero(t, window)
	})

	t.Run("clusters collapse", func(t *testing.T) {
		// 8 groups of 8 tightly packed points.
		var points []Point
		for g := range 8 {
			center := mgl64.Vec3{float64(g) * 2, float64(g%2) * 0.5, 0}
			for i := range 8 {
				offset := mgl64.Vec3{math.Cos(float64(i)) * 0.01, math.Sin(float64(i)) * 0.01, 0}
				points = append(points, Point{Position: center.Add(offset), Depth: float64(i) * 0.01})
			}
		}
		require.Len(t, points, MaxRawContacts)

		for _, maxContacts := range []int{16, 8, 4, 1} {
			got, window := Prune(points, maxContacts)
			assert.LessOrEqual(t, len(got), maxContacts)
			assert.NotEmpty(t, got)
			for i := range got {
				for j := i + 1; j < len(got); j++ {
					assert.GreaterOrEqual(t, got[i].Position.Sub(got[j].Position).Len(), window)
				}
			}
		}

		got, _ := Prune(points, 8)
		require.Len(t, got, 8)
		for _, p := range got {
			assert.InDelta(t, 0.07, p.Depth, 1e-12)
		}
	})

	t.Run("coincident points", func(t *testing.T) {
		points := make([]Point, 20)
		got, _ := Prune(points, 4)
		assert.Len(t, got, 1)
	})

	t.Run("input is not reordered", func(t *testing.T) {
		points := make([]Point, 20)
		for i := range points {
			points[i].Position = mgl64.Vec3{float64(20 - i), 0, 0}
		}
		Prune(points, 4)
		assert.Equal(t, 20.0, points[0].Position.X())
	})
}
