package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func unitAABB() AABB {
	return AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
}

func TestAABBOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		other    AABB
		overlaps bool
	}{
		{"separated on X", AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{3, 1, 1}}, false},
		{"separated on -Y", AABB{Min: mgl64.Vec3{0, -2, 0}, Max: mgl64.Vec3{1, -1, 1}}, false},
		{"separated on Z", AABB{Min: mgl64.Vec3{0, 0, 2}, Max: mgl64.Vec3{1, 1, 3}}, false},
		{"identical", unitAABB(), true},
		{"partial on X", AABB{Min: mgl64.Vec3{0.5, 0, 0}, Max: mgl64.Vec3{3, 1, 1}}, true},
		{"touching face", AABB{Min: mgl64.Vec3{1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, true},
		{"contained", AABB{Min: mgl64.Vec3{0.25, 0.25, 0.25}, Max: mgl64.Vec3{0.75, 0.75, 0.75}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := unitAABB()
			assert.Equal(t, tt.overlaps, a.Overlaps(tt.other))
			assert.Equal(t, tt.overlaps, tt.other.Overlaps(a), "symmetry")
		})
	}
}

func TestAABBUnion(t *testing.T) {
	a := unitAABB()
	b := AABB{Min: mgl64.Vec3{-1, 0.5, 0}, Max: mgl64.Vec3{0.5, 2, 0.5}}

	u := a.Union(b)
	assert.Equal(t, mgl64.Vec3{-1, 0, 0}, u.Min)
	assert.Equal(t, mgl64.Vec3{1, 2, 1}, u.Max)
	assert.True(t, u.Contains(a))
	assert.True(t, u.Contains(b))
	assert.False(t, a.Contains(u))

	e := EmptyAABB().Extend(mgl64.Vec3{1, 2, 3})
	assert.Equal(t, e.Min, e.Max)
	assert.Equal(t, a, EmptyAABB().Union(a))
	assert.InDelta(t, 6.0, a.SurfaceArea(), 1e-12)
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, a.Center())
}

func TestAABBTransformed(t *testing.T) {
	moved := unitAABB().Transformed(NewPose(mgl64.Vec3{1, 0, 0}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})))
	assertVec(t, mgl64.Vec3{0, 0, 0}, moved.Min, 1e-12)
	assertVec(t, mgl64.Vec3{1, 1, 1}, moved.Max, 1e-12)
}

func TestAABBRayCast(t *testing.T) {
	a := unitAABB()
	tests := []struct {
		name      string
		origin    mgl64.Vec3
		direction mgl64.Vec3
		maxT      float64
		hit       bool
		t         float64
	}{
		{"hits -X face", mgl64.Vec3{-1, 0.5, 0.5}, mgl64.Vec3{1, 0, 0}, 10, true, 1},
		{"starts inside", mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 1, 0}, 10, true, 0},
		{"too short", mgl64.Vec3{-1, 0.5, 0.5}, mgl64.Vec3{1, 0, 0}, 0.5, false, 0},
		{"parallel outside", mgl64.Vec3{-1, 2, 0.5}, mgl64.Vec3{1, 0, 0}, 10, false, 0},
		{"diagonal", mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}, 10, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.RayCast(tt.origin, tt.direction, tt.maxT)
			assert.Equal(t, tt.hit, ok)
			if tt.hit {
				assert.InDelta(t, tt.t, got, 1e-12)
			}
		})
	}
}
