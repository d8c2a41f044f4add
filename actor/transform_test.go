package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v", i, got)
	}
}

func TestTransform(t *testing.T) {
	pose := NewPose(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	p := mgl64.Vec3{1, 0, 0}

	world := pose.Apply(p)
	assertVec(t, mgl64.Vec3{1, 3, 3}, world, 1e-12)
	assertVec(t, p, pose.ApplyInverse(world), 1e-12)
	assertVec(t, mgl64.Vec3{0, 1, 0}, pose.Rotate(p), 1e-12)
	assertVec(t, p, pose.InverseRotate(mgl64.Vec3{0, 1, 0}), 1e-12)

	m := pose.Mat4().Mul4x1(p.Vec4(1)).Vec3()
	assertVec(t, world, m, 1e-12)

	identity := pose.Mul(pose.Inverse())
	assertVec(t, mgl64.Vec3{}, identity.Position, 1e-12)
	assertVec(t, p, identity.Rotate(p), 1e-12)

	child := NewPose(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())
	assertVec(t, mgl64.Vec3{1, 3, 3}, pose.Mul(child).Position, 1e-12)
}

func TestTransformDelta(t *testing.T) {
	a := NewTransform()
	b := NewPose(mgl64.Vec3{3, 4, 0}, mgl64.QuatRotate(0.2, mgl64.Vec3{1, 0, 0}))

	linear, angular := a.Delta(b)
	assert.InDelta(t, 5.0, linear, 1e-12)
	assert.InDelta(t, 0.2, angular, 1e-9)

	linear, angular = a.Delta(a)
	assert.Zero(t, linear)
	assert.InDelta(t, 0.0, angular, 1e-9)

	mid := a.Interpolate(b, 0.5)
	assertVec(t, mgl64.Vec3{1.5, 2, 0}, mid.Position, 1e-12)
	_, angular = a.Delta(mid)
	assert.InDelta(t, 0.1, angular, 1e-9)
}
