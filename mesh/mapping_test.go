package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func inUnitSquare(uv mgl64.Vec2) bool {
	return uv.X() >= 0 && uv.X() <= 1 && uv.Y() >= 0 && uv.Y() <= 1
}

func TestMapBox(t *testing.T) {
	m := Box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 1, 1}, DefaultOptions())

	for f := range m.Topology.LiveFaces() {
		seen := map[mgl64.Vec2]bool{}
		for _, a := range m.FaceAttributes(f) {
			assert.True(t, inUnitSquare(a.UV0), "uv %v", a.UV0)
			seen[a.UV0] = true
		}
		// Each side covers the whole square.
		assert.Len(t, seen, 4)
	}
}

func TestMapSpherical(t *testing.T) {
	m := unitBox()
	m.MapSpherical(-1)

	for _, a := range m.Attributes {
		assert.True(t, inUnitSquare(a.UV0), "uv %v", a.UV0)
		if a.Position.Y() == 1 {
			assert.Greater(t, a.UV0.Y(), 0.5)
		} else {
			assert.Less(t, a.UV0.Y(), 0.5)
		}
	}
}

func TestMapCylindrical_Material(t *testing.T) {
	m := unitBox()
	before := append([]Attribute(nil), m.Attributes...)
	m.Attributes[0].Material = 3
	m.MapCylindrical(3)

	assert.InDelta(t, m.Attributes[0].Position.Y(), m.Attributes[0].UV0.Y(), 1e-12)
	for i := 1; i < len(m.Attributes); i++ {
		assert.Equal(t, before[i].UV0, m.Attributes[i].UV0)
	}
}
