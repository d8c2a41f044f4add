package mesh

import (
	"testing"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMassProperties(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  mgl64.Vec3
		volume  float64
		center  mgl64.Vec3
		inertia mgl64.Vec3
	}{
		{"unit box", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, 1, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{1.0 / 6, 1.0 / 6, 1.0 / 6}},
		{"slab", mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 1, 1}, 2, mgl64.Vec3{0, 0.5, 0.5}, mgl64.Vec3{1.0 / 3, 10.0 / 12, 10.0 / 12}},
		{"offset box", mgl64.Vec3{10, 20, 30}, mgl64.Vec3{11, 21, 31}, 1, mgl64.Vec3{10.5, 20.5, 30.5}, mgl64.Vec3{1.0 / 6, 1.0 / 6, 1.0 / 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := Box(tt.lo, tt.hi, DefaultOptions()).MassProperties()

			assert.InDelta(t, tt.volume, props.Volume, 1e-9)
			assert.True(t, geom.AlmostEqual(tt.center, props.CenterOfMass, 1e-9), "center %v", props.CenterOfMass)
			for i := range 3 {
				assert.InDelta(t, tt.inertia[i], props.Inertia.At(i, i), 1e-9)
				for j := range 3 {
					if i != j {
						assert.InDelta(t, 0, props.Inertia.At(i, j), 1e-9)
					}
				}
			}
		})
	}
}

func TestMassProperties_Winding(t *testing.T) {
	box := unitBox()
	inverted := fromSoupUnchecked(flipAll(box.soup()), box.Options)

	assert.InDelta(t, -1.0, inverted.Volume(), 1e-12)
}

func TestMassProperties_LPrism(t *testing.T) {
	m, err := Extrude(lFootprint(), 1, DefaultOptions())
	require.NoError(t, err)

	props := m.MassProperties()
	assert.InDelta(t, 3.0, props.Volume, 1e-12)
	// Two unit columns at x=0.5 and one at x=1.5, mirrored in y.
	assert.InDelta(t, 5.0/6.0, props.CenterOfMass.X(), 1e-12)
	assert.InDelta(t, 5.0/6.0, props.CenterOfMass.Y(), 1e-12)
	assert.InDelta(t, 0.5, props.CenterOfMass.Z(), 1e-12)
}
