package mesh

import (
	"github.com/go-gl/mathgl/mgl64"
)

// MassProperties describes a solid of unit density.
type MassProperties struct {
	Volume       float64
	CenterOfMass mgl64.Vec3
	// Inertia is the inertia tensor about the centre of mass.
	Inertia mgl64.Mat3
}

// canonical is the second moment of the unit tetrahedron scaled by 120.
var canonical = mgl64.Mat3{
	2, 1, 1,
	1, 2, 1,
	1, 1, 2,
}

// MassProperties integrates volume, centre of mass and inertia over signed
// tetrahedra joining every triangle of the surface to an apex. Outward
// winding gives a positive volume; open meshes give meaningless results.
func (m *Mesh) MassProperties() MassProperties {
	var apex mgl64.Vec3
	points := m.Positions()
	if len(points) > 0 {
		apex = points[0]
	}

	var volume float64
	var moment mgl64.Vec3
	var covariance mgl64.Mat3
	for f := range m.Topology.LiveFaces() {
		poly := m.Topology.FacePositions(f)
		for i := 1; i+1 < len(poly); i++ {
			a := poly[0].Sub(apex)
			b := poly[i].Sub(apex)
			c := poly[i+1].Sub(apex)
			det := a.Dot(b.Cross(c))
			volume += det / 6
			moment = moment.Add(a.Add(b).Add(c).Mul(det / 24))

			basis := mgl64.Mat3FromCols(a, b, c)
			covariance = covariance.Add(basis.Mul3(canonical).Mul3(basis.Transpose()).Mul(det / 120))
		}
	}

	props := MassProperties{Volume: volume}
	if volume == 0 {
		return props
	}
	com := moment.Mul(1 / volume)
	// Move the second moment from the apex to the centre of mass.
	covariance = covariance.Sub(com.OuterProd3(com).Mul(volume))
	trace := covariance.Trace()
	props.Inertia = mgl64.Ident3().Mul(trace).Sub(covariance)
	props.CenterOfMass = com.Add(apex)
	return props
}

// Volume returns the signed enclosed volume.
func (m *Mesh) Volume() float64 {
	return m.MassProperties().Volume
}
