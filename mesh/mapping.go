package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// The mapping generators write UV0 in place. They apply to the corners with
// the given material, or to every corner when material is negative.

func (m *Mesh) mapCorners(material int, fn func(a Attribute) mgl64.Vec2) {
	for i := range m.Attributes {
		a := &m.Attributes[i]
		if material >= 0 && a.Material != material {
			continue
		}
		a.UV0 = fn(*a)
	}
}

// MapSpherical projects corners onto a sphere around the bounds centre.
func (m *Mesh) MapSpherical(material int) {
	lo, hi := m.Bounds()
	center := lo.Add(hi).Mul(0.5)
	m.mapCorners(material, func(a Attribute) mgl64.Vec2 {
		d := a.Position.Sub(center)
		l := d.Len()
		if l == 0 {
			return mgl64.Vec2{0.5, 0.5}
		}
		d = d.Mul(1 / l)
		u := math.Atan2(d.Z(), d.X())/(2*math.Pi) + 0.5
		v := math.Asin(max(-1, min(1, d.Y())))/math.Pi + 0.5
		return mgl64.Vec2{u, v}
	})
}

// MapCylindrical wraps corners around the Y axis through the bounds centre;
// V runs along the height.
func (m *Mesh) MapCylindrical(material int) {
	lo, hi := m.Bounds()
	center := lo.Add(hi).Mul(0.5)
	height := hi.Y() - lo.Y()
	m.mapCorners(material, func(a Attribute) mgl64.Vec2 {
		d := a.Position.Sub(center)
		u := math.Atan2(d.Z(), d.X())/(2*math.Pi) + 0.5
		v := 0.5
		if height > 0 {
			v = (a.Position.Y() - lo.Y()) / height
		}
		return mgl64.Vec2{u, v}
	})
}

// MapBox projects each corner on the bounds side its normal faces most.
func (m *Mesh) MapBox(material int) {
	lo, hi := m.Bounds()
	size := hi.Sub(lo)
	for i := range 3 {
		if size[i] == 0 {
			size[i] = 1
		}
	}
	m.mapCorners(material, func(a Attribute) mgl64.Vec2 {
		n := a.Normal
		axis := 0
		for i := 1; i < 3; i++ {
			if math.Abs(n[i]) > math.Abs(n[axis]) {
				axis = i
			}
		}
		u, v := (axis+1)%3, (axis+2)%3
		rel := a.Position.Sub(lo)
		return mgl64.Vec2{rel[u] / size[u], rel[v] / size[v]}
	})
}
