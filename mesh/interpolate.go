package mesh

import (
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// blend returns the weighted sum of attributes. The normal is renormalised
// and the material is taken from the heaviest corner.
func blend(attrs []Attribute, weights []float64) Attribute {
	var out Attribute
	heaviest := 0
	for i, a := range attrs {
		w := weights[i]
		out.Position = out.Position.Add(a.Position.Mul(w))
		out.Normal = out.Normal.Add(a.Normal.Mul(w))
		out.UV0 = out.UV0.Add(a.UV0.Mul(w))
		out.UV1 = out.UV1.Add(a.UV1.Mul(w))
		if w > weights[heaviest] {
			heaviest = i
		}
	}
	if l := out.Normal.Len(); l > geom.Epsilon {
		out.Normal = out.Normal.Mul(1 / l)
	}
	out.Material = attrs[heaviest].Material
	return out
}

func lerpAttribute(a, b Attribute, t float64) Attribute {
	out := blend([]Attribute{a, b}, []float64{1 - t, t})
	out.Material = a.Material
	return out
}

// interpolatePolygon evaluates the attributes of a polygon at p, fanning it
// into triangles around its first corner.
func interpolatePolygon(corners []Attribute, p mgl64.Vec3) (Attribute, bool) {
	best := Attribute{}
	bestSlack := math.Inf(-1)
	found := false
	for i := 1; i+1 < len(corners); i++ {
		a, b, c := corners[0], corners[i], corners[i+1]
		pl, ok := geom.PlaneFromPoints(a.Position, b.Position, c.Position)
		if !ok {
			continue
		}
		u, v, w, ok := geom.Barycentric(a.Position, b.Position, c.Position, pl.Project(p))
		if !ok {
			continue
		}
		slack := min(u, v, w)
		if slack <= bestSlack {
			continue
		}
		bestSlack = slack
		found = true
		if slack < 0 {
			// Outside this triangle: clamp onto it.
			u, v, w = max(u, 0), max(v, 0), max(w, 0)
			s := u + v + w
			u, v, w = u/s, v/s, w/s
		}
		best = blend([]Attribute{a, b, c}, []float64{u, v, w})
		if slack >= 0 {
			break
		}
	}
	if found {
		best.Position = p
	}
	return best, found
}

// Interpolate returns the attributes of face f at the point p, expected to
// lie on the face. ok is false when the face has no area.
func (m *Mesh) Interpolate(f int, p mgl64.Vec3) (Attribute, bool) {
	return interpolatePolygon(m.FaceAttributes(f), p)
}
