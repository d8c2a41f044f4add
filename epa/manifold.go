package epa

import (
	"fmt"
	"math"

	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxClipVertices bounds the polygon produced while clipping features.
const MaxClipVertices = 64

const clipTolerance = 1e-6

// Manifold builds the contact points of an overlapping pair from its
// penetration, using Sutherland-Hodgman clipping of the two contact
// features.
//
// The feature with fewer vertices is the incident one and is clipped against
// the side planes of the reference feature. Incident points in front of the
// reference face are dropped; the others carry their own depth. Positions
// lie on the surface of A.
func Manifold(a, b gjk.Proxy, pen Penetration) ([]contact.Point, error) {
	normal := pen.Normal
	featureA := worldFeature(a, normal)
	featureB := worldFeature(b, normal.Mul(-1))

	onA := func(p mgl64.Vec3, depth float64, incidentIsA bool) contact.Point {
		pos := p
		if !incidentIsA {
			pos = p.Add(normal.Mul(depth))
		}
		return contact.Point{Position: pos, Normal: normal, Depth: depth, ChildA: contact.NoChild, ChildB: contact.NoChild}
	}

	incident, reference := featureB, featureA
	incidentIsA := false
	if len(featureB) > len(featureA) {
		incident, reference = featureA, featureB
		incidentIsA = true
	}

	switch {
	case len(incident) == 1:
		return []contact.Point{onA(incident[0], pen.Depth, incidentIsA)}, nil
	case len(incident) == 2 && len(reference) == 2:
		pa, _ := closestSegmentSegment(featureA[0], featureA[1], featureB[0], featureB[1])
		return []contact.Point{onA(pa, pen.Depth, true)}, nil
	}

	clipped, err := clipIncidentAgainstReference(incident, reference, normal)
	if err != nil {
		return nil, err
	}

	// Reference face plane, facing the incident shape.
	refNormal := normal
	if incidentIsA {
		refNormal = normal.Mul(-1)
	}
	if len(reference) >= 3 {
		if n := reference[1].Sub(reference[0]).Cross(reference[2].Sub(reference[0])); n.Len() > geom.AreaEpsilon {
			n = n.Normalize()
			if n.Dot(refNormal) < 0 {
				n = n.Mul(-1)
			}
			refNormal = n
		}
	}
	offset := reference[0].Dot(refNormal)

	points := make([]contact.Point, 0, len(clipped))
	for _, p := range clipped {
		separation := p.Dot(refNormal) - offset
		if separation > clipTolerance {
			continue
		}
		points = append(points, onA(p, math.Max(-separation, 0), incidentIsA))
	}

	if len(points) == 0 {
		deepest := b.Support(normal.Mul(-1))
		points = append(points, onA(deepest, pen.Depth, false))
	}
	return points, nil
}

func worldFeature(p gjk.Proxy, direction mgl64.Vec3) []mgl64.Vec3 {
	local := p.Shape.ContactFeature(p.Transform.InverseRotate(direction))
	world := make([]mgl64.Vec3, len(local))
	for i, v := range local {
		world[i] = p.Transform.Apply(v)
	}
	return world
}

// clipIncidentAgainstReference clips the incident polygon by the planes
// through each reference edge, perpendicular to the contact normal.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) ([]mgl64.Vec3, error) {
	if len(reference) < 3 {
		return incident, nil
	}

	center := computeCenter(reference)
	output := incident
	var err error
	for i := range reference {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]
		clipNormal := v2.Sub(v1).Cross(normal)
		if clipNormal.Len() < geom.Epsilon {
			continue
		}
		clipNormal = clipNormal.Normalize()
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output, err = clipPolygonAgainstPlane(output, v1, clipNormal)
		if err != nil {
			return nil, err
		}
	}
	return output, nil
}

// clipPolygonAgainstPlane keeps the part of polygon on the side of
// planeNormal.
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) ([]mgl64.Vec3, error) {
	if len(polygon) == 0 {
		return polygon, nil
	}

	output := make([]mgl64.Vec3, 0, len(polygon)+1)
	emit := func(p mgl64.Vec3) error {
		if len(output) == MaxClipVertices {
			return fmt.Errorf("epa: clipped feature exceeds %d vertices: %w", MaxClipVertices, geom.ErrCapacityExceeded)
		}
		output = append(output, p)
		return nil
	}

	for i, current := range polygon {
		next := polygon[(i+1)%len(polygon)]
		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -clipTolerance {
			if err := emit(current); err != nil {
				return nil, err
			}
			if nextDist < -clipTolerance {
				if err := emit(lineIntersectPlane(current, next, planePoint, planeNormal)); err != nil {
					return nil, err
				}
			}
		} else if nextDist >= -clipTolerance {
			if err := emit(lineIntersectPlane(current, next, planePoint, planeNormal)); err != nil {
				return nil, err
			}
		}
	}
	return output, nil
}

func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < 1e-10 {
		return p1
	}
	t := -p1.Sub(planePoint).Dot(planeNormal) / denom
	return p1.Add(dir.Mul(math.Max(0, math.Min(1, t))))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// closestSegmentSegment returns the closest points of segments p1q1 and
// p2q2 (Ericson 5.1.9).
func closestSegmentSegment(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= geom.Epsilon && e <= geom.Epsilon:
		return p1, p2
	case a <= geom.Epsilon:
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e <= geom.Epsilon {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
