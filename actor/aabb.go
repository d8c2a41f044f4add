package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// BoundPoints returns the box around points transformed by t.
func BoundPoints(points []mgl64.Vec3, t Transform) AABB {
	box := EmptyAABB()
	for _, p := range points {
		box = box.Extend(t.Apply(p))
	}
	return box
}

// Transformed returns the box around the eight corners of a moved by t.
func (a AABB) Transformed(t Transform) AABB {
	corners := make([]mgl64.Vec3, 0, 8)
	for i := range 8 {
		c := a.Min
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				c[axis] = a.Max[axis]
			}
		}
		corners = append(corners, c)
	}
	return BoundPoints(corners, t)
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Contains reports whether other lies entirely inside a.
func (a AABB) Contains(other AABB) bool {
	return a.ContainsPoint(other.Min) && a.ContainsPoint(other.Max)
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Extend grows the box to include p.
func (a AABB) Extend(p mgl64.Vec3) AABB {
	for i := range 3 {
		a.Min[i] = math.Min(a.Min[i], p[i])
		a.Max[i] = math.Max(a.Max[i], p[i])
	}
	return a
}

// Union returns the box around a and other.
func (a AABB) Union(other AABB) AABB {
	return a.Extend(other.Min).Extend(other.Max)
}

// Expand grows every side by margin.
func (a AABB) Expand(margin float64) AABB {
	r := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(r), Max: a.Max.Add(r)}
}

// Sweep grows the box along a displacement.
func (a AABB) Sweep(d mgl64.Vec3) AABB {
	return a.Union(AABB{Min: a.Min.Add(d), Max: a.Max.Add(d)})
}

func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Extents() mgl64.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// SurfaceArea is the insertion cost metric of the tree.
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2 * (d.X()*d.Y() + d.Y()*d.Z() + d.Z()*d.X())
}

// RayCast returns the entry parameter of origin + t*direction, t in
// [0, maxT], using the slab test.
func (a AABB) RayCast(origin, direction mgl64.Vec3, maxT float64) (float64, bool) {
	tMin, tMax := 0.0, maxT
	for i := range 3 {
		if math.Abs(direction[i]) < 1e-12 {
			if origin[i] < a.Min[i] || origin[i] > a.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / direction[i]
		t1 := (a.Min[i] - origin[i]) * inv
		t2 := (a.Max[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}
