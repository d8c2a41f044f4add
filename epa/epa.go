// Package epa implements the Expanding Polytope Algorithm for computing
// penetration depth, and builds the contact points of an overlapping pair.
//
// EPA runs after GJK reports an overlap. It expands the GJK tetrahedron
// toward the boundary of the Minkowski difference until the face closest to
// the origin stops moving; that face gives the contact normal and depth.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"fmt"
	"math"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxIterations limits polytope expansion.
	MaxIterations = 32

	// ConvergenceTolerance is the smallest improvement of the closest face
	// distance that keeps the expansion going.
	ConvergenceTolerance = 0.001

	// MinFaceDistance clamps face distances of triangles touching the origin.
	MinFaceDistance = 0.0001

	// MaxFaces bounds the polytope scratch.
	MaxFaces = 256

	// NormalSnapThreshold zeroes tiny normal components.
	NormalSnapThreshold = 1e-8

	// DegeneratePenetrationEstimate is the depth reported when GJK could not
	// build a tetrahedron.
	DegeneratePenetrationEstimate = 0.01

	polytopeInitialCapacity = 4
)

// Penetration is the minimum translation separating two shapes: moving B by
// Normal*Depth ends the overlap. Normal points from A toward B.
type Penetration struct {
	Normal     mgl64.Vec3
	Depth      float64
	Iterations int
}

// Penetrate computes the penetration of two overlapping shapes from the
// simplex Intersect left behind.
func Penetrate(a, b gjk.Proxy, simplex *gjk.Simplex) (Penetration, error) {
	if simplex.Count < 4 {
		return degenerate(a, b, simplex), nil
	}

	polytope := polytopePool.Get().(*Polytope)
	defer polytopePool.Put(polytope)
	polytope.Reset()

	if err := polytope.Init(simplex); err != nil {
		return Penetration{}, err
	}

	for i := range MaxIterations {
		closest := polytope.Closest()
		if closest < 0 {
			break
		}
		face := polytope.faces[closest]

		if face.Distance < MinFaceDistance {
			polytope.remove(closest)
			continue
		}

		support := gjk.MinkowskiSupport(a, b, face.Normal)
		if support.Dot(face.Normal)-face.Distance < ConvergenceTolerance {
			return Penetration{Normal: face.Normal, Depth: face.Distance, Iterations: i + 1}, nil
		}

		if err := polytope.Expand(support, closest); err != nil {
			// The face found so far is still a valid upper bound.
			return Penetration{Normal: face.Normal, Depth: face.Distance, Iterations: i + 1}, nil
		}
	}

	return Penetration{}, fmt.Errorf("epa: no convergence after %d iterations: %w", MaxIterations, geom.ErrCapacityExceeded)
}

// degenerate estimates the penetration of touching shapes for which GJK
// ended on a point, segment or triangle.
func degenerate(a, b gjk.Proxy, simplex *gjk.Simplex) Penetration {
	if simplex.Count >= 2 {
		p, q := simplex.Points[0], simplex.Points[1]
		closest := p
		if q.Len() < p.Len() {
			closest = q
		}
		if depth := closest.Len(); depth > NormalSnapThreshold {
			return Penetration{Normal: closest.Mul(1 / depth), Depth: depth}
		}
	}

	normal := b.Transform.Position.Sub(a.Transform.Position)
	if length := normal.Len(); length < NormalSnapThreshold {
		normal = mgl64.Vec3{0, 1, 0}
	} else {
		normal = normal.Mul(1.0 / length)
	}
	return Penetration{Normal: normal, Depth: DegeneratePenetrationEstimate}
}

// snapNormalToAxis zeroes components below NormalSnapThreshold and
// renormalizes, so axis-aligned contacts stay exactly axis-aligned.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	for i := range 3 {
		if math.Abs(normal[i]) < NormalSnapThreshold {
			normal[i] = 0
		}
	}

	length := normal.Len()
	if length <= 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}
	return normal.Mul(1.0 / length)
}
