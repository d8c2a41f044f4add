// Package geom holds the numeric building blocks shared by the shape
// construction packages: tolerances, planes, orientation predicates and the
// error taxonomy returned by hull, mesh and decompose.
//
// All predicates work in float64 on mgl64 vectors. Orientation follows the
// right-hand rule: Orient3D(a, b, c, d) is positive when d lies on the side
// the normal (b-a)×(c-a) points to, which is also six times the signed volume
// of the tetrahedron (a, b, c, d).
package geom
