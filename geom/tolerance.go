package geom

const (
	// Epsilon is the general purpose length tolerance.
	Epsilon = 1e-9

	// AreaEpsilon rejects triangles whose area falls below it.
	AreaEpsilon = 1e-9

	// VolumeEpsilon rejects tetrahedra whose volume falls below it.
	VolumeEpsilon = 1e-12

	// PlaneTolerance is the default on-plane classification distance.
	PlaneTolerance = 1e-6

	// EdgeAngleEpsilon is the angle (radians) under which two adjacent faces
	// are considered coplanar.
	EdgeAngleEpsilon = 1e-3

	// ConvexityTolerance is the distance a hull vertex may sit above a face
	// plane before the hull is rejected as non-convex.
	ConvexityTolerance = 1e-3
)
