package geom

import "errors"

var (
	// ErrDegenerateInput reports fewer than 4 independent points, a zero-area
	// face or a zero-volume tetrahedron.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrNonManifoldTopology reports an edge recovery or face insertion that
	// would break the half-edge invariants.
	ErrNonManifoldTopology = errors.New("non-manifold topology")

	// ErrCapacityExceeded reports an overflow of a bounded scratch pool or
	// iteration cap.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrUnrecoverableFeature reports an original edge or face that could not
	// be recovered during decomposition.
	ErrUnrecoverableFeature = errors.New("unrecoverable feature")
)
