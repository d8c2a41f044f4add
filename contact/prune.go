package contact

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/akmonengine/quill/geom"
)

const (
	// MaxRawContacts bounds what a generator may emit for one pair.
	MaxRawContacts = 64
	// MaxContacts is the default size of a pruned manifold.
	MaxContacts = 16
)

// CheckRaw rejects raw contact sets larger than limit.
func CheckRaw(points []Point, limit int) error {
	if limit <= 0 {
		limit = MaxRawContacts
	}
	if len(points) > limit {
		return fmt.Errorf("contact: %d raw contacts, limit %d: %w", len(points), limit, geom.ErrCapacityExceeded)
	}
	return nil
}

// Prune reduces points to at most maxContacts. Points are sorted along the
// axis of largest extent and swept greedily: a point closer than the window
// to an already kept point is merged into it, the kept point taking the
// larger depth. The window doubles after every pass that leaves too many
// points, so the loop ends once it spans the whole set. It returns the kept
// points and the final window; no two kept points are closer than it.
func Prune(points []Point, maxContacts int) ([]Point, float64) {
	if maxContacts <= 0 {
		maxContacts = MaxContacts
	}
	if len(points) <= maxContacts {
		return points, 0
	}

	lo, hi := points[0].Position, points[0].Position
	for _, p := range points[1:] {
		for i := range 3 {
			lo[i] = math.Min(lo[i], p.Position[i])
			hi[i] = math.Max(hi[i], p.Position[i])
		}
	}
	extent := hi.Sub(lo)
	axis := 0
	for i := 1; i < 3; i++ {
		if extent[i] > extent[axis] {
			axis = i
		}
	}

	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		return cmp.Compare(a.Position[axis], b.Position[axis])
	})

	window := math.Max(extent.Len()/float64(len(points)), geom.PlaneTolerance)
	for {
		kept := cluster(sorted, axis, window)
		if len(kept) <= maxContacts {
			return kept, window
		}
		window *= 2
	}
}

func cluster(sorted []Point, axis int, window float64) []Point {
	kept := make([]Point, 0, len(sorted))
	windowSqr := window * window
	for _, p := range sorted {
		merged := false
		// Kept points are ordered on axis, scan back while still in reach.
		for i := len(kept) - 1; i >= 0; i-- {
			if p.Position[axis]-kept[i].Position[axis] >= window {
				break
			}
			if p.Position.Sub(kept[i].Position).LenSqr() < windowSqr {
				if p.Depth > kept[i].Depth {
					kept[i].Depth = p.Depth
				}
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, p)
		}
	}
	return kept
}
