package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type cell [3]int64

// Weld merges points closer than tolerance. It returns the representative
// points in first-seen order and, for every input point, the index of its
// representative.
func Weld(points []mgl64.Vec3, tolerance float64) ([]mgl64.Vec3, []int) {
	remap := make([]int, len(points))
	unique := make([]mgl64.Vec3, 0, len(points))
	if tolerance <= 0 {
		tolerance = Epsilon
	}

	grid := make(map[cell][]int, len(points))
	key := func(p mgl64.Vec3) cell {
		return cell{
			int64(math.Floor(p.X() / tolerance)),
			int64(math.Floor(p.Y() / tolerance)),
			int64(math.Floor(p.Z() / tolerance)),
		}
	}

	for i, p := range points {
		k := key(p)
		found := -1
	search:
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, u := range grid[cell{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if unique[u].Sub(p).Len() <= tolerance {
							found = u
							break search
						}
					}
				}
			}
		}
		if found < 0 {
			found = len(unique)
			unique = append(unique, p)
			grid[k] = append(grid[k], found)
		}
		remap[i] = found
	}
	return unique, remap
}
