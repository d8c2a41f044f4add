package mesh

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Box returns a closed axis aligned box with one quad per side.
func Box(lo, hi mgl64.Vec3, opts Options) *Mesh {
	positions := []mgl64.Vec3{
		{lo.X(), lo.Y(), lo.Z()}, {hi.X(), lo.Y(), lo.Z()}, {hi.X(), hi.Y(), lo.Z()}, {lo.X(), hi.Y(), lo.Z()},
		{lo.X(), lo.Y(), hi.Z()}, {hi.X(), lo.Y(), hi.Z()}, {hi.X(), hi.Y(), hi.Z()}, {lo.X(), hi.Y(), hi.Z()},
	}
	faces := [][]int{
		{0, 3, 2, 1},
		{4, 5, 6, 7},
		{0, 1, 5, 4},
		{2, 3, 7, 6},
		{0, 4, 7, 3},
		{1, 2, 6, 5},
	}
	m, _ := FromPolygons(positions, faces, opts)
	m.MapBox(-1)
	return m
}

// Extrude builds a closed prism from a counter-clockwise footprint in the XY
// plane, spanning z in [0, height].
func Extrude(footprint []mgl64.Vec2, height float64, opts Options) (*Mesh, error) {
	n := len(footprint)
	positions := make([]mgl64.Vec3, 0, 2*n)
	for _, p := range footprint {
		positions = append(positions, mgl64.Vec3{p.X(), p.Y(), 0})
	}
	for _, p := range footprint {
		positions = append(positions, mgl64.Vec3{p.X(), p.Y(), height})
	}

	bottom := make([]int, n)
	top := make([]int, n)
	for i := range n {
		bottom[i] = n - 1 - i
		top[i] = n + i
	}
	faces := [][]int{bottom, top}
	for i := range n {
		j := (i + 1) % n
		faces = append(faces, []int{i, j, n + j, n + i})
	}
	return FromPolygons(positions, faces, opts)
}
