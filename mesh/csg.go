package mesh

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const noNode = -1

type bspNode struct {
	plane       geom.Plane
	front, back int
}

// bspTree partitions space by the face planes of one operand. Space behind
// a node with no back child is solid, space in front of a node with no front
// child is empty.
type bspTree struct {
	nodes []bspNode
}

type buildItem struct {
	node  int
	polys []polygon
}

// buildBSP builds the tree with an explicit worklist.
func buildBSP(polys []polygon, scratch *clipScratch, maxNodes int) (*bspTree, error) {
	tree := &bspTree{}
	if len(polys) == 0 {
		return tree, nil
	}
	tree.nodes = append(tree.nodes, bspNode{front: noNode, back: noNode})
	work := []buildItem{{node: 0, polys: polys}}

	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]

		var pl geom.Plane
		found := false
		for _, p := range item.polys {
			if pl, found = geom.PlaneFromPolygon(p.positions()); found {
				break
			}
		}
		if !found {
			continue
		}
		tree.nodes[item.node].plane = pl

		var fronts, backs []polygon
		for _, p := range item.polys {
			s, err := scratch.split(p, pl)
			if err != nil {
				return nil, err
			}
			switch s.side {
			case geom.SideOn:
			case geom.SideFront:
				fronts = append(fronts, s.front)
			case geom.SideBack:
				backs = append(backs, s.back)
			default:
				fronts = append(fronts, s.front)
				backs = append(backs, s.back)
			}
		}

		for _, child := range []struct {
			polys []polygon
			front bool
		}{{fronts, true}, {backs, false}} {
			if len(child.polys) == 0 {
				continue
			}
			if len(tree.nodes) >= maxNodes {
				return nil, fmt.Errorf("mesh: partition tree exceeds %d nodes: %w", maxNodes, geom.ErrCapacityExceeded)
			}
			idx := len(tree.nodes)
			tree.nodes = append(tree.nodes, bspNode{front: noNode, back: noNode})
			if child.front {
				tree.nodes[item.node].front = idx
			} else {
				tree.nodes[item.node].back = idx
			}
			work = append(work, buildItem{node: idx, polys: child.polys})
		}
	}
	return tree, nil
}

// inverted returns the tree of the complement solid.
func (t *bspTree) inverted() *bspTree {
	out := &bspTree{nodes: make([]bspNode, len(t.nodes))}
	for i, n := range t.nodes {
		out.nodes[i] = bspNode{plane: n.plane.Flip(), front: n.back, back: n.front}
	}
	return out
}

type clipItem struct {
	poly polygon
	node int
}

// clip removes the parts of polys inside the solid of the tree. Coplanar
// fragments follow the side their normal faces.
func (t *bspTree) clip(polys []polygon, scratch *clipScratch) ([]polygon, error) {
	if len(t.nodes) == 0 {
		return polys, nil
	}
	work := make([]clipItem, 0, len(polys))
	for i := len(polys) - 1; i >= 0; i-- {
		work = append(work, clipItem{poly: polys[i], node: 0})
	}

	var out []polygon
	for len(work) > 0 {
		item := work[len(work)-1]
		work = work[:len(work)-1]
		node := t.nodes[item.node]

		s, err := scratch.split(item.poly, node.plane)
		if err != nil {
			return nil, err
		}
		var front, back []polygon
		switch s.side {
		case geom.SideOn:
			if pl, ok := geom.PlaneFromPolygon(item.poly.positions()); ok && pl.Normal.Dot(node.plane.Normal) > 0 {
				front = append(front, item.poly)
			} else {
				back = append(back, item.poly)
			}
		case geom.SideFront:
			front = append(front, s.front)
		case geom.SideBack:
			back = append(back, s.back)
		default:
			front = append(front, s.front)
			back = append(back, s.back)
		}

		for _, p := range back {
			if node.back != noNode {
				work = append(work, clipItem{poly: p, node: node.back})
			}
		}
		for _, p := range front {
			if node.front != noNode {
				work = append(work, clipItem{poly: p, node: node.front})
			} else {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// convexSoup returns the faces of m split into convex polygons.
func convexSoup(m *Mesh) []polygon {
	var out []polygon
	for _, p := range m.soup() {
		out = append(out, partitionPolygon(p)...)
	}
	return out
}

type boolean int

const (
	booleanUnion boolean = iota
	booleanIntersection
	booleanDifference
)

func (op boolean) String() string {
	switch op {
	case booleanUnion:
		return "union"
	case booleanIntersection:
		return "intersection"
	case booleanDifference:
		return "difference"
	}
	return "unknown"
}

// Union returns the solid covered by m or by other moved by transform.
func (m *Mesh) Union(other *Mesh, transform mgl64.Mat4) (*Mesh, error) {
	return m.combine(other, transform, booleanUnion)
}

// Intersection returns the solid covered by both m and other moved by
// transform.
func (m *Mesh) Intersection(other *Mesh, transform mgl64.Mat4) (*Mesh, error) {
	return m.combine(other, transform, booleanIntersection)
}

// Difference returns the solid covered by m and not by other moved by
// transform.
func (m *Mesh) Difference(other *Mesh, transform mgl64.Mat4) (*Mesh, error) {
	return m.combine(other, transform, booleanDifference)
}

func (m *Mesh) combine(other *Mesh, transform mgl64.Mat4, op boolean) (*Mesh, error) {
	opts := m.Options
	maxNodes := opts.MaxBSPNodes
	if maxNodes <= 0 {
		maxNodes = DefaultOptions().MaxBSPNodes
	}
	scratch := newClipScratch(opts)

	a := convexSoup(m)
	b := convexSoup(other.Transform(transform))

	treeA, err := buildBSP(a, scratch, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	treeB, err := buildBSP(b, scratch, maxNodes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result []polygon
	switch op {
	case booleanUnion:
		// Keep A outside B, then B outside A minus the faces it shares
		// with A.
		outsideA, err := treeB.clip(a, scratch)
		if err != nil {
			return nil, err
		}
		outsideB, err := treeA.clip(b, scratch)
		if err != nil {
			return nil, err
		}
		shared, err := treeA.clip(flipAll(outsideB), scratch)
		if err != nil {
			return nil, err
		}
		result = append(outsideA, flipAll(shared)...)

	case booleanIntersection:
		invA := treeA.inverted()
		invB := treeB.inverted()
		insideA, err := invA.clip(b, scratch)
		if err != nil {
			return nil, err
		}
		insideB, err := invB.clip(flipAll(a), scratch)
		if err != nil {
			return nil, err
		}
		rest, err := invA.clip(flipAll(insideA), scratch)
		if err != nil {
			return nil, err
		}
		result = append(flipAll(insideB), flipAll(rest)...)

	case booleanDifference:
		invA := treeA.inverted()
		outsideB, err := treeB.clip(flipAll(a), scratch)
		if err != nil {
			return nil, err
		}
		insideA, err := invA.clip(b, scratch)
		if err != nil {
			return nil, err
		}
		caps, err := invA.clip(flipAll(insideA), scratch)
		if err != nil {
			return nil, err
		}
		result = append(flipAll(outsideB), caps...)
	}

	return finishBoolean(result, opts, op)
}

// finishBoolean welds the fragments, repairs the cracks the clipping left and
// triangulates.
func finishBoolean(polys []polygon, opts Options, op boolean) (*Mesh, error) {
	welded, _, err := fromSoup(polys, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	repaired, _, err := welded.RepairTJunctions()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := repaired.Triangulate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
