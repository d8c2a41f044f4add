package mesh

import (
	"slices"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/halfedge"
)

// Weld merges vertices closer than tolerance and identical corner attributes.
// It returns the welded mesh and, for each vertex handle of m, its handle in
// the result (-1 for vertices no face references).
func (m *Mesh) Weld(tolerance float64) (*Mesh, []int, error) {
	opts := m.Options
	opts.WeldTolerance = tolerance

	var owners []int
	for f := range m.Topology.LiveFaces() {
		for e := range m.Topology.FaceLoop(f) {
			owners = append(owners, m.Topology.Edges[e].Vertex)
		}
	}
	result, corners, err := fromSoup(m.soup(), opts)

	remap := make([]int, len(m.Topology.Vertices))
	for i := range remap {
		remap[i] = -1
	}
	for k, v := range owners {
		remap[v] = corners[k]
	}
	return result, remap, err
}

type splice struct {
	t    float64
	attr Attribute
}

// RepairTJunctions splices vertices lying on open edges into those edges so
// both sides of a crack share corners. It returns the repaired mesh and the
// number of corners inserted.
func (m *Mesh) RepairTJunctions() (*Mesh, int, error) {
	current := m
	total := 0
	passes := max(m.Options.MaxRepairPasses, 1)
	for range passes {
		polys, inserted := current.spliceOpenEdges()
		if inserted == 0 {
			return current, total, nil
		}
		total += inserted
		next, _, err := fromSoup(polys, current.Options)
		if err != nil {
			return next, total, err
		}
		current = next
	}
	return current, total, nil
}

func (m *Mesh) spliceOpenEdges() ([]polygon, int) {
	topo := m.Topology
	tolerance := m.Options.WeldTolerance * 10

	candidates := make(map[int]struct{})
	for e := range topo.BoundaryEdges() {
		candidates[topo.Edges[e].Vertex] = struct{}{}
		candidates[topo.Dest(e)] = struct{}{}
	}
	if len(candidates) == 0 {
		return nil, 0
	}
	ordered := make([]int, 0, len(candidates))
	for v := range candidates {
		ordered = append(ordered, v)
	}
	slices.Sort(ordered)

	inserted := 0
	var polys []polygon
	for f := range topo.LiveFaces() {
		var corners []Attribute
		for e := range topo.FaceLoop(f) {
			attr := m.Corner(e)
			corners = append(corners, attr)
			if topo.Edges[topo.Edges[e].Twin].Face != halfedge.Boundary {
				continue
			}
			a := topo.Vertices[topo.Edges[e].Vertex].Position
			b := topo.Vertices[topo.Dest(e)].Position
			next := m.Corner(topo.Edges[e].Next)

			var splices []splice
			for _, v := range ordered {
				if v == topo.Edges[e].Vertex || v == topo.Dest(e) {
					continue
				}
				p := topo.Vertices[v].Position
				t, ok := geom.PointOnSegment(a, b, p, tolerance)
				if !ok {
					continue
				}
				s := lerpAttribute(attr, next, t)
				s.Position = p
				splices = append(splices, splice{t: t, attr: s})
			}
			slices.SortFunc(splices, func(x, y splice) int {
				switch {
				case x.t < y.t:
					return -1
				case x.t > y.t:
					return 1
				}
				return 0
			})
			for _, s := range splices {
				corners = append(corners, s.attr)
			}
			inserted += len(splices)
		}
		polys = append(polys, polygon{corners: corners, tag: topo.Faces[f].Tag})
	}
	return polys, inserted
}
