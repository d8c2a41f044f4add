package mesh

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Streams is the indexed layout produced by asset pipelines: a vertex count
// per face and independently indexed position, normal and UV streams. Index
// slices run over face corners in face order. Optional streams are left
// empty; missing normals are replaced with flat face normals.
type Streams struct {
	FaceVertexCounts []int
	Positions        []mgl64.Vec3
	PositionIndices  []int
	Normals          []mgl64.Vec3
	NormalIndices    []int
	UV0              []mgl64.Vec2
	UV0Indices       []int
	UV1              []mgl64.Vec2
	UV1Indices       []int
	// Materials holds one material id per face.
	Materials []int
}

func checkStream(name string, indices []int, size, corners int) error {
	if len(indices) == 0 {
		return nil
	}
	if len(indices) != corners {
		return fmt.Errorf("mesh: %s: %d indices for %d corners: %w", name, len(indices), corners, geom.ErrDegenerateInput)
	}
	for i, idx := range indices {
		if idx < 0 || idx >= size {
			return fmt.Errorf("mesh: %s: index %d at corner %d out of range: %w", name, idx, i, geom.ErrDegenerateInput)
		}
	}
	return nil
}

// FromIndexedStreams builds a mesh from indexed streams. Faces with fewer
// than three corners or no area are skipped; a face that would make an edge
// non-manifold fails the whole build.
func FromIndexedStreams(s Streams, opts Options) (*Mesh, error) {
	corners := 0
	for i, n := range s.FaceVertexCounts {
		if n < 0 {
			return nil, fmt.Errorf("mesh: face %d: negative vertex count: %w", i, geom.ErrDegenerateInput)
		}
		corners += n
	}
	if err := checkStream("positions", s.PositionIndices, len(s.Positions), corners); err != nil {
		return nil, err
	}
	if len(s.PositionIndices) != corners {
		return nil, fmt.Errorf("mesh: %d position indices for %d corners: %w", len(s.PositionIndices), corners, geom.ErrDegenerateInput)
	}
	if err := checkStream("normals", s.NormalIndices, len(s.Normals), corners); err != nil {
		return nil, err
	}
	if err := checkStream("uv0", s.UV0Indices, len(s.UV0), corners); err != nil {
		return nil, err
	}
	if err := checkStream("uv1", s.UV1Indices, len(s.UV1), corners); err != nil {
		return nil, err
	}
	if len(s.Materials) != 0 && len(s.Materials) != len(s.FaceVertexCounts) {
		return nil, fmt.Errorf("mesh: %d materials for %d faces: %w", len(s.Materials), len(s.FaceVertexCounts), geom.ErrDegenerateInput)
	}

	m := New(opts)
	for _, p := range s.Positions {
		m.AddVertex(p)
	}

	k := 0
	for f, n := range s.FaceVertexCounts {
		verts := make([]int, n)
		attrs := make([]Attribute, n)
		points := make([]mgl64.Vec3, n)
		for i := range n {
			c := k + i
			verts[i] = s.PositionIndices[c]
			points[i] = s.Positions[verts[i]]
			if len(s.NormalIndices) > 0 {
				attrs[i].Normal = s.Normals[s.NormalIndices[c]]
			}
			if len(s.UV0Indices) > 0 {
				attrs[i].UV0 = s.UV0[s.UV0Indices[c]]
			}
			if len(s.UV1Indices) > 0 {
				attrs[i].UV1 = s.UV1[s.UV1Indices[c]]
			}
			if len(s.Materials) > 0 {
				attrs[i].Material = s.Materials[f]
			}
		}
		k += n

		pl, ok := geom.PlaneFromPolygon(points)
		if n < 3 || !ok {
			continue
		}
		if len(s.NormalIndices) == 0 {
			for i := range attrs {
				attrs[i].Normal = pl.Normal
			}
		}
		face, ok := m.AddFace(verts, attrs)
		if !ok {
			return nil, fmt.Errorf("mesh: face %d: %w", f, geom.ErrNonManifoldTopology)
		}
		m.Topology.Faces[face].Tag = f
	}
	return m, nil
}
