package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/akmonengine/quill/halfedge"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 10, 64)
}

// WriteOBJ writes the mesh in Wavefront OBJ format: one v line per vertex,
// one vt and vn line per attribute, and faces referencing both.
func (m *Mesh) WriteOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)

	index := make([]int, len(m.Topology.Vertices))
	n := 0
	for i, v := range m.Topology.Vertices {
		if v.Edge == halfedge.NoEdge {
			continue
		}
		n++
		index[i] = n
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.Position.X()), formatFloat(v.Position.Y()), formatFloat(v.Position.Z()))
	}
	for _, a := range m.Attributes {
		fmt.Fprintf(bw, "vt %s %s\n", formatFloat(a.UV0.X()), formatFloat(a.UV0.Y()))
	}
	for _, a := range m.Attributes {
		fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(a.Normal.X()), formatFloat(a.Normal.Y()), formatFloat(a.Normal.Z()))
	}

	material := -1
	for f := range m.Topology.LiveFaces() {
		first := true
		for e := range m.Topology.FaceLoop(f) {
			he := m.Topology.Edges[e]
			if first {
				if mat := m.Corner(e).Material; mat != material {
					material = mat
					fmt.Fprintf(bw, "usemtl m%d\n", material)
				}
				bw.WriteString("f")
				first = false
			}
			fmt.Fprintf(bw, " %d/%d/%d", index[he.Vertex], he.Payload+1, he.Payload+1)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
