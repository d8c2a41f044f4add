package mesh

import (
	"bytes"
	"testing"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objString(t *testing.T, m *Mesh) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, m.WriteOBJ(&buf))
	return buf.String()
}

func assertSameOBJ(t *testing.T, expected, actual *Mesh) {
	t.Helper()
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(objString(t, expected)),
		B:        difflib.SplitLines(objString(t, actual)),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestTriangulate(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *Mesh
		faces    int
		vertices int
		volume   float64
	}{
		{"box", unitBox, 12, 8, 1},
		{"l prism", func() *Mesh {
			m, _ := Extrude(lFootprint(), 1, DefaultOptions())
			return m
		}, 20, 12, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tri, err := tt.build().Triangulate()
			require.NoError(t, err)
			require.NoError(t, tri.Sanity())

			assert.True(t, tri.Topology.IsClosed())
			assert.Equal(t, tt.faces, tri.Topology.FaceCount())
			assert.Equal(t, tt.vertices, tri.Topology.VertexCount())
			assert.InDelta(t, tt.volume, tri.Volume(), 1e-12)
			for f := range tri.Topology.LiveFaces() {
				assert.Len(t, tri.Topology.FaceVertices(f), 3)
			}

			again, err := tri.Triangulate()
			require.NoError(t, err)
			assert.Equal(t, tri.Topology.FaceCount(), again.Topology.FaceCount())
			assert.Equal(t, tri.Topology.VertexCount(), again.Topology.VertexCount())
			assertSameOBJ(t, tri, again)
		})
	}
}

func TestEarClip_KeepsCollinearCorners(t *testing.T) {
	tests := []struct {
		name      string
		points    []mgl64.Vec3
		triangles int
	}{
		// A square with an extra corner in the middle of its bottom side.
		{"split edge", []mgl64.Vec3{{0, 0, 0}, {0.5, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, 3},
		{"two splits", []mgl64.Vec3{{0, 0, 0}, {0.25, 0, 0}, {0.75, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}, 4},
		{"all collinear", []mgl64.Vec3{{0, 0, 0}, {0.5, 0, 0}, {1, 0, 0}, {2, 0, 0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triangles := earClip(tt.points, mgl64.Vec3{0, 0, 1})
			require.Len(t, triangles, tt.triangles)

			used := make(map[int]bool)
			area := 0.0
			for _, tri := range triangles {
				a := geom.TriangleArea(tt.points[tri[0]], tt.points[tri[1]], tt.points[tri[2]])
				assert.GreaterOrEqual(t, a, geom.AreaEpsilon)
				area += a
				for _, v := range tri {
					used[v] = true
				}
			}
			if tt.triangles == 0 {
				return
			}
			assert.InDelta(t, 1.0, area, 1e-12)
			assert.Len(t, used, len(tt.points), "every corner is kept")
		})
	}
}

func TestConvexPartition(t *testing.T) {
	m, err := Extrude(lFootprint(), 1, DefaultOptions())
	require.NoError(t, err)

	parts, err := m.ConvexPartition()
	require.NoError(t, err)
	require.NoError(t, parts.Sanity())

	assert.True(t, parts.Topology.IsClosed())
	assert.InDelta(t, 3.0, parts.Volume(), 1e-12)
	// The six side quads stay whole, each L cap needs two or three pieces.
	assert.GreaterOrEqual(t, parts.Topology.FaceCount(), 10)
	assert.LessOrEqual(t, parts.Topology.FaceCount(), 12)

	for f := range parts.Topology.LiveFaces() {
		points := parts.Topology.FacePositions(f)
		pl, ok := geom.PlaneFromPolygon(points)
		require.True(t, ok)
		assert.True(t, isConvex(points, pl.Normal), "face %d is not convex", f)
	}
}
