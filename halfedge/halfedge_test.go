package halfedge

import (
	"errors"
	"testing"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cubePositions = []mgl64.Vec3{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

var cubeFaces = [][]int{
	{0, 3, 2, 1}, // bottom
	{4, 5, 6, 7}, // top
	{0, 1, 5, 4}, // front
	{2, 3, 7, 6}, // back
	{0, 4, 7, 3}, // left
	{1, 2, 6, 5}, // right
}

func createCube(t *testing.T) *Mesh {
	t.Helper()
	m, rejected := FromPolygons(cubePositions, cubeFaces)
	require.Empty(t, rejected)
	return m
}

func TestAddFace_Cube(t *testing.T) {
	m := createCube(t)

	require.NoError(t, m.Check())
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 12, m.EdgeCount())
	assert.Equal(t, 6, m.FaceCount())
	assert.Equal(t, 2, m.EulerCharacteristic())
	assert.True(t, m.IsClosed())

	for f := range m.LiveFaces() {
		assert.Len(t, m.FaceVertices(f), 4)
	}
}

func TestAddFace_Rejects(t *testing.T) {
	m := New()
	for _, p := range cubePositions[:4] {
		m.AddVertex(p)
	}

	tests := []struct {
		name  string
		verts []int
	}{
		{"too few corners", []int{0, 1}},
		{"repeated vertex", []int{0, 1, 1, 2}},
		{"unknown vertex", []int{0, 1, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := m.AddFace(tt.verts)
			assert.False(t, ok)
			assert.Equal(t, NoFace, f)
		})
	}

	_, ok := m.AddFace([]int{0, 1, 2})
	require.True(t, ok)
	assert.False(t, m.IsClosed())

	// Same winding over edge 0→1 a second time is non-manifold.
	_, ok = m.AddFace([]int{0, 1, 3})
	assert.False(t, ok)

	// Reversed winding pairs up as twins.
	f, ok := m.AddFace([]int{1, 0, 3})
	require.True(t, ok)
	e := m.FindEdge(0, 1)
	require.NotEqual(t, NoEdge, e)
	assert.Equal(t, f, m.Edges[m.Edges[e].Twin].Face)
	require.NoError(t, m.Check())
}

func TestDeleteEdge(t *testing.T) {
	m := createCube(t)

	merged, err := m.DeleteEdge(m.FindEdge(4, 5))
	require.NoError(t, err)
	assert.NotEqual(t, NoFace, merged)
	assert.Equal(t, 5, m.FaceCount())
	assert.Equal(t, 11, m.EdgeCount())
	assert.Len(t, m.FaceVertices(merged), 6)
	require.NoError(t, m.Check())

	_, err = m.DeleteEdge(m.FindEdge(5, 6))
	require.NoError(t, err)
	assert.Equal(t, 4, m.FaceCount())
	require.NoError(t, m.Check())

	// Edge 1-5 is now a spike with the merged face on both sides.
	_, err = m.DeleteEdge(m.FindEdge(1, 5))
	assert.True(t, errors.Is(err, geom.ErrNonManifoldTopology))
}

func TestDeleteEdge_OpenBorder(t *testing.T) {
	m, rejected := FromPolygons(cubePositions[:4], [][]int{{0, 1, 2}, {0, 2, 3}})
	require.Empty(t, rejected)

	_, err := m.DeleteEdge(m.FindEdge(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, m.FaceCount())
	require.NoError(t, m.Check())
}

func TestSplitEdge(t *testing.T) {
	m := createCube(t)

	v, forward, backward := m.SplitEdge(m.FindEdge(0, 1), mgl64.Vec3{0.5, 0, 0})
	require.NoError(t, m.Check())

	assert.Equal(t, v, m.Edges[forward].Vertex)
	assert.Equal(t, v, m.Edges[backward].Vertex)
	assert.Equal(t, 9, m.VertexCount())
	assert.Equal(t, 13, m.EdgeCount())
	assert.Equal(t, 2, m.EulerCharacteristic())
	assert.Len(t, m.FaceVertices(m.Edges[forward].Face), 5)
	assert.Len(t, m.FaceVertices(m.Edges[backward].Face), 5)
}

func TestSplitFace(t *testing.T) {
	m := createCube(t)

	f := m.Edges[m.FindEdge(4, 5)].Face
	a := m.FindEdge(4, 5)
	b := m.FindEdge(6, 7)
	nf, err := m.SplitFace(a, b)
	require.NoError(t, err)
	require.NoError(t, m.Check())

	assert.Len(t, m.FaceVertices(f), 3)
	assert.Len(t, m.FaceVertices(nf), 3)
	assert.Equal(t, 7, m.FaceCount())
	assert.Equal(t, 2, m.EulerCharacteristic())
}

func TestCollapseEdge(t *testing.T) {
	m := createCube(t)

	require.NoError(t, m.CollapseEdge(m.FindEdge(4, 5), mgl64.Vec3{0.5, 0, 1}))
	require.NoError(t, m.Check())

	assert.Equal(t, 7, m.VertexCount())
	assert.Equal(t, 11, m.EdgeCount())
	assert.Equal(t, 6, m.FaceCount())
	assert.Equal(t, 2, m.EulerCharacteristic())
	assert.Equal(t, mgl64.Vec3{0.5, 0, 1}, m.Vertices[4].Position)
}

func TestVertexFan(t *testing.T) {
	m := createCube(t)

	var dests []int
	for e := range m.VertexFan(0) {
		dests = append(dests, m.Dest(e))
	}
	assert.ElementsMatch(t, []int{1, 3, 4}, dests)

	open, _ := FromPolygons(cubePositions[:4], [][]int{{0, 1, 2}, {0, 2, 3}})
	dests = dests[:0]
	for e := range open.VertexFan(0) {
		dests = append(dests, open.Dest(e))
	}
	assert.ElementsMatch(t, []int{1, 2, 3}, dests)
}

func TestNewMark(t *testing.T) {
	m := createCube(t)

	mark := m.NewMark()
	visited := 0
	for f := range m.LiveFaces() {
		for e := range m.FaceLoop(f) {
			if m.Edges[e].Mark == mark {
				continue
			}
			m.Edges[e].Mark = mark
			m.Edges[m.Edges[e].Twin].Mark = mark
			visited++
		}
	}
	assert.Equal(t, 12, visited)
	assert.NotEqual(t, mark, m.NewMark())
}
