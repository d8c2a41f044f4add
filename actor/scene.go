package actor

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene is static triangle geometry, typically level collision, indexed by
// a dynamic AABB tree. It has no volume and collides per triangle.
type Scene struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int

	tree      *Tree
	bounds    AABB
	signature Signature
}

// NewScene triangulates m and indexes its triangles.
func NewScene(m *mesh.Mesh) (*Scene, error) {
	tri, err := m.Triangulate()
	if err != nil {
		return nil, err
	}
	var triangles [][3]int
	for f := range tri.Topology.LiveFaces() {
		v := tri.Topology.FaceVertices(f)
		triangles = append(triangles, [3]int{v[0], v[1], v[2]})
	}
	vertices := make([]mgl64.Vec3, len(tri.Topology.Vertices))
	for i, v := range tri.Topology.Vertices {
		vertices[i] = v.Position
	}
	return newScene(vertices, triangles)
}

// NewSceneFromTriangles indexes triangles over vertices.
func NewSceneFromTriangles(vertices []mgl64.Vec3, triangles [][3]int) (*Scene, error) {
	return newScene(vertices, triangles)
}

func newScene(vertices []mgl64.Vec3, triangles [][3]int) (*Scene, error) {
	if len(triangles) == 0 {
		return nil, fmt.Errorf("actor: scene without triangles: %w", geom.ErrDegenerateInput)
	}
	s := &Scene{
		Vertices:  vertices,
		Triangles: triangles,
		tree:      NewTree(0),
		bounds:    EmptyAABB(),
	}
	sg := newSigner(ShapeKindScene, "")
	sg.int(len(vertices))
	sg.vec(vertices...)
	sg.int(len(triangles))
	for i, t := range triangles {
		for _, v := range t {
			if v < 0 || v >= len(vertices) {
				return nil, fmt.Errorf("actor: scene triangle %d references vertex %d of %d: %w", i, v, len(vertices), geom.ErrDegenerateInput)
			}
			sg.int(v)
		}
		box := s.Leaf(i).Bounds(NewTransform())
		s.tree.Insert(box, i)
		s.bounds = s.bounds.Union(box)
	}
	s.signature = sg.sum()
	return s, nil
}

// Leaf returns triangle i as a convex shape.
func (s *Scene) Leaf(i int) *Triangle {
	t := s.Triangles[i]
	return &Triangle{Points: [3]mgl64.Vec3{s.Vertices[t[0]], s.Vertices[t[1]], s.Vertices[t[2]]}}
}

func (s *Scene) Kind() ShapeKind {
	return ShapeKindScene
}

func (s *Scene) Bounds(transform Transform) AABB {
	corners := [8]mgl64.Vec3{}
	for i := range corners {
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				corners[i][axis] = s.bounds.Max[axis]
			} else {
				corners[i][axis] = s.bounds.Min[axis]
			}
		}
	}
	return BoundPoints(corners[:], transform)
}

func (s *Scene) BoundingRadius() float64 {
	r := 0.0
	for _, v := range s.Vertices {
		r = max(r, v.Len())
	}
	return r
}

func (s *Scene) Volume() float64 {
	return 0
}

// ComputeMass is zero: scenes are static.
func (s *Scene) ComputeMass(density float64) float64 {
	return 0
}

func (s *Scene) ComputeInertia(mass float64) mgl64.Mat3 {
	return mgl64.Mat3{}
}

// Query calls fn with every triangle whose box overlaps box, given in the
// scene frame.
func (s *Scene) Query(box AABB, fn func(triangle int) bool) {
	s.tree.Query(box, fn)
}

// RayHit is the first triangle crossed by a ray.
type RayHit struct {
	Triangle int
	// T is the ray parameter of the hit point.
	T      float64
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// RayCast returns the first triangle hit by origin + t*direction for t in
// [0, maxT], in the scene frame.
func (s *Scene) RayCast(origin, direction mgl64.Vec3, maxT float64) (RayHit, bool) {
	hit := RayHit{Triangle: -1}
	end := origin.Add(direction.Mul(maxT))
	s.tree.RayCast(origin, direction, maxT, func(i int, limit float64) float64 {
		tri := s.Leaf(i)
		f, ok := geom.SegmentTriangle(origin, end, tri.Points[0], tri.Points[1], tri.Points[2], geom.Epsilon)
		if !ok || f*maxT > limit {
			return -1
		}
		hit = RayHit{Triangle: i, T: f * maxT, Point: geom.Lerp(origin, end, f), Normal: tri.Normal()}
		return hit.T
	})
	return hit, hit.Triangle >= 0
}

func (s *Scene) Signature() Signature {
	return s.signature
}
