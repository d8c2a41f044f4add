package decompose

// triangle is an outward facing surface triangle. root identifies the input
// face it was cut from.
type triangle struct {
	v    [3]int
	root int
}

// surface is the boundary of the solid being decomposed, in vertex indices
// of the tetrahedralization. Splits keep the winding of the triangles they
// replace.
type surface struct {
	triangles []triangle
	// edgeRoot maps a surface edge to the input edge it was cut from.
	edgeRoot map[edgeKey]int
}

func newSurface() *surface {
	return &surface{edgeRoot: make(map[edgeKey]int)}
}

func (s *surface) add(v [3]int, root int) {
	s.triangles = append(s.triangles, triangle{v: v, root: root})
}

// splitEdge replaces the edge u-v by u-x-v in every triangle using it. The
// edges x-w created across the triangles inherit the root of u-v.
func (s *surface) splitEdge(u, v, x int) {
	key := makeEdgeKey(u, v)
	root := s.edgeRoot[key]
	delete(s.edgeRoot, key)
	s.edgeRoot[makeEdgeKey(u, x)] = root
	s.edgeRoot[makeEdgeKey(x, v)] = root

	out := s.triangles[:0:0]
	for _, tri := range s.triangles {
		replaced := false
		for i := range 3 {
			a, b, c := tri.v[i], tri.v[(i+1)%3], tri.v[(i+2)%3]
			if makeEdgeKey(a, b) != key {
				continue
			}
			out = append(out,
				triangle{v: [3]int{a, x, c}, root: tri.root},
				triangle{v: [3]int{x, b, c}, root: tri.root},
			)
			s.edgeRoot[makeEdgeKey(x, c)] = root
			replaced = true
			break
		}
		if !replaced {
			out = append(out, tri)
		}
	}
	s.triangles = out
}

// splitFace replaces triangle i by three triangles around x.
func (s *surface) splitFace(i, x int) {
	tri := s.triangles[i]
	a, b, c := tri.v[0], tri.v[1], tri.v[2]
	root := -1 - tri.root
	for _, w := range tri.v {
		s.edgeRoot[makeEdgeKey(w, x)] = root
	}
	s.triangles[i] = triangle{v: [3]int{a, b, x}, root: tri.root}
	s.add([3]int{b, c, x}, tri.root)
	s.add([3]int{c, a, x}, tri.root)
}

func (s *surface) edges() []edgeKey {
	seen := make(map[edgeKey]struct{})
	var out []edgeKey
	for _, tri := range s.triangles {
		for i := range 3 {
			k := makeEdgeKey(tri.v[i], tri.v[(i+1)%3])
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
