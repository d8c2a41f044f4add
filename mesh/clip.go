package mesh

import (
	"fmt"

	"github.com/akmonengine/quill/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// clipScratch is the per-call scratch of plane splits. It bounds the number
// of crossing vertices one face may produce.
type clipScratch struct {
	limit     int
	tolerance float64
	sides     []geom.Side
	points    []Attribute
}

func newClipScratch(opts Options) *clipScratch {
	limit := opts.MaxCrossings
	if limit <= 0 {
		limit = DefaultOptions().MaxCrossings
	}
	return &clipScratch{
		limit:     limit,
		tolerance: opts.PlaneTolerance,
		points:    make([]Attribute, 0, limit),
	}
}

type split struct {
	// Side is SideOn for coplanar polygons, SideSpanning when both halves
	// are set.
	side        geom.Side
	front, back polygon
}

func less(a, b mgl64.Vec3) bool {
	for i := range 3 {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// crossing returns the point where edge a-b meets the plane. The result does
// not depend on the edge direction, so faces sharing the edge agree.
func crossing(a, b Attribute, pl geom.Plane) Attribute {
	flipped := false
	if less(b.Position, a.Position) {
		a, b = b, a
		flipped = true
	}
	t, _ := pl.IntersectSegment(a.Position, b.Position)
	out := lerpAttribute(a, b, t)
	if flipped {
		out.Material = b.Material
	}
	return out
}

// split cuts p by the plane.
func (s *clipScratch) split(p polygon, pl geom.Plane) (split, error) {
	s.sides = s.sides[:0]
	var side geom.Side
	for _, c := range p.corners {
		cs := pl.Classify(c.Position, s.tolerance)
		s.sides = append(s.sides, cs)
		side |= cs
	}
	switch side {
	case geom.SideOn:
		return split{side: geom.SideOn}, nil
	case geom.SideFront:
		return split{side: geom.SideFront, front: p}, nil
	case geom.SideBack:
		return split{side: geom.SideBack, back: p}, nil
	}

	s.points = s.points[:0]
	var front, back []Attribute
	n := len(p.corners)
	for i := range n {
		j := (i + 1) % n
		ci, cj := p.corners[i], p.corners[j]
		si, sj := s.sides[i], s.sides[j]
		if si != geom.SideBack {
			front = append(front, ci)
		}
		if si != geom.SideFront {
			back = append(back, ci)
		}
		if si|sj == geom.SideSpanning {
			if len(s.points) == s.limit {
				return split{}, fmt.Errorf("mesh: face crosses the plane more than %d times: %w", s.limit, geom.ErrCapacityExceeded)
			}
			x := crossing(ci, cj, pl)
			if ci.Material == cj.Material {
				x.Material = ci.Material
			}
			s.points = append(s.points, x)
			front = append(front, x)
			back = append(back, x)
		}
	}
	return split{
		side:  geom.SideSpanning,
		front: polygon{corners: front, tag: p.tag},
		back:  polygon{corners: back, tag: p.tag},
	}, nil
}

// Clip splits the mesh by a plane into the part in front of it and the part
// behind it. Faces lying on the plane go to the side their normal faces.
// The halves are left open along the cut.
func (m *Mesh) Clip(pl geom.Plane) (front, back *Mesh, err error) {
	scratch := newClipScratch(m.Options)
	var fronts, backs []polygon
	for _, p := range m.soup() {
		s, err := scratch.split(p, pl)
		if err != nil {
			return nil, nil, err
		}
		switch s.side {
		case geom.SideOn:
			if np, ok := geom.PlaneFromPolygon(p.positions()); ok && np.Normal.Dot(pl.Normal) > 0 {
				fronts = append(fronts, p)
			} else {
				backs = append(backs, p)
			}
		case geom.SideFront:
			fronts = append(fronts, s.front)
		case geom.SideBack:
			backs = append(backs, s.back)
		default:
			fronts = append(fronts, s.front)
			backs = append(backs, s.back)
		}
	}
	if front, _, err = fromSoup(fronts, m.Options); err != nil {
		return nil, nil, err
	}
	if back, _, err = fromSoup(backs, m.Options); err != nil {
		return nil, nil, err
	}
	return front, back, nil
}
