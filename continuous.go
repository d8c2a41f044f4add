package quill

import (
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/gjk"
)

// sweptBounds returns the world box covering shape over both ends of sweep.
func sweptBounds(shape actor.Shape, sweep gjk.Sweep) actor.AABB {
	return shape.Bounds(sweep.Start).Union(shape.Bounds(sweep.End))
}

// localRegion maps a world box into the frame of a moving shape, covering
// both ends of its sweep.
func localRegion(world actor.AABB, sweep gjk.Sweep) actor.AABB {
	return world.Transformed(sweep.Start.Inverse()).Union(world.Transformed(sweep.End.Inverse()))
}

func placed(sweep gjk.Sweep, local actor.Transform) gjk.Sweep {
	return gjk.Sweep{Start: sweep.Start.Mul(local), End: sweep.End.Mul(local)}
}

type impact struct {
	a, b leaf
	out  gjk.TOIOutput
}

// sweepShapes returns the earliest fraction of the step at which the two
// sweeps touch, with the contacts at that time. Pieces already overlapping
// at the start are left to the discrete test, as are pairs that never
// touch: both report 1 and no contacts.
func sweepShapes(a actor.Shape, sweepA gjk.Sweep, b actor.Shape, sweepB gjk.Sweep, cfg Config, calls func()) (float64, []contact.Point, error) {
	boundsA := sweptBounds(a, sweepA)
	boundsB := sweptBounds(b, sweepB)
	margin := max(cfg.TOITarget, geom.PlaneTolerance)
	if !boundsA.Expand(margin).Overlaps(boundsB) {
		return 1, nil, nil
	}

	leavesA := leaves(a, localRegion(boundsB.Expand(margin), sweepA))
	leavesB := leaves(b, localRegion(boundsA.Expand(margin), sweepB))

	var impacts []impact
	best := 1.0
	for _, la := range leavesA {
		for _, lb := range leavesB {
			out, err := gjk.TimeOfImpact(gjk.TOIInput{
				ShapeA: la.shape,
				SweepA: placed(sweepA, la.local),
				ShapeB: lb.shape,
				SweepB: placed(sweepB, lb.local),
				Target: cfg.TOITarget,
			})
			if err != nil {
				return 1, nil, err
			}
			if out.State != gjk.TOITouching {
				continue
			}
			impacts = append(impacts, impact{a: la, b: lb, out: out})
			best = math.Min(best, out.T)
		}
	}
	if best >= 1 {
		return 1, nil, nil
	}

	g := &generator{limit: cfg.MaxRawContacts, calls: calls}
	for _, hit := range impacts {
		if hit.out.T > best+geom.PlaneTolerance {
			continue
		}
		if err := g.impactContacts(hit, sweepA, sweepB); err != nil {
			return best, nil, err
		}
	}
	return best, g.points, nil
}

// impactContacts adds the contacts of one hit at its time of impact. A
// separated hit gives one speculative contact with a negative depth.
func (g *generator) impactContacts(hit impact, sweepA, sweepB gjk.Sweep) error {
	poseA := placed(sweepA, hit.a.local).At(hit.out.T)
	poseB := placed(sweepB, hit.b.local).At(hit.out.T)
	d := hit.out.Distance
	if d.Overlap {
		return g.convexConvex(hit.a.shape, poseA, hit.b.shape, poseB, hit.a.child, hit.b.child)
	}
	return g.add([]contact.Point{{
		Position: d.PointA,
		Normal:   d.Normal,
		Depth:    -d.Distance,
		ChildA:   hit.a.child,
		ChildB:   hit.b.child,
	}}, hit.a.child, hit.b.child)
}
