package quill

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/decompose"
	"github.com/akmonengine/quill/geom"
	"github.com/akmonengine/quill/gjk"
	"github.com/akmonengine/quill/hull"
	"github.com/akmonengine/quill/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// BuildConvexHull builds a convex shape around points. A tolerance of zero
// uses the default weld tolerance.
func BuildConvexHull(points []mgl64.Vec3, tolerance float64) (*actor.ConvexHull, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("quill: convex hull of no points: %w", geom.ErrDegenerateInput)
	}
	opts := hull.DefaultOptions()
	if tolerance > 0 {
		opts.Tolerance = tolerance
	}
	h, err := hull.Build(points, opts)
	if err != nil {
		return nil, err
	}
	return actor.NewConvexHull(h), nil
}

// BuildCompoundFromMesh decomposes a closed mesh into at most maxPieces
// convex children. Zero keeps one child per interior cell.
func BuildCompoundFromMesh(m *mesh.Mesh, maxPieces int) (*actor.Compound, error) {
	opts := decompose.DefaultOptions()
	opts.MaxPieces = maxPieces
	return BuildCompoundWithOptions(m, opts)
}

// BuildCompoundWithOptions is BuildCompoundFromMesh with full control over
// the decomposition.
func BuildCompoundWithOptions(m *mesh.Mesh, opts decompose.Options) (*actor.Compound, error) {
	result, err := decompose.Decompose(m, opts)
	if err != nil {
		return nil, err
	}
	children := make([]actor.Child, len(result.Pieces))
	for i, piece := range result.Pieces {
		children[i] = actor.Child{Shape: actor.NewConvexHull(piece), Local: actor.NewTransform()}
	}
	return actor.NewCompound(children)
}

// Collide returns the contacts between two placed shapes, at most
// maxContacts of them. Zero means the default bound. Normals point from a
// toward b. Failures are logged and report no contact.
func Collide(a actor.Shape, poseA actor.Transform, b actor.Shape, poseB actor.Transform, maxContacts int) []contact.Point {
	if maxContacts <= 0 {
		maxContacts = contact.MaxContacts
	}
	g := &generator{limit: max(contact.MaxRawContacts, maxContacts)}
	if err := g.collide(a, poseA, b, poseB); err != nil {
		slog.Default().Warn("collide failed", "kindA", a.Kind(), "kindB", b.Kind(), "error", err)
		return nil
	}
	return finish(g.points, poseA, poseB, maxContacts)
}

func finish(points []contact.Point, poseA, poseB actor.Transform, maxContacts int) []contact.Point {
	if len(points) == 0 {
		return nil
	}
	points, _ = contact.Prune(points, maxContacts)
	for i := range points {
		points[i].Anchor(poseA, poseB)
	}
	return points
}

// Motion is a constant velocity held over one unit of time.
type Motion struct {
	Linear mgl64.Vec3
	// Angular is an axis scaled by the rotation rate in radians.
	Angular mgl64.Vec3
}

// Advance returns pose moved by m over one unit of time.
func (m Motion) Advance(pose actor.Transform) actor.Transform {
	out := actor.Transform{Position: pose.Position.Add(m.Linear), Rotation: pose.Rotation}
	if angle := m.Angular.Len(); angle > geom.Epsilon {
		spin := mgl64.QuatRotate(angle, m.Angular.Mul(1/angle))
		out.Rotation = spin.Mul(pose.Rotation).Normalize()
	}
	return out
}

// CollideContinuous moves both shapes by their motion and returns the
// earliest fraction of that motion at which they touch, with the contacts
// at that time. Shapes that never touch report 1 and the contacts at the
// end of the motion, if any.
func CollideContinuous(a actor.Shape, poseA actor.Transform, velA Motion, b actor.Shape, poseB actor.Transform, velB Motion) (float64, []contact.Point) {
	cfg := DefaultConfig()
	sweepA := gjk.Sweep{Start: poseA, End: velA.Advance(poseA)}
	sweepB := gjk.Sweep{Start: poseB, End: velB.Advance(poseB)}

	toi, points, err := sweepShapes(a, sweepA, b, sweepB, cfg, nil)
	if err != nil {
		slog.Default().Warn("continuous collide failed", "kindA", a.Kind(), "kindB", b.Kind(), "error", err)
		return 1, nil
	}
	if toi < 1 {
		return toi, finish(points, sweepA.At(toi), sweepB.At(toi), cfg.MaxContacts)
	}
	return 1, Collide(a, sweepA.End, b, sweepB.End, cfg.MaxContacts)
}

// ClosestPoint returns the closest points of two placed shapes and the unit
// normal from a toward b. Overlapping shapes report the deepest contact,
// pA on a's surface and pB on b's.
func ClosestPoint(a actor.Shape, poseA actor.Transform, b actor.Shape, poseB actor.Transform) (pA, pB, normal mgl64.Vec3) {
	best := math.Inf(1)
	for _, la := range leaves(a, a.Bounds(actor.NewTransform())) {
		placedA := poseA.Mul(la.local)
		for _, lb := range leaves(b, b.Bounds(actor.NewTransform())) {
			placedB := poseB.Mul(lb.local)
			d := gjk.Distance(
				gjk.Proxy{Shape: la.shape, Transform: placedA},
				gjk.Proxy{Shape: lb.shape, Transform: placedB},
			)
			if !d.Overlap {
				if d.Distance < best {
					best = d.Distance
					pA, pB, normal = d.PointA, d.PointB, d.Normal
				}
				continue
			}

			g := &generator{limit: contact.MaxRawContacts}
			if err := g.convexConvex(la.shape, placedA, lb.shape, placedB, la.child, lb.child); err != nil {
				slog.Default().Warn("closest point failed", "kindA", a.Kind(), "kindB", b.Kind(), "error", err)
				continue
			}
			m := contact.Manifold{Points: g.points}
			if deepest, ok := m.Deepest(); ok && -deepest.Depth < best {
				best = -deepest.Depth
				pA = deepest.Position
				pB = deepest.Position.Sub(deepest.Normal.Mul(deepest.Depth))
				normal = deepest.Normal
			}
		}
	}
	return pA, pB, normal
}
