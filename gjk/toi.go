package gjk

import (
	"fmt"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/geom"
)

// Sweep is the motion of a shape over one step, from Start at t=0 to End at
// t=1. Intermediate poses interpolate linearly and slerp the rotation.
type Sweep struct {
	Start actor.Transform
	End   actor.Transform
}

func (s Sweep) At(t float64) actor.Transform {
	return s.Start.Interpolate(s.End, t)
}

type TOIState int

const (
	TOIFailed TOIState = iota
	TOIOverlapped
	TOITouching
	TOISeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIFailed:
		return "failed"
	case TOIOverlapped:
		return "overlapped"
	case TOITouching:
		return "touching"
	case TOISeparated:
		return "separated"
	}
	return fmt.Sprintf("toi(%d)", int(s))
}

type TOIInput struct {
	ShapeA actor.Convex
	SweepA Sweep
	ShapeB actor.Convex
	SweepB Sweep
	// Target is the separation at which the shapes count as touching.
	Target        float64
	MaxIterations int
}

type TOIOutput struct {
	State    TOIState
	T        float64
	Distance Output
}

// TimeOfImpact finds the earliest time in [0,1] at which the two sweeps come
// within Target of each other, by conservative advancement: each step moves
// forward by the gap divided by a bound on the closing speed, so the shapes
// never tunnel.
func TimeOfImpact(input TOIInput) (TOIOutput, error) {
	maxIterations := input.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 64
	}
	target := max(input.Target, geom.PlaneTolerance)
	tolerance := 0.25 * target

	linearA := input.SweepA.End.Position.Sub(input.SweepA.Start.Position)
	linearB := input.SweepB.End.Position.Sub(input.SweepB.Start.Position)
	_, angleA := input.SweepA.Start.Delta(input.SweepA.End)
	_, angleB := input.SweepB.Start.Delta(input.SweepB.End)
	angular := angleA*input.ShapeA.BoundingRadius() + angleB*input.ShapeB.BoundingRadius()

	t := 0.0
	for range maxIterations {
		d := Distance(
			Proxy{Shape: input.ShapeA, Transform: input.SweepA.At(t)},
			Proxy{Shape: input.ShapeB, Transform: input.SweepB.At(t)},
		)
		out := TOIOutput{T: t, Distance: d}

		if d.Overlap {
			if t == 0 {
				out.State = TOIOverlapped
			} else {
				out.State = TOITouching
			}
			return out, nil
		}
		if d.Distance <= target+tolerance {
			out.State = TOITouching
			return out, nil
		}

		// Upper bound on how fast the gap along the normal can close.
		closing := linearA.Sub(linearB).Dot(d.Normal) + angular
		if closing <= geom.Epsilon {
			return TOIOutput{State: TOISeparated, T: 1, Distance: d}, nil
		}

		t += (d.Distance - target) / closing
		if t >= 1 {
			return TOIOutput{State: TOISeparated, T: 1, Distance: d}, nil
		}
	}
	return TOIOutput{State: TOIFailed, T: t}, fmt.Errorf("gjk: time of impact did not converge in %d iterations: %w", maxIterations, geom.ErrCapacityExceeded)
}
