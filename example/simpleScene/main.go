package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/akmonengine/quill"
	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/go-gl/mathgl/mgl64"
)

// CollisionDebugger prints what the narrow phase reports at each step.
type CollisionDebugger interface {
	DebugManifold(m *contact.Manifold)
	DebugEvent(e quill.Event)
}

type SimpleDebugger struct{}

func (d *SimpleDebugger) DebugManifold(m *contact.Manifold) {
	fmt.Printf("  manifold %d-%d normal=%v toi=%.3f\n", m.BodyA, m.BodyB, m.Normal, m.TOI)
	for i, p := range m.Points {
		fmt.Printf("    point %d: position=%v depth=%.6f child=%d/%d\n", i, p.Position, p.Depth, p.ChildA, p.ChildB)
	}
}

func (d *SimpleDebugger) DebugEvent(e quill.Event) {
	fmt.Printf("  event %s %d-%d\n", e.Type, e.BodyA, e.BodyB)
}

// SetupScene creates a ground made of two triangles and a tilted cube above
// it.
func SetupScene() (*quill.Dispatcher, *actor.Body, CollisionDebugger, error) {
	debugger := &SimpleDebugger{}

	cfg := quill.DefaultConfig()
	cfg.Workers = 2
	dispatcher, err := quill.NewDispatcher(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		return nil, nil, nil, err
	}
	for _, kind := range []quill.EventType{quill.CONTACT_ENTER, quill.CONTACT_EXIT} {
		dispatcher.Events.Subscribe(kind, debugger.DebugEvent)
	}

	ground, err := actor.NewSceneFromTriangles(
		[]mgl64.Vec3{{-10, 0, -10}, {-10, 0, 10}, {10, 0, 10}, {10, 0, -10}},
		[][3]int{{0, 1, 2}, {0, 2, 3}},
	)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := dispatcher.AddBody(actor.NewBody(1, actor.NewTransform(), ground, actor.BodyTypeStatic, 0)); err != nil {
		return nil, nil, nil, err
	}

	cubeTransform := actor.NewPose(mgl64.Vec3{-5, 5, -5}, mgl64.QuatRotate(0.3, mgl64.Vec3{0, 0, 1}))
	cube := actor.NewBody(2, cubeTransform, &actor.Box{HalfExtents: mgl64.Vec3{1.5, 1.5, 1.5}}, actor.BodyTypeDynamic, 1)
	if err := dispatcher.AddBody(cube); err != nil {
		return nil, nil, nil, err
	}
	return dispatcher, cube, debugger, nil
}

// FallingCube moves the cube down at a constant speed and prints the
// contacts found at each step.
func FallingCube() error {
	dispatcher, cube, debugger, err := SetupScene()
	if err != nil {
		return err
	}

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 40
	velocity := mgl64.Vec3{0, -12, 0}

	for step := 0; step < maxSteps; step++ {
		next := cube.Transform
		next.Position = next.Position.Add(velocity.Mul(dt))
		cube.MoveTo(next)

		fmt.Printf("--- step %d: cube at %v\n", step+1, cube.Transform.Position)
		for _, m := range dispatcher.Step([]quill.Pair{{A: 1, B: 2}}) {
			debugger.DebugManifold(m)
			if m.TOI < 1 {
				// Clamp the motion to the time of impact and stop.
				cube.Transform = cube.PreviousTransform.Interpolate(cube.Transform, m.TOI)
				velocity = mgl64.Vec3{}
			}
		}
	}
	fmt.Printf("narrow phase evaluations: %d\n", dispatcher.Calls())
	return nil
}

func main() {
	if err := FallingCube(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
