package quill

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(x, y, z float64) actor.Transform {
	return actor.NewPose(mgl64.Vec3{x, y, z}, mgl64.QuatIdent())
}

func cube(half float64) *actor.Box {
	return &actor.Box{HalfExtents: mgl64.Vec3{half, half, half}}
}

func newTestDispatcher(t *testing.T, cfg Config, bodies ...*actor.Body) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	for _, b := range bodies {
		require.NoError(t, d.AddBody(b))
	}
	return d
}

func TestNewDispatcher_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err := NewDispatcher(cfg, nil)
	assert.Error(t, err)
}

func TestDispatcher_AddRemoveBody(t *testing.T) {
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	b := actor.NewBody(2, at(0.5, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)

	assert.Error(t, d.AddBody(a))
	got, ok := d.Body(2)
	require.True(t, ok)
	assert.Same(t, b, got)

	require.Len(t, d.Step([]Pair{{1, 2}}), 1)
	assert.Equal(t, 1, d.CacheLen())

	d.RemoveBody(2)
	assert.Equal(t, 0, d.CacheLen())
	_, ok = d.Body(2)
	assert.False(t, ok)
	assert.Empty(t, d.Step([]Pair{{1, 2}}))
}

func TestDispatcher_OffsetCubes(t *testing.T) {
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	b := actor.NewBody(2, at(0.5, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)

	manifolds := d.Step([]Pair{{2, 1}})
	require.Len(t, manifolds, 1)
	m := manifolds[0]

	assert.Equal(t, uint64(1), m.BodyA)
	assert.Equal(t, uint64(2), m.BodyB)
	assert.InDelta(t, 1, m.Normal.X(), 1e-6)
	assert.InDelta(t, 1, m.TOI, 1e-12)
	require.NotEmpty(t, m.Points)
	for _, p := range m.Points {
		assert.InDelta(t, 0.5, p.Depth, 1e-6)
		assert.InDelta(t, 0, p.Drift(a.Transform, b.Transform), 1e-9)
	}
}

func TestDispatcher_CacheReuse(t *testing.T) {
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	b := actor.NewBody(2, at(0.5, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)
	pairs := []Pair{{1, 2}}

	first := d.Step(pairs)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), d.Calls())

	second := d.Step(pairs)
	require.Len(t, second, 1)
	assert.Equal(t, int64(1), d.Calls())
	assert.Equal(t, first[0].Points, second[0].Points)

	b.MoveTo(at(0.5, 1e-4, 0))
	require.Len(t, d.Step(pairs), 1)
	assert.Equal(t, int64(1), d.Calls())

	b.MoveTo(at(0.45, 1e-4, 0))
	manifolds := d.Step(pairs)
	require.Len(t, manifolds, 1)
	assert.Equal(t, int64(2), d.Calls())
	assert.InDelta(t, 0.55, manifolds[0].Points[0].Depth, 1e-6)

	// Pairs left out of a step lose their cache.
	assert.Empty(t, d.Step(nil))
	assert.Equal(t, 0, d.CacheLen())
	require.Len(t, d.Step(pairs), 1)
	assert.Equal(t, int64(3), d.Calls())
}

func TestDispatcher_Separated(t *testing.T) {
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	b := actor.NewBody(2, at(3, 0, 0), &actor.Sphere{Radius: 1}, actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)

	assert.Empty(t, d.Step([]Pair{{1, 2}}))
	assert.Equal(t, 0, d.CacheLen())
}

func TestDispatcher_Pruning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContacts = 2
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	b := actor.NewBody(2, at(0, 0.9, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, cfg, a, b)

	manifolds := d.Step([]Pair{{1, 2}})
	require.Len(t, manifolds, 1)
	assert.NotEmpty(t, manifolds[0].Points)
	assert.LessOrEqual(t, len(manifolds[0].Points), 2)
}

func TestDispatcher_RawOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContacts = 1
	cfg.MaxRawContacts = 2

	var logs bytes.Buffer
	d, err := NewDispatcher(cfg, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	require.NoError(t, d.AddBody(actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeDynamic, 1)))
	require.NoError(t, d.AddBody(actor.NewBody(2, at(0, 0.9, 0), cube(0.5), actor.BodyTypeDynamic, 1)))

	assert.Empty(t, d.Step([]Pair{{1, 2}}))
	assert.Contains(t, logs.String(), "narrow phase failed")
	assert.Equal(t, 0, d.CacheLen())
}

func TestDispatcher_Trigger(t *testing.T) {
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeStatic, 0)
	a.IsTrigger = true
	b := actor.NewBody(2, at(0, 0.9, 0), &actor.Sphere{Radius: 0.5}, actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)

	capture := &eventCapture{}
	subscribeAll(&d.Events, capture)

	assert.Empty(t, d.Step([]Pair{{1, 2}}))
	assert.Equal(t, []EventType{TRIGGER_ENTER}, capture.types())

	capture.reset()
	b.MoveTo(at(0, 3, 0))
	d.Step([]Pair{{1, 2}})
	assert.Equal(t, []EventType{TRIGGER_EXIT}, capture.types())
}

func TestDispatcher_ContactEvents(t *testing.T) {
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeStatic, 0)
	b := actor.NewBody(2, at(0, 0.9, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)

	capture := &eventCapture{}
	subscribeAll(&d.Events, capture)

	d.Step([]Pair{{1, 2}})
	d.Step([]Pair{{1, 2}})
	d.RemoveBody(2)
	d.Step(nil)

	assert.Equal(t, []EventType{CONTACT_ENTER, CONTACT_STAY}, capture.types())
}

func TestDispatcher_Materials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Materials = []actor.Material{
		{Name: "rubber", Restitution: 0.8, StaticFriction: 1, DynamicFriction: 0.9},
		{Name: "ice", Restitution: 0.2, StaticFriction: 0.04, DynamicFriction: 0.01},
	}
	a := actor.NewBody(1, at(0, 0, 0), cube(0.5), actor.BodyTypeStatic, 0)
	a.Material = 0
	b := actor.NewBody(2, at(0, 0.9, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	b.Material = 1
	d := newTestDispatcher(t, cfg, a, b)

	// Later edits to the configuration are not seen by the dispatcher.
	cfg.Materials[1].Restitution = 1

	manifolds := d.Step([]Pair{{1, 2}})
	require.Len(t, manifolds, 1)
	mixed := manifolds[0].Material
	assert.InDelta(t, 0.5, mixed.Restitution, 1e-12)
	assert.InDelta(t, 0.2, mixed.StaticFriction, 1e-12)
	assert.InDelta(t, math.Sqrt(0.009), mixed.DynamicFriction, 1e-12)
}

func TestDispatcher_CompoundAgainstBox(t *testing.T) {
	compound, err := actor.NewCompound([]actor.Child{
		{Shape: cube(0.5), Local: at(-1, 0, 0)},
		{Shape: cube(0.5), Local: at(1, 0, 0)},
	})
	require.NoError(t, err)
	a := actor.NewBody(1, at(0, 0, 0), compound, actor.BodyTypeDynamic, 1)
	b := actor.NewBody(2, at(1, 0.9, 0), cube(0.5), actor.BodyTypeDynamic, 1)
	d := newTestDispatcher(t, DefaultConfig(), a, b)

	manifolds := d.Step([]Pair{{1, 2}})
	require.Len(t, manifolds, 1)
	m := manifolds[0]
	assert.InDelta(t, 1, m.Normal.Y(), 1e-6)
	require.NotEmpty(t, m.Points)
	for _, p := range m.Points {
		assert.Equal(t, 1, p.ChildA)
		assert.Equal(t, contact.NoChild, p.ChildB)
		assert.InDelta(t, 0.1, p.Depth, 1e-6)
	}
}

func TestDispatcher_BoxOnScene(t *testing.T) {
	scene, err := actor.NewSceneFromTriangles(
		[]mgl64.Vec3{{-5, 0, -5}, {-5, 0, 5}, {5, 0, 5}, {5, 0, -5}},
		[][3]int{{0, 1, 2}, {0, 2, 3}},
	)
	require.NoError(t, err)
	box := actor.NewBody(1, at(0.2, 0.4, 0.3), cube(0.5), actor.BodyTypeDynamic, 1)
	ground := actor.NewBody(2, at(0, 0, 0), scene, actor.BodyTypeStatic, 0)

	cfg := DefaultConfig()
	cfg.Workers = 4
	d := newTestDispatcher(t, cfg, box, ground)

	manifolds := d.Step([]Pair{{1, 2}})
	require.Len(t, manifolds, 1)
	m := manifolds[0]
	assert.InDelta(t, -1, m.Normal.Y(), 1e-6)
	require.NotEmpty(t, m.Points)
	for _, p := range m.Points {
		assert.InDelta(t, 0.1, p.Depth, 1e-6)
		assert.Contains(t, []int{0, 1}, p.ChildB)
	}
}

func TestDispatcher_ContinuousTunnelling(t *testing.T) {
	bullet := actor.NewBody(1, at(-5, 0, 0), &actor.Sphere{Radius: 0.1}, actor.BodyTypeDynamic, 1)
	wall := actor.NewBody(2, at(0, 0, 0), cube(0.5), actor.BodyTypeStatic, 0)
	bullet.MoveTo(at(5, 0, 0))

	tests := []struct {
		name      string
		threshold float64
		hit       bool
	}{
		{"swept", 0.5, true},
		{"discrete only", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ContinuousThreshold = tt.threshold
			d := newTestDispatcher(t, cfg, bullet, wall)

			manifolds := d.Step([]Pair{{1, 2}})
			if !tt.hit {
				assert.Empty(t, manifolds)
				return
			}
			require.Len(t, manifolds, 1)
			m := manifolds[0]
			assert.InDelta(t, 0.44, m.TOI, 1e-3)
			assert.InDelta(t, 1, m.Normal.X(), 1e-6)
			require.Len(t, m.Points, 1)
			assert.LessOrEqual(t, m.Points[0].Depth, 0.0)
			assert.InDelta(t, -0.5, m.Points[0].Position.X()-m.Points[0].Normal.X()*m.Points[0].Depth, 1e-6)
		})
	}
}

func TestDispatcher_ParallelPairs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	d := newTestDispatcher(t, cfg)

	var pairs []Pair
	for i := range 16 {
		x := float64(i) * 10
		require.NoError(t, d.AddBody(actor.NewBody(uint64(2*i+1), at(x, 0, 0), cube(0.5), actor.BodyTypeStatic, 0)))
		require.NoError(t, d.AddBody(actor.NewBody(uint64(2*i+2), at(x, 0.8, 0), cube(0.5), actor.BodyTypeDynamic, 1)))
		pairs = append(pairs, Pair{uint64(2*i + 1), uint64(2*i + 2)})
	}

	manifolds := d.Step(pairs)
	require.Len(t, manifolds, 16)
	for _, m := range manifolds {
		assert.InDelta(t, 0.2, m.Points[0].Depth, 1e-6)
	}
	assert.Equal(t, int64(16), d.Calls())
}
