package quill

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/gjk"
)

// Pair names two bodies whose bounds overlap, as reported by a broad phase.
type Pair struct {
	A, B uint64
}

// cacheEntry is the contact cache of one pair. It is created and deleted
// on the goroutine calling Step and only touched by the worker evaluating
// the pair in between.
type cacheEntry struct {
	key      pairKey
	bodyA    *actor.Body
	bodyB    *actor.Body
	poseA    actor.Transform
	poseB    actor.Transform
	manifold contact.Manifold
	valid    bool
	// swept manifolds hold contacts at a time of impact and are only
	// reported for the step that found them.
	swept bool
	err   error
}

// Dispatcher is the narrow phase. It owns the bodies, the per-pair contact
// caches and the contact events.
type Dispatcher struct {
	cfg       Config
	materials actor.MaterialTable
	logger    *slog.Logger

	bodies map[uint64]*actor.Body
	cache  map[pairKey]*cacheEntry
	Events Events

	calls atomic.Int64
}

// NewDispatcher snapshots cfg, including its material table.
func NewDispatcher(cfg Config, logger *slog.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	snapshot, err := cfg.Clone()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		cfg:       snapshot,
		materials: actor.MaterialTable(snapshot.Materials),
		logger:    logger,
		bodies:    make(map[uint64]*actor.Body),
		cache:     make(map[pairKey]*cacheEntry),
		Events:    NewEvents(),
	}, nil
}

func (d *Dispatcher) Config() Config {
	return d.cfg
}

// AddBody registers a body. Ids must be unique.
func (d *Dispatcher) AddBody(body *actor.Body) error {
	if _, ok := d.bodies[body.ID]; ok {
		return fmt.Errorf("quill: body %d already added", body.ID)
	}
	d.bodies[body.ID] = body
	return nil
}

func (d *Dispatcher) Body(id uint64) (*actor.Body, bool) {
	b, ok := d.bodies[id]
	return b, ok
}

// RemoveBody removes a body along with the contact caches and pending
// events of its pairs.
func (d *Dispatcher) RemoveBody(id uint64) {
	delete(d.bodies, id)
	for key := range d.cache {
		if key.bodyA == id || key.bodyB == id {
			delete(d.cache, key)
		}
	}
	d.Events.forget(id)
}

// Calls returns how many convex pair evaluations ran since the dispatcher
// was built. Reused caches do not count.
func (d *Dispatcher) Calls() int64 {
	return d.calls.Load()
}

// CacheLen returns the number of pairs holding a contact cache.
func (d *Dispatcher) CacheLen() int {
	return len(d.cache)
}

// Step evaluates pairs and returns the manifolds of the touching ones,
// triggers excluded. Pairs missing from pairs lose their cache. Failures
// are logged and the pair reports no contact for this step.
func (d *Dispatcher) Step(pairs []Pair) []*contact.Manifold {
	jobs := make([]*cacheEntry, 0, len(pairs))
	seen := make(map[pairKey]bool, len(pairs))
	for _, p := range pairs {
		key := makePairKey(p.A, p.B)
		if p.A == p.B || seen[key] {
			continue
		}
		seen[key] = true

		bodyA, okA := d.bodies[key.bodyA]
		bodyB, okB := d.bodies[key.bodyB]
		if !okA || !okB {
			d.logger.Warn("narrow phase: unknown body", "bodyA", p.A, "bodyB", p.B)
			continue
		}
		entry, ok := d.cache[key]
		if !ok {
			entry = &cacheEntry{key: key}
			d.cache[key] = entry
		}
		entry.bodyA, entry.bodyB = bodyA, bodyB
		jobs = append(jobs, entry)
	}

	task(d.cfg.Workers, jobs, d.evaluate)

	var out []*contact.Manifold
	for key := range d.cache {
		if !seen[key] {
			delete(d.cache, key)
		}
	}
	for _, entry := range jobs {
		if entry.err != nil {
			d.logger.Warn("narrow phase failed",
				slog.Uint64("bodyA", entry.key.bodyA),
				slog.Uint64("bodyB", entry.key.bodyB),
				slog.Any("error", entry.err))
		}
		if !entry.valid || len(entry.manifold.Points) == 0 {
			delete(d.cache, entry.key)
			continue
		}
		trigger := entry.bodyA.IsTrigger || entry.bodyB.IsTrigger
		d.Events.record(entry.key, trigger)
		if !trigger {
			m := entry.manifold
			m.Points = slices.Clone(m.Points)
			out = append(out, &m)
		}
	}
	d.Events.flush()
	return out
}

// evaluate refreshes the cache of one pair. It runs on a worker.
func (d *Dispatcher) evaluate(entry *cacheEntry) {
	entry.err = nil
	a, b := entry.bodyA, entry.bodyB

	if d.needsSweep(a) || d.needsSweep(b) {
		toi, points, err := d.sweep(a, b)
		if err != nil {
			d.fail(entry, err)
			return
		}
		if toi < 1 {
			d.store(entry, points, toi, false)
			return
		}
	}

	if entry.valid && !entry.swept && d.reusable(entry) {
		return
	}

	g := &generator{limit: d.cfg.MaxRawContacts, calls: func() { d.calls.Add(1) }}
	if err := g.collide(a.Shape, a.Transform, b.Shape, b.Transform); err != nil {
		d.fail(entry, err)
		return
	}
	d.store(entry, g.points, 1, true)
}

func (d *Dispatcher) fail(entry *cacheEntry, err error) {
	entry.err = err
	entry.valid = false
	entry.swept = false
	entry.manifold = contact.Manifold{}
}

// store prunes points into the manifold of entry, anchored on the current
// body poses.
func (d *Dispatcher) store(entry *cacheEntry, points []contact.Point, toi float64, cacheable bool) {
	a, b := entry.bodyA, entry.bodyB
	points, _ = contact.Prune(points, d.cfg.MaxContacts)
	for i := range points {
		points[i].Anchor(a.Transform, b.Transform)
	}

	m := contact.Manifold{
		BodyA:    a.ID,
		BodyB:    b.ID,
		Points:   points,
		Material: contact.Mix(d.materials.Lookup(a.Material), d.materials.Lookup(b.Material)),
		TOI:      toi,
	}
	if deepest, ok := m.Deepest(); ok {
		m.Normal = deepest.Normal
	}
	entry.manifold = m
	entry.poseA, entry.poseB = a.Transform, b.Transform
	entry.valid = len(points) > 0
	entry.swept = !cacheable
}

// reusable reports whether the cached manifold still describes the pair:
// both bodies barely moved and every contact re-projects onto both bodies.
func (d *Dispatcher) reusable(entry *cacheEntry) bool {
	for _, moved := range [2][2]actor.Transform{{entry.poseA, entry.bodyA.Transform}, {entry.poseB, entry.bodyB.Transform}} {
		linear, angular := moved[0].Delta(moved[1])
		if linear > d.cfg.CacheLinearTolerance || angular > d.cfg.CacheAngularTolerance {
			return false
		}
	}
	for _, p := range entry.manifold.Points {
		if p.Drift(entry.bodyA.Transform, entry.bodyB.Transform) > d.cfg.CacheLinearTolerance {
			return false
		}
	}
	return true
}

func (d *Dispatcher) needsSweep(b *actor.Body) bool {
	if d.cfg.ContinuousThreshold <= 0 || b.BodyType == actor.BodyTypeStatic {
		return false
	}
	return b.Displacement() > d.cfg.ContinuousThreshold*b.Shape.BoundingRadius()
}

// sweep runs the continuous query over the step of both bodies.
func (d *Dispatcher) sweep(a, b *actor.Body) (float64, []contact.Point, error) {
	return sweepShapes(
		a.Shape, gjk.Sweep{Start: a.PreviousTransform, End: a.Transform},
		b.Shape, gjk.Sweep{Start: b.PreviousTransform, End: b.Transform},
		d.cfg,
		func() { d.calls.Add(1) },
	)
}
