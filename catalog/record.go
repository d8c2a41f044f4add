package catalog

import (
	"fmt"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/hull"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	kindBox      = "box"
	kindSphere   = "sphere"
	kindHull     = "hull"
	kindCompound = "compound"
	kindScene    = "scene"
)

// Vec is a vector in a record.
type Vec [3]float64

func vecOf(v mgl64.Vec3) Vec {
	return Vec{v[0], v[1], v[2]}
}

func (v Vec) vec3() mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// File is the on-disk layout of a catalog.
type File struct {
	Version int      `yaml:"version"`
	Shapes  []Record `yaml:"shapes"`
}

// Record is the persisted form of one shape. Only the fields of its kind
// are set.
type Record struct {
	Signature   actor.Signature `yaml:"signature"`
	Kind        string          `yaml:"kind"`
	HalfExtents *Vec            `yaml:"half_extents,omitempty,flow"`
	Radius      float64         `yaml:"radius,omitempty"`
	Vertices    []Vec           `yaml:"vertices,omitempty,flow"`
	Faces       [][]int         `yaml:"faces,omitempty,flow"`
	Triangles   [][3]int        `yaml:"triangles,omitempty,flow"`
	Children    []ChildRecord   `yaml:"children,omitempty"`
}

// ChildRecord places a catalogued convex shape inside a compound.
type ChildRecord struct {
	Shape    actor.Signature `yaml:"shape"`
	Position Vec             `yaml:"position,flow"`
	// Rotation is a quaternion, w first.
	Rotation [4]float64 `yaml:"rotation,flow"`
}

func vecsOf(vs []mgl64.Vec3) []Vec {
	out := make([]Vec, len(vs))
	for i, v := range vs {
		out[i] = vecOf(v)
	}
	return out
}

func vec3s(vs []Vec) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(vs))
	for i, v := range vs {
		out[i] = v.vec3()
	}
	return out
}

// recordOf describes shape as a record.
func recordOf(shape actor.Shape) (Record, error) {
	r := Record{Signature: shape.Signature()}
	switch s := shape.(type) {
	case *actor.Box:
		r.Kind = kindBox
		he := vecOf(s.HalfExtents)
		r.HalfExtents = &he
	case *actor.Sphere:
		r.Kind = kindSphere
		r.Radius = s.Radius
	case *actor.ConvexHull:
		r.Kind = kindHull
		r.Vertices = vecsOf(s.Hull.Vertices)
		r.Faces = s.Hull.Faces
	case *actor.Scene:
		r.Kind = kindScene
		r.Vertices = vecsOf(s.Vertices)
		r.Triangles = s.Triangles
	case *actor.Compound:
		r.Kind = kindCompound
		for _, child := range s.Children {
			q := child.Local.Rotation
			r.Children = append(r.Children, ChildRecord{
				Shape:    child.Shape.Signature(),
				Position: vecOf(child.Local.Position),
				Rotation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]},
			})
		}
	default:
		return Record{}, fmt.Errorf("catalog: %T: %w", shape, ErrUnsupportedShape)
	}
	return r, nil
}

// build rebuilds the shape of r. lookup resolves compound children.
func (r Record) build(lookup func(actor.Signature) (actor.Shape, bool)) (actor.Shape, error) {
	switch r.Kind {
	case kindBox:
		if r.HalfExtents == nil {
			return nil, fmt.Errorf("catalog: box %s without half extents: %w", r.Signature, ErrMalformedRecord)
		}
		return &actor.Box{HalfExtents: r.HalfExtents.vec3()}, nil
	case kindSphere:
		return &actor.Sphere{Radius: r.Radius}, nil
	case kindHull:
		h, err := hull.FromPolygons(vec3s(r.Vertices), r.Faces, hull.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("catalog: hull %s: %w", r.Signature, err)
		}
		return actor.NewConvexHull(h), nil
	case kindScene:
		s, err := actor.NewSceneFromTriangles(vec3s(r.Vertices), r.Triangles)
		if err != nil {
			return nil, fmt.Errorf("catalog: scene %s: %w", r.Signature, err)
		}
		return s, nil
	case kindCompound:
		children := make([]actor.Child, 0, len(r.Children))
		for _, c := range r.Children {
			shape, ok := lookup(c.Shape)
			if !ok {
				return nil, fmt.Errorf("catalog: compound %s: child %s: %w", r.Signature, c.Shape, ErrMissingShape)
			}
			convex, ok := shape.(actor.Convex)
			if !ok {
				return nil, fmt.Errorf("catalog: compound %s: child %s is %s: %w", r.Signature, c.Shape, shape.Kind(), ErrMalformedRecord)
			}
			q := mgl64.Quat{W: c.Rotation[0], V: mgl64.Vec3{c.Rotation[1], c.Rotation[2], c.Rotation[3]}}
			children = append(children, actor.Child{Shape: convex, Local: actor.Transform{Position: c.Position.vec3(), Rotation: q}})
		}
		return actor.NewCompound(children)
	}
	return nil, fmt.Errorf("catalog: kind %q: %w", r.Kind, ErrMalformedRecord)
}
