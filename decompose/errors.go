package decompose

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// State is a stage of the decomposition.
type State int

const (
	Seeded State = iota
	EdgesRecovered
	FacesRecovered
	Classified
	Emitted
)

func (s State) String() string {
	switch s {
	case Seeded:
		return "seeded"
	case EdgesRecovered:
		return "edges-recovered"
	case FacesRecovered:
		return "faces-recovered"
	case Classified:
		return "classified"
	case Emitted:
		return "emitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// FeatureError reports the input feature a decomposition stage gave up on.
type FeatureError struct {
	// Stage is the state the decomposition failed to reach.
	Stage State
	// Kind is "edge", "face" or "region".
	Kind string
	// Vertices are the positions of the feature's input corners.
	Vertices []mgl64.Vec3
	Err      error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("decompose: %s: %s %v: %v", e.Stage, e.Kind, e.Vertices, e.Err)
}

func (e *FeatureError) Unwrap() error {
	return e.Err
}
