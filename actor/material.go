package actor

// Material holds the surface and bulk properties looked up by id when
// contacts are generated.
type Material struct {
	Name        string  `toml:"name" yaml:"name"`
	Density     float64 `toml:"density" yaml:"density"`
	Restitution float64 `toml:"restitution" yaml:"restitution"` // 0= no rebound, 1= perfect restitution

	StaticFriction  float64 `toml:"static_friction" yaml:"static_friction"`
	DynamicFriction float64 `toml:"dynamic_friction" yaml:"dynamic_friction"`
}

// DefaultMaterial is returned for unknown ids.
var DefaultMaterial = Material{
	Name:            "default",
	Density:         1000,
	Restitution:     0,
	StaticFriction:  0.6,
	DynamicFriction: 0.4,
}

// MaterialTable maps material ids to materials. It is read-only while
// contacts are generated.
type MaterialTable []Material

// Lookup returns the material with the given id, or DefaultMaterial.
func (t MaterialTable) Lookup(id int) Material {
	if id < 0 || id >= len(t) {
		return DefaultMaterial
	}
	return t[id]
}
