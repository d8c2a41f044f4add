package quill

import (
	"fmt"
	"os"

	"github.com/akmonengine/quill/actor"
	"github.com/akmonengine/quill/contact"
	"github.com/akmonengine/quill/decompose"
	"github.com/akmonengine/quill/hull"
	"github.com/jinzhu/copier"
	"github.com/pelletier/go-toml/v2"
)

const DefaultWorkers = 1

// Config drives shape construction and the narrow phase.
type Config struct {
	// Workers is the number of goroutines evaluating pairs.
	Workers int `toml:"workers"`

	// A cached manifold is reused while both bodies moved less than these
	// tolerances since it was built and every contact still re-projects
	// within CacheLinearTolerance.
	CacheLinearTolerance  float64 `toml:"cache_linear_tolerance"`
	CacheAngularTolerance float64 `toml:"cache_angular_tolerance"`

	MaxRawContacts int `toml:"max_raw_contacts"`
	MaxContacts    int `toml:"max_contacts"`

	// A body moving more than ContinuousThreshold times its bounding radius
	// in one step is swept.
	ContinuousThreshold float64 `toml:"continuous_threshold"`
	// TOITarget is the separation reported as touching by swept queries.
	TOITarget float64 `toml:"toi_target"`

	Hull      hull.Options      `toml:"hull"`
	Decompose decompose.Options `toml:"decompose"`

	Materials []actor.Material `toml:"materials"`
}

func DefaultConfig() Config {
	return Config{
		Workers:               DefaultWorkers,
		CacheLinearTolerance:  1e-3,
		CacheAngularTolerance: 1e-3,
		MaxRawContacts:        contact.MaxRawContacts,
		MaxContacts:           contact.MaxContacts,
		ContinuousThreshold:   0.5,
		TOITarget:             1e-3,
		Hull:                  hull.DefaultOptions(),
		Decompose:             decompose.DefaultOptions(),
		Materials:             []actor.Material{actor.DefaultMaterial},
	}
}

// ParseConfig reads a TOML document over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("quill: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	switch {
	case c.Workers < 1:
		return fmt.Errorf("quill: workers must be positive, got %d", c.Workers)
	case c.MaxContacts < 1:
		return fmt.Errorf("quill: max_contacts must be positive, got %d", c.MaxContacts)
	case c.MaxRawContacts < c.MaxContacts:
		return fmt.Errorf("quill: max_raw_contacts %d below max_contacts %d", c.MaxRawContacts, c.MaxContacts)
	case c.CacheLinearTolerance < 0 || c.CacheAngularTolerance < 0:
		return fmt.Errorf("quill: negative cache tolerance")
	}
	return nil
}

// Clone returns a deep copy of c. The decomposition logger is shared.
func (c Config) Clone() (Config, error) {
	var out Config
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		return Config{}, fmt.Errorf("quill: copy config: %w", err)
	}
	out.Decompose.Logger = c.Decompose.Logger
	return out, nil
}
