// Package catalog shares identical collision shapes by content signature
// and persists them as YAML records.
//
// Two shapes with the same signature are interchangeable, so a catalog
// keeps the first one it sees and hands it back for every later copy.
// Saving writes one record per signature; loading skips records already
// present and verifies that every rebuilt shape hashes to its recorded
// signature.
package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/akmonengine/quill/actor"
	"gopkg.in/yaml.v3"
)

// FormatVersion is written in every saved file.
const FormatVersion = 1

var (
	ErrUnsupportedShape  = errors.New("unsupported shape")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrMissingShape      = errors.New("missing shape")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

type Catalog struct {
	mu     sync.Mutex
	shapes map[actor.Signature]actor.Shape
	logger *slog.Logger
}

func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{shapes: make(map[actor.Signature]actor.Shape), logger: logger}
}

// Intern returns the catalogued shape with the signature of shape, adding
// shape when it is new. The boolean reports whether a copy already existed.
// Compound children are interned with their parent and replaced by the
// catalogued copy when one already exists.
func (c *Catalog) Intern(shape actor.Shape) (actor.Shape, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intern(shape)
}

func (c *Catalog) intern(shape actor.Shape) (actor.Shape, bool) {
	sig := shape.Signature()
	if existing, ok := c.shapes[sig]; ok {
		return existing, true
	}
	if compound, ok := shape.(*actor.Compound); ok {
		for i, child := range compound.Children {
			if shared, ok := c.intern(child.Shape); ok {
				compound.Children[i].Shape = shared.(actor.Convex)
			}
		}
	}
	c.shapes[sig] = shape
	return shape, false
}

func (c *Catalog) Get(sig actor.Signature) (actor.Shape, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	shape, ok := c.shapes[sig]
	return shape, ok
}

func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.shapes)
}

// Records returns one record per shape. Children come before the
// compounds using them, otherwise records are ordered by signature.
func (c *Catalog) Records() ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]Record, 0, len(c.shapes))
	for _, shape := range c.shapes {
		r, err := recordOf(shape)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b Record) int {
		ka, kb := a.Kind == kindCompound, b.Kind == kindCompound
		if ka != kb {
			if ka {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Signature.String(), b.Signature.String())
	})
	return records, nil
}

func (c *Catalog) Save(w io.Writer) error {
	records, err := c.Records()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Version: FormatVersion, Shapes: records}); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	return enc.Close()
}

// Load adds the shapes of a saved catalog and returns how many were new.
func (c *Catalog) Load(r io.Reader) (int, error) {
	var file File
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, fmt.Errorf("catalog: decode: %w", err)
	}
	if file.Version != FormatVersion {
		return 0, fmt.Errorf("catalog: format version %d, want %d: %w", file.Version, FormatVersion, ErrMalformedRecord)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	lookup := func(sig actor.Signature) (actor.Shape, bool) {
		shape, ok := c.shapes[sig]
		return shape, ok
	}
	added := 0
	for _, record := range file.Shapes {
		if _, ok := c.shapes[record.Signature]; ok {
			c.logger.Debug("catalog: duplicate record", "signature", record.Signature, "kind", record.Kind)
			continue
		}
		shape, err := record.build(lookup)
		if err != nil {
			return added, err
		}
		if got := shape.Signature(); got != record.Signature {
			return added, fmt.Errorf("catalog: %s record %s rebuilt as %s: %w", record.Kind, record.Signature, got, ErrSignatureMismatch)
		}
		c.shapes[record.Signature] = shape
		added++
	}
	return added, nil
}

func (c *Catalog) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *Catalog) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return c.Load(f)
}
