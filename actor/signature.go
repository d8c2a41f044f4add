package actor

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/crypto/blake2b"
)

// Signature is the BLAKE2b-256 digest of a shape's canonical geometry.
// Geometrically identical shapes share a signature.
type Signature [blake2b.Size256]byte

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// IsZero reports whether s was never computed.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// MarshalText encodes the signature as hex.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a hex signature.
func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSignature decodes a hex signature.
func ParseSignature(text string) (Signature, error) {
	var s Signature
	raw, err := hex.DecodeString(text)
	if err != nil {
		return s, fmt.Errorf("actor: signature %q: %w", text, err)
	}
	if len(raw) != len(s) {
		return s, fmt.Errorf("actor: signature %q has %d bytes, want %d", text, len(raw), len(s))
	}
	copy(s[:], raw)
	return s, nil
}

type signer struct {
	h   hash.Hash
	buf [8]byte
}

func newSigner(kind ShapeKind, variant string) *signer {
	// An unkeyed hash cannot fail.
	h, _ := blake2b.New256(nil)
	s := &signer{h: h}
	s.int(int(kind))
	s.int(len(variant))
	h.Write([]byte(variant))
	return s
}

func (s *signer) int(n int) {
	binary.LittleEndian.PutUint64(s.buf[:], uint64(n))
	s.h.Write(s.buf[:])
}

func (s *signer) float(fs ...float64) {
	for _, f := range fs {
		if f == 0 {
			f = 0 // fold -0
		}
		binary.LittleEndian.PutUint64(s.buf[:], math.Float64bits(f))
		s.h.Write(s.buf[:])
	}
}

func (s *signer) vec(vs ...mgl64.Vec3) {
	for _, v := range vs {
		s.float(v[0], v[1], v[2])
	}
}

func (s *signer) transform(t Transform) {
	s.vec(t.Position)
	s.float(t.Rotation.W)
	s.vec(t.Rotation.V)
}

func (s *signer) signature(sig Signature) {
	s.h.Write(sig[:])
}

func (s *signer) sum() Signature {
	var out Signature
	copy(out[:], s.h.Sum(nil))
	return out
}
