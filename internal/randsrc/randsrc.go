// Package randsrc provides the run-wide random source. A single ChaCha8
// generator behind a mutex mints seeds; every worker then draws from its own
// generator without further synchronization.
package randsrc

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// SeedSize is the size of a ChaCha8 seed in bytes.
const SeedSize = 32

// Source is safe for concurrent use.
type Source struct {
	mu   sync.Mutex
	rng  *rand.ChaCha8
	seed [SeedSize]byte
}

// New creates a source from a fixed seed.
func New(seed [SeedSize]byte) *Source {
	return &Source{rng: rand.NewChaCha8(seed), seed: seed}
}

// Parse creates a source from a hex seed of at most 64 digits (shorter seeds
// are left-padded with zeros). An empty string draws a seed from the
// operating system.
func Parse(s string) (*Source, error) {
	var seed [SeedSize]byte
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		if _, err := crand.Read(seed[:]); err != nil {
			return nil, fmt.Errorf("read random seed: %w", err)
		}
		return New(seed), nil
	}
	if len(s) > 2*SeedSize {
		return nil, fmt.Errorf("seed %q longer than %d hex digits", s, 2*SeedSize)
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	copy(seed[SeedSize-len(raw):], raw)
	return New(seed), nil
}

// Seed returns the hex encoded seed the source was created with.
func (s *Source) Seed() string {
	return hex.EncodeToString(s.seed[:])
}

// Mint returns a new independent generator. The mutex only guards drawing
// the child seed.
func (s *Source) Mint() *rand.Rand {
	var child [SeedSize]byte
	s.mu.Lock()
	_, _ = s.rng.Read(child[:])
	s.mu.Unlock()
	return rand.New(rand.NewChaCha8(child))
}
