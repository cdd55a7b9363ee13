// Seeded pseudo-random source shared by the engine and the reducer
package rng

import (
	"hash/fnv"
	"math/rand"
)

// Source is the draw surface the engine and reducer depend on.
type Source interface {
	Float64() float64
	Intn(n int) int
	Bool(p float64) bool
	Pick(n int) int
	Read(p []byte) (int, error)
}

// countingSource counts the 63-bit values handed to rand.Rand so a sequence
// can be resumed by position.
type countingSource struct {
	src   rand.Source
	draws uint64
}

func (c *countingSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *countingSource) Seed(seed int64) {
	c.src.Seed(seed)
	c.draws = 0
}

// Rand produces reproducible draws from a string seed.
type Rand struct {
	seed string
	src  *countingSource
	r    *rand.Rand
}

// New returns a generator whose sequence is fully determined by seed.
func New(seed string) *Rand {
	h := fnv.New64a()
	h.Write([]byte(seed))
	src := &countingSource{src: rand.NewSource(int64(h.Sum64()))}
	return &Rand{seed: seed, src: src, r: rand.New(src)}
}

// Resume returns a generator for seed positioned after draws source values,
// continuing the sequence of a generator that reported Draws() == draws.
func Resume(seed string, draws uint64) *Rand {
	g := New(seed)
	for g.src.draws < draws {
		g.src.Int63()
	}
	return g
}

// Seed returns the seed string the generator was built from.
func (g *Rand) Seed() string { return g.seed }

// Draws returns the number of source values consumed so far.
func (g *Rand) Draws() uint64 { return g.src.draws }

// Float64 returns a uniform draw in [0,1).
func (g *Rand) Float64() float64 { return g.r.Float64() }

// Intn returns a uniform int in [0,n). It returns 0 when n <= 0.
func (g *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.Intn(n)
}

// Bool returns true with probability p.
func (g *Rand) Bool(p float64) bool {
	return g.r.Float64() < p
}

// Pick returns a uniform index into a collection of size n, or -1 when n == 0.
func (g *Rand) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return g.r.Intn(n)
}

// Read fills p with pseudo-random bytes so the generator can back
// uuid.NewRandomFromReader. Each call starts on a fresh source value, so no
// bytes carry over between calls.
func (g *Rand) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 7 {
		v := g.r.Int63()
		for j := 0; j < 7 && i+j < len(p); j++ {
			p[i+j] = byte(v)
			v >>= 8
		}
	}
	return len(p), nil
}
