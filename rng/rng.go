// Package rng implements the seedable random source shared by all pattern
// stages: xoshiro256** with SplitMix64 seeding. The generator is a plain
// value, so cloning a pattern instance or branching for a single cycle step
// is a struct copy.
package rng

import "math/bits"

type Rand struct {
	seed  uint64
	state [4]uint64
}

func New(seed uint64) Rand {
	r := Rand{seed: seed}
	sm := seed
	for i := range r.state {
		sm, r.state[i] = splitmix64(sm)
	}
	return r
}

// Seed returns the seed the generator was created with.
func (r *Rand) Seed() uint64 { return r.seed }

// Reseed rewinds the generator to its initial seeded state.
func (r *Rand) Reseed() {
	*r = New(r.seed)
}

func (r *Rand) Uint64() uint64 {
	s := &r.state
	result := rotl(s[1]*5, 7) * 9
	t := s[1] << 17
	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]
	s[2] ^= t
	s[3] = rotl(s[3], 45)
	return result
}

// Float64 returns a uniform value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// IntN returns a uniform value in [0, n). n must be > 0.
func (r *Rand) IntN(n int) int {
	if n <= 0 {
		panic("rng: IntN with non-positive n")
	}
	// Lemire multiply-shift with rejection; exactly uniform.
	bound := uint64(n)
	threshold := -bound % bound
	for {
		hi, lo := bits.Mul64(r.Uint64(), bound)
		if lo >= threshold {
			return int(hi)
		}
	}
}

// ForStep derives an independent generator for one (cycle run, node, step)
// coordinate. Choice and degrade draws use this so the same coordinate in two
// runs with the same seed yields the same value, regardless of how many other
// draws happened in between.
func (r *Rand) ForStep(run, node, step uint64) Rand {
	h := r.seed
	_, h1 := splitmix64(h ^ run*0x9e3779b97f4a7c15)
	_, h2 := splitmix64(h1 ^ node*0xbf58476d1ce4e5b9)
	_, h3 := splitmix64(h2 ^ step*0x94d049bb133111eb)
	return New(h3)
}

func splitmix64(x uint64) (next, out uint64) {
	x += 0x9e3779b97f4a7c15
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return x, z ^ (z >> 31)
}

func rotl(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}
