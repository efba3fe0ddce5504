package utils

import "math/rand/v2"

/*
Random is an explicit seeded generator. Builders that need pseudo-random
values take one by pointer instead of reaching for process-wide state, so a
test can Reset it between runs and get identical sequences.
*/
type Random struct {
	seed uint64
	rng  *rand.Rand
}

func NewRandom(seed uint64) (r *Random) {
	r = &Random{seed: seed}
	r.Reset()
	return
}

// Reset restarts the sequence from the seed.
func (r *Random) Reset() {
	r.rng = rand.New(rand.NewPCG(r.seed, r.seed^0x9e3779b97f4a7c15))
}

func (r *Random) Seed() uint64 { return r.seed }

// IntN returns a value in [0, n).
func (r *Random) IntN(n int) int {
	return r.rng.IntN(n)
}

// Skip advances the sequence by n draws of IntN(bound), letting each process
// of a distributed builder position itself at the start of its own range.
func (r *Random) Skip(n, bound int) {
	for i := 0; i < n; i++ {
		r.rng.IntN(bound)
	}
}
