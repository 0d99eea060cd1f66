// Package weighted implements the weighted random draw shared by event
// selection and result resolution.
package weighted

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// Source is the slice of a PRNG the draw needs. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Option pairs a value with its selection weight.
type Option[T any] struct {
	Weight float64
	Value  T
}

// Total returns the sum of all selectable weights.
func Total[T any](opts []Option[T]) float64 {
	total := 0.0
	for _, o := range opts {
		if selectable(o.Weight) {
			total += o.Weight
		}
	}
	return total
}

// Pick draws one option with probability weight/Σweight. Options with a
// weight that is zero, negative, NaN or infinite are never drawn. It returns
// the chosen value, its index in opts and false when nothing can be drawn.
func Pick[T any](src Source, opts []Option[T]) (T, int, bool) {
	var zero T
	if src == nil || len(opts) == 0 {
		return zero, -1, false
	}

	total := Total(opts)
	if total <= 0 {
		return zero, -1, false
	}

	u := src.Float64() * total
	acc := 0.0
	last := -1
	for i, o := range opts {
		if !selectable(o.Weight) {
			continue
		}
		acc += o.Weight
		last = i
		if u < acc {
			return o.Value, i, true
		}
	}

	// Floating point accumulation can leave u fractionally above acc.
	return opts[last].Value, last, true
}

func selectable(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

// NewPCG returns a PCG generator derived from seed. The same seed always
// yields the same sequence.
func NewPCG(seed int64) *rand.PCG {
	// Non-cryptographic PRNG is intentional for deterministic simulation behavior.
	// #nosec G404
	return rand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b"))
}

// NewRand returns a seeded *rand.Rand over NewPCG.
func NewRand(seed int64) *rand.Rand {
	return rand.New(NewPCG(seed))
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}
