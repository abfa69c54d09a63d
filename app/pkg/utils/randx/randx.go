package randx

import (
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Range is an inclusive [Min, Max] interval.
type Range[T constraints.Integer] struct {
	Min T
	Max T
}

func (r Range[T]) Valid() bool {
	return r.Min <= r.Max
}

// Between samples uniformly from the inclusive interval [min, max].
// When max < min the two bounds are swapped.
func Between[T constraints.Integer](randGen *rand.Rand, min, max T) T {
	if max < min {
		min, max = max, min
	}
	span := int64(max) - int64(min) + 1
	return min + T(randGen.Int63n(span))
}

func (r Range[T]) Sample(randGen *rand.Rand) T {
	return Between(randGen, r.Min, r.Max)
}

// Duration samples a duration uniformly from [r.Min, r.Max].
func Duration(randGen *rand.Rand, r Range[time.Duration]) time.Duration {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Sample(randGen)
}

// Weighted picks one of the choices with probability proportional to its weight.
// It panics if the lengths differ or no weight is positive.
func Weighted[T any](randGen *rand.Rand, choices []T, weights []int) T {
	if len(choices) != len(weights) {
		panic("randx: choices and weights length mismatch")
	}

	total := 0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		panic("randx: no positive weight")
	}

	pick := randGen.Intn(total)
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		if pick < w {
			return choices[i]
		}
		pick -= w
	}

	// unreachable, pick < total
	return choices[len(choices)-1]
}

// New returns a generator seeded from the current time.
func New() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
