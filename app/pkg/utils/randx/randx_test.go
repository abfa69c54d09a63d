package randx

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBetweenStaysInBounds(t *testing.T) {
	t.Parallel()

	randGen := rand.New(rand.NewSource(1))
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := Between(randGen, 5, 20)
		assert.GreaterOrEqual(t, v, 5)
		assert.LessOrEqual(t, v, 20)
		seen[v] = true
	}
	assert.Len(t, seen, 16, "every value of the interval should be reachable")

	assert.Equal(t, 7, Between(randGen, 7, 7))
	v := Between(randGen, 9, 3)
	assert.True(t, v >= 3 && v <= 9)
}

func TestDurationRange(t *testing.T) {
	t.Parallel()

	randGen := rand.New(rand.NewSource(2))
	r := Range[time.Duration]{Min: 3500 * time.Second, Max: 3600 * time.Second}
	for i := 0; i < 500; i++ {
		d := Duration(randGen, r)
		assert.GreaterOrEqual(t, d, r.Min)
		assert.LessOrEqual(t, d, r.Max)
	}
	assert.Equal(t, time.Second, Duration(randGen, Range[time.Duration]{Min: time.Second, Max: time.Second}))
}

func TestWeightedConvergesToSplit(t *testing.T) {
	t.Parallel()

	randGen := rand.New(rand.NewSource(42))
	const trials = 20000
	hits := 0
	for i := 0; i < trials; i++ {
		if Weighted(randGen, []string{"default", "fallback"}, []int{40, 60}) == "default" {
			hits++
		}
	}
	assert.InDelta(t, 0.40, float64(hits)/trials, 0.02)
}

func TestWeightedSkipsZeroWeights(t *testing.T) {
	t.Parallel()

	randGen := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		assert.Equal(t, "b", Weighted(randGen, []string{"a", "b"}, []int{0, 1}))
	}
	assert.Panics(t, func() { Weighted(randGen, []string{"a"}, []int{0}) })
	assert.Panics(t, func() { Weighted(randGen, []string{"a"}, []int{1, 2}) })
}
