package battle

import (
	"math/rand"
	"time"
)

// Roller rolls six-sided dice for strikes.
type Roller interface {
	Roll(n int) []int
}

// RandomRoller rolls with a math/rand source.
type RandomRoller struct {
	rng *rand.Rand
}

// NewRandomRoller returns a roller seeded with seed, or with the clock if seed is 0.
func NewRandomRoller(seed int64) *RandomRoller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomRoller{rng: rand.New(rand.NewSource(seed))}
}

// Roll returns n die results in 1..6.
func (r *RandomRoller) Roll(n int) []int {
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = 1 + r.rng.Intn(6)
	}
	return rolls
}

// FixedRoller replays a fixed sequence of results, wrapping around.
type FixedRoller struct {
	results []int
	next    int
}

// NewFixedRoller returns a roller that replays results in order.
func NewFixedRoller(results ...int) *FixedRoller {
	return &FixedRoller{results: results}
}

// Roll returns the next n results.
func (r *FixedRoller) Roll(n int) []int {
	rolls := make([]int, n)
	if len(r.results) == 0 {
		for i := range rolls {
			rolls[i] = 6
		}
		return rolls
	}
	for i := range rolls {
		rolls[i] = r.results[r.next%len(r.results)]
		r.next++
	}
	return rolls
}

func countHits(rolls []int, strikeNumber int) int {
	hits := 0
	for _, r := range rolls {
		if r >= strikeNumber {
			hits++
		}
	}
	return hits
}
