package service

import (
	"math/rand/v2"

	"github.com/openclaw/fleet-worker-go/internal/model"
)

// Candidate is an action kind that passed every gate for the current cycle.
type Candidate struct {
	Kind       model.ActionKind
	ResourceID string
}

func (c Candidate) Code() string {
	return c.Kind.Code
}

// Wheel draws one candidate by weighted random choice.
type Wheel struct {
	rng *rand.Rand
}

func NewWheel(rng *rand.Rand) *Wheel {
	return &Wheel{rng: rng}
}

// Select returns false when candidates is empty or the total weight is not positive.
// Given the same order and draw, the first candidate whose cumulative weight
// exceeds the draw wins.
func (w *Wheel) Select(candidates []Candidate) (Candidate, bool) {
	var total float64
	for _, c := range candidates {
		if c.Kind.Weight > 0 {
			total += c.Kind.Weight
		}
	}
	if total <= 0 {
		return Candidate{}, false
	}

	r := w.rng.Float64() * total
	var cumulative float64
	last := -1
	for i, c := range candidates {
		if c.Kind.Weight <= 0 {
			continue
		}
		cumulative += c.Kind.Weight
		last = i
		if cumulative > r {
			return c, true
		}
	}
	// Float rounding can leave r at the very top of the range.
	return candidates[last], true
}
