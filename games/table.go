// Package games resolves minigame plays against fixed weighted prize tables.
package games

import (
	"errors"
	"fmt"
)

// TotalWeight is the width of the draw range [0, TotalWeight).
const TotalWeight = 100.0

// Source is the randomness used by a play. *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Entry is one prize and its probability weight in percent.
type Entry struct {
	Prize  int64   `json:"prize"`
	Weight float64 `json:"weight"`
}

// Table is an ordered list of weighted prizes. Weights may sum to less than
// TotalWeight; draws past the last cumulative weight land in an implicit
// zero-prize bucket.
type Table struct {
	Entries []Entry `json:"entries"`
}

// Validate rejects negative weights and tables heavier than TotalWeight.
func (t Table) Validate() error {
	if len(t.Entries) == 0 {
		return errors.New("table has no entries")
	}
	var sum float64
	for i, e := range t.Entries {
		if e.Weight < 0 {
			return fmt.Errorf("entry %d has negative weight %v", i, e.Weight)
		}
		if e.Prize < 0 {
			return fmt.Errorf("entry %d has negative prize %d", i, e.Prize)
		}
		sum += e.Weight
	}
	if sum > TotalWeight {
		return fmt.Errorf("weights sum to %v, more than %v", sum, TotalWeight)
	}
	return nil
}

// Sum returns the total configured weight.
func (t Table) Sum() float64 {
	var sum float64
	for _, e := range t.Entries {
		sum += e.Weight
	}
	return sum
}

// Resolve maps a draw in [0, TotalWeight) to a prize: the first entry whose
// cumulative weight is >= draw wins.
func (t Table) Resolve(draw float64) int64 {
	var cumulative float64
	for _, e := range t.Entries {
		cumulative += e.Weight
		if cumulative >= draw {
			return e.Prize
		}
	}
	return 0
}

// Draw plays the table once.
func (t Table) Draw(src Source) int64 {
	return t.Resolve(src.Float64() * TotalWeight)
}
