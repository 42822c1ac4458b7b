// Package sampler draws random example subsets from an example table.
package sampler

import (
	"errors"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

// ErrEmptyTable is returned when examples are requested from a table with
// no eligible pairs.
var ErrEmptyTable = errors.New("example table has no eligible pairs")

// NewRand returns a PCG-backed source. A zero seed is replaced by the
// current time.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Eligible returns the indices of pairs whose trimmed input and response are
// both non-empty.
func Eligible(table []transcript.Pair) []int {
	idx := make([]int, 0, len(table))
	for i, p := range table {
		if p.Eligible() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Sample picks min(n, eligible) distinct eligible pairs uniformly at random
// and returns them in table order. The table is not modified.
func Sample(r *rand.Rand, table []transcript.Pair, n int) ([]transcript.Pair, error) {
	if n <= 0 {
		return nil, nil
	}
	eligible := Eligible(table)
	if len(eligible) == 0 {
		return nil, ErrEmptyTable
	}
	if n > len(eligible) {
		n = len(eligible)
	}

	// Partial Fisher-Yates over the eligible indices.
	for i := 0; i < n; i++ {
		j := i + r.IntN(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}
	picked := eligible[:n]
	sort.Ints(picked)

	out := make([]transcript.Pair, 0, n)
	for _, i := range picked {
		out = append(out, table[i])
	}
	return out, nil
}
