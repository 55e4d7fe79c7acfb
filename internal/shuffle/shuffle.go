// Package shuffle produces per-attempt deterministic orderings.
//
// A seed is a pure function of the attempt id and a scope label, so resuming an
// attempt reproduces its order while separate attempts get unrelated ones.
package shuffle

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
)

// Seed derives a 128-bit PCG seed from an attempt id and a scope such as
// "section:s1" or "options:42".
func Seed(attemptID, scope string) (uint64, uint64) {
	h := fnv.New128a()
	_, _ = h.Write([]byte(attemptID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(scope))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:])
}

// Permutation returns the shuffled positions 0..n-1 for the given seed.
func Permutation(n int, hi, lo uint64) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	r := rand.New(rand.NewPCG(hi, lo))
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// Apply returns a shuffled copy of items; items itself is untouched.
func Apply[T any](items []T, attemptID, scope string) []T {
	hi, lo := Seed(attemptID, scope)
	out := make([]T, len(items))
	for i, p := range Permutation(len(items), hi, lo) {
		out[i] = items[p]
	}
	return out
}

func SectionScope(sectionID string) string { return "section:" + sectionID }

func OptionsScope(questionID int64) string { return "options:" + strconv.FormatInt(questionID, 10) }
