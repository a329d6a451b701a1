// Package permute implements PermutationEngine (spec §4.4): lazy enumeration
// of filtered fixed-length sequences over a transform pool, plus round-config
// enumeration and limited-repetition sequence+round-config pairs used by
// BTRR.
package permute

import (
	"iter"
	"slices"
)

// Filter narrows Generate's output: every emitted sequence contains every id
// in Required at least once, and no id in NoRepeat appears more than once.
// Ids in Pool but not in NoRepeat may repeat freely.
type Filter struct {
	Required []uint8
	NoRepeat []uint8
}

// Generate lazily yields every length-L sequence over pool (lexicographic by
// id, whatever the order of pool) satisfying filter. If
// len(filter.Required) > L it yields nothing.
func Generate(length int, pool []uint8, filter Filter) iter.Seq[[]uint8] {
	return func(yield func([]uint8) bool) {
		if length <= 0 || len(pool) == 0 {
			return
		}

		if len(filter.Required) > length {
			return
		}

		noRepeat := toSet(filter.NoRepeat)
		buf := make([]uint8, length)

		ordered := slices.Clone(pool)
		slices.Sort(ordered)

		var rec func(pos int, used map[uint8]bool) bool
		rec = func(pos int, used map[uint8]bool) bool {
			if pos == length {
				if !satisfiesRequired(buf, filter.Required) {
					return true
				}

				return yield(append([]uint8(nil), buf...))
			}

			for _, id := range ordered {
				if noRepeat[id] && used[id] {
					continue
				}

				buf[pos] = id

				if noRepeat[id] {
					used[id] = true
				}

				cont := rec(pos+1, used)

				if noRepeat[id] {
					delete(used, id)
				}

				if !cont {
					return false
				}
			}

			return true
		}

		rec(0, make(map[uint8]bool))
	}
}

func toSet(ids []uint8) map[uint8]bool {
	m := make(map[uint8]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}

func satisfiesRequired(seq []uint8, required []uint8) bool {
	if len(required) == 0 {
		return true
	}

	present := toSet(seq)

	for _, r := range required {
		if !present[r] {
			return false
		}
	}

	return true
}

// Count returns the exact number of sequences Generate(length, pool, filter)
// would emit, without materializing them.
func Count(length int, pool []uint8, filter Filter) uint64 {
	if length <= 0 || len(pool) == 0 {
		return 0
	}

	if len(filter.Required) > length {
		return 0
	}

	if len(filter.Required) == 0 {
		// Inclusion-exclusion isn't needed: every position may independently
		// pick any id, constrained only by no-repeat. With no required set
		// this reduces to counting arrangements directly.
		return countNoRequired(length, pool, toSet(filter.NoRepeat))
	}

	// Required set present: exact counting via inclusion-exclusion over
	// required ids is complex with NoRepeat interaction, and the pools used
	// in practice (MaxLen <= 5, small registries) make brute enumeration of
	// the count cheap and unambiguously correct.
	var n uint64

	for range Generate(length, pool, filter) {
		n++
	}

	return n
}

// countNoRequired counts length-L arrangements over pool where ids in
// noRepeat appear at most once and other ids repeat freely, by direct
// combinatorics: free ids contribute a factor of (#free)^remaining, and
// noRepeat ids are chosen as a subset+permutation for the remaining slots.
func countNoRequired(length int, pool []uint8, noRepeat map[uint8]bool) uint64 {
	freeCount := 0
	repeatCount := 0

	for _, id := range pool {
		if noRepeat[id] {
			repeatCount++
		} else {
			freeCount++
		}
	}

	if repeatCount == 0 {
		return ipow(uint64(freeCount), length)
	}

	// Sum over k = number of positions occupied by distinct no-repeat ids
	// (0 <= k <= min(length, repeatCount)): choose which k of the length
	// positions they occupy (C(length,k)), assign distinct no-repeat ids to
	// those positions in order (P(repeatCount,k) = repeatCount!/(repeatCount-k)!),
	// and fill the remaining length-k positions freely (freeCount^(length-k)).
	var total uint64

	maxK := repeatCount
	if length < maxK {
		maxK = length
	}

	for k := 0; k <= maxK; k++ {
		total += binomial(length, k) * permutations(repeatCount, k) * ipow(uint64(freeCount), length-k)
	}

	return total
}

func ipow(base uint64, exp int) uint64 {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		result *= base
	}

	return result
}

func binomial(n, k int) uint64 {
	if k < 0 || k > n {
		return 0
	}

	result := uint64(1)

	for i := 0; i < k; i++ {
		result = result * uint64(n-i) / uint64(i+1)
	}

	return result
}

func permutations(n, k int) uint64 {
	result := uint64(1)
	for i := 0; i < k; i++ {
		result *= uint64(n - i)
	}

	return result
}

// RoundConfigs lazily yields every tr assignment in [1..maxTR]^length.
func RoundConfigs(length int, maxTR uint8) iter.Seq[[]uint8] {
	return func(yield func([]uint8) bool) {
		if length <= 0 {
			return
		}

		buf := make([]uint8, length)

		var rec func(pos int) bool
		rec = func(pos int) bool {
			if pos == length {
				return yield(append([]uint8(nil), buf...))
			}

			for tr := uint8(1); tr <= maxTR; tr++ {
				buf[pos] = tr

				if !rec(pos + 1) {
					return false
				}
			}

			return true
		}

		rec(0)
	}
}

// SequencesAndRoundConfigs lazily yields (sequence, round_config) pairs for
// permutations of pool at length `length`, where each id may appear at most
// repetitionCap times, paired with every round-config of that length. Used
// by BTRR (spec §4.4, §4.8).
func SequencesAndRoundConfigs(pool []uint8, length int, repetitionCap int, maxTR uint8) iter.Seq2[[]uint8, []uint8] {
	return func(yield func([]uint8, []uint8) bool) {
		if length <= 0 || len(pool) == 0 {
			return
		}

		buf := make([]uint8, length)
		counts := make(map[uint8]int, len(pool))

		var rec func(pos int) bool
		rec = func(pos int) bool {
			if pos == length {
				for rc := range RoundConfigs(length, maxTR) {
					if !yield(append([]uint8(nil), buf...), rc) {
						return false
					}
				}

				return true
			}

			for _, id := range pool {
				if counts[id] >= repetitionCap {
					continue
				}

				buf[pos] = id
				counts[id]++

				cont := rec(pos + 1)

				counts[id]--

				if !cont {
					return false
				}
			}

			return true
		}

		rec(0)
	}
}

// TimeEstimateInput bundles what TimeEstimate needs from an InputProfile
// plan: the per-transform benchmark costs and the plan's global rounds.
type TimeEstimateInput struct {
	BenchmarkMS      func(id uint8) float64
	InputSizeFactor  float64
	GlobalRounds     uint32
}

// passMultiplier accounts for encrypt + decrypt + avalanche + key-dependency
// passes per spec §4.4.
const passMultiplier = 4

// TimeEstimate sums benchmark_ms * input_size_factor * gr * 4 across every
// sequence in a length-L, pool-P generation (spec §4.4).
func TimeEstimate(length int, pool []uint8, filter Filter, in TimeEstimateInput) float64 {
	var perSeqSum float64

	total := uint64(0)

	for seq := range Generate(length, pool, filter) {
		var sum float64

		for _, id := range seq {
			sum += in.BenchmarkMS(id)
		}

		perSeqSum += sum
		total++
	}

	if total == 0 {
		return 0
	}

	return perSeqSum * in.InputSizeFactor * float64(in.GlobalRounds) * passMultiplier
}
