package permute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelsec/munge/internal/permute"
)

func Test_Generate_Emits_Every_Arrangement_With_Repetition(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11}

	var got [][]uint8
	for seq := range permute.Generate(2, pool, permute.Filter{}) {
		got = append(got, seq)
	}

	assert.ElementsMatch(t, [][]uint8{{10, 10}, {10, 11}, {11, 10}, {11, 11}}, got)
}

func Test_Generate_Respects_NoRepeat(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11}
	filter := permute.Filter{NoRepeat: []uint8{10}}

	for seq := range permute.Generate(2, pool, filter) {
		count := 0
		for _, id := range seq {
			if id == 10 {
				count++
			}
		}

		assert.LessOrEqual(t, count, 1, "id 10 must not repeat in %v", seq)
	}
}

func Test_Generate_Respects_Required(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11, 12}
	filter := permute.Filter{Required: []uint8{12}}

	for seq := range permute.Generate(3, pool, filter) {
		found := false

		for _, id := range seq {
			if id == 12 {
				found = true
			}
		}

		assert.True(t, found, "sequence %v must contain required id 12", seq)
	}
}

func Test_Generate_Yields_Nothing_When_Required_Exceeds_Length(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11}
	filter := permute.Filter{Required: []uint8{10, 11}}

	var count int
	for range permute.Generate(1, pool, filter) {
		count++
	}

	assert.Zero(t, count)
}

func Test_Count_Matches_Generate_Without_Required(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11, 12}
	filter := permute.Filter{NoRepeat: []uint8{10}}

	var counted uint64
	for range permute.Generate(3, pool, filter) {
		counted++
	}

	assert.Equal(t, counted, permute.Count(3, pool, filter))
}

func Test_Count_Without_NoRepeat_Is_PoolSize_Pow_Length(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11, 12}

	assert.Equal(t, uint64(27), permute.Count(3, pool, permute.Filter{}))
}

func Test_RoundConfigs_Emits_Every_TR_Assignment(t *testing.T) {
	t.Parallel()

	var got [][]uint8
	for rc := range permute.RoundConfigs(2, 2) {
		got = append(got, rc)
	}

	assert.ElementsMatch(t, [][]uint8{{1, 1}, {1, 2}, {2, 1}, {2, 2}}, got)
}

func Test_SequencesAndRoundConfigs_Respects_RepetitionCap(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11}

	for seq, rc := range permute.SequencesAndRoundConfigs(pool, 2, 1, 1) {
		assert.NotEqual(t, seq[0], seq[1], "repetition cap of 1 forbids repeats")
		assert.Len(t, rc, 2)
	}
}

func Test_TimeEstimate_Scales_With_GlobalRounds(t *testing.T) {
	t.Parallel()

	pool := []uint8{10, 11}
	bench := func(id uint8) float64 { return 1.0 }

	low := permute.TimeEstimate(2, pool, permute.Filter{}, permute.TimeEstimateInput{
		BenchmarkMS: bench, InputSizeFactor: 1, GlobalRounds: 1,
	})
	high := permute.TimeEstimate(2, pool, permute.Filter{}, permute.TimeEstimateInput{
		BenchmarkMS: bench, InputSizeFactor: 1, GlobalRounds: 2,
	})

	assert.Equal(t, low*2, high)
}
