package cipher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/transform"
)

func Test_RoundTrip_Recovers_Original_Input_For_Every_Registered_Transform(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()
	c := cipher.New(reg)
	input := []byte("the quick brown fox jumps over the lazy dog")

	for _, id := range reg.IterPermutable() {
		profile := model.InputProfile{
			Sequence:     model.Sequence{Items: []model.SeqItem{{ID: id, TR: 3}}},
			GlobalRounds: 2,
		}

		reversible, _ := c.RoundTrip(input, profile)
		assert.True(t, reversible, "transform id %d should round-trip", id)
	}
}

func Test_RoundTrip_Recovers_Original_Input_For_A_Mixed_Sequence(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()
	c := cipher.New(reg)
	input := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	profile := model.InputProfile{
		Sequence: model.Sequence{Items: []model.SeqItem{
			{ID: 10, TR: 2}, {ID: 20, TR: 1}, {ID: 30, TR: 4}, {ID: 13, TR: 1},
		}},
		GlobalRounds: 3,
	}

	reversible, payload := c.RoundTrip(input, profile)
	require.True(t, reversible)
	assert.NotEqual(t, input, payload)
}

func Test_Encrypt_Is_Deterministic(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()
	c := cipher.New(reg)
	input := []byte("deterministic")

	profile := model.InputProfile{
		Sequence:     model.Sequence{Items: []model.SeqItem{{ID: 20, TR: 5}}},
		GlobalRounds: 2,
	}

	a, ok := c.Encrypt(input, profile)
	require.True(t, ok)

	b, ok := c.Encrypt(input, profile)
	require.True(t, ok)

	assert.Equal(t, a, b)
}

func Test_FlipBit_Changes_Exactly_One_Bit(t *testing.T) {
	t.Parallel()

	data := []byte{0x00, 0x00}
	flipped := cipher.FlipBit(data, 1, 0)

	diff := cipher.DiffBuffer(data, flipped)

	ones := 0

	for _, b := range diff {
		for b != 0 {
			ones += int(b & 1)
			b >>= 1
		}
	}

	assert.Equal(t, 1, ones)
}
