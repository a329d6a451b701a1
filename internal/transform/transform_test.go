package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelsec/munge/internal/transform"
)

func Test_XOR_Decode_Undoes_Encode(t *testing.T) {
	t.Parallel()

	x := transform.XOR{Key: 0x5A}
	data := []byte("payload")

	encoded := x.Encode(data, 3)
	assert.Equal(t, data, x.Decode(encoded, 3))
}

func Test_RotateLeft_And_RotateRight_Are_Inverses(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0xF0, 0x7E}

	left := transform.RotateLeft{Bits: 3}
	right := transform.RotateRight{Bits: 3}

	encoded := left.Encode(data, 5)
	assert.Equal(t, data, right.Decode(encoded, 5))
	assert.Equal(t, data, left.Decode(left.Encode(data, 5), 5))
}

func Test_ByteSwapPairs_Toggles_On_Odd_Rounds_And_Is_Identity_On_Even(t *testing.T) {
	t.Parallel()

	s := transform.ByteSwapPairs{}
	data := []byte{1, 2, 3, 4}

	assert.Equal(t, []byte{2, 1, 4, 3}, s.Encode(data, 1))
	assert.Equal(t, data, s.Encode(data, 2))
	assert.Equal(t, data, s.Decode(s.Encode(data, 1), 1))
}

func Test_AddConstant_And_SubConstant_Are_Inverses(t *testing.T) {
	t.Parallel()

	a := transform.AddConstant{Value: 0x11}
	data := []byte{0x00, 0xFF, 0x7F}

	encoded := a.Encode(data, 4)
	assert.Equal(t, data, a.Decode(encoded, 4))
}

func Test_ReverseBytes_Toggles_On_Odd_Rounds_And_Is_Identity_On_Even(t *testing.T) {
	t.Parallel()

	r := transform.ReverseBytes{}
	data := []byte{1, 2, 3}

	assert.Equal(t, []byte{3, 2, 1}, r.Encode(data, 1))
	assert.Equal(t, data, r.Encode(data, 2))
}
