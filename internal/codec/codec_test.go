package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/codec"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/registry"
	"github.com/kestrelsec/munge/internal/transform"
)

func Test_Parse_Then_Format_Round_Trips_Canonical_Form(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()

	seq, err := codec.Parse("xor-a(ID:10)(TR:3) -> rotl3(ID:20)(TR:2) | (GR:5)", reg, codec.InferFlags{})
	require.NoError(t, err)

	assert.Equal(t, []uint8{10, 20}, seq.IDs())
	assert.Equal(t, uint8(3), seq.Items[0].TR)
	assert.Equal(t, uint8(2), seq.Items[1].TR)
	assert.Equal(t, uint8(5), seq.GR)

	rendered := codec.Format(seq, reg, codec.All)
	reparsed, err := codec.Parse(rendered, reg, codec.InferFlags{})
	require.NoError(t, err)

	assert.Equal(t, seq, reparsed)
}

func Test_Parse_Resolves_Bare_Name_Via_Resolver(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()

	seq, err := codec.Parse("xor-a", reg, codec.InferFlags{})
	require.NoError(t, err)

	require.Len(t, seq.Items, 1)
	assert.Equal(t, uint8(10), seq.Items[0].ID)
	assert.Equal(t, uint8(1), seq.Items[0].TR) // default TR
}

func Test_Parse_Rejects_Unknown_Attribute(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()

	_, err := codec.Parse("xor-a(ID:10)(ZZ:1)", reg, codec.InferFlags{})
	require.Error(t, err)
}

func Test_Parse_Rejects_Unresolved_Name_Without_Resolver(t *testing.T) {
	t.Parallel()

	_, err := codec.Parse("mystery-transform", nil, codec.InferFlags{})
	require.Error(t, err)
}

func Test_Format_Bare_Emits_Only_Names(t *testing.T) {
	t.Parallel()

	reg := transform.NewDefaultRegistry()

	seq := model.Sequence{Items: []model.SeqItem{{ID: 10, TR: 1}, {ID: 12, TR: 1}}, GR: 1}

	assert.Equal(t, "xor-a -> swap-pairs", codec.Format(seq, reg, codec.Bare))
}

func Test_Format_Falls_Back_To_TId_Without_Resolver(t *testing.T) {
	t.Parallel()

	seq := model.Sequence{Items: []model.SeqItem{{ID: 42, TR: 1}}}

	assert.Equal(t, "T42", codec.Format(seq, nil, codec.Bare))
}

var _ codec.NameResolver = (*registry.Registry)(nil)
