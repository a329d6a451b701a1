package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelsec/munge/internal/model"
)

func Test_Sequence_EqualIDs_Ignores_TR_And_GR(t *testing.T) {
	t.Parallel()

	a := model.Sequence{Items: []model.SeqItem{{ID: 10, TR: 1}, {ID: 20, TR: 3}}, GR: 2}
	b := model.Sequence{Items: []model.SeqItem{{ID: 10, TR: 9}, {ID: 20, TR: 1}}, GR: 7}

	assert.True(t, model.EqualIDs(a, b))
}

func Test_Sequence_EqualIDs_False_On_Different_Ids_Or_Length(t *testing.T) {
	t.Parallel()

	base := model.Sequence{Items: []model.SeqItem{{ID: 10}, {ID: 20}}}

	diffID := model.Sequence{Items: []model.SeqItem{{ID: 10}, {ID: 21}}}
	assert.False(t, model.EqualIDs(base, diffID))

	shorter := model.Sequence{Items: []model.SeqItem{{ID: 10}}}
	assert.False(t, model.EqualIDs(base, shorter))
}

func Test_Sequence_Clone_Is_Independent(t *testing.T) {
	t.Parallel()

	orig := model.Sequence{Items: []model.SeqItem{{ID: 1, TR: 1}}, GR: 3}
	clone := orig.Clone()
	clone.Items[0].ID = 99

	assert.Equal(t, uint8(1), orig.Items[0].ID)
	assert.Equal(t, uint8(99), clone.Items[0].ID)
}

func Test_Contender_Less_Orders_By_Score_Then_PassCount_Then_Sequence(t *testing.T) {
	t.Parallel()

	higherScore := model.Contender{Sequence: []uint8{9}, AggregateScore: 0.9, PassCount: 1}
	lowerScore := model.Contender{Sequence: []uint8{1}, AggregateScore: 0.1, PassCount: 9}
	assert.True(t, higherScore.Less(lowerScore))

	samesScoreMorePasses := model.Contender{Sequence: []uint8{9}, AggregateScore: 0.5, PassCount: 5}
	samesScoreFewerPasses := model.Contender{Sequence: []uint8{1}, AggregateScore: 0.5, PassCount: 2}
	assert.True(t, samesScoreMorePasses.Less(samesScoreFewerPasses))

	tieExceptSequence := model.Contender{Sequence: []uint8{1, 2}, AggregateScore: 0.5, PassCount: 5}
	laterSequence := model.Contender{Sequence: []uint8{9, 9}, AggregateScore: 0.5, PassCount: 5}
	assert.True(t, tieExceptSequence.Less(laterSequence))
}

func Test_DataType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "S", model.DataTypeSequence.String())
	assert.Equal(t, "R", model.DataTypeRandom.String())
}
