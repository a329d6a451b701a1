package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/registry"
	"github.com/kestrelsec/munge/internal/transform"
)

func Test_Register_Panics_On_Duplicate_ID(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register(model.Transform{ID: 1, InverseID: 1}, transform.XOR{Key: 1})

	assert.Panics(t, func() {
		r.Register(model.Transform{ID: 1, InverseID: 1}, transform.XOR{Key: 2})
	})
}

func Test_IterPermutable_Excludes_Excluded_Ids_And_Is_Sorted(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register(model.Transform{ID: 20, InverseID: 20}, transform.ReverseBytes{})
	r.Register(model.Transform{ID: 5, InverseID: 5}, transform.ReverseBytes{})
	r.Register(model.Transform{ID: 9, InverseID: 9, Excluded: true}, transform.ReverseBytes{})

	assert.Equal(t, []uint8{5, 20}, r.IterPermutable())
}

func Test_NameToID_Reports_Ambiguous_When_Names_Collide(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register(model.Transform{ID: 1, Name: "dup", InverseID: 1}, transform.ReverseBytes{})
	r.Register(model.Transform{ID: 2, Name: "dup", InverseID: 2}, transform.ReverseBytes{})

	_, ok, ambiguous := r.NameToID("dup")
	assert.False(t, ok)
	assert.True(t, ambiguous)
}

func Test_ValidateInverses_Passes_For_The_Default_Registry(t *testing.T) {
	t.Parallel()

	require.NoError(t, transform.NewDefaultRegistry().ValidateInverses())
}

func Test_ValidateInverses_Fails_When_Inverse_Relation_Is_Broken(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register(model.Transform{ID: 1, InverseID: 2}, transform.ReverseBytes{})
	r.Register(model.Transform{ID: 2, InverseID: 3}, transform.ReverseBytes{})
	r.Register(model.Transform{ID: 3, InverseID: 3}, transform.ReverseBytes{})

	assert.Error(t, r.ValidateInverses())
}
