package failstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/failstore"
)

func Test_RecordBad_Then_IsBad_Reports_True_For_The_Same_Key(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &failstore.Store{}

	require.NoError(t, store.Open(ctx, filepath.Join(t.TempDir(), "fail.sqlite"), true))
	defer func() { _ = store.Close() }()

	key := failstore.Key{Mode: "balanced", Methodology: "standard", Length: 3}.Encode()

	bad, err := store.IsBad([]uint8{10, 11, 12}, key)
	require.NoError(t, err)
	assert.False(t, bad)

	require.NoError(t, store.RecordBad(ctx, []uint8{10, 11, 12}, key, failstore.KindMunge))

	bad, err = store.IsBad([]uint8{10, 11, 12}, key)
	require.NoError(t, err)
	assert.True(t, bad)
}

func Test_IsBad_Is_False_For_A_Different_Key_On_The_Same_Sequence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &failstore.Store{}

	require.NoError(t, store.Open(ctx, filepath.Join(t.TempDir(), "fail.sqlite"), true))
	defer func() { _ = store.Close() }()

	keyA := failstore.Key{Mode: "balanced", Length: 3}.Encode()
	keyB := failstore.Key{Mode: "avalanche_heavy", Length: 3}.Encode()

	require.NoError(t, store.RecordBad(ctx, []uint8{10}, keyA, failstore.KindMunge))

	bad, err := store.IsBad([]uint8{10}, keyB)
	require.NoError(t, err)
	assert.False(t, bad)
}

func Test_Open_Hydrates_The_Index_From_An_Existing_Database(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fail.sqlite")

	first := &failstore.Store{}
	require.NoError(t, first.Open(ctx, path, true))

	key := failstore.Key{Mode: "balanced", Length: 2}.Encode()
	require.NoError(t, first.RecordBad(ctx, []uint8{20, 21}, key, failstore.KindBTR))
	require.NoError(t, first.Close())

	second := &failstore.Store{}
	require.NoError(t, second.Open(ctx, path, true))
	defer func() { _ = second.Close() }()

	bad, err := second.IsBad([]uint8{20, 21}, key)
	require.NoError(t, err)
	assert.True(t, bad)
}

func Test_RecordBad_Without_CreateIfMissing_Only_Updates_The_Index(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fail.sqlite")

	store := &failstore.Store{}
	require.NoError(t, store.Open(ctx, path, false))
	defer func() { _ = store.Close() }()

	key := failstore.Key{Mode: "balanced", Length: 1}.Encode()
	require.NoError(t, store.RecordBad(ctx, []uint8{1}, key, failstore.KindMunge))

	bad, err := store.IsBad([]uint8{1}, key)
	require.NoError(t, err)
	assert.True(t, bad)

	reopened := &failstore.Store{}
	require.NoError(t, reopened.Open(ctx, path, false))
	defer func() { _ = reopened.Close() }()

	assert.Equal(t, 0, reopened.Count(key))
}
