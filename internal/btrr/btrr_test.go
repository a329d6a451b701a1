package btrr_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/btrr"
	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/config"
	"github.com/kestrelsec/munge/internal/envpool"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/failstore"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/report"
	"github.com/kestrelsec/munge/internal/transform"
)

func newTestCore(t *testing.T) *btrr.Core {
	t.Helper()

	reg := transform.NewDefaultRegistry()

	fail := &failstore.Store{}
	require.NoError(t, fail.Open(context.Background(), filepath.Join(t.TempDir(), "fail.sqlite"), false))
	t.Cleanup(func() { _ = fail.Close() })

	cfg := config.Default()
	cfg.MaxGR = 2
	cfg.MaxBtrrLen = 2
	cfg.RepetitionCap = 1
	cfg.PhysicalCores = 2

	deps := btrr.Deps{
		Registry: reg,
		Cipher:   cipher.New(reg),
		Pool:     envpool.New(func() analyzer.Analyzer { return analyzer.NewReference() }),
		Fail:     fail,
		Reporter: report.New(io.Discard, io.Discard, true),
		Config:   cfg,
	}

	return btrr.New(deps, model.DataTypeSequence)
}

func Test_Run_Finds_A_Reversible_Pair_Over_A_Small_Pool(t *testing.T) {
	t.Parallel()

	core := newTestCore(t)
	input := []byte("joint search payload")

	result, color, err := core.Run(context.Background(), input, []uint8{10, 20, 12}, 2, cliargs.BtrArgs{MaxRounds: 2})
	require.NoError(t, err)
	assert.Equal(t, errs.Green, color)

	assert.Greater(t, result.Pairs, uint64(0))
	assert.Greater(t, result.Reversible, uint64(0))
	assert.Len(t, result.BestSequence, 2)
}

func Test_Run_Rejects_Length_Beyond_MaxBtrrLen(t *testing.T) {
	t.Parallel()

	core := newTestCore(t)

	_, color, err := core.Run(context.Background(), []byte("x"), []uint8{10, 20, 12}, 3, cliargs.BtrArgs{MaxRounds: 2})
	require.Error(t, err)
	assert.Equal(t, errs.Yellow, color)
}
