package btr_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/btr"
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

func newTestCore(t *testing.T) *btr.Core {
	t.Helper()

	reg := transform.NewDefaultRegistry()

	fail := &failstore.Store{}
	require.NoError(t, fail.Open(context.Background(), filepath.Join(t.TempDir(), "fail.sqlite"), false))
	t.Cleanup(func() { _ = fail.Close() })

	cfg := config.Default()
	cfg.MaxGR = 3
	cfg.PhysicalCores = 2

	deps := btr.Deps{
		Registry: reg,
		Cipher:   cipher.New(reg),
		Pool:     envpool.New(func() analyzer.Analyzer { return analyzer.NewReference() }),
		Fail:     fail,
		Reporter: report.New(io.Discard, io.Discard, true),
		Config:   cfg,
	}

	return btr.New(deps, model.DataTypeSequence)
}

func Test_Run_Finds_A_Best_Result_At_Least_As_Good_As_Baseline(t *testing.T) {
	t.Parallel()

	core := newTestCore(t)
	input := []byte("round optimization payload")

	result, color, err := core.Run(context.Background(), input, []uint8{10, 20}, cliargs.BtrArgs{MaxRounds: 2})
	require.NoError(t, err)
	assert.Equal(t, errs.Green, color)

	assert.GreaterOrEqual(t, result.BestScore, result.BaselineScore)
	assert.Equal(t, []uint8{10, 20}, result.BestSequence)
	assert.Len(t, result.BestRounds, 2)
}

func Test_Run_Rejects_An_Empty_Sequence(t *testing.T) {
	t.Parallel()

	core := newTestCore(t)

	_, color, err := core.Run(context.Background(), []byte("x"), nil, cliargs.BtrArgs{MaxRounds: 2})
	require.Error(t, err)
	assert.Equal(t, errs.Yellow, color)
}
