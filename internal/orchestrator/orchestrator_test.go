package orchestrator_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/config"
	"github.com/kestrelsec/munge/internal/contenderstore"
	"github.com/kestrelsec/munge/internal/envpool"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/failstore"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/orchestrator"
	"github.com/kestrelsec/munge/internal/report"
	"github.com/kestrelsec/munge/internal/transform"
)

func newTestCore(t *testing.T) *orchestrator.Core {
	t.Helper()

	reg := transform.NewDefaultRegistry()

	fail := &failstore.Store{}
	require.NoError(t, fail.Open(context.Background(), filepath.Join(t.TempDir(), "fail.sqlite"), true))
	t.Cleanup(func() { _ = fail.Close() })

	cfg := config.Default()
	cfg.MaxLen = 2
	cfg.MaxGR = 2
	cfg.MaxBtrrLen = 2
	cfg.RepetitionCap = 1
	cfg.StateDir = t.TempDir()
	cfg.PhysicalCores = 2
	cfg.Quiet = true

	deps := orchestrator.Deps{
		Registry:   reg,
		Cipher:     cipher.New(reg),
		Pool:       envpool.New(func() analyzer.Analyzer { return analyzer.NewReference() }),
		Fail:       fail,
		Contenders: contenderstore.New(50),
		Reporter:   report.New(io.Discard, io.Discard, true),
		Config:     cfg,
	}

	return orchestrator.New(deps)
}

func Test_Run_Produces_A_BtrrResult_Per_Data_Type_In_Sorted_Order(t *testing.T) {
	t.Parallel()

	core := newTestCore(t)

	inputs := map[model.DataType][]byte{
		model.DataTypeRandom:   []byte("random corpus payload for the smart munge pipeline"),
		model.DataTypeSequence: []byte("sequential corpus payload for the smart munge pipeline"),
	}

	results, color, err := core.Run(
		context.Background(), inputs, []uint8{10, 12},
		cliargs.MungeArgs{HasStartLen: true, StartLength: 1},
		cliargs.BtrArgs{MaxRounds: 2},
	)
	require.NoError(t, err)
	assert.Equal(t, errs.Green, color)

	require.Len(t, results, 2)
	assert.Equal(t, model.DataTypeRandom, results[0].DataType)
	assert.Equal(t, model.DataTypeSequence, results[1].DataType)

	for _, r := range results {
		assert.NotEmpty(t, r.Candidates)
	}
}
