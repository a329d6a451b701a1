// Command btrr runs BtrrCore: joint sequence-and-round-count optimization
// bounded by max_btrr_len (spec §4.8).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kestrelsec/munge/internal/btrr"
	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/wiring"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := cliargs.ParseBtr(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	ctx := context.Background()

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	env, err := wiring.Build(ctx, workDir, args.Common.ConfigPath, args.Common.Quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}
	defer env.Close()

	input, err := os.ReadFile(args.Common.Input) //nolint:gosec // operator-supplied path, same as the config loader
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	dataType := model.DataType(args.Common.DataType[0])

	pool := args.Sequence
	if len(pool) == 0 {
		pool = env.Registry.IterPermutable()
	}

	length := args.Length
	if length <= 0 {
		length = env.Config.MaxBtrrLen
	}

	core := btrr.New(btrr.Deps{
		Registry: env.Registry,
		Cipher:   env.Cipher,
		Pool:     env.Pool,
		Fail:     env.BtrFail,
		Reporter: env.Reporter,
		Config:   env.Config,
	}, dataType)

	result, color, err := core.Run(ctx, input, pool, length, args)
	if err != nil {
		env.Reporter.Line(errs.Red, "btrr: %v", err)

		return 1
	}

	env.Reporter.Line(color, "pairs=%d reversible=%d best_score=%.4f best_sequence=%v best_gr=%d",
		result.Pairs, result.Reversible, result.BestScore, result.BestSequence, result.BestGlobalRounds)

	if color == errs.Red {
		return 1
	}

	return 0
}
