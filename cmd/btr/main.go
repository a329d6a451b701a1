// Command btr runs BtrCore: round-count optimization for a fixed transform
// sequence (spec §4.7).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kestrelsec/munge/internal/btr"
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

	if len(args.Sequence) == 0 {
		fmt.Fprintln(os.Stderr, "btr: --sequence is required")

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

	core := btr.New(btr.Deps{
		Registry: env.Registry,
		Cipher:   env.Cipher,
		Pool:     env.Pool,
		Fail:     env.BtrFail,
		Reporter: env.Reporter,
		Config:   env.Config,
	}, dataType)

	result, color, err := core.Run(ctx, input, args.Sequence, args)
	if err != nil {
		env.Reporter.Line(errs.Red, "btr: %v", err)

		return 1
	}

	env.Reporter.Line(color, "baseline_score=%.4f best_score=%.4f best_gr=%d best_rounds=%v improved=%t",
		result.BaselineScore, result.BestScore, result.BestGlobalRounds, result.BestRounds, result.Improved)

	if color == errs.Red {
		return 1
	}

	return 0
}
