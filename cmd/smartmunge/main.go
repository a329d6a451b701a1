// Command smartmunge runs the Smart Munge pipeline: MungeCore followed by a
// greedy-candidate BtrrCore pass, for one input data type (spec §4.9).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/orchestrator"
	"github.com/kestrelsec/munge/internal/wiring"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	mungeArgs, err := cliargs.ParseMunge(argv)
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

	env, err := wiring.Build(ctx, workDir, mungeArgs.Common.ConfigPath, mungeArgs.Common.Quiet)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}
	defer env.Close()

	input, err := os.ReadFile(mungeArgs.Common.Input) //nolint:gosec // operator-supplied path, same as the config loader
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	dataType := model.DataType(mungeArgs.Common.DataType[0])

	btrArgs := cliargs.BtrArgs{MaxRounds: env.Config.MaxTR}

	core := orchestrator.New(orchestrator.Deps{
		Registry:   env.Registry,
		Cipher:     env.Cipher,
		Pool:       env.Pool,
		Fail:       env.MungeFail,
		Contenders: env.Contenders,
		Reporter:   env.Reporter,
		Config:     env.Config,
	})

	pool := env.Registry.IterPermutable()
	inputs := map[model.DataType][]byte{dataType: input}

	results, color, err := core.Run(ctx, inputs, pool, mungeArgs, btrArgs)
	if err != nil {
		env.Reporter.Line(errs.Red, "smartmunge: %v", err)

		return 1
	}

	for _, r := range results {
		env.Reporter.Line(color, "type=%s candidates=%v btrr_best_score=%.4f btrr_best_sequence=%v",
			r.DataType, r.Candidates, r.BtrrResult.BestScore, r.BtrrResult.BestSequence)
	}

	if color == errs.Red {
		return 1
	}

	return 0
}
