// Command munge runs MungeCore: an exhaustive sweep over transform
// sequences at growing lengths, searching for reversible, high-scoring
// candidates (spec §4.6).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/munge"
	"github.com/kestrelsec/munge/internal/wiring"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := cliargs.ParseMunge(argv)
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

	core := munge.New(munge.Deps{
		Registry:   env.Registry,
		Cipher:     env.Cipher,
		Pool:       env.Pool,
		Fail:       env.MungeFail,
		Contenders: env.Contenders,
		Reporter:   env.Reporter,
		Config:     env.Config,
	}, dataType)

	pool := env.Registry.IterPermutable()

	summary, color, err := core.Run(ctx, input, pool, args)
	if err != nil {
		env.Reporter.Line(errs.Red, "munge: %v", err)

		return 1
	}

	for _, ls := range summary.Lengths {
		env.Reporter.Line(color, "length=%d total=%d processed=%d skipped=%d reversible=%d",
			ls.Length, ls.Total, ls.Processed, ls.Skipped, ls.Reversible)
	}

	if color == errs.Red {
		return 1
	}

	return 0
}
