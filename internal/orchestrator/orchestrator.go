// Package orchestrator implements the Smart Munge pipeline (spec §4.9):
// one MungeCore sub-run per input data type, a greedy per-metric candidate
// selection over its contenders, and a BtrrCore run over that candidate pool
// at the top contender's sequence length. Only that length is taken from the
// top contender: its sequence is not passed to BtrrCore, which has no
// reference or baseline input.
package orchestrator

import (
	"context"
	"fmt"
	"sort"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/btrr"
	"github.com/kestrelsec/munge/internal/checkpoint"
	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/config"
	"github.com/kestrelsec/munge/internal/contenderstore"
	"github.com/kestrelsec/munge/internal/envpool"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/failstore"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/munge"
	"github.com/kestrelsec/munge/internal/registry"
	"github.com/kestrelsec/munge/internal/report"
)

// Deps bundles the orchestrator's collaborators; the same Contenders store
// is reused (and cleared) across data types so each type's Smart Munge pass
// starts from an empty top-N table.
type Deps struct {
	Registry   *registry.Registry
	Cipher     *cipher.Cipher
	Pool       *envpool.Pool
	Fail       *failstore.Store
	Contenders *contenderstore.Store
	Reporter   *report.Reporter
	Config     config.Config
}

// Core runs the Smart Munge pipeline.
type Core struct {
	deps Deps
}

// New creates a Core.
func New(deps Deps) *Core {
	return &Core{deps: deps}
}

// TypeResult bundles one data type's Smart Munge outcome.
type TypeResult struct {
	DataType     model.DataType
	MungeSummary munge.Summary
	Candidates   []uint8
	BtrrResult   btrr.Result
}

// Run sweeps every data type present in inputsByType, in deterministic
// (sorted) order.
func (c *Core) Run(
	ctx context.Context,
	inputsByType map[model.DataType][]byte,
	pool []uint8,
	mungeArgs cliargs.MungeArgs,
	btrArgs cliargs.BtrArgs,
) ([]TypeResult, errs.Color, error) {
	var results []TypeResult

	for _, dt := range sortedTypes(inputsByType) {
		input := inputsByType[dt]

		mCore := munge.New(munge.Deps{
			Registry:   c.deps.Registry,
			Cipher:     c.deps.Cipher,
			Pool:       c.deps.Pool,
			Fail:       c.deps.Fail,
			Contenders: c.deps.Contenders,
			Reporter:   c.deps.Reporter,
			Config:     c.deps.Config,
		}, dt)

		summary, color, err := mCore.Run(ctx, input, pool, mungeArgs)
		if err != nil {
			return results, color, fmt.Errorf("orchestrator: munge(%s): %w", dt, err)
		}

		contenders := c.deps.Contenders.Snapshot()
		if len(contenders) == 0 {
			results = append(results, TypeResult{DataType: dt, MungeSummary: summary})
			c.deps.Contenders.Clear()

			continue
		}

		candidatePool := greedyPerMetricPool(contenders)
		reference := checkpoint.SortedByCanonicalOrder(contenders)[0]

		bCore := btrr.New(btrr.Deps{
			Registry: c.deps.Registry,
			Cipher:   c.deps.Cipher,
			Pool:     c.deps.Pool,
			Fail:     c.deps.Fail,
			Reporter: c.deps.Reporter,
			Config:   c.deps.Config,
		}, dt)

		btrrResult, color, err := bCore.Run(ctx, input, candidatePool, len(reference.Sequence), btrArgs)
		if err != nil {
			return results, color, fmt.Errorf("orchestrator: btrr(%s): %w", dt, err)
		}

		results = append(results, TypeResult{
			DataType:     dt,
			MungeSummary: summary,
			Candidates:   candidatePool,
			BtrrResult:   btrrResult,
		})

		c.deps.Contenders.Clear()
	}

	return results, errs.Green, nil
}

// greedyPerMetricPool picks, for each scored metric, the as-yet-unused
// sequence whose value for that metric is highest, and unions their
// transform ids into a deduplicated, sorted candidate pool: no sequence is
// selected for more than one metric (spec §4.9 step 4).
func greedyPerMetricPool(contenders []model.Contender) []uint8 {
	used := make(map[string]bool)
	seenID := make(map[uint8]bool)

	var pool []uint8

	for _, metricName := range analyzer.MetricNames {
		best, found := bestForMetric(contenders, metricName, used)
		if !found {
			continue
		}

		used[sequenceKey(best.Sequence)] = true

		for _, id := range best.Sequence {
			if !seenID[id] {
				seenID[id] = true

				pool = append(pool, id)
			}
		}
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i] < pool[j] })

	return pool
}

func bestForMetric(contenders []model.Contender, metricName string, used map[string]bool) (model.Contender, bool) {
	var best model.Contender

	bestValue := -1.0
	found := false

	for _, c := range contenders {
		if used[sequenceKey(c.Sequence)] {
			continue
		}

		for _, m := range c.Metrics {
			if m.MetricName == metricName && m.Value > bestValue {
				bestValue = m.Value
				best = c
				found = true
			}
		}
	}

	return best, found
}

// sequenceKey renders a sequence into a map key distinguishing any two
// sequences with different ids or ordering.
func sequenceKey(sequence []uint8) string {
	return fmt.Sprint(sequence)
}

func sortedTypes(m map[model.DataType][]byte) []model.DataType {
	types := make([]model.DataType, 0, len(m))
	for dt := range m {
		types = append(types, dt)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}
