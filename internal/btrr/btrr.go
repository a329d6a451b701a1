// Package btrr implements BtrrCore (spec §4.8): the joint optimizer that
// searches sequence order and per-transform round counts together, within a
// length bounded by Config.MaxBtrrLen.
package btrr

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/config"
	"github.com/kestrelsec/munge/internal/envpool"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/failstore"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/permute"
	"github.com/kestrelsec/munge/internal/registry"
	"github.com/kestrelsec/munge/internal/report"
)

// Deps bundles BtrrCore's collaborators.
type Deps struct {
	Registry *registry.Registry
	Cipher   *cipher.Cipher
	Pool     *envpool.Pool
	Fail     *failstore.Store
	Reporter *report.Reporter
	Config   config.Config
}

// Core runs BtrrCore for one input data type.
type Core struct {
	deps     Deps
	dataType model.DataType
}

// New creates a Core bound to dataType.
func New(deps Deps, dataType model.DataType) *Core {
	return &Core{deps: deps, dataType: dataType}
}

// Result is the best (sequence, round-config, global-rounds) triple found.
type Result struct {
	BestSequence     []uint8
	BestRounds       []uint8
	BestGlobalRounds uint32
	BestScore        float64
	Pairs            uint64
	Reversible       uint64
}

const statusDigestInterval = 120 * time.Second

// Run jointly searches sequence permutations and round configs over pool at
// a fixed length, bounded by Config.MaxBtrrLen (spec §4.8's realized-length
// invariant).
func (c *Core) Run(ctx context.Context, input []byte, pool []uint8, length int, args cliargs.BtrArgs) (Result, errs.Color, error) {
	cfg := c.deps.Config

	if length > cfg.MaxBtrrLen {
		return Result{}, errs.Yellow, fmt.Errorf(
			"%w: btrr: length %d exceeds max_btrr_len %d", errs.ErrFilterConflict, length, cfg.MaxBtrrLen)
	}

	numWorkers := cfg.PhysicalCores
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	c.deps.Pool.Prewarm(numWorkers)

	sem := make(chan struct{}, numWorkers)

	var wg sync.WaitGroup

	var (
		bestUpdateLock sync.Mutex
		best           Result
		pairs          uint64
		reversibleN    uint64
	)

	lastDigest := time.Now()

sweep:
	for seq, roundConfig := range permute.SequencesAndRoundConfigs(pool, length, cfg.RepetitionCap, args.MaxRounds) {
		if ctx.Err() != nil {
			break sweep
		}

		pairs++

		seqCopy := append([]uint8(nil), seq...)
		rcCopy := append([]uint8(nil), roundConfig...)

		wg.Add(1)
		sem <- struct{}{}

		go func(seq, rc []uint8) {
			defer wg.Done()
			defer func() { <-sem }()

			ectx := c.deps.Pool.Rent()
			defer c.deps.Pool.Return(ectx)

			failKey := failstore.Key{
				Mode:                string(cfg.ScoringMode),
				Methodology:         "btrr",
				ExitCount:           0,
				PassCount:           cfg.RequiredPassCount,
				GlobalRoundsCeiling: uint32(cfg.MaxGR),
				Length:              len(seq),
				ScopeCeiling:        len(pool),
			}.Encode()

			// Sweep every global-rounds value for this (sequence, round-config)
			// pair, identical to BtrCore's inner gr loop (spec §4.8 step 3),
			// keeping only the best-scoring reversible gr for the pair.
			pairReversible := false
			pairBestScore := 0.0
			pairBestGR := uint32(0)

			for gr := uint32(1); gr <= uint32(cfg.MaxGR); gr++ {
				profile := buildProfile(seq, rc, gr)

				reversible, payload := c.deps.Cipher.RoundTrip(input, profile)
				if !reversible {
					if cfg.CreateBtrFailDB {
						_ = c.deps.Fail.RecordBad(ctx, seq, failKey, failstore.KindBTRR)
					}

					continue
				}

				score := c.scoreOnly(ectx, payload)

				if !pairReversible || roundsEqual10(score, pairBestScore) > 0 {
					pairReversible = true
					pairBestScore = score
					pairBestGR = gr
				}
			}

			if !pairReversible {
				return
			}

			bestUpdateLock.Lock()
			defer bestUpdateLock.Unlock()

			reversibleN++

			if roundsEqual10(pairBestScore, best.BestScore) > 0 || best.BestSequence == nil {
				best.BestSequence = seq
				best.BestRounds = rc
				best.BestGlobalRounds = pairBestGR
				best.BestScore = pairBestScore
			}
		}(seqCopy, rcCopy)

		if time.Since(lastDigest) >= statusDigestInterval {
			bestUpdateLock.Lock()
			c.deps.Reporter.Line(errs.Green, "btrr status: pairs=%d best_score=%.4f", pairs, best.BestScore)
			bestUpdateLock.Unlock()

			lastDigest = time.Now()
		}
	}

	wg.Wait()

	best.Pairs = pairs
	best.Reversible = reversibleN

	return best, errs.Green, nil
}

func (c *Core) scoreOnly(ectx *envpool.ExecutionContext, payload []byte) float64 {
	results, err := ectx.Analyzer.Analyze(analyzer.Buffers{Payload: payload, Avalanche: payload, KeyDep: payload})
	if err != nil {
		return 0
	}

	return analyzer.Aggregate(results, c.deps.Config.ScoringMode)
}

func roundsEqual10(a, b float64) int {
	const scale = 1e10

	ra := math.Round(a * scale)
	rb := math.Round(b * scale)

	if ra > rb {
		return 1
	}

	return 0
}

func buildProfile(sequence []uint8, rounds []uint8, gr uint32) model.InputProfile {
	items := make([]model.SeqItem, len(sequence))
	for i, id := range sequence {
		tr := uint8(1)
		if i < len(rounds) {
			tr = rounds[i]
		}

		items[i] = model.SeqItem{ID: id, TR: tr}
	}

	return model.InputProfile{Sequence: model.Sequence{Items: items}, GlobalRounds: gr}
}
