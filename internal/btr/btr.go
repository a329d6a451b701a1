// Package btr implements BtrCore (spec §4.7): for a fixed transform
// sequence, search per-transform round counts and a global-rounds value to
// maximize the aggregate metric score, without changing transform order.
package btr

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

// Deps bundles BtrCore's collaborators.
type Deps struct {
	Registry *registry.Registry
	Cipher   *cipher.Cipher
	Pool     *envpool.Pool
	Fail     *failstore.Store
	Reporter *report.Reporter
	Config   config.Config
}

// Core runs BtrCore for one input data type.
type Core struct {
	deps     Deps
	dataType model.DataType
}

// New creates a Core bound to dataType.
func New(deps Deps, dataType model.DataType) *Core {
	return &Core{deps: deps, dataType: dataType}
}

// Result is BestFitResult (spec §3): the outcome of optimizing rounds for a
// fixed sequence.
type Result struct {
	BaselineSequence []uint8
	BaselineScore    float64
	BestSequence     []uint8
	BestRounds       []uint8
	BestGlobalRounds uint32
	BestScore        float64
	Improved         bool
}

// statusDigestInterval is the periodic status-digest cadence (spec §5).
const statusDigestInterval = 120 * time.Second

// noProgressLimit bounds how many consecutive non-improving global-rounds
// values a single round-config's inner gr loop tolerates before abandoning
// just that round-config (spec §4.7 step 4: "this round-config is stagnant"),
// never the sweep over the rest of RoundConfigs. Config.MaxGR is a uint8, so
// a round-config sees at most 255 gr values and this limit is never reached.
const noProgressLimit = 2000

// Run optimizes round counts for sequence (spec §4.7): establishes a
// baseline at TR=1 for every transform, then exhaustively sweeps round
// configs up to args.MaxRounds, each evaluated across every global-rounds
// value up to Config.MaxGR, tracking the best reversible, highest-scoring
// assignment found.
func (c *Core) Run(ctx context.Context, input []byte, sequence []uint8, args cliargs.BtrArgs) (Result, errs.Color, error) {
	if len(sequence) == 0 {
		return Result{}, errs.Yellow, fmt.Errorf("%w: btr: empty sequence", errs.ErrFilterConflict)
	}

	cfg := c.deps.Config
	length := len(sequence)

	startingRound := args.StartingRound
	if !args.HasStarting || startingRound == 0 {
		startingRound = uint8(cfg.PreferredGRFor(byte(c.dataType)))
	}

	baselineRounds := make([]uint8, length)
	for i := range baselineRounds {
		baselineRounds[i] = 1
	}

	baselineProfile := buildProfile(sequence, baselineRounds, uint32(startingRound))

	baselineReversible, baselinePayload := c.deps.Cipher.RoundTrip(input, baselineProfile)

	var baselineScore float64

	if baselineReversible {
		baselineScore = c.scoreOnly(baselinePayload)
	}

	failKey := failstore.Key{
		Mode:                string(cfg.ScoringMode),
		Methodology:         "btr",
		ExitCount:           noProgressLimit,
		PassCount:           cfg.RequiredPassCount,
		GlobalRoundsCeiling: uint32(cfg.MaxGR),
		Length:              length,
		ScopeCeiling:        length,
	}.Encode()

	numWorkers := cfg.PhysicalCores
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	c.deps.Pool.Prewarm(numWorkers)

	var (
		bestUpdateLock sync.Mutex
		best           = Result{
			BaselineSequence: sequence,
			BaselineScore:    baselineScore,
			BestSequence:     sequence,
			BestRounds:       baselineRounds,
			BestGlobalRounds: uint32(startingRound),
			BestScore:        baselineScore,
		}
	)

	sem := make(chan struct{}, numWorkers)

	var wg sync.WaitGroup

	lastDigest := time.Now()

	for roundConfig := range permute.RoundConfigs(length, args.MaxRounds) {
		if ctx.Err() != nil {
			break
		}

		rc := append([]uint8(nil), roundConfig...)

		wg.Add(1)
		sem <- struct{}{}

		go func(rc []uint8) {
			defer wg.Done()
			defer func() { <-sem }()

			ectx := c.deps.Pool.Rent()
			defer c.deps.Pool.Return(ectx)

			localBest := math.Inf(-1)
			localNoProgress := 0

			for gr := uint32(1); gr <= uint32(cfg.MaxGR); gr++ {
				profile := buildProfile(sequence, rc, gr)

				reversible, payload := c.deps.Cipher.RoundTrip(input, profile)
				if !reversible {
					if cfg.CreateBtrFailDB {
						_ = c.deps.Fail.RecordBad(ctx, sequence, failKey, failstore.KindBTR)
					}

					continue
				}

				score := c.scoreOnly(payload)

				if roundsEqual10(score, localBest) > 0 {
					localBest = score
					localNoProgress = 0

					bestUpdateLock.Lock()

					if roundsEqual10(score, best.BestScore) > 0 {
						best.BestScore = score
						best.BestRounds = append([]uint8(nil), rc...)
						best.BestGlobalRounds = gr
						best.Improved = true
					}

					bestUpdateLock.Unlock()

					continue
				}

				localNoProgress++

				if localNoProgress >= noProgressLimit {
					break // this round-config is stagnant; the sweep continues with the next one
				}
			}
		}(rc)

		if time.Since(lastDigest) >= statusDigestInterval {
			bestUpdateLock.Lock()
			c.deps.Reporter.Line(errs.Green, "btr status: best_score=%.4f", best.BestScore)
			bestUpdateLock.Unlock()

			lastDigest = time.Now()
		}
	}

	wg.Wait()

	return best, errs.Green, nil
}

// scoreOnly computes the aggregate score for a payload using a standalone
// reference analyzer pass; avalanche/key-dependency probes are the
// search-for-sequence concern of MungeCore, not the round optimizer's.
func (c *Core) scoreOnly(payload []byte) float64 {
	results, err := analyzer.NewReference().Analyze(analyzer.Buffers{Payload: payload, Avalanche: payload, KeyDep: payload})
	if err != nil {
		return 0
	}

	return analyzer.Aggregate(results, c.deps.Config.ScoringMode)
}

// roundsEqual10 compares two scores at 10-digit precision, returning 1 if a
// is strictly greater than b at that precision, else 0. Guards against
// floating-point jitter declaring a false "improvement" (spec §3's
// BestFitResult comparison).
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
