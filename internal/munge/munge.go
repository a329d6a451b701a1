// Package munge implements MungeCore (spec §4.6): exhaustive search over
// every admissible transform sequence at a given length, growing the length
// until MaxLen, bounded by a worker semaphore and pruned by a failure-key
// cache and a resumable checkpoint.
package munge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/kestrelsec/munge/internal/analyzer"
	"github.com/kestrelsec/munge/internal/checkpoint"
	"github.com/kestrelsec/munge/internal/cipher"
	"github.com/kestrelsec/munge/internal/cliargs"
	"github.com/kestrelsec/munge/internal/config"
	"github.com/kestrelsec/munge/internal/contenderstore"
	"github.com/kestrelsec/munge/internal/envpool"
	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/failstore"
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/permute"
	"github.com/kestrelsec/munge/internal/registry"
	"github.com/kestrelsec/munge/internal/report"
)

// Deps bundles MungeCore's collaborators (spec §4's external/internal
// component list).
type Deps struct {
	Registry   *registry.Registry
	Cipher     *cipher.Cipher
	Pool       *envpool.Pool
	Fail       *failstore.Store
	Contenders *contenderstore.Store
	Reporter   *report.Reporter
	Config     config.Config
}

// Core runs MungeCore for one input data type.
type Core struct {
	deps     Deps
	dataType model.DataType
	cutlist  map[uint8]*cutStats
}

// New creates a Core bound to dataType, consulted for preferred-GR lookups
// and contender-file naming.
func New(deps Deps, dataType model.DataType) *Core {
	return &Core{deps: deps, dataType: dataType, cutlist: make(map[uint8]*cutStats)}
}

// LengthSummary reports one swept length's outcome.
type LengthSummary struct {
	Length       int
	Total        uint64
	Processed    uint64
	Skipped      uint64
	Reversible   uint64
	FailureCount uint64
}

// Summary reports a full Run across every length swept.
type Summary struct {
	Lengths  []LengthSummary
	Canceled bool
}

// progressEvery is the iteration cadence for progress reporting (spec §4.6
// step 6e).
const progressEvery = 20000

// Run sweeps sequence lengths from a starting point (derived from args and,
// if --restore was requested, a checkpoint file) through Config.MaxLen,
// testing every admissible sequence over pool for round-trip reversibility
// and metric quality.
func (c *Core) Run(ctx context.Context, input []byte, pool []uint8, args cliargs.MungeArgs) (Summary, errs.Color, error) {
	cfg := c.deps.Config

	start := 1

	var resumeSeq []uint8

	suffix := ""

	if args.Restore {
		state, foundSuffix, err := checkpoint.FindLatest(cfg.StateDir, cfg.MaxLen)
		if err != nil {
			if !os.IsNotExist(err) {
				return Summary{}, errs.Red, fmt.Errorf("munge: restore: %w", err)
			}
		} else {
			start = state.Length
			resumeSeq = state.ResumeSequence
			suffix = foundSuffix
		}
	}

	if args.HasStartLen {
		start = args.StartLength
		resumeSeq = nil
	}

	if suffix == "" {
		newSuffix, err := checkpoint.NewSuffix()
		if err != nil {
			return Summary{}, errs.Red, fmt.Errorf("munge: %w", err)
		}

		suffix = newSuffix
	}

	summary := Summary{}

	for length := start; length <= cfg.MaxLen; length++ {
		if ctx.Err() != nil {
			summary.Canceled = true

			break
		}

		ls, color, err := c.runLength(ctx, input, pool, length, resumeSeq, args, suffix)
		summary.Lengths = append(summary.Lengths, ls)
		resumeSeq = nil // the resume point only applies to the first length swept

		if err != nil {
			if color == errs.Red {
				return summary, errs.Red, err
			}

			c.deps.Reporter.Line(errs.Yellow, "length %d: %v", length, err)

			continue
		}
	}

	if summary.Canceled {
		return summary, errs.Yellow, nil
	}

	return summary, errs.Green, nil
}

// runLength is one pass of spec §4.6's per-length pipeline: filter pipeline,
// failure-key lookup, count/time estimate, envpool prewarm, lazy enumeration
// with resume-skip and failure-store pruning, worker-semaphore-bounded
// evaluation, progress reporting, checkpoint snapshotting, and a final
// contender-file write.
func (c *Core) runLength(
	ctx context.Context,
	input []byte,
	pool []uint8,
	length int,
	resumeSeq []uint8,
	args cliargs.MungeArgs,
	suffix string,
) (LengthSummary, errs.Color, error) {
	cfg := c.deps.Config
	ls := LengthSummary{Length: length}

	var cutExcluded map[uint8]bool
	if !args.NoCutlist {
		cutExcluded = c.cutlistExclusions(args.RequireAll)
	}

	effectivePool := applyPoolFilters(pool, c.deps.Registry, args, cutExcluded)

	filter := permute.Filter{Required: args.RequireAll, NoRepeat: args.NoRepeat}

	if len(filter.Required) > length {
		return ls, errs.Yellow, fmt.Errorf(
			"%w: length %d shorter than require-all set (%d ids)", errs.ErrFilterConflict, length, len(filter.Required))
	}

	gr := cfg.PreferredGRFor(byte(c.dataType))

	failKey := failstore.Key{
		Mode:                string(cfg.ScoringMode),
		Methodology:         "standard",
		ExitCount:           0,
		PassCount:           cfg.RequiredPassCount,
		GlobalRoundsCeiling: uint32(cfg.MaxGR),
		Length:              length,
		ScopeCeiling:        len(effectivePool),
	}.Encode()

	// spec §4.6 step 1: read the prior failure count for this key; it is
	// reported and recorded in the length summary.
	ls.FailureCount = uint64(c.deps.Fail.Count(failKey))
	c.deps.Reporter.Line(errs.Green, "length %d: prior failures=%d", length, ls.FailureCount)

	total := permute.Count(length, effectivePool, filter)
	ls.Total = total

	numWorkers := cfg.PhysicalCores
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	c.deps.Pool.Prewarm(numWorkers)

	sem := make(chan struct{}, numWorkers)
	resultCh := make(chan workResult, numWorkers*4)

	var wg sync.WaitGroup

	var consumerWG sync.WaitGroup

	var reversibleCount uint64

	consumerWG.Add(1)

	go func() {
		defer consumerWG.Done()

		for res := range resultCh {
			c.consume(ctx, res, failKey, &reversibleCount)
		}
	}()

	resumeFound := resumeSeq == nil
	lastCheckpoint := time.Now()
	started := time.Now()

	var processed, skipped, iterCount uint64

	for seq := range permute.Generate(length, effectivePool, filter) {
		if ctx.Err() != nil {
			break
		}

		if !resumeFound {
			if idsEqual(seq, resumeSeq) {
				resumeFound = true
			} else {
				skipped++

				continue
			}
		}

		iterCount++

		bad, err := c.deps.Fail.IsBad(seq, failKey)
		if err != nil {
			wg.Wait()
			close(resultCh)
			consumerWG.Wait()

			return ls, errs.Red, fmt.Errorf("munge: %w", err)
		}

		if bad {
			skipped++

			continue
		}

		seqCopy := append([]uint8(nil), seq...)

		wg.Add(1)
		sem <- struct{}{}

		go func(seq []uint8) {
			defer wg.Done()
			defer func() { <-sem }()

			ectx := c.deps.Pool.Rent()
			defer c.deps.Pool.Return(ectx)

			resultCh <- c.evaluate(ectx, input, seq, gr)
		}(seqCopy)

		processed++

		if iterCount%progressEvery == 0 {
			elapsed := time.Since(started)

			avg := 0.0
			if processed > 0 {
				avg = float64(elapsed.Milliseconds()) / float64(processed)
			}

			c.deps.Reporter.Progress(processed, skipped, total, elapsed, avg)
		}

		if time.Since(lastCheckpoint) >= cfg.CheckpointInterval() {
			if err := c.snapshot(length, effectivePool, seqCopy, suffix); err != nil {
				c.deps.Reporter.Line(errs.Yellow, "checkpoint: %v", err)
			}

			lastCheckpoint = time.Now()
		}
	}

	wg.Wait()
	close(resultCh)
	consumerWG.Wait()

	ls.Processed = processed
	ls.Skipped = skipped
	ls.Reversible = reversibleCount

	if err := c.snapshot(length, effectivePool, nil, suffix); err != nil {
		c.deps.Reporter.Line(errs.Yellow, "checkpoint: %v", err)
	}

	if err := c.writeContenderFile(length); err != nil {
		return ls, errs.Red, fmt.Errorf("munge: %w", err)
	}

	return ls, errs.Green, nil
}

// workResult is one evaluated sequence's outcome, handed from a worker
// goroutine to the single result-consumer goroutine.
type workResult struct {
	seq       []uint8
	reversible bool
	metrics   []model.AnalysisResult
	score     float64
	passCount uint32
	err       error
}

// evaluate runs one sequence through round-trip, avalanche, and
// key-dependency probes and hands the buffers to the rented context's
// analyzer (spec §4.6 step 6c/6d).
func (c *Core) evaluate(ectx *envpool.ExecutionContext, input []byte, seq []uint8, gr uint32) workResult {
	items := make([]model.SeqItem, len(seq))
	for i, id := range seq {
		items[i] = model.SeqItem{ID: id, TR: 1}
	}

	profile := model.InputProfile{Sequence: model.Sequence{Items: items}, GlobalRounds: gr}

	reversible, payload := c.deps.Cipher.RoundTrip(input, profile)
	if !reversible {
		return workResult{seq: seq, err: fmt.Errorf("%w: sequence %v", errs.ErrReversibilityFailure, seq)}
	}

	// Avalanche buffer: diff between this payload and the payload from a
	// single flipped input bit.
	flippedInput := cipher.FlipBit(input, 0, 0)

	altPayload, ok := c.deps.Cipher.Encrypt(flippedInput, profile)
	if !ok {
		altPayload = payload
	}

	avalanche := cipher.DiffBuffer(payload, altPayload)

	// Key-dependency buffer: real per-transform key material lives outside
	// this module's registry contract (spec §1), so the round count of the
	// first transform stands in as the perturbed "key" for this probe.
	keyItems := append([]model.SeqItem(nil), items...)
	if len(keyItems) > 0 {
		keyItems[0].TR = keyItems[0].TR%255 + 1
	}

	keyProfile := model.InputProfile{Sequence: model.Sequence{Items: keyItems}, GlobalRounds: gr}

	keyPayload, ok := c.deps.Cipher.Encrypt(input, keyProfile)
	if !ok {
		keyPayload = payload
	}

	keyDep := cipher.DiffBuffer(payload, keyPayload)

	results, err := ectx.Analyzer.Analyze(analyzer.Buffers{Payload: payload, Avalanche: avalanche, KeyDep: keyDep})
	if err != nil {
		return workResult{seq: seq, reversible: true, err: fmt.Errorf("%w: %w", errs.ErrMetricAnalysis, err)}
	}

	return workResult{
		seq:        seq,
		reversible: true,
		metrics:    results,
		score:      analyzer.Aggregate(results, c.deps.Config.ScoringMode),
		passCount:  analyzer.PassCount(results),
	}
}

// consume is the single-goroutine sink for worker results: failures are
// recorded (the failstore itself gates whether that persists to disk),
// successes are offered to the contender store. Every result, win or lose,
// also feeds the in-run cutlist (spec §4.6 step 2 / GLOSSARY's CutList).
func (c *Core) consume(ctx context.Context, res workResult, failKey string, reversibleCount *uint64) {
	c.recordCutlistSample(res.seq, res.reversible)

	if res.err != nil {
		if err := c.deps.Fail.RecordBad(ctx, res.seq, failKey, failstore.KindMunge); err != nil {
			c.deps.Reporter.Line(errs.Yellow, "record failure: %v", err)
		}

		return
	}

	*reversibleCount++

	c.deps.Contenders.Offer(model.Contender{
		Sequence:       res.seq,
		AggregateScore: res.score,
		Metrics:        res.metrics,
		PassCount:      res.passCount,
	})
}

func (c *Core) snapshot(length int, pool []uint8, resumeSeq []uint8, suffix string) error {
	state := checkpoint.State{
		Length:         length,
		Transforms:     pool,
		ResumeSequence: resumeSeq,
		Contenders:     checkpoint.SnapshotFrom(c.deps.Contenders.Snapshot()),
	}

	path := filepath.Join(c.deps.Config.StateDir, checkpoint.FileName(c.deps.Config.MaxLen, suffix))

	return checkpoint.Save(path, state)
}

func (c *Core) writeContenderFile(length int) error {
	contenders := checkpoint.SortedByCanonicalOrder(c.deps.Contenders.Snapshot())
	if len(contenders) == 0 {
		return nil
	}

	best := contenders[0]
	filename := checkpoint.ContenderFileName(length, best.PassCount, c.dataType, string(c.deps.Config.ScoringMode), best.AggregateScore)
	rendered := checkpoint.RenderContenderFile(contenders, c.deps.Registry)

	return checkpoint.WriteContenderFile(c.deps.Config.StateDir, filename, rendered)
}

// applyPoolFilters narrows pool per the Munge CLI surface (spec §6): exclude
// removes ids outright, remove-inverse keeps at most one id from each
// inverse pair, and cutlistExcluded (unless --no-cutlist) drops ids this run
// has already seen fail reversibility often enough to call low-performing
// (spec §4.6 step 2's cutlist pruning, GLOSSARY's CutList).
func applyPoolFilters(pool []uint8, reg *registry.Registry, args cliargs.MungeArgs, cutlistExcluded map[uint8]bool) []uint8 {
	excluded := toSet(args.Exclude)
	kept := make(map[uint8]bool, len(pool))

	var out []uint8

	for _, id := range pool {
		if excluded[id] {
			continue
		}

		if cutlistExcluded[id] {
			continue
		}

		if args.RemoveInverse {
			if t, ok := reg.Get(id); ok && !t.SelfInverse() && kept[t.InverseID] {
				continue
			}
		}

		out = append(out, id)
		kept[id] = true
	}

	return out
}

// cutStats tracks one transform id's reversibility record across every
// sequence it has appeared in so far during this Run, the signal the
// in-memory cutlist prunes on.
type cutStats struct {
	total      uint64
	reversible uint64
}

// cutlistMinSamples is the minimum number of observed appearances before an
// id is eligible for cutlist exclusion, so a handful of early failures at a
// short length doesn't prune an id that is fine at longer lengths.
const cutlistMinSamples = 20

// cutlistFailThreshold is the reversibility failure rate (of appearances in
// tested sequences) at or above which an id is considered low-performing
// for this (data_type, pass_count, length) run and dropped from later
// lengths' pool.
const cutlistFailThreshold = 0.95

// recordCutlistSample attributes one tested sequence's reversibility
// outcome to every transform id it contains.
func (c *Core) recordCutlistSample(seq []uint8, reversible bool) {
	for _, id := range seq {
		st := c.cutlist[id]
		if st == nil {
			st = &cutStats{}
			c.cutlist[id] = st
		}

		st.total++

		if reversible {
			st.reversible++
		}
	}
}

// cutlistExclusions returns the set of ids this run's cutlist currently
// marks low-performing, excluding any id required by --require-all (a
// required id is never pruned out from under the filter that demands it).
func (c *Core) cutlistExclusions(required []uint8) map[uint8]bool {
	requiredSet := toSet(required)
	excluded := make(map[uint8]bool)

	for id, st := range c.cutlist {
		if requiredSet[id] || st.total < cutlistMinSamples {
			continue
		}

		failRate := 1 - float64(st.reversible)/float64(st.total)
		if failRate >= cutlistFailThreshold {
			excluded[id] = true
		}
	}

	return excluded
}

func toSet(ids []uint8) map[uint8]bool {
	m := make(map[uint8]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}

func idsEqual(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
