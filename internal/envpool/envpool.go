// Package envpool implements EnvPool (spec §4.10, §3's Lifecycle note): an
// object pool of per-worker ExecutionContext values so no two workers share
// cipher/analyzer state (spec §9's redesign of "shared mutable cipher/
// analyzer state").
package envpool

import (
	"math/rand"
	"sync"

	"github.com/kestrelsec/munge/internal/analyzer"
)

// ExecutionContext is rented from Pool before each work item and returned
// afterward. It owns everything a worker needs so state never crosses
// goroutine boundaries: an analyzer instance, scratch buffers, its own
// seeded RNG (MungeCore's avalanche/key-dependency probes do not draw from
// it), a per-thread best score, and a
// reusable no-progress counter (spec §3's Lifecycle).
type ExecutionContext struct {
	Analyzer analyzer.Analyzer
	RNG      *rand.Rand

	// Scratch buffers, reused across rentals to avoid per-iteration
	// allocation in the hot loop.
	PayloadScratch   []byte
	AvalancheScratch []byte
	KeyDepScratch    []byte

	ThreadBest  float64
	NoProgress  int
}

// Reset clears per-rental mutable fields without discarding allocated
// scratch buffer capacity.
func (c *ExecutionContext) Reset() {
	c.ThreadBest = 0
	c.NoProgress = 0
	c.PayloadScratch = c.PayloadScratch[:0]
	c.AvalancheScratch = c.AvalancheScratch[:0]
	c.KeyDepScratch = c.KeyDepScratch[:0]
}

// Pool is an unbounded, synchronized pool of ExecutionContext values.
type Pool struct {
	mu       sync.Mutex
	free     []*ExecutionContext
	newCtx   func(seed int64) *ExecutionContext
	seedNext int64
}

// New creates a Pool. newAnalyzer builds the Analyzer instance each new
// ExecutionContext gets; pass analyzer.NewReference for the reference
// implementation.
func New(newAnalyzer func() analyzer.Analyzer) *Pool {
	p := &Pool{}
	p.newCtx = func(seed int64) *ExecutionContext {
		return &ExecutionContext{
			Analyzer: newAnalyzer(),
			RNG:      rand.New(rand.NewSource(seed)),
		}
	}

	return p
}

// Prewarm populates the pool with n idle contexts, eliminating cold-start
// latency at the start of a sweep (spec §4.10).
func (p *Pool) Prewarm(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < n; i++ {
		p.free = append(p.free, p.newCtx(p.nextSeedLocked()))
	}
}

func (p *Pool) nextSeedLocked() int64 {
	p.seedNext++

	return p.seedNext
}

// Rent pops an idle context or creates one if the pool is empty.
func (p *Pool) Rent() *ExecutionContext {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return p.newCtx(p.nextSeedLocked())
	}

	n := len(p.free)
	ctx := p.free[n-1]
	p.free = p.free[:n-1]

	return ctx
}

// Return pushes ctx back onto the idle list after resetting its per-rental
// state.
func (p *Pool) Return(ctx *ExecutionContext) {
	ctx.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.free = append(p.free, ctx)
}

// Len returns the number of currently idle contexts.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.free)
}
