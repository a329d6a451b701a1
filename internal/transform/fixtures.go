package transform

import (
	"github.com/kestrelsec/munge/internal/model"
	"github.com/kestrelsec/munge/internal/registry"
)

// NewDefaultRegistry wires a small fixture transform pool into a registry:
// three inverse pairs plus two self-inverse ids, with benchmark costs so
// PermutationEngine.time_estimate has something to sum. Not a production
// transform pool (spec §1's Non-goals).
func NewDefaultRegistry() *registry.Registry {
	r := registry.New()

	pairs := []struct {
		id, inv     uint8
		fwd, bwd    registry.Codec
		benchMS     float64
		benchMSInv  float64
	}{
		{10, 11, XOR{Key: 0x5A}, XOR{Key: 0x5A}, 0.01, 0.01}, // XOR is self-inverse but modeled as a pair for filter coverage
		{20, 21, RotateLeft{Bits: 3}, RotateRight{Bits: 3}, 0.02, 0.02},
		{30, 31, AddConstant{Value: 0x11}, SubConstant{Value: 0x11}, 0.015, 0.015},
	}

	for _, p := range pairs {
		r.Register(model.Transform{ID: p.id, Name: idName(p.id), InverseID: p.inv, BenchmarkMS: p.benchMS}, p.fwd)
		r.Register(model.Transform{ID: p.inv, Name: idName(p.inv), InverseID: p.id, BenchmarkMS: p.benchMSInv}, p.bwd)
	}

	selfInverse := []struct {
		id      uint8
		codec   registry.Codec
		benchMS float64
	}{
		{12, ByteSwapPairs{}, 0.01},
		{13, ReverseBytes{}, 0.01},
	}

	for _, s := range selfInverse {
		r.Register(model.Transform{ID: s.id, Name: idName(s.id), InverseID: s.id, BenchmarkMS: s.benchMS}, s.codec)
	}

	return r
}

func idName(id uint8) string {
	names := map[uint8]string{
		10: "xor-a", 11: "xor-a-inv",
		20: "rotl3", 21: "rotr3",
		30: "add-11", 31: "sub-11",
		12: "swap-pairs",
		13: "reverse-bytes",
	}
	if n, ok := names[id]; ok {
		return n
	}

	return "unknown"
}
