// Package registry is the external TransformRegistry contract (spec §4.1).
// The core never mutates a Registry; per-transform rounds travel inside each
// InputProfile instead of living here.
package registry

import (
	"fmt"
	"sort"

	"github.com/kestrelsec/munge/internal/model"
)

// Registry maps transform ids to their metadata and pluggable encode/decode
// functions. Production transform implementations are an external
// collaborator (spec §1); Registry only needs something that satisfies the
// Codec interface, which test fixtures provide (see internal/transform).
type Registry struct {
	byID map[uint8]model.Transform
	fn   map[uint8]Codec
}

// Codec is the pluggable per-transform encode/decode pair. A production
// cipher implementation wires real byte-transform logic here; this module
// ships only test fixtures (internal/transform) that satisfy it.
type Codec interface {
	// Encode applies the transform `rounds` times.
	Encode(data []byte, rounds uint8) []byte
	// Decode reverses Encode given the same rounds.
	Decode(data []byte, rounds uint8) []byte
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID: make(map[uint8]model.Transform),
		fn:   make(map[uint8]Codec),
	}
}

// Register adds a transform and its codec. Register panics on a duplicate
// id: the registry is assembled once at process start, not under contention.
func (r *Registry) Register(t model.Transform, codec Codec) {
	if _, exists := r.byID[t.ID]; exists {
		panic(fmt.Sprintf("registry: duplicate transform id %d", t.ID))
	}

	r.byID[t.ID] = t
	r.fn[t.ID] = codec
}

// Get returns the transform metadata for id.
func (r *Registry) Get(id uint8) (model.Transform, bool) {
	t, ok := r.byID[id]

	return t, ok
}

// Codec returns the encode/decode pair for id.
func (r *Registry) Codec(id uint8) (Codec, bool) {
	c, ok := r.fn[id]

	return c, ok
}

// InverseOf returns the inverse id of id.
func (r *Registry) InverseOf(id uint8) (uint8, bool) {
	t, ok := r.byID[id]
	if !ok {
		return 0, false
	}

	return t.InverseID, true
}

// IterPermutable returns all ids with Excluded == false, sorted ascending so
// callers get deterministic pool ordering.
func (r *Registry) IterPermutable() []uint8 {
	ids := make([]uint8, 0, len(r.byID))

	for id, t := range r.byID {
		if !t.Excluded {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// NameToID resolves a transform name to an id. It returns
// (0, false, false) if no transform has that name, and (0, false, true)
// (ambiguous) if more than one does.
func (r *Registry) NameToID(name string) (id uint8, ok bool, ambiguous bool) {
	var found bool

	for cid, t := range r.byID {
		if t.Name == name {
			if found {
				return 0, false, true
			}

			id = cid
			found = true
		}
	}

	return id, found, false
}

// ValidateInverses checks the registry invariant from spec §3:
// registry[registry[id].inverse_id].inverse_id == id for every id.
func (r *Registry) ValidateInverses() error {
	for id, t := range r.byID {
		inv, ok := r.byID[t.InverseID]
		if !ok {
			return fmt.Errorf("registry: transform %d has unknown inverse %d", id, t.InverseID)
		}

		if inv.InverseID != id {
			return fmt.Errorf("registry: inverse relation broken for id %d", id)
		}
	}

	return nil
}
