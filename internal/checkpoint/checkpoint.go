// Package checkpoint implements MungeState persistence (spec §3, §6, §9):
// one JSON snapshot file per MaxLen value, written atomically (write-to-temp
// + rename), plus the plain-text contender file format. Grounded on the
// teacher's pkg/fs atomic-write-then-rename pattern, here delegated to
// natefinch/atomic (SPEC_FULL.md §B).
package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	natomic "github.com/natefinch/atomic"

	"github.com/kestrelsec/munge/internal/errs"
	"github.com/kestrelsec/munge/internal/model"
)

// SerializableContender mirrors spec §6's checkpoint contender shape.
type SerializableContender struct {
	Sequence       []uint8                `json:"sequence"`
	AggregateScore float64                `json:"aggregate_score"`
	Metrics        []model.AnalysisResult `json:"metrics"`
}

// State is the MungeState checkpoint (spec §3): one file per MaxLen value.
type State struct {
	Length          int                     `json:"length"`
	Transforms      []uint8                 `json:"transforms"`
	ResumeSequence  []uint8                 `json:"sequence"`
	Contenders      []SerializableContender `json:"contenders"`
}

// FileName returns the checkpoint file name for a given MaxLen and a stable
// per-run suffix. A fresh run should pass a newly generated suffix (see
// NewSuffix); a resuming run passes the suffix of the file it is resuming
// from.
func FileName(maxLen int, suffix string) string {
	return fmt.Sprintf("State,-L%d-%s.json", maxLen, suffix)
}

// NewSuffix generates a fresh checkpoint suffix, grounded on the teacher's
// use of google/uuid for stable identifiers (internal/store/ids.go).
func NewSuffix() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("checkpoint: new suffix: %w", err)
	}

	return id.String(), nil
}

// Save atomically writes state to path: marshal, write-to-temp, rename. A
// resumed run therefore always observes either the prior snapshot or this
// one in full, never a torn write (spec §5).
func Save(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: checkpoint: marshal: %w", errs.ErrStoreIO, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("%w: checkpoint: mkdir: %w", errs.ErrStoreIO, err)
	}

	if err := natomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: checkpoint: atomic write: %w", errs.ErrStoreIO, err)
	}

	return nil
}

// Load reads and parses a checkpoint file. A present-but-unparsable file
// yields ErrCheckpointCorrupt (spec §7): callers should log a warning and
// start fresh rather than treat this as fatal.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-controlled state directory
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, err
		}

		return State{}, fmt.Errorf("%w: checkpoint: read: %w", errs.ErrStoreIO, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("%w: checkpoint: %w", errs.ErrCheckpointCorrupt, err)
	}

	return state, nil
}

// SnapshotFrom converts a ContenderStore snapshot (already sorted desc by
// score) into SerializableContenders in the same order.
func SnapshotFrom(contenders []model.Contender) []SerializableContender {
	out := make([]SerializableContender, len(contenders))
	for i, c := range contenders {
		out[i] = SerializableContender{
			Sequence:       c.Sequence,
			AggregateScore: c.AggregateScore,
			Metrics:        c.Metrics,
		}
	}

	return out
}

// SortedByCanonicalOrder sorts contenders the way spec §3/§5 requires the
// final contender file to be ordered: score desc, pass_count desc,
// sequence asc.
func SortedByCanonicalOrder(contenders []model.Contender) []model.Contender {
	out := append([]model.Contender(nil), contenders...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Less(out[j])
	})

	return out
}
