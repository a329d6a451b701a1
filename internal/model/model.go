// Package model holds the data types shared by every search-engine
// component: transforms, sequences, input profiles, analysis results and
// contenders (spec §3).
package model

import "fmt"

// Transform describes one reversible byte-level operation in the registry.
type Transform struct {
	ID          uint8
	Name        string
	InverseID   uint8
	Excluded    bool
	BenchmarkMS float64
}

// SelfInverse reports whether this transform is its own inverse.
func (t Transform) SelfInverse() bool {
	return t.InverseID == t.ID
}

// SeqItem is one (id, rounds) pair inside a Sequence.
type SeqItem struct {
	ID uint8
	TR uint8
}

// Sequence is an ordered list of transform applications plus a global
// rounds value. Two sequences are equal iff their ID lists match
// element-wise; TR and GR form an annotation that parameterizes execution,
// not identity (spec §3).
type Sequence struct {
	Items []SeqItem
	GR    uint8
}

// IDs returns the bare id list, discarding the TR annotation.
func (s Sequence) IDs() []uint8 {
	ids := make([]uint8, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.ID
	}

	return ids
}

// Len returns the number of transforms in the sequence.
func (s Sequence) Len() int {
	return len(s.Items)
}

// EqualIDs reports whether two sequences have identical id lists, ignoring
// TR/GR annotation, per spec §3's equality rule.
func EqualIDs(a, b Sequence) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}

	for i := range a.Items {
		if a.Items[i].ID != b.Items[i].ID {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	items := make([]SeqItem, len(s.Items))
	copy(items, s.Items)

	return Sequence{Items: items, GR: s.GR}
}

// String renders the bare id list, e.g. "[10 11 12]". Use codec.Format for
// the canonical annotated form.
func (s Sequence) String() string {
	return fmt.Sprintf("%v", s.IDs())
}

// InputProfile is the bundle passed to the cipher: a sequence, its per-
// transform rounds, and the global rounds value (spec §3).
type InputProfile struct {
	Name         string
	Sequence     Sequence
	GlobalRounds uint32
}

// AnalysisResult is one metric's outcome for a given evaluation.
type AnalysisResult struct {
	MetricName string
	Value      float64
	Threshold  float64
	Passed     bool
	Score      float64
	Notes      string
}

// Contender is a sequence whose aggregate score qualified for the top-N
// store.
type Contender struct {
	Sequence       []uint8
	AggregateScore float64
	Metrics        []AnalysisResult
	PassCount      uint32
}

// TotalMetrics returns the number of metrics evaluated for this contender.
func (c Contender) TotalMetrics() int {
	return len(c.Metrics)
}

// Less implements the ContenderStore ordering: score desc, pass_count desc,
// lexicographic sequence asc (spec §3). It reports whether c sorts before
// other.
func (c Contender) Less(other Contender) bool {
	if c.AggregateScore != other.AggregateScore {
		return c.AggregateScore > other.AggregateScore
	}

	if c.PassCount != other.PassCount {
		return c.PassCount > other.PassCount
	}

	return lexLess(c.Sequence, other.Sequence)
}

func lexLess(a, b []uint8) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return len(a) < len(b)
}

// DataType is the one-letter token identifying an input corpus category
// (spec §6).
type DataType byte

const (
	DataTypeSequence DataType = 'S'
	DataTypeNatural  DataType = 'N'
	DataTypeCombined DataType = 'C'
	DataTypeRandom   DataType = 'R'
	DataTypeUserData DataType = 'U'
)

func (d DataType) String() string {
	return string(d)
}
