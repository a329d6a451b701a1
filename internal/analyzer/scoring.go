package analyzer

import "github.com/kestrelsec/munge/internal/model"

// Mode names a weighting profile applied to metric scores when computing a
// contender's aggregate score.
type Mode string

const (
	// ModeBalanced weights every metric equally.
	ModeBalanced Mode = "balanced"
	// ModeAvalancheHeavy favors avalanche/key-dependency behavior, the
	// properties most sensitive to round/sequence changes.
	ModeAvalancheHeavy Mode = "avalanche_heavy"
	// ModeDistributionHeavy favors the static distribution metrics.
	ModeDistributionHeavy Mode = "distribution_heavy"
)

// Weights returns the per-metric weight map for mode. Unknown modes fall
// back to ModeBalanced.
func Weights(mode Mode) map[string]float64 {
	switch mode {
	case ModeAvalancheHeavy:
		return map[string]float64{
			"entropy": 1, "bit_variance": 1, "sliding_window_uniformity": 1,
			"frequency_distribution": 1, "periodicity": 1, "correlation": 1,
			"positional_mapping": 1, "avalanche": 3, "key_dependency": 3,
		}
	case ModeDistributionHeavy:
		return map[string]float64{
			"entropy": 2, "bit_variance": 2, "sliding_window_uniformity": 2,
			"frequency_distribution": 2, "periodicity": 1, "correlation": 1,
			"positional_mapping": 1, "avalanche": 1, "key_dependency": 1,
		}
	default:
		w := make(map[string]float64, len(MetricNames))
		for _, n := range MetricNames {
			w[n] = 1
		}

		return w
	}
}

// Aggregate computes the weighted sum of metric scores for mode, normalized
// by the sum of weights so the result stays in [0,1]. Whether a metric
// passed its threshold does not affect the sum.
func Aggregate(results []model.AnalysisResult, mode Mode) float64 {
	weights := Weights(mode)

	var sum, weightSum float64

	for _, r := range results {
		w := weights[r.MetricName]
		sum += w * r.Score
		weightSum += w
	}

	if weightSum == 0 {
		return 0
	}

	return sum / weightSum
}

// PassCount returns how many metrics passed their threshold.
func PassCount(results []model.AnalysisResult) uint32 {
	var n uint32

	for _, r := range results {
		if r.Passed {
			n++
		}
	}

	return n
}
