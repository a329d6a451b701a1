// Package analyzer is the external Analyzer contract (spec §4's Analyzer
// row): it computes AnalysisResult sets from payload/avalanche/key-dependency
// buffers. Real cryptanalysis metric functions are an external collaborator
// (spec §1); this package ships a reference implementation sufficient to
// exercise and test the search engine end-to-end.
package analyzer

import (
	"fmt"
	"math"

	"github.com/kestrelsec/munge/internal/model"
)

// Buffers bundles the three inputs an evaluation needs, per spec §4.6's
// worker steps: the encrypted payload, an avalanche diff buffer (payload XOR
// payload-from-a-1-bit-flipped-input), and a key-dependency diff buffer
// (payload XOR payload-from-a-1-bit-flipped-key).
type Buffers struct {
	Payload   []byte
	Avalanche []byte
	KeyDep    []byte
}

// Analyzer computes AnalysisResult sets from Buffers.
type Analyzer interface {
	Analyze(b Buffers) ([]model.AnalysisResult, error)
}

// MetricNames lists the nine metrics named in spec §1's PURPOSE & SCOPE, in
// a fixed order so ScoringMode weights line up positionally.
var MetricNames = []string{
	"entropy",
	"bit_variance",
	"sliding_window_uniformity",
	"frequency_distribution",
	"periodicity",
	"correlation",
	"positional_mapping",
	"avalanche",
	"key_dependency",
}

// Thresholds are the minimum passing value per metric, scaled [0,1].
var Thresholds = map[string]float64{
	"entropy":                   0.90,
	"bit_variance":              0.45,
	"sliding_window_uniformity": 0.80,
	"frequency_distribution":    0.80,
	"periodicity":               0.70,
	"correlation":               0.70,
	"positional_mapping":        0.70,
	"avalanche":                 0.40,
	"key_dependency":            0.40,
}

// Reference is the default, standard-library-only Analyzer implementation.
type Reference struct{}

// NewReference creates a Reference analyzer.
func NewReference() Reference { return Reference{} }

// Analyze implements Analyzer.
func (Reference) Analyze(b Buffers) ([]model.AnalysisResult, error) {
	if len(b.Payload) == 0 {
		return nil, fmt.Errorf("analyzer: empty payload")
	}

	scores := map[string]float64{
		"entropy":                   byteEntropyNormalized(b.Payload),
		"bit_variance":              bitVariance(b.Payload),
		"sliding_window_uniformity": slidingWindowUniformity(b.Payload, 8),
		"frequency_distribution":    frequencyDistribution(b.Payload),
		"periodicity":               periodicity(b.Payload),
		"correlation":               correlation(b.Payload),
		"positional_mapping":        positionalMapping(b.Payload),
		"avalanche":                 bitFraction(b.Avalanche),
		"key_dependency":            bitFraction(b.KeyDep),
	}

	results := make([]model.AnalysisResult, 0, len(MetricNames))

	for _, name := range MetricNames {
		v := scores[name]
		th := Thresholds[name]
		results = append(results, model.AnalysisResult{
			MetricName: name,
			Value:      v,
			Threshold:  th,
			Passed:     v >= th,
			Score:      v,
		})
	}

	return results, nil
}

// byteEntropyNormalized returns Shannon entropy over byte values, normalized
// to [0,1] by dividing by 8 bits.
func byteEntropyNormalized(data []byte) float64 {
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}

	n := float64(len(data))

	var h float64

	for _, c := range counts {
		if c == 0 {
			continue
		}

		p := float64(c) / n
		h -= p * math.Log2(p)
	}

	return h / 8.0
}

// bitVariance measures how close the fraction of set bits is to 1/2,
// returning 1.0 at exactly 1/2 and decaying linearly to 0 at the extremes.
func bitVariance(data []byte) float64 {
	frac := bitFraction(data)

	return 1.0 - math.Abs(frac-0.5)*2.0
}

// bitFraction returns the fraction of set bits across data, in [0,1].
func bitFraction(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var ones, total int

	for _, b := range data {
		ones += popcount(b)
		total += 8
	}

	return float64(ones) / float64(total)
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}

	return n
}

// slidingWindowUniformity buckets a sliding window's byte sum and scores how
// uniformly sums are distributed across buckets.
func slidingWindowUniformity(data []byte, window int) float64 {
	if len(data) < window {
		return 0
	}

	const buckets = 16

	var hist [buckets]int

	var sum int

	for i := 0; i < window; i++ {
		sum += int(data[i])
	}

	hist[bucketOf(sum, window, buckets)]++

	for i := window; i < len(data); i++ {
		sum += int(data[i]) - int(data[i-window])
		hist[bucketOf(sum, window, buckets)]++
	}

	return chiSquareUniformity(hist[:])
}

func bucketOf(sum, window, buckets int) int {
	maxSum := window * 255
	b := sum * buckets / (maxSum + 1)

	if b >= buckets {
		b = buckets - 1
	}

	return b
}

func chiSquareUniformity(hist []int) float64 {
	total := 0
	for _, h := range hist {
		total += h
	}

	if total == 0 {
		return 0
	}

	expected := float64(total) / float64(len(hist))

	var chi2 float64

	for _, h := range hist {
		diff := float64(h) - expected
		chi2 += diff * diff / expected
	}

	// Normalize: chi2 == 0 -> perfectly uniform -> score 1.
	// Larger chi2 decays the score toward 0.
	return 1.0 / (1.0 + chi2/float64(len(hist)))
}

// frequencyDistribution scores how close the byte-value histogram is to
// uniform, via the same chi-square-decay approach as slidingWindowUniformity.
func frequencyDistribution(data []byte) float64 {
	var hist [256]int
	for _, b := range data {
		hist[b]++
	}

	return chiSquareUniformity(hist[:])
}

// periodicity scores the absence of repeating cycles: for each period p in
// [1, len/2] it takes the fraction of positions i with data[i] == data[i-p],
// and returns 1 minus the largest such fraction (1.0 when no position
// matches at any period, 0 when some period reproduces the buffer exactly).
func periodicity(data []byte) float64 {
	maxPeriod := len(data) / 2
	if maxPeriod == 0 {
		return 1
	}

	worst := 0.0

	for p := 1; p <= maxPeriod; p++ {
		matches := 0
		total := 0

		for i := p; i < len(data); i++ {
			total++

			if data[i] == data[i-p] {
				matches++
			}
		}

		if total == 0 {
			continue
		}

		frac := float64(matches) / float64(total)
		if frac > worst {
			worst = frac
		}
	}

	return 1.0 - worst
}

// correlation scores the absence of linear correlation between a byte and
// its successor (lag-1 Pearson correlation, mapped so 0 correlation -> 1.0).
func correlation(data []byte) float64 {
	if len(data) < 2 {
		return 1
	}

	n := len(data) - 1
	var sumX, sumY, sumXY, sumX2, sumY2 float64

	for i := 0; i < n; i++ {
		x := float64(data[i])
		y := float64(data[i+1])
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
		sumY2 += y * y
	}

	nf := float64(n)
	cov := sumXY/nf - (sumX/nf)*(sumY/nf)
	varX := sumX2/nf - (sumX/nf)*(sumX/nf)
	varY := sumY2/nf - (sumY/nf)*(sumY/nf)

	if varX <= 0 || varY <= 0 {
		return 1
	}

	r := cov / math.Sqrt(varX*varY)

	return 1.0 - math.Abs(r)
}

// positionalMapping scores how much a byte's value depends on its position
// by comparing the buffer against a cyclic rotation of itself: low overlap
// means position carries information, scored toward 1.
func positionalMapping(data []byte) float64 {
	if len(data) < 2 {
		return 1
	}

	n := len(data)
	matches := 0

	for i := 0; i < n; i++ {
		if data[i] == data[(i+1)%n] {
			matches++
		}
	}

	return 1.0 - float64(matches)/float64(n)
}
