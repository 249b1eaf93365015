// Package classifier matches a descriptor against the current prototype set.
package classifier

import (
	"math"
	"sort"

	"github.com/xxxsen/outfitcast/internal/prototype"
)

const (
	UnknownLabel = "unknown"
	voteSize     = 3
)

type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either norm is 0 or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func Classify(vec []float32, set *prototype.Set) Result {
	if set == nil {
		return Result{Label: UnknownLabel}
	}
	return ClassifyRows(vec, set.Labels(), set.Centroids())
}

// ClassifyRows scores vec against every row and smooths the answer with a
// vote among the three most similar rows: the most frequent label among them
// wins, ties going to the label holding the highest similarity. Confidence is
// always the single best similarity rounded to two decimals, even when the
// vote picks a different label. Rows may share a label.
func ClassifyRows(vec []float32, labels []string, rows [][]float32) Result {
	n := len(rows)
	if len(labels) < n {
		n = len(labels)
	}
	if n == 0 {
		return Result{Label: UnknownLabel}
	}
	sims := make([]float64, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		sims[i] = Cosine(vec, rows[i])
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sims[order[i]] > sims[order[j]]
	})

	best := order[0]
	top := order
	if len(top) > voteSize {
		top = top[:voteSize]
	}
	counts := make(map[string]int, len(top))
	for _, idx := range top {
		counts[labels[idx]]++
	}
	final := labels[best]
	for _, idx := range top {
		if counts[labels[idx]] > counts[final] {
			final = labels[idx]
		}
	}
	return Result{Label: final, Confidence: round2(sims[best])}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ConfidenceMessage(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return "Very confident prediction"
	case confidence >= 0.5:
		return "Confident prediction"
	case confidence >= 0.3:
		return "Medium confidence - may vary"
	default:
		return "Low confidence - image unclear"
	}
}
