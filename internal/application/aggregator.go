package application

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/gavel-bench/internal/domain"
)

// NewScoreDistribution gathers every record's dimension scores, and its
// total_score, into per-dimension observation lists. Records may carry
// different dimension sets.
func NewScoreDistribution(name string, records []domain.JudgmentRecord) domain.ScoreDistribution {
	dist := domain.ScoreDistribution{Name: name, Scores: make(map[string][]float64)}
	for _, rec := range records {
		for dim, score := range rec.Scores() {
			dist.Scores[dim] = append(dist.Scores[dim], score)
		}
	}
	return dist
}

// Summarize computes per-dimension statistics over records.
func Summarize(records []domain.JudgmentRecord) domain.SummaryStatistics {
	return SummarizeDistribution(NewScoreDistribution("", records))
}

// SummarizeDistribution computes count, mean, median and sample standard
// deviation for every dimension holding at least one observation. Values
// are sorted before any arithmetic, so the result does not depend on the
// order the records were read in.
func SummarizeDistribution(dist domain.ScoreDistribution) domain.SummaryStatistics {
	dims := dist.Dimensions()
	summary := domain.SummaryStatistics{
		Name:       dist.Name,
		Dimensions: make([]domain.DimensionSummary, 0, len(dims)),
	}
	for _, dim := range dims {
		summary.Dimensions = append(summary.Dimensions, summarizeValues(dim, dist.Scores[dim]))
	}
	return summary
}

func summarizeValues(dim string, values []float64) domain.DimensionSummary {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	s := domain.DimensionSummary{
		Dimension: dim,
		Count:     len(sorted),
		Mean:      stat.Mean(sorted, nil),
		Median:    median(sorted),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// median returns the middle of sorted, averaging the two middle values
// when the length is even.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
