package application

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ahrav/gavel-bench/internal/domain"
)

// Compare runs an independent two-sample t-test on every dimension that has
// observations in both distributions. Dimensions present on one side only
// are skipped. Results follow dimension report order; a is group 1.
func Compare(a, b domain.ScoreDistribution) []domain.ComparisonResult {
	results := make([]domain.ComparisonResult, 0)
	for _, dim := range a.Dimensions() {
		x, y := a.Scores[dim], b.Scores[dim]
		if len(y) == 0 {
			continue
		}

		t, p := studentTTest(x, y)
		results = append(results, domain.ComparisonResult{
			Dimension:   dim,
			Group1Count: len(x),
			Group2Count: len(y),
			Group1Mean:  stat.Mean(x, nil),
			Group2Mean:  stat.Mean(y, nil),
			TStatistic:  t,
			PValue:      p,
			Significant: p < domain.SignificanceLevel,
		})
	}
	return results
}

// studentTTest returns the t statistic and two-tailed p-value of Student's
// independent two-sample test with pooled variance.
//
// With zero pooled variance the statistic is ±Inf (p = 0) when the means
// differ and undefined (NaN) when they do not. It is also undefined when
// there are fewer than three observations in total.
func studentTTest(x, y []float64) (t, p float64) {
	n1, n2 := float64(len(x)), float64(len(y))
	df := n1 + n2 - 2
	if df <= 0 {
		return math.NaN(), math.NaN()
	}

	m1, v1 := sampleMeanVariance(x)
	m2, v2 := sampleMeanVariance(y)
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	diff := m1 - m2

	if se == 0 {
		if diff == 0 {
			return math.NaN(), math.NaN()
		}
		return math.Copysign(math.Inf(1), diff), 0
	}

	t = diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(math.Abs(t))
	return t, math.Min(p, 1)
}

func sampleMeanVariance(values []float64) (mean, variance float64) {
	if len(values) < 2 {
		return stat.Mean(values, nil), 0
	}
	return stat.MeanVariance(values, nil)
}
