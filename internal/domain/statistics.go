package domain

import (
	"slices"
	"strconv"
	"strings"
)

// SignificanceLevel is the fixed α used to flag a comparison as significant.
const SignificanceLevel = 0.05

// ScoreDistribution is a named collection of observations per dimension,
// gathered from a set of judgment records. Dimensions may hold different
// numbers of observations because records are allowed to be sparse.
type ScoreDistribution struct {
	Name   string
	Scores map[string][]float64
}

// Dimensions returns the names of the dimensions holding at least one
// observation, in report order.
func (d ScoreDistribution) Dimensions() []string {
	names := make([]string, 0, len(d.Scores))
	for name, values := range d.Scores {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	SortDimensions(names)
	return names
}

// DimensionSummary holds the descriptive statistics of one dimension.
type DimensionSummary struct {
	Dimension string  `json:"dimension"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
	StdDev    float64 `json:"stdev"`
}

// SummaryStatistics lists per-dimension summaries in report order.
// Dimensions without observations never appear.
type SummaryStatistics struct {
	Name       string             `json:"name,omitempty"`
	Dimensions []DimensionSummary `json:"dimensions"`
}

// Lookup returns the summary for the named dimension.
func (s SummaryStatistics) Lookup(dimension string) (DimensionSummary, bool) {
	for _, d := range s.Dimensions {
		if d.Dimension == dimension {
			return d, true
		}
	}
	return DimensionSummary{}, false
}

// ComparisonResult is the outcome of a two-sample test on one dimension
// shared by two distributions.
type ComparisonResult struct {
	Dimension   string  `json:"dimension"`
	Group1Count int     `json:"group1_count"`
	Group2Count int     `json:"group2_count"`
	Group1Mean  float64 `json:"group1_mean"`
	Group2Mean  float64 `json:"group2_mean"`
	TStatistic  float64 `json:"t_statistic"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
}

// SortDimensions orders dimension names as q1, q2, ..., q10, ... followed by
// any other names alphabetically, with total_score last.
func SortDimensions(names []string) {
	slices.SortFunc(names, func(a, b string) int {
		ra, ia := dimensionRank(a)
		rb, ib := dimensionRank(b)
		if ra != rb {
			return ra - rb
		}
		if ia != ib {
			return ia - ib
		}
		return strings.Compare(a, b)
	})
}

func dimensionRank(name string) (rank, position int) {
	if name == TotalScoreDimension {
		return 2, 0
	}
	if m := dimensionKeyPattern.FindStringSubmatch(name); m != nil && m[2] == "" {
		pos, err := strconv.Atoi(m[1])
		if err == nil {
			return 0, pos
		}
	}
	return 1, 0
}
