// Package domain contains pure, dependency-free domain models for the
// evaluation pipeline: the items sent to a model, the responses collected,
// the rubric verdicts produced by the judge, and the statistics derived
// from those verdicts.
package domain

// WorkItem is one opaque text payload queued for a model invocation.
// Index is the item's position in the collected input sequence and is the
// only key used to pair it with its InvocationResult.
type WorkItem struct {
	Index int
	Text  string
}

// NewWorkItems indexes texts in order.
func NewWorkItems(texts []string) []WorkItem {
	items := make([]WorkItem, len(texts))
	for i, text := range texts {
		items[i] = WorkItem{Index: i, Text: text}
	}
	return items
}

// InvocationResult pairs a WorkItem with the text the model returned for it.
// Results are written once by the dispatcher and never mutated.
type InvocationResult struct {
	Index  int    `json:"-"`
	Input  string `json:"input,omitempty"`
	Output string `json:"response"`
}

// ResponsePair is an (input, response) pair read back from persisted
// invocation results and handed to the judge.
type ResponsePair struct {
	Input    string
	Response string
}

// JudgmentRecord is a RubricVerdict together with the input and response
// it was computed from. It is the durable unit every later aggregation or
// comparison run reads.
type JudgmentRecord struct {
	Verdict  RubricVerdict
	Input    string
	Response string
}

// Scores returns the record's observations keyed by dimension name,
// including the total_score pseudo-dimension when the record carries at
// least one dimension score.
func (r JudgmentRecord) Scores() map[string]float64 {
	scores := make(map[string]float64, len(r.Verdict.Dimensions)+1)
	for _, d := range r.Verdict.Dimensions {
		scores[DimensionName(d.Position)] = float64(d.Score)
	}
	if len(r.Verdict.Dimensions) > 0 {
		scores[TotalScoreDimension] = float64(r.Verdict.TotalScore)
	}
	return scores
}
