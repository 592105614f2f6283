package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

// TotalScoreDimension names the pseudo-dimension holding a verdict's total.
const TotalScoreDimension = "total_score"

// dimensionKeyPattern matches persisted rubric keys such as "q3" and "q3_score".
var dimensionKeyPattern = regexp.MustCompile(`^q([1-9][0-9]*)(_score)?$`)

// DimensionName returns the persisted name of the rubric dimension at the
// given 1-based position ("q1", "q2", ...).
func DimensionName(position int) string { return "q" + strconv.Itoa(position) }

// ScoreKey returns the persisted key of a dimension's score ("q1_score").
func ScoreKey(position int) string { return DimensionName(position) + "_score" }

// Rubric is the fixed set of questions a judge answers about a response.
// Every question is scored as an integer in [0, MaxScore].
type Rubric struct {
	// Questions are asked in order; question i becomes dimension q<i+1>.
	Questions []string `yaml:"questions" json:"questions" validate:"required,min=1,dive,required"`

	// MaxScore is the inclusive upper bound of every dimension score.
	MaxScore int `yaml:"max_score" json:"max_score" validate:"required,min=1,max=100"`
}

// Dimensions returns the number of scored dimensions in the rubric.
func (r Rubric) Dimensions() int { return len(r.Questions) }

// DimensionVerdict is the judge's answer to one rubric question.
type DimensionVerdict struct {
	// Position is the 1-based index of the rubric question.
	Position int

	// Rationale is the judge's free-text answer to the question.
	Rationale string

	// Score is the integer score assigned to the dimension.
	Score int
}

// RubricVerdict is a judge's complete, validated answer to a rubric.
// TotalScore always equals the sum of the dimension scores; it is derived
// by NewRubricVerdict and never copied from judge output.
type RubricVerdict struct {
	Dimensions []DimensionVerdict
	TotalScore int
}

// NewRubricVerdict orders the dimensions by position and derives TotalScore.
func NewRubricVerdict(dimensions []DimensionVerdict) RubricVerdict {
	dims := slices.Clone(dimensions)
	slices.SortFunc(dims, func(a, b DimensionVerdict) int { return a.Position - b.Position })

	total := 0
	for _, d := range dims {
		total += d.Score
	}
	return RubricVerdict{Dimensions: dims, TotalScore: total}
}

// MarshalJSON writes the record as a flat object in rubric order:
// q1, q1_score, ..., qN, qN_score, total_score, input, response.
func (r JudgmentRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, d := range r.Verdict.Dimensions {
		if err := write(DimensionName(d.Position), d.Rationale); err != nil {
			return nil, err
		}
		if err := write(ScoreKey(d.Position), d.Score); err != nil {
			return nil, err
		}
	}
	if err := write(TotalScoreDimension, r.Verdict.TotalScore); err != nil {
		return nil, err
	}
	if err := write("input", r.Input); err != nil {
		return nil, err
	}
	if err := write("response", r.Response); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a persisted judgment record. Dimensions are taken from
// whichever q<i>_score keys are present, so records with sparse rubrics load
// without error. The stored total_score is ignored and recomputed from the
// dimensions that were read.
func (r *JudgmentRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rationales := make(map[int]string)
	var dims []DimensionVerdict
	for key, value := range raw {
		m := dimensionKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		pos, err := strconv.Atoi(m[1])
		if err != nil {
			return fmt.Errorf("dimension key %q: %w", key, err)
		}

		if m[2] == "" {
			var rationale string
			if err := json.Unmarshal(value, &rationale); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			rationales[pos] = rationale
			continue
		}

		var score int
		if err := json.Unmarshal(value, &score); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		dims = append(dims, DimensionVerdict{Position: pos, Score: score})
	}
	for i := range dims {
		dims[i].Rationale = rationales[dims[i].Position]
	}

	var rec JudgmentRecord
	if v, ok := raw["input"]; ok {
		if err := json.Unmarshal(v, &rec.Input); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	}
	if v, ok := raw["response"]; ok {
		if err := json.Unmarshal(v, &rec.Response); err != nil {
			return fmt.Errorf("response: %w", err)
		}
	}
	rec.Verdict = NewRubricVerdict(dims)

	*r = rec
	return nil
}
