package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionNames(t *testing.T) {
	assert.Equal(t, "q1", DimensionName(1))
	assert.Equal(t, "q12_score", ScoreKey(12))
}

func TestNewRubricVerdict_OrdersAndTotals(t *testing.T) {
	v := NewRubricVerdict([]DimensionVerdict{
		{Position: 3, Score: 4},
		{Position: 1, Score: 2},
		{Position: 2, Score: 3},
	})

	assert.Equal(t, 9, v.TotalScore)
	for i, d := range v.Dimensions {
		assert.Equal(t, i+1, d.Position)
	}
}

func TestJudgmentRecord_MarshalKeyOrder(t *testing.T) {
	rec := JudgmentRecord{
		Verdict: NewRubricVerdict([]DimensionVerdict{
			{Position: 1, Rationale: "clear", Score: 4},
			{Position: 2, Rationale: "brief", Score: 2},
		}),
		Input:    "why?",
		Response: "because",
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t,
		`{"q1":"clear","q1_score":4,"q2":"brief","q2_score":2,"total_score":6,"input":"why?","response":"because"}`,
		string(data))
}

func TestJudgmentRecord_RoundTrip(t *testing.T) {
	want := JudgmentRecord{
		Verdict: NewRubricVerdict([]DimensionVerdict{
			{Position: 1, Rationale: "a", Score: 1},
			{Position: 2, Rationale: "b", Score: 5},
			{Position: 10, Rationale: "c", Score: 0},
		}),
		Input:    "in",
		Response: "out",
	}

	data, err := json.Marshal(want)
	require.NoError(t, err)

	var got JudgmentRecord
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestJudgmentRecord_Unmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantDims  int
		wantTotal int
		wantErr   bool
	}{
		{
			name:      "stored total is recomputed",
			input:     `{"q1":"x","q1_score":2,"q2":"y","q2_score":3,"q3":"z","q3_score":4,"total_score":42}`,
			wantDims:  3,
			wantTotal: 9,
		},
		{
			name:      "sparse record",
			input:     `{"q2_score":4,"input":"i","response":"r"}`,
			wantDims:  1,
			wantTotal: 4,
		},
		{
			name:      "no dimensions",
			input:     `{"input":"i","response":"r"}`,
			wantDims:  0,
			wantTotal: 0,
		},
		{
			name:      "unrelated keys ignored",
			input:     `{"q1_score":1,"note":"n","q0_score":9}`,
			wantDims:  1,
			wantTotal: 1,
		},
		{
			name:    "non-integer score",
			input:   `{"q1_score":"high"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			input:   `[1,2]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec JudgmentRecord
			err := json.Unmarshal([]byte(tt.input), &rec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rec.Verdict.Dimensions, tt.wantDims)
			assert.Equal(t, tt.wantTotal, rec.Verdict.TotalScore)
		})
	}
}

func TestJudgmentRecord_Scores(t *testing.T) {
	rec := JudgmentRecord{Verdict: NewRubricVerdict([]DimensionVerdict{
		{Position: 1, Score: 3},
		{Position: 2, Score: 5},
	})}
	assert.Equal(t, map[string]float64{"q1": 3, "q2": 5, "total_score": 8}, rec.Scores())

	empty := JudgmentRecord{Verdict: NewRubricVerdict(nil)}
	assert.Empty(t, empty.Scores())
}
