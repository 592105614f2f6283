package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictError(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		err     error
		detail  string
		wantMsg string
	}{
		{
			name:    "missing key",
			field:   "q2_score",
			err:     ErrMalformedVerdict,
			detail:  "missing",
			wantMsg: "judge verdict field q2_score: malformed verdict (missing)",
		},
		{
			name:    "out of range without detail",
			field:   "q1_score",
			err:     ErrScoreOutOfRange,
			wantMsg: "judge verdict field q1_score: score out of range",
		},
		{
			name:    "unparseable output",
			err:     ErrMalformedVerdict,
			detail:  "no JSON object in judge output",
			wantMsg: "judge verdict: malformed verdict (no JSON object in judge output)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewVerdictError(tt.field, tt.err, tt.detail)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, fmt.Errorf("item 3: %w", err), tt.err)
		})
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		problems []string
		wantMsg  string
	}{
		{name: "one problem", problems: []string{"no questions"}, wantMsg: "invalid Rubric: no questions"},
		{
			name:     "several problems",
			problems: []string{"empty template", "max_score below 1"},
			wantMsg:  "invalid Rubric: empty template; max_score below 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError("Rubric")
			assert.False(t, err.HasErrors())
			for _, p := range tt.problems {
				err.AddError(p)
			}
			assert.True(t, err.HasErrors())
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}
