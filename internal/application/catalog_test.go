package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/gavel-bench/internal/domain"
	"github.com/ahrav/gavel-bench/internal/ports"
)

func TestDefaultCatalog(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, tmpl := range cat.Templates() {
		ids = append(ids, tmpl.ID)
		assert.NotEmpty(t, tmpl.Content)
	}
	assert.Equal(t, []string{"prompt1", "prompt2", "prompt3"}, ids)

	rubric := cat.Rubric()
	assert.Equal(t, 5, rubric.MaxScore)
	assert.Equal(t, 3, rubric.Dimensions())

	instructions := cat.JudgeInstructions()
	assert.Contains(t, instructions, "from 0 to 5")
	for i, q := range rubric.Questions {
		assert.Contains(t, instructions, fmt.Sprintf("%d. %s", i+1, q))
	}
	assert.NotContains(t, instructions, "{{")
}

func TestPromptCatalog_Template(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	tmpl, err := cat.Template("prompt2")
	require.NoError(t, err)
	assert.Equal(t, "prompt2", tmpl.ID)

	tests := []struct {
		name        string
		id          string
		wantSuggest string
	}{
		{name: "near miss", id: "promt2", wantSuggest: `did you mean "prompt2"?`},
		{name: "case difference", id: "Prompt3", wantSuggest: `did you mean "prompt3"?`},
		{name: "far off", id: "xyz"},
		{name: "empty", id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.Template(tt.id)
			require.ErrorIs(t, err, ErrUnknownTemplate)
			assert.Contains(t, err.Error(), "available: prompt1, prompt2, prompt3")
			if tt.wantSuggest != "" {
				assert.Contains(t, err.Error(), tt.wantSuggest)
			} else {
				assert.NotContains(t, err.Error(), "did you mean")
			}
		})
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	const judge = `
judge:
  rubric:
    max_score: 3
    questions: ["Good?"]
  instructions: "Score 0 to {{.MaxScore}}"
`
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{
			name:    "unknown field",
			yaml:    "templates:\n  - id: a\n    content: x\n    colour: red\n" + judge,
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name: "no templates",
			yaml: "templates: []\n" + judge,
		},
		{
			name: "missing content",
			yaml: "templates:\n  - id: a\n" + judge,
		},
		{
			name: "duplicate id",
			yaml: "templates:\n  - id: a\n    content: x\n  - id: a\n    content: y\n" + judge,
		},
		{
			name: "whitespace in id",
			yaml: "templates:\n  - id: \"my prompt\"\n    content: x\n" + judge,
		},
		{
			name: "empty rubric",
			yaml: "templates:\n  - id: a\n    content: x\njudge:\n  rubric:\n    max_score: 3\n  instructions: hi\n",
		},
		{
			name:    "instructions reference unknown field",
			yaml:    "templates:\n  - id: a\n    content: x\njudge:\n  rubric:\n    max_score: 3\n    questions: [\"q\"]\n  instructions: \"{{.Nope}}\"\n",
			wantErr: domain.ErrInvalidConfiguration,
		},
		{
			name:    "instructions do not parse",
			yaml:    "templates:\n  - id: a\n    content: x\njudge:\n  rubric:\n    max_score: 3\n    questions: [\"q\"]\n  instructions: \"{{range}}\"\n",
			wantErr: domain.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := LoadCatalog(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Nil(t, cat)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			var verr *domain.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  - id: terse
    content: Answer in one sentence.
judge:
  rubric:
    max_score: 10
    questions: ["Correct?", "Polite?"]
  instructions: "Score each of {{len .Questions}} questions from 0 to {{.MaxScore}}."
`), 0o644))

	cat, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Score each of 2 questions from 0 to 10.", cat.JudgeInstructions())
	assert.Equal(t, 10, cat.Rubric().MaxScore)

	_, err = LoadCatalogFile(filepath.Join(dir, "missing.yaml"))
	var cfgErr *ports.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "catalog", cfgErr.Key)
}
