package application

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/template"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/gavel-bench/internal/domain"
	"github.com/ahrav/gavel-bench/internal/ports"
)

//go:embed prompts.yaml
var defaultCatalogYAML []byte

// ErrUnknownTemplate is returned when a template identifier is not in the catalog.
var ErrUnknownTemplate = errors.New("unknown prompt template")

// PromptTemplate is one named system instruction for dispatch runs.
type PromptTemplate struct {
	ID          string `yaml:"id" validate:"required,max=64"`
	Description string `yaml:"description"`
	Content     string `yaml:"content" validate:"required"`
}

// JudgeSpec holds the rubric and the judge instruction template. The
// template is rendered with the rubric as data and may call inc to turn a
// zero-based index into a question number.
type JudgeSpec struct {
	Rubric       domain.Rubric `yaml:"rubric" validate:"required"`
	Instructions string        `yaml:"instructions" validate:"required"`
}

type catalogFile struct {
	Templates []PromptTemplate `yaml:"templates" validate:"required,min=1,dive"`
	Judge     JudgeSpec        `yaml:"judge" validate:"required"`
}

// PromptCatalog is the validated, immutable set of prompt templates and the
// judge configuration. Every template is resolved by explicit identifier.
type PromptCatalog struct {
	templates   map[string]PromptTemplate
	ids         []string
	rubric      domain.Rubric
	judgePrompt string
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*PromptCatalog, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalogYAML))
}

// LoadCatalogFile reads a catalog from a YAML file.
func LoadCatalogFile(path string) (*PromptCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ports.NewConfigError("catalog", err)
	}
	defer f.Close()

	cat, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// LoadCatalog decodes and validates a catalog. Unknown YAML fields,
// duplicate identifiers, an invalid rubric and a judge instruction that
// fails to render are all rejected.
func LoadCatalog(r io.Reader) (*PromptCatalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file catalogFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w: %w", domain.ErrInvalidConfiguration, err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validateStruct(validate, "PromptCatalog", file); err != nil {
		return nil, err
	}

	cat := &PromptCatalog{
		templates: make(map[string]PromptTemplate, len(file.Templates)),
		rubric:    file.Judge.Rubric,
	}
	for _, t := range file.Templates {
		if strings.ContainsFunc(t.ID, unicode.IsSpace) {
			verr := domain.NewValidationError("PromptCatalog")
			verr.AddError(fmt.Sprintf("template id %q contains whitespace", t.ID))
			return nil, verr
		}
		if _, dup := cat.templates[t.ID]; dup {
			verr := domain.NewValidationError("PromptCatalog")
			verr.AddError(fmt.Sprintf("duplicate template id %q", t.ID))
			return nil, verr
		}
		cat.templates[t.ID] = t
		cat.ids = append(cat.ids, t.ID)
	}
	slices.Sort(cat.ids)

	prompt, err := renderJudgeInstructions(file.Judge)
	if err != nil {
		return nil, err
	}
	cat.judgePrompt = prompt

	return cat, nil
}

func renderJudgeInstructions(spec JudgeSpec) (string, error) {
	tmpl, err := template.New("judge_instructions").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Option("missingkey=error").
		Parse(spec.Instructions)
	if err != nil {
		return "", fmt.Errorf("parse judge instructions: %w: %w", domain.ErrInvalidConfiguration, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, spec.Rubric); err != nil {
		return "", fmt.Errorf("render judge instructions: %w: %w", domain.ErrInvalidConfiguration, err)
	}
	return buf.String(), nil
}

// Template returns the template with the given identifier. An unknown
// identifier fails with the valid identifiers and the closest match.
func (c *PromptCatalog) Template(id string) (PromptTemplate, error) {
	if t, ok := c.templates[id]; ok {
		return t, nil
	}

	msg := fmt.Sprintf("%q (available: %s)", id, strings.Join(c.ids, ", "))
	if s := c.suggest(id); s != "" {
		msg += fmt.Sprintf("; did you mean %q?", s)
	}
	return PromptTemplate{}, fmt.Errorf("%w %s", ErrUnknownTemplate, msg)
}

// suggest returns the identifier closest to id by edit distance, if it is
// within half of id's length.
func (c *PromptCatalog) suggest(id string) string {
	best, bestDist := "", -1
	for _, candidate := range c.ids {
		d := levenshtein.ComputeDistance(strings.ToLower(id), strings.ToLower(candidate))
		if bestDist == -1 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist == -1 || bestDist > max(len(id)/2, 1) {
		return ""
	}
	return best
}

// Templates returns all templates sorted by identifier.
func (c *PromptCatalog) Templates() []PromptTemplate {
	out := make([]PromptTemplate, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.templates[id])
	}
	return out
}

// Rubric returns the judge rubric.
func (c *PromptCatalog) Rubric() domain.Rubric { return c.rubric }

// JudgeInstructions returns the rendered judge system prompt.
func (c *PromptCatalog) JudgeInstructions() string { return c.judgePrompt }
