package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/chainguard-dev/clog"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/ahrav/gavel-bench/internal/domain"
	"github.com/ahrav/gavel-bench/internal/ports"
)

// JudgeTemperature is the sampling temperature of every judge call.
const JudgeTemperature = 0.0

// verdictSchemaName names the structured output requested from the judge.
const verdictSchemaName = "rubric_verdict"

// judgePromptTemplate frames one (input, response) pair for the judge.
var judgePromptTemplate = template.Must(template.New("judge_prompt").Parse(
	`Here is the user input:
<user_input>
{{.Input}}
</user_input>

Here is the LLM's response:
<llm_response>
{{.Response}}
</llm_response>

How well did the LLM respond to the input?`))

// Judge asks a judge model to score responses against a fixed rubric and
// validates its structured answer.
type Judge struct {
	client   ports.LLMClient
	rubric   domain.Rubric
	system   string
	schema   ports.ResponseSchema
	validate *validator.Validate
	settings batchSettings
}

// NewJudge creates a Judge for rubric using system as the judge's
// instruction. The rubric is validated up front.
func NewJudge(client ports.LLMClient, rubric domain.Rubric, system string, opts ...BatchOption) (*Judge, error) {
	if client == nil {
		return nil, errors.New("judge requires an LLM client")
	}
	if strings.TrimSpace(system) == "" {
		return nil, fmt.Errorf("judge instruction: %w", domain.ErrEmptyValue)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validateStruct(validate, "Rubric", rubric); err != nil {
		return nil, err
	}

	schema, err := VerdictSchema(rubric)
	if err != nil {
		return nil, err
	}

	return &Judge{
		client:   client,
		rubric:   rubric,
		system:   system,
		schema:   schema,
		validate: validate,
		settings: newBatchSettings(opts),
	}, nil
}

// VerdictSchema returns the JSON schema of a judge's answer to rubric:
// q<i> (string) and q<i>_score (integer in [0, MaxScore]) for every
// question, plus total_score. No other properties are allowed.
func VerdictSchema(rubric domain.Rubric) (ports.ResponseSchema, error) {
	props := jsonschema.NewProperties()
	required := make([]string, 0, 2*len(rubric.Questions)+1)

	for i, question := range rubric.Questions {
		pos := i + 1
		props.Set(domain.DimensionName(pos), &jsonschema.Schema{
			Type:        "string",
			Description: fmt.Sprintf("Answer to question %d: %s", pos, question),
		})
		props.Set(domain.ScoreKey(pos), &jsonschema.Schema{
			Type:        "integer",
			Description: fmt.Sprintf("Score for question %d", pos),
			Minimum:     json.Number("0"),
			Maximum:     json.Number(strconv.Itoa(rubric.MaxScore)),
		})
		required = append(required, domain.DimensionName(pos), domain.ScoreKey(pos))
	}
	props.Set(domain.TotalScoreDimension, &jsonschema.Schema{
		Type:        "integer",
		Description: "Sum of all question scores",
	})
	required = append(required, domain.TotalScoreDimension)

	schema := &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return ports.ResponseSchema{}, fmt.Errorf("marshal verdict schema: %w", err)
	}
	return ports.ResponseSchema{
		Name:        verdictSchemaName,
		Description: "Rubric verdict for one response",
		Schema:      data,
		Strict:      true,
	}, nil
}

// Rubric returns the rubric the judge scores against.
func (j *Judge) Rubric() domain.Rubric { return j.rubric }

// Judge scores one response. The returned verdict's total is the sum of the
// validated dimension scores; the judge's own total is never used.
func (j *Judge) Judge(ctx context.Context, input, response string) (domain.RubricVerdict, error) {
	var prompt bytes.Buffer
	if err := judgePromptTemplate.Execute(&prompt, struct{ Input, Response string }{input, response}); err != nil {
		return domain.RubricVerdict{}, fmt.Errorf("render judge prompt: %w", err)
	}

	raw, err := j.client.Complete(ctx, prompt.String(), map[string]any{
		ports.OptionSystem:         j.system,
		ports.OptionTemperature:    JudgeTemperature,
		ports.OptionResponseSchema: j.schema,
	})
	if err != nil {
		return domain.RubricVerdict{}, err
	}
	return j.decode(raw)
}

// JudgeBatch scores every pair with bounded concurrency and returns the
// records in pair order. Any failed judgment aborts the batch.
func (j *Judge) JudgeBatch(ctx context.Context, pairs []domain.ResponsePair) ([]domain.JudgmentRecord, error) {
	log := clog.FromContext(ctx).With("model", j.client.GetModel())

	if len(pairs) == 0 {
		log.Info("nothing to do: no input-response pairs to judge")
		return []domain.JudgmentRecord{}, nil
	}

	log.Infof("Judging %d responses...", len(pairs))

	var records []domain.JudgmentRecord
	err := j.settings.observe(ctx, "judge", len(pairs), func(ctx context.Context) error {
		var err error
		records, err = RunBatch(ctx, pairs, j.settings.concurrency,
			func(ctx context.Context, index int, pair domain.ResponsePair) (domain.JudgmentRecord, error) {
				verdict, err := j.Judge(ctx, pair.Input, pair.Response)
				if err != nil {
					return domain.JudgmentRecord{}, ports.NewLLMError(j.client.GetModel(), "judge", index, err)
				}
				return domain.JudgmentRecord{Verdict: verdict, Input: pair.Input, Response: pair.Response}, nil
			})
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// decode parses the judge's output strictly against the rubric. Missing or
// unexpected keys, wrong types and out-of-range scores are all rejected.
func (j *Judge) decode(raw string) (domain.RubricVerdict, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return domain.RubricVerdict{}, domain.NewVerdictError("", domain.ErrMalformedVerdict, "no JSON object in judge output")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return domain.RubricVerdict{}, domain.NewVerdictError("", domain.ErrMalformedVerdict, err.Error())
	}

	n := j.rubric.Dimensions()
	expected := make(map[string]bool, 2*n+1)
	for pos := 1; pos <= n; pos++ {
		expected[domain.DimensionName(pos)] = true
		expected[domain.ScoreKey(pos)] = true
	}
	expected[domain.TotalScoreDimension] = true
	for key := range fields {
		if !expected[key] {
			return domain.RubricVerdict{}, domain.NewVerdictError(key, domain.ErrMalformedVerdict, "unexpected field")
		}
	}

	dims := make([]domain.DimensionVerdict, 0, n)
	for pos := 1; pos <= n; pos++ {
		var d domain.DimensionVerdict
		d.Position = pos
		if err := decodeField(fields, domain.DimensionName(pos), &d.Rationale); err != nil {
			return domain.RubricVerdict{}, err
		}
		if err := decodeField(fields, domain.ScoreKey(pos), &d.Score); err != nil {
			return domain.RubricVerdict{}, err
		}
		rule := fmt.Sprintf("min=0,max=%d", j.rubric.MaxScore)
		if err := j.validate.Var(d.Score, rule); err != nil {
			return domain.RubricVerdict{}, domain.NewVerdictError(domain.ScoreKey(pos), domain.ErrScoreOutOfRange,
				fmt.Sprintf("%d not in [0, %d]", d.Score, j.rubric.MaxScore))
		}
		dims = append(dims, d)
	}

	// The declared total must be present and well-typed, but its value is
	// replaced by the sum of the validated scores.
	var declared int
	if err := decodeField(fields, domain.TotalScoreDimension, &declared); err != nil {
		return domain.RubricVerdict{}, err
	}

	return domain.NewRubricVerdict(dims), nil
}

func decodeField(fields map[string]json.RawMessage, key string, target any) error {
	value, ok := fields[key]
	if !ok {
		return domain.NewVerdictError(key, domain.ErrMalformedVerdict, "missing")
	}
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return domain.NewVerdictError(key, domain.ErrMalformedVerdict, "null")
	}
	if err := json.Unmarshal(value, target); err != nil {
		return domain.NewVerdictError(key, domain.ErrMalformedVerdict, err.Error())
	}
	return nil
}

// extractJSON returns the first JSON object in response, looking inside
// markdown code fences first. It returns "" when no object is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```"); start != -1 {
		body := response[start+3:]
		if nl := strings.Index(body, "\n"); nl != -1 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			if candidate := strings.TrimSpace(body[:end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Find the matching closing brace, ignoring braces inside strings.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// validateStruct runs struct validation and reports failures as a
// domain.ValidationError for entity.
func validateStruct(validate *validator.Validate, entity string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s: %w", entity, err)
	}

	verr := domain.NewValidationError(entity)
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			verr.AddError(fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			verr.AddError(fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return verr
}
