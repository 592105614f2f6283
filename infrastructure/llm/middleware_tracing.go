package llm

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/gavel-bench/internal/ports"
)

// Span attribute keys, following the OpenTelemetry GenAI conventions.
const (
	attrModel        = attribute.Key("gen_ai.request.model")
	attrInputTokens  = attribute.Key("gen_ai.usage.input_tokens")
	attrOutputTokens = attribute.Key("gen_ai.usage.output_tokens")
	attrStructured   = attribute.Key("gavel.structured_output")
	attrErrorType    = attribute.Key("error.type")
)

// TracingMiddleware opens an "llm.complete" span per call on the global
// tracer provider.
func TracingMiddleware(instrumentation string) Middleware {
	return TracingMiddlewareWithProvider(instrumentation, otel.GetTracerProvider())
}

// TracingMiddlewareWithProvider is TracingMiddleware on tp.
func TracingMiddlewareWithProvider(instrumentation string, tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer(instrumentation)
	return func(next CoreLLM) CoreLLM {
		return &spanLLM{next: next, tracer: tracer}
	}
}

type spanLLM struct {
	next   CoreLLM
	tracer trace.Tracer
}

func (s *spanLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	_, structured := opts[ports.OptionResponseSchema]
	ctx, span := s.tracer.Start(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrModel.String(s.next.GetModel()), attrStructured.Bool(structured)),
	)
	defer span.End()

	text, in, out, err := s.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			span.SetAttributes(attrErrorType.String(pe.Type.String()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return text, in, out, err
	}
	span.SetAttributes(attrInputTokens.Int(in), attrOutputTokens.Int(out))
	return text, in, out, nil
}

func (s *spanLLM) GetModel() string  { return s.next.GetModel() }
func (s *spanLLM) SetModel(m string) { s.next.SetModel(m) }
