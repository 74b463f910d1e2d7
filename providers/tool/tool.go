package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	openaischema "github.com/sashabaranov/go-openai/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/leofalp/nodeflow/core/parse"
	"github.com/leofalp/nodeflow/providers/observability"
)

// ErrInvalidArguments is returned by Call when the arguments do not satisfy
// the tool's parameter schema.
var ErrInvalidArguments = errors.New("tool: invalid arguments")

// GenericTool is the type-erased view of a Tool.
type GenericTool interface {
	// Definition describes the tool to the model.
	Definition() goopenai.FunctionDefinition

	// Call runs the tool with the model's JSON argument string and returns the
	// result as prompt text.
	Call(ctx context.Context, arguments string) (string, error)
}

// Tool is a typed side action.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *openaischema.Definition
	Function    func(ctx context.Context, input I) (O, error)

	render    func(O) string
	validator *jsonschema.Schema
}

// Option configures a Tool.
type Option[I, O any] func(*Tool[I, O])

// WithDescription sets the description surfaced to the model.
func WithDescription[I, O any](description string) Option[I, O] {
	return func(tool *Tool[I, O]) {
		tool.Description = description
	}
}

// WithRender sets how the output is turned into prompt text. Without it
// string outputs are used as-is and anything else is encoded as JSON.
func WithRender[I, O any](render func(O) string) Option[I, O] {
	return func(tool *Tool[I, O]) {
		tool.render = render
	}
}

// New builds a Tool whose parameter schema is generated from I and compiled
// for argument validation.
func New[I, O any](name string, function func(ctx context.Context, input I) (O, error), opts ...Option[I, O]) (*Tool[I, O], error) {
	var zero I
	parameters, err := openaischema.GenerateSchemaForType(zero)
	if err != nil {
		return nil, fmt.Errorf("tool %s: generate schema: %w", name, err)
	}

	validator, err := compileSchema(name, parameters)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}

	tool := &Tool[I, O]{
		Name:       name,
		Parameters: parameters,
		Function:   function,
		validator:  validator,
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool, nil
}

func compileSchema(name string, definition *openaischema.Definition) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(definition)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	document, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	location := "tool://" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err = compiler.AddResource(location, document); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(location)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Definition implements GenericTool.
func (tool *Tool[I, O]) Definition() goopenai.FunctionDefinition {
	return goopenai.FunctionDefinition{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters:  tool.Parameters,
	}
}

// Call implements GenericTool. Span events are recorded when a span is
// present in ctx.
func (tool *Tool[I, O]) Call(ctx context.Context, arguments string) (string, error) {
	span := observability.SpanFromContext(ctx)
	if span != nil {
		span.AddEvent(observability.EventToolExecutionStart,
			observability.String(observability.AttrToolName, tool.Name),
			observability.String(observability.AttrToolInput, arguments),
		)
		defer span.AddEvent(observability.EventToolExecutionEnd)
	}

	start := time.Now()
	result, err := tool.call(ctx, arguments)
	if span != nil {
		span.SetAttributes(observability.Duration(observability.AttrToolDuration, time.Since(start)))
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(observability.String(observability.AttrToolError, err.Error()))
		}
	}
	return result, err
}

func (tool *Tool[I, O]) call(ctx context.Context, arguments string) (string, error) {
	decoded, err := parse.Arguments(arguments)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	// The validator expects numbers as json.Number.
	document, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err = tool.validator.Validate(document); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	input, err := parse.As[I](string(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	output, err := tool.Function(ctx, input)
	if err != nil {
		return "", err
	}
	return tool.renderOutput(output)
}

func (tool *Tool[I, O]) renderOutput(output O) (string, error) {
	if tool.render != nil {
		return tool.render(output), nil
	}
	if text, isString := any(output).(string); isString {
		return text, nil
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("encode output: %w", err)
	}
	return string(encoded), nil
}
