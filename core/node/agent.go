package node

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/providers/llm/openai"
	"github.com/leofalp/nodeflow/providers/observability"
	"github.com/leofalp/nodeflow/providers/tool"
	"github.com/leofalp/nodeflow/providers/tool/websearch"
)

// ErrEmptyPrompt is returned by agent nodes with neither a prompt nor upstream text.
var ErrEmptyPrompt = errors.New("agent: nothing to send")

// retrievalPreamble introduces side action results spliced into the prompt.
const retrievalPreamble = "Use the following retrieved context to answer.\n\nContext:\n"

type agentConfig struct {
	Endpoint    string     `mapstructure:"endpoint"`
	APIKey      string     `mapstructure:"api_key"`
	Model       string     `mapstructure:"model"`
	System      string     `mapstructure:"system"`
	Prompt      string     `mapstructure:"prompt"`
	Stream      bool       `mapstructure:"stream"`
	Temperature float32    `mapstructure:"temperature"`
	MaxTokens   int        `mapstructure:"max_tokens"`
	Tools       agentTools `mapstructure:"tools"`
}

type agentTools struct {
	// Retrieval offers the web search side action.
	Retrieval bool `mapstructure:"retrieval"`
	// SearchEndpoint overrides the engine's search endpoint for retrieval.
	SearchEndpoint string `mapstructure:"search_endpoint"`
	// Functions names extra tools registered on the engine.
	Functions []string `mapstructure:"functions"`
}

// agentExecutor calls an OpenAI-compatible chat completion endpoint.
type agentExecutor struct {
	textGather
	outputPublisher

	engine *Engine
}

func (executor agentExecutor) Invoke(ctx context.Context, call *Call) (graph.Output, error) {
	engine := executor.engine

	var config agentConfig
	if err := decodeConfig(call.Settings(), &config); err != nil {
		return graph.Output{}, err
	}
	executor.applyDefaults(&config)

	prompt := joinNonEmpty(config.Prompt, call.Upstream)
	if prompt == "" {
		return graph.Output{}, ErrEmptyPrompt
	}

	client := openai.New(config.Endpoint, config.APIKey,
		openai.WithHTTPClient(engine.httpClient),
		openai.WithLogger(engine.logger),
	)

	if catalog := executor.catalog(config.Tools); catalog.Size() > 0 {
		prompt = executor.augment(ctx, client, executor.request(config, prompt), catalog, prompt)
	}
	request := executor.request(config, prompt)

	ctx, span := executor.startSpan(ctx, call, config)
	if span != nil {
		defer span.End()
	}

	if !config.Stream {
		response, err := client.Complete(ctx, request)
		if err != nil {
			recordSpanError(span, err)
			return graph.Output{}, err
		}
		return graph.TextOutput(openai.Content(response)), nil
	}

	deltas, err := client.Stream(ctx, request)
	if err != nil {
		recordSpanError(span, err)
		return graph.Output{}, err
	}
	output, err := engine.streamInto(ctx, call, deltas)
	if err != nil {
		recordSpanError(span, err)
		return graph.Output{}, err
	}
	return output, nil
}

func (executor agentExecutor) applyDefaults(config *agentConfig) {
	defaults := executor.engine.defaults
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.APIKey == "" {
		config.APIKey = defaults.APIKey
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Tools.SearchEndpoint == "" {
		config.Tools.SearchEndpoint = defaults.SearchEndpoint
	}
}

func (executor agentExecutor) request(config agentConfig, prompt string) goopenai.ChatCompletionRequest {
	var messages []goopenai.ChatCompletionMessage
	if config.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: config.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	return goopenai.ChatCompletionRequest{
		Model:       config.Model,
		Messages:    messages,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
	}
}

// catalog builds the tools offered to this node.
func (executor agentExecutor) catalog(config agentTools) *tool.Catalog {
	engine := executor.engine
	catalog := tool.NewCatalog()

	if config.Retrieval {
		if config.SearchEndpoint == "" {
			engine.logger.Warn("retrieval enabled without a search endpoint")
		} else if retrieval, err := websearch.NewTool(websearch.New(config.SearchEndpoint, engine.httpClient)); err != nil {
			engine.logger.Warn("retrieval tool unavailable", "error", err.Error())
		} else {
			catalog.Add(retrieval)
		}
	}

	for _, name := range config.Functions {
		registered, found := engine.tools.Get(name)
		if !found {
			engine.logger.Warn("unknown tool requested", "tool", name)
			continue
		}
		catalog.Add(registered)
	}
	return catalog
}

// augment runs the tool-call round trip. The selection request declares the catalog as
// functions; when the model names one, its result is spliced into the prompt.
// Any failure along the way is logged and the prompt is returned unchanged.
func (executor agentExecutor) augment(ctx context.Context, client *openai.Client, selection goopenai.ChatCompletionRequest, catalog *tool.Catalog, prompt string) string {
	logger := executor.engine.logger

	selection.Functions = catalog.Definitions()
	selection.FunctionCall = "auto"

	response, err := client.Complete(ctx, selection)
	if err != nil {
		logger.Warn("tool selection failed, continuing without augmentation", "error", err.Error())
		return prompt
	}

	name, arguments, requested := openai.FunctionCall(response)
	if !requested {
		return prompt
	}
	selected, found := catalog.Get(name)
	if !found {
		logger.Warn("model requested an undeclared function", "tool", name)
		return prompt
	}

	if observer := executor.engine.observer; observer != nil {
		var span observability.Span
		ctx, span = observer.StartSpan(ctx, observability.SpanToolExecution,
			observability.String(observability.AttrToolName, name))
		defer span.End()
		ctx = observability.ContextWithSpan(ctx, span)
	}

	result, err := selected.Call(ctx, arguments)
	if err != nil {
		logger.Warn("tool call failed, continuing without augmentation", "tool", name, "error", err.Error())
		return prompt
	}
	if strings.TrimSpace(result) == "" {
		return prompt
	}
	logger.Debug("prompt augmented by tool", "tool", name, "size", len(result))
	return prompt + graph.ChunkSeparator + retrievalPreamble + result
}

func (executor agentExecutor) startSpan(ctx context.Context, call *Call, config agentConfig) (context.Context, observability.Span) {
	observer := executor.engine.observer
	if observer == nil {
		return ctx, nil
	}
	ctx, span := observer.StartSpan(ctx, observability.SpanLLMRequest,
		observability.String(observability.AttrNodeID, call.Node.ID),
		observability.String(observability.AttrLLMModel, config.Model),
	)
	ctx = observability.ContextWithSpan(ctx, span)
	return observability.ContextWithObserver(ctx, observer), span
}

func recordSpanError(span observability.Span, err error) {
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(observability.StatusError, fmt.Sprintf("llm request failed: %v", err))
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, graph.ChunkSeparator)
}
