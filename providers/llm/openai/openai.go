package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"slices"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/nodeflow/core/stream"
	"github.com/leofalp/nodeflow/internal/utils"
	"github.com/leofalp/nodeflow/providers/observability"
)

// DefaultEndpoint is the chat completions URL used when none is configured.
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

var (
	// ErrNoChoices is returned when a completion response carries no choices.
	ErrNoChoices = errors.New("openai: response has no choices")
	// ErrNoEmbeddings is returned when an embeddings response carries no data.
	ErrNoEmbeddings = errors.New("openai: response has no embeddings")
)

// Client sends chat completion requests to one endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for outbound requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		client.httpClient = httpClient
	}
}

// WithLogger sets the logger used for stream decode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// New creates a client for endpoint, the full chat completions URL. An empty
// endpoint selects DefaultEndpoint. An empty apiKey sends no Authorization header.
func New(endpoint, apiKey string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	client := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Endpoint returns the URL requests are sent to.
func (client *Client) Endpoint() string {
	return client.endpoint
}

// Complete performs one request/response completion.
func (client *Client) Complete(ctx context.Context, request goopenai.ChatCompletionRequest) (*goopenai.ChatCompletionResponse, error) {
	request.Stream = false
	client.annotate(ctx, request)

	_, response, err := utils.DoPostSync[goopenai.ChatCompletionResponse](ctx, client.httpClient, client.endpoint, client.apiKey, request)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, ErrNoChoices
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(observability.String(observability.AttrLLMFinishReason, string(response.Choices[0].FinishReason)))
	}
	return response, nil
}

// Stream starts a streaming completion and returns its deltas. Errors before
// the stream starts (transport, non-2xx) are returned directly; read errors
// end the sequence. The response body is closed when iteration ends, so the
// caller must range over the sequence.
func (client *Client) Stream(ctx context.Context, request goopenai.ChatCompletionRequest) (iter.Seq2[string, error], error) {
	request.Stream = true
	client.annotate(ctx, request)

	response, err := utils.DoPostStream(ctx, client.httpClient, client.endpoint, client.apiKey, request)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}

	deltas := func(yield func(string, error) bool) {
		defer utils.CloseWithLog(response.Body)

		observer := observability.ObserverFromContext(ctx)
		count := 0
		defer func() {
			if span := observability.SpanFromContext(ctx); span != nil {
				span.SetAttributes(observability.Int(observability.AttrLLMDeltaCount, count))
			}
			if observer != nil && count > 0 {
				observer.Counter(observability.MetricLLMDeltas).Add(ctx, int64(count),
					observability.String(observability.AttrLLMModel, request.Model))
			}
		}()

		for delta, err := range stream.Deltas(ctx, response.Body, stream.WithLogger(client.logger)) {
			if err == nil {
				count++
			}
			if !yield(delta, err) {
				return
			}
		}
	}
	return deltas, nil
}

// Embed requests one vector per input. The client's endpoint must be an
// embeddings URL.
func (client *Client) Embed(ctx context.Context, request goopenai.EmbeddingRequest) (*goopenai.EmbeddingResponse, error) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMEndpoint, client.endpoint),
			observability.String(observability.AttrLLMModel, string(request.Model)),
		)
	}

	_, response, err := utils.DoPostSync[goopenai.EmbeddingResponse](ctx, client.httpClient, client.endpoint, client.apiKey, request)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(response.Data) == 0 {
		return nil, ErrNoEmbeddings
	}
	return response, nil
}

// Vectors returns the embeddings of response ordered by input index.
func Vectors(response *goopenai.EmbeddingResponse) [][]float32 {
	if response == nil {
		return nil
	}
	data := slices.Clone(response.Data)
	slices.SortStableFunc(data, func(a, b goopenai.Embedding) int {
		return a.Index - b.Index
	})
	vectors := make([][]float32, len(data))
	for index, embedding := range data {
		vectors[index] = embedding.Embedding
	}
	return vectors
}

func (client *Client) annotate(ctx context.Context, request goopenai.ChatCompletionRequest) {
	span := observability.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.SetAttributes(
		observability.String(observability.AttrLLMEndpoint, client.endpoint),
		observability.String(observability.AttrLLMModel, request.Model),
		observability.Bool(observability.AttrLLMStream, request.Stream),
	)
}

// Content returns the text of the first choice.
func Content(response *goopenai.ChatCompletionResponse) string {
	if response == nil || len(response.Choices) == 0 {
		return ""
	}
	return response.Choices[0].Message.Content
}

// FunctionCall reports which declared function the model asked for, reading
// message.tool_calls[0].function first and the legacy message.function_call
// second.
func FunctionCall(response *goopenai.ChatCompletionResponse) (name, arguments string, ok bool) {
	if response == nil || len(response.Choices) == 0 {
		return "", "", false
	}
	message := response.Choices[0].Message
	if len(message.ToolCalls) > 0 && message.ToolCalls[0].Function.Name != "" {
		return message.ToolCalls[0].Function.Name, message.ToolCalls[0].Function.Arguments, true
	}
	if message.FunctionCall != nil && message.FunctionCall.Name != "" {
		return message.FunctionCall.Name, message.FunctionCall.Arguments, true
	}
	return "", "", false
}
