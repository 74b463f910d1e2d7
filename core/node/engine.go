package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/leofalp/nodeflow/core/bus"
	"github.com/leofalp/nodeflow/core/graph"
	"github.com/leofalp/nodeflow/internal/expressions"
	"github.com/leofalp/nodeflow/providers/observability"
	"github.com/leofalp/nodeflow/providers/tool"
	"github.com/leofalp/nodeflow/providers/tool/webfetch"
)

// Defaults are used by nodes whose config leaves a field empty.
type Defaults struct {
	// Endpoint is the chat completions URL for agent nodes.
	Endpoint string
	// APIKey authenticates agent requests.
	APIKey string
	// Model is the agent model.
	Model string
	// SearchEndpoint serves web_search nodes and the retrieval tool.
	SearchEndpoint string
	// EmbeddingsEndpoint is the embeddings URL for embeddings nodes. They
	// share APIKey with agent nodes.
	EmbeddingsEndpoint string
	// EmbeddingsModel is the embeddings model.
	EmbeddingsModel string
}

// Engine executes nodes. The bus and every other collaborator are injected;
// two engines never share state unless given the same bus.
type Engine struct {
	bus        bus.Bus
	httpClient *http.Client
	fetcher    *webfetch.Fetcher
	logger     *slog.Logger
	observer   observability.Provider
	tools      *tool.Catalog
	defaults   Defaults

	jq        *expressions.JQ
	predicate *expressions.Predicate

	pushMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus sets the message bus used by publisher and subscriber nodes.
func WithBus(messageBus bus.Bus) Option {
	return func(engine *Engine) {
		engine.bus = messageBus
	}
}

// WithHTTPClient sets the client for model and search requests.
func WithHTTPClient(client *http.Client) Option {
	return func(engine *Engine) {
		engine.httpClient = client
	}
}

// WithFetcher sets the page fetcher used by web_content nodes.
func WithFetcher(fetcher *webfetch.Fetcher) Option {
	return func(engine *Engine) {
		engine.fetcher = fetcher
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) {
		engine.logger = logger
	}
}

// WithObserver sets the provider for spans and bus metrics.
func WithObserver(observer observability.Provider) Option {
	return func(engine *Engine) {
		engine.observer = observer
	}
}

// WithTools registers tools agent nodes may list under tools.functions.
func WithTools(tools ...tool.GenericTool) Option {
	return func(engine *Engine) {
		engine.tools.Add(tools...)
	}
}

// WithDefaults sets fallbacks for empty node config fields.
func WithDefaults(defaults Defaults) Option {
	return func(engine *Engine) {
		engine.defaults = defaults
	}
}

// New creates an Engine. Without WithBus it gets its own in-memory bus.
func New(opts ...Option) *Engine {
	engine := &Engine{
		httpClient: http.DefaultClient,
		tools:      tool.NewCatalog(),
		jq:         expressions.NewJQ(),
		predicate:  expressions.NewPredicate(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.bus == nil {
		engine.bus = bus.NewMemory()
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}
	if engine.fetcher == nil {
		engine.fetcher = webfetch.New()
	}
	return engine
}

// Bus returns the engine's message bus.
func (engine *Engine) Bus() bus.Bus {
	return engine.bus
}

// Logger returns the engine's logger.
func (engine *Engine) Logger() *slog.Logger {
	return engine.logger
}

// executorFor selects the executor of kind. The noop kind has none.
func (engine *Engine) executorFor(kind graph.Kind) (Executor, error) {
	switch kind {
	case graph.KindNoop:
		return nil, nil
	case graph.KindText:
		return textExecutor{}, nil
	case graph.KindAgent:
		return agentExecutor{engine: engine}, nil
	case graph.KindEmbeddings:
		return embeddingsExecutor{engine: engine}, nil
	case graph.KindResponse:
		return responseExecutor{}, nil
	case graph.KindWebSearch:
		return webSearchExecutor{engine: engine}, nil
	case graph.KindWebContent:
		return webContentExecutor{engine: engine}, nil
	case graph.KindSplitText:
		return splitTextExecutor{}, nil
	case graph.KindTransform:
		return transformExecutor{engine: engine}, nil
	case graph.KindGate:
		return gateExecutor{engine: engine}, nil
	case graph.KindPublisher:
		return publisherExecutor{engine: engine}, nil
	case graph.KindSubscriber:
		return subscriberExecutor{engine: engine}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Execute runs one node: gather, invoke, publish. Re-executing recomputes the
// output from current inputs and config; nothing from the previous run is
// kept. On failure the output is cleared, the error is recorded on the node
// and returned. Failures are never retried.
func (engine *Engine) Execute(ctx context.Context, g *graph.Graph, nodeID string) (Status, error) {
	graphNode, err := g.Node(nodeID)
	if err != nil {
		return StatusFailed, err
	}

	executor, err := engine.executorFor(graphNode.Kind)
	if err != nil {
		return engine.fail(g, nodeID, err)
	}
	if executor == nil {
		return StatusNoop, nil
	}
	if err = ctx.Err(); err != nil {
		return engine.fail(g, nodeID, err)
	}

	call := &Call{Graph: g, Node: graphNode}
	if err = executor.Gather(ctx, call); err != nil {
		return engine.fail(g, nodeID, fmt.Errorf("gather: %w", err))
	}

	output, err := executor.Invoke(ctx, call)
	if errors.Is(err, ErrHalt) {
		_ = g.SetOutput(nodeID, graph.Output{})
		_ = g.SetError(nodeID, nil)
		return StatusHalted, nil
	}
	if errors.Is(err, ErrNoop) {
		_ = g.SetOutput(nodeID, graph.Output{})
		_ = g.SetError(nodeID, nil)
		return StatusNoop, nil
	}
	if err != nil {
		return engine.fail(g, nodeID, err)
	}

	if err = executor.Publish(ctx, call, output); err != nil {
		return engine.fail(g, nodeID, fmt.Errorf("publish: %w", err))
	}
	return StatusCompleted, nil
}

func (engine *Engine) fail(g *graph.Graph, nodeID string, err error) (Status, error) {
	_ = g.SetOutput(nodeID, graph.Output{})
	_ = g.SetError(nodeID, err)
	return StatusFailed, err
}

// counter adds to a metric when an observer is configured.
func (engine *Engine) counter(ctx context.Context, name string, attrs ...observability.Attribute) {
	if engine.observer == nil {
		return
	}
	engine.observer.Counter(name).Add(ctx, 1, attrs...)
}
