package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- LLM Attributes ---

const (
	// AttrLLMModel is the model identifier (e.g., "gpt-4o")
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMStream indicates whether the call streamed
	AttrLLMStream = "llm.stream"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMDeltaCount is the number of deltas received from a stream
	AttrLLMDeltaCount = "llm.delta_count"
)

// --- Tool Attributes ---

const (
	// AttrToolName is the name of the function the model asked for
	AttrToolName = "tool.name"

	// AttrToolInput is the tool input (serialized)
	AttrToolInput = "tool.input"

	// AttrToolError is the error message if the side action failed
	AttrToolError = "tool.error"

	// AttrToolDuration is the side action execution time
	AttrToolDuration = "tool.duration"
)

// --- Event Names ---

const (
	// EventToolExecutionStart marks the start of a side action
	EventToolExecutionStart = "tool.execution.start"

	// EventToolExecutionEnd marks the end of a side action
	EventToolExecutionEnd = "tool.execution.end"
)

// --- HTTP Attributes ---

const (
	// AttrHTTPMethod is the HTTP method (GET, POST, etc.)
	AttrHTTPMethod = "http.method"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Node and Bus Attributes ---

const (
	// AttrNodeID identifies the node within the graph
	AttrNodeID = "node.id"

	// AttrNodeKind is the node kind tag
	AttrNodeKind = "node.kind"

	// AttrNodeStatus is the execution status of a node
	AttrNodeStatus = "node.status"

	// AttrRunID identifies one graph run
	AttrRunID = "run.id"

	// AttrBusTopic is the message bus topic
	AttrBusTopic = "bus.topic"

	// AttrBusPayloadSize is the payload length in bytes
	AttrBusPayloadSize = "bus.payload.size"
)

// --- General Attributes ---

const (
	// AttrError is the error message
	AttrError = "error"

	// AttrDuration is the operation duration
	AttrDuration = "duration"

	// AttrStatus is the operation status
	AttrStatus = "status"

	// AttrStatusDescription is the status description
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanLLMRequest is the span name for chat completion requests
	SpanLLMRequest = "llm.request"

	// SpanToolExecution is the span name for tool-call side actions
	SpanToolExecution = "tool.execution"
)

// --- Metric Names ---

const (
	// MetricRunDuration is the histogram for whole graph run duration (seconds)
	MetricRunDuration = "nodeflow.run.duration"

	// MetricNodeCount counts node executions by kind and status
	MetricNodeCount = "nodeflow.node.count"

	// MetricNodeDuration is the histogram for node execution duration (seconds)
	MetricNodeDuration = "nodeflow.node.duration"

	// MetricBusPublished counts payloads appended to the bus
	MetricBusPublished = "nodeflow.bus.published"

	// MetricBusConsumed counts consume attempts, labelled by outcome
	MetricBusConsumed = "nodeflow.bus.consumed"

	// MetricLLMDeltas counts stream deltas received
	MetricLLMDeltas = "nodeflow.llm.deltas"
)
