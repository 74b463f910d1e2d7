// Package node executes single graph nodes.
//
// Every node kind is one variant of a closed set, dispatched by a switch over
// graph.Kind to an [Executor] with three steps: Gather reads upstream outputs,
// Invoke runs the node's operation, Publish writes the result back onto the
// graph. [Engine.Execute] drives those steps and maps the outcome to a
// [Status].
//
// Invoke reads its parameters from [Call.Settings]: the node's config with
// its declared inputs laid over it, so a graph can set "prompt", "text",
// "query", "urls" or "topic" per node without touching the shared config.
//
// Operations come in three shapes. Request/response kinds make one network
// call. Streaming kinds append each decoded delta to their output as it
// arrives and push it to every downstream [Receiver], so a chain of display
// nodes updates token by token. A receiver rebuilds its input from all of its
// sources on every delta, in edge order, so text from sources that are not
// streaming stays in place. The agent kind can additionally run a
// tool-call round trip before its real call.
//
// Returning [ErrHalt] from Invoke means "nothing produced yet": the node ends
// with [StatusHalted], no error is recorded, and the runner does not execute
// its downstream nodes in that run.
package node
