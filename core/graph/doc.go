// Package graph holds the node/edge model that the execution engine walks.
//
// A [Graph] is an ordered collection of [Node] values plus an ordered list of
// directed [Edge] values. Edge order is significant: when a node has several
// upstream sources, their outputs are read in the order the edges were added.
//
// The graph also owns the runtime side of every node (its typed [Output] and
// its last execution error). Runtime state is guarded by a mutex so that
// streaming nodes can push deltas into downstream nodes while other nodes of
// the same level execute.
//
// Acyclicity is not required by the model itself. [Graph.Levels] computes the
// dependency levels used by the runner and reports [ErrCycle] when the direct
// edges form a cycle.
package graph
