// Package observability holds the reporting contract shared by the runner,
// the node engine and the HTTP helpers.
//
// A [Provider] travels either as an explicit option (runner.WithObserver,
// node.WithObserver) or on the context via [ContextWithObserver]; the active
// [Span] travels with [ContextWithSpan]. The slog subpackage implements the
// contract on log/slog and can forward instruments to the prom subpackage.
//
// semconv.go names every attribute, span and metric recorded in this module.
package observability
