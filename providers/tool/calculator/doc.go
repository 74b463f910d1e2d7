// Package calculator provides an arithmetic side action that agent nodes can
// request by listing "calculator" in tools.functions.
//
// The model sends one arithmetic expression, evaluated in-process with expr.
// Variables are not available, so only literals, operators and built-in
// functions such as abs, ceil or max can appear.
package calculator
